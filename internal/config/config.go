package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App     App     `yaml:"app"`
	HTTP    HTTP    `yaml:"http"`
	WS      WS      `yaml:"ws"`
	Storage Storage `yaml:"storage"`
	Kafka   Kafka   `yaml:"kafka"`
	Outbox  Outbox  `yaml:"outbox"`
}

type App struct {
	Name     string `yaml:"name"      env:"APP_NAME"      env-default:"trade-orders"`
	LogLevel string `yaml:"log_level" env:"APP_LOG_LEVEL" env-default:"info"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"             env:"HTTP_ADDR"             env-default:":8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
	CORSOrigins     []string      `yaml:"cors_origins"     env:"HTTP_CORS_ORIGINS"     env-separator:","`
}

type WS struct {
	MaxMessageBytes  int64         `yaml:"max_message_bytes"  env:"WS_MAX_MESSAGE_BYTES"  env-default:"65536"`
	CloseGracePeriod time.Duration `yaml:"close_grace_period" env:"WS_CLOSE_GRACE_PERIOD" env-default:"5s"`
}

type Storage struct {
	Driver   string   `yaml:"driver"   env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLite   SQLite   `yaml:"sqlite"`
	Postgres Postgres `yaml:"postgres"`
}

type SQLite struct {
	Path        string        `yaml:"path"         env:"SQLITE_PATH"         env-default:"orders.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"SQLITE_BUSY_TIMEOUT" env-default:"5s"`
}

type Postgres struct {
	DSN             string        `yaml:"dsn"                env:"POSTGRES_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"POSTGRES_MAX_CONNS"          env-default:"20"`
	MinConns        int32         `yaml:"min_conns"          env:"POSTGRES_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"POSTGRES_MAX_CONN_LIFETIME"  env-default:"30m"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"POSTGRES_MAX_CONN_IDLE_TIME" env-default:"5m"`
}

type Kafka struct {
	Enabled     bool   `yaml:"enabled"     env:"KAFKA_ENABLED"     env-default:"false"`
	Brokers     string `yaml:"brokers"     env:"KAFKA_BROKERS"     env-default:"localhost:29092"`
	EventTopic  string `yaml:"event_topic" env:"KAFKA_EVENT_TOPIC" env-default:"order-events"`
	Acks        string `yaml:"acks"        env:"KAFKA_ACKS"        env-default:"all"`
	LingerMs    int    `yaml:"linger_ms"   env:"KAFKA_LINGER_MS"   env-default:"10"`
	Compression string `yaml:"compression" env:"KAFKA_COMPRESSION" env-default:"lz4"`

	DeliveryTimeout time.Duration `yaml:"delivery_timeout" env:"KAFKA_DELIVERY_TIMEOUT" env-default:"30s"`
}

type Outbox struct {
	BatchSize    int           `yaml:"batch_size"    env:"OUTBOX_BATCH_SIZE"    env-default:"100"`
	PollInterval time.Duration `yaml:"poll_interval" env:"OUTBOX_POLL_INTERVAL" env-default:"500ms"`
}

// Load reads the YAML file at path with environment overrides. An empty
// path reads the environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading env: %w", err)
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config: %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, errors.New("storage.sqlite.path is required"))
		}
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: want %q or %q", c.Storage.Driver, DriverSQLite, DriverPostgres))
	}

	if c.Kafka.Enabled {
		if c.Kafka.Brokers == "" {
			errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
		}
		if c.Kafka.EventTopic == "" {
			errs = append(errs, errors.New("kafka.event_topic is required when kafka is enabled"))
		}
		if c.Outbox.BatchSize <= 0 || c.Outbox.PollInterval <= 0 {
			errs = append(errs, errors.New("outbox.batch_size and outbox.poll_interval must be positive"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
