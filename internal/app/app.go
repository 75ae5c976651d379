package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/sanchey92/trade-orders/internal/config"
	"github.com/sanchey92/trade-orders/internal/http/router"
	"github.com/sanchey92/trade-orders/internal/service/order"
	"github.com/sanchey92/trade-orders/internal/storage/pg"
	"github.com/sanchey92/trade-orders/internal/storage/sqlite"
	"github.com/sanchey92/trade-orders/internal/ws"
	"github.com/sanchey92/trade-orders/pkg/kafka"
	"github.com/sanchey92/trade-orders/pkg/outbox"
)

type store interface {
	order.Repository
	outbox.RelayRepo
	Init(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    store
	hub      *ws.Hub
	server   *http.Server
	producer *kafka.Producer
	relay    *outbox.Relay
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}

	// Logger initialisation
	logger := newLogger(cfg.App.LogLevel, cfg.App.Name)
	slog.SetDefault(logger)
	logger.Info("initialising", slog.String("storage", cfg.Storage.Driver))

	// Storage initialisation; the schema exists before any request is served
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}
	if err = st.Init(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("app creation: %w", err)
	}
	logger.Info("storage ready")

	a := &App{
		cfg:    cfg,
		logger: logger,
		store:  st,
		hub:    ws.NewHub(logger),
	}

	var opts []order.Option
	if cfg.Kafka.Enabled {
		a.producer, err = kafka.NewProducer(&kafka.ProducerConfig{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            cfg.Kafka.Acks,
			LingerMs:        cfg.Kafka.LingerMs,
			Compression:     cfg.Kafka.Compression,
			DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		}, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("app creation: %w", err)
		}
		a.relay = outbox.NewRelay(st, a.producer, logger, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)
		opts = append(opts, order.WithOrderEvents(cfg.Kafka.EventTopic))
		logger.Info("order events enabled", slog.String("topic", cfg.Kafka.EventTopic))
	}

	orders := order.NewOrderService(logger, st, opts...)

	handler := router.New(router.Deps{
		Orders: orders,
		Store:  st,
		StatusChannel: ws.Handler(a.hub, ws.Config{
			MaxMessageBytes:  cfg.WS.MaxMessageBytes,
			CloseGracePeriod: cfg.WS.CloseGracePeriod,
			AllowedOrigins:   cfg.HTTP.CORSOrigins,
		}, logger),
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}, logger)

	a.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return a, nil
}

// Run serves until ctx is cancelled or a component fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", slog.String("addr", a.cfg.HTTP.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *App) shutdown() error {
	a.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	// Shutdown does not track hijacked websocket connections.
	if err := a.hub.CloseAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("status channel shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) close() {
	if a.producer != nil {
		a.producer.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("close storage", slog.Any("error", err))
	}
	a.logger.Info("stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return pg.NewPGStorage(ctx, logger, &pg.StorageConfig{
			DSN:             cfg.Storage.Postgres.DSN,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			MaxConnLife:     cfg.Storage.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Storage.Postgres.MaxConnIdleTime,
		})
	case config.DriverSQLite:
		return sqlite.NewSQLiteStorage(ctx, logger, &sqlite.StorageConfig{
			Path:        cfg.Storage.SQLite.Path,
			BusyTimeout: cfg.Storage.SQLite.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newLogger(level, service string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})).
		With(slog.String("service", service))
}
