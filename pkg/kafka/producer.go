package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

const (
	HeaderEventType = "event-type"

	defaultDeliveryTimeout = 30 * time.Second
	flushTimeout           = 10 * time.Second
)

var ErrNoTopic = errors.New("outbox message has no topic")

type ProducerConfig struct {
	Brokers         string
	Acks            string
	LingerMs        int
	Compression     string
	DeliveryTimeout time.Duration
}

func (c *ProducerConfig) configMap() *kafka.ConfigMap {
	timeout := c.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	cm := &kafka.ConfigMap{
		"bootstrap.servers":   c.Brokers,
		"enable.idempotence":  true,
		"linger.ms":           c.LingerMs,
		"delivery.timeout.ms": int(timeout.Milliseconds()),
	}
	if c.Acks != "" {
		_ = cm.SetKey("acks", c.Acks)
	}
	if c.Compression != "" {
		_ = cm.SetKey("compression.type", c.Compression)
	}
	return cm
}

// Producer publishes order events stored in the outbox, one delivery report
// per message.
type Producer struct {
	p      *kafka.Producer
	logger *slog.Logger
}

func NewProducer(cfg *ProducerConfig, log *slog.Logger) (*Producer, error) {
	p, err := kafka.NewProducer(cfg.configMap())
	if err != nil {
		return nil, fmt.Errorf("kafka.NewProducer: %w", err)
	}

	return &Producer{
		p:      p,
		logger: log.With(slog.String("component", "kafka-producer")),
	}, nil
}

// Publish sends msg keyed by its order id and blocks until the broker
// acknowledges it, delivery fails, or ctx is done.
func (p *Producer) Publish(ctx context.Context, msg *model.OutboxMessage) error {
	km, err := toKafkaMessage(msg)
	if err != nil {
		return err
	}

	reports := make(chan kafka.Event, 1)
	if err = p.p.Produce(km, reports); err != nil {
		return fmt.Errorf("enqueue outbox %d: %w", msg.ID, err)
	}

	select {
	case ev := <-reports:
		return deliveryResult(msg.ID, ev)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) Close() {
	if n := p.p.Flush(int(flushTimeout.Milliseconds())); n > 0 {
		p.logger.Warn("events left unflushed", slog.Int("remaining", n))
	}
	p.p.Close()
}

func toKafkaMessage(msg *model.OutboxMessage) (*kafka.Message, error) {
	if msg.Topic == "" {
		return nil, fmt.Errorf("outbox %d: %w", msg.ID, ErrNoTopic)
	}
	topic := msg.Topic

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		if k != HeaderEventType {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	headers := make([]kafka.Header, 0, len(keys)+1)
	headers = append(headers, kafka.Header{Key: HeaderEventType, Value: []byte(msg.EventType)})
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(msg.Headers[k])})
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(msg.Key),
		Value:          msg.Payload,
		Headers:        headers,
	}, nil
}

func deliveryResult(id int64, ev kafka.Event) error {
	switch e := ev.(type) {
	case *kafka.Message:
		if e.TopicPartition.Error != nil {
			return fmt.Errorf("deliver outbox %d: %w", id, e.TopicPartition.Error)
		}
		return nil
	case kafka.Error:
		return fmt.Errorf("deliver outbox %d: %w", id, e)
	default:
		return fmt.Errorf("deliver outbox %d: unexpected event %T", id, ev)
	}
}
