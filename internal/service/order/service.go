package order

import (
	"context"
	"log/slog"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

type Repository interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertOrder(ctx context.Context, o *model.Order) (int64, error)
	InsertOutboxMsg(ctx context.Context, msg *model.OutboxMessage) error
	ListOrders(ctx context.Context) ([]model.Order, error)
}

// Service is stateless between calls; every result depends only on the repository.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	eventTopic string
}

type Option func(*Service)

// WithOrderEvents makes Create record an OrderCreated outbox message for topic
// in the same transaction as the order row.
func WithOrderEvents(topic string) Option {
	return func(s *Service) {
		s.eventTopic = topic
	}
}

func NewOrderService(l *slog.Logger, repo Repository, opts ...Option) *Service {
	s := &Service{
		logger: l,
		repo:   repo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
