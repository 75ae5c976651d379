package order

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

// Create validates raw and stores the normalized order. Validation failures
// return a *model.ValidationError and never reach the repository.
func (s *Service) Create(ctx context.Context, raw model.RawOrder) (*model.Order, error) {
	order, err := model.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}

	if s.eventTopic == "" {
		order.ID, err = s.repo.InsertOrder(ctx, order)
	} else {
		err = s.repo.RunInTx(ctx, func(ctx context.Context) error {
			return s.insertWithEvent(ctx, order)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}

	s.logger.Info("order created",
		slog.Int64("id", order.ID),
		slog.String("symbol", order.Symbol),
		slog.String("order_type", string(order.OrderType)))
	return order, nil
}

func (s *Service) insertWithEvent(ctx context.Context, order *model.Order) error {
	id, err := s.repo.InsertOrder(ctx, order)
	if err != nil {
		return err
	}
	order.ID = id

	msg, err := model.NewOrderCreatedMessage(s.eventTopic, order)
	if err != nil {
		return err
	}
	if err = s.repo.InsertOutboxMsg(ctx, msg); err != nil {
		return fmt.Errorf("insert outbox msg: %w", err)
	}
	return nil
}
