package order

import (
	"context"
	"fmt"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

func (s *Service) List(ctx context.Context) ([]model.Order, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.List: %w", err)
	}
	return orders, nil
}
