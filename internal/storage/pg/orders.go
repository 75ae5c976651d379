package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

func (s *Storage) InsertOrder(ctx context.Context, o *model.Order) (int64, error) {
	query := `INSERT INTO orders (symbol, price, quantity, order_type)
              VALUES ($1, $2, $3, $4)
              RETURNING id`

	var id int64
	err := s.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, query, o.Symbol, o.Price, o.Quantity, string(o.OrderType)).Scan(&id); err != nil {
			return unavailable("insert order", err)
		}
		return nil
	})
	return id, err
}

func (s *Storage) ListOrders(ctx context.Context) ([]model.Order, error) {
	query := `SELECT id, symbol, price, quantity, order_type
              FROM orders
              ORDER BY id`

	orders := make([]model.Order, 0)
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, query)
		if err != nil {
			return unavailable("list orders", err)
		}

		collected, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Order, error) {
			var (
				o         model.Order
				orderType string
			)
			err := row.Scan(&o.ID, &o.Symbol, &o.Price, &o.Quantity, &orderType)
			o.OrderType = model.OrderType(orderType)
			return o, err
		})
		if err != nil {
			return unavailable("scan orders", err)
		}
		orders = append(orders, collected...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
