package sqlite

import (
	"context"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

// InsertOrder stores a normalized order and returns the id SQLite assigned.
// The order is not validated here.
func (s *Storage) InsertOrder(ctx context.Context, o *model.Order) (int64, error) {
	query := `INSERT INTO orders (symbol, price, quantity, order_type)
              VALUES (?, ?, ?, ?)`

	var id int64
	err := s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, query, o.Symbol, o.Price, o.Quantity, string(o.OrderType))
		if err != nil {
			return unavailable("insert order", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return unavailable("insert order: last insert id", err)
		}
		return nil
	})
	return id, err
}

// ListOrders returns every stored order by ascending id.
func (s *Storage) ListOrders(ctx context.Context) ([]model.Order, error) {
	query := `SELECT id, symbol, price, quantity, order_type
              FROM orders
              ORDER BY id`

	orders := make([]model.Order, 0)
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query)
		if err != nil {
			return unavailable("list orders", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				o         model.Order
				orderType string
			)
			if err = rows.Scan(&o.ID, &o.Symbol, &o.Price, &o.Quantity, &orderType); err != nil {
				return unavailable("scan order", err)
			}
			o.OrderType = model.OrderType(orderType)
			orders = append(orders, o)
		}
		if err = rows.Err(); err != nil {
			return unavailable("iterate orders", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
