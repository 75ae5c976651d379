package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
)

type txKey struct{}

// querier is implemented by *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunInTx runs fn inside a transaction carried by the context. Nested calls
// join the outer transaction.
func (s *Storage) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback", slog.Any("error", rbErr))
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return unavailable("commit tx", err)
	}
	return nil
}

// withConn hands fn the transaction from ctx, or a connection acquired for
// this call alone and released when fn returns.
func (s *Storage) withConn(ctx context.Context, fn func(q querier) error) error {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(tx)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return unavailable("acquire connection", err)
	}
	defer func() {
		if cErr := conn.Close(); cErr != nil {
			s.logger.Warn("release connection", slog.Any("error", cErr))
		}
	}()

	return fn(conn)
}
