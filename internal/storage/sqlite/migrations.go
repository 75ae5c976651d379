package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sanchey92/trade-orders/internal/storage/migrate"
)

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

var migrations = []migrate.Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    price REAL NOT NULL,
    quantity INTEGER NOT NULL,
    order_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    message_key TEXT NOT NULL,
    event_type TEXT NOT NULL,
    payload BLOB NOT NULL,
    headers TEXT NOT NULL DEFAULT '{}',
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    published_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox(published_at, created_at);
`,
	},
}

// Init creates the schema if absent. Safe to call on every start.
func (s *Storage) Init(ctx context.Context) error {
	var applied []string

	err := s.withConn(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, schemaVersionTable); err != nil {
			return unavailable("create schema_version", err)
		}

		rows, err := q.QueryContext(ctx, `SELECT version FROM schema_version`)
		if err != nil {
			return unavailable("read schema_version", err)
		}
		defer rows.Close()

		for rows.Next() {
			var v string
			if err = rows.Scan(&v); err != nil {
				return unavailable("scan schema_version", err)
			}
			applied = append(applied, v)
		}
		return rows.Err()
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	pending, err := migrate.Pending(migrations, applied)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	for _, m := range pending {
		err = s.RunInTx(ctx, func(ctx context.Context) error {
			return s.withConn(ctx, func(q querier) error {
				if _, err := q.ExecContext(ctx, m.Up); err != nil {
					return unavailable("apply migration "+m.Version, err)
				}
				if _, err := q.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.Version); err != nil {
					return unavailable("record migration "+m.Version, err)
				}
				return nil
			})
		})
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		s.logger.Info("migration applied", slog.String("version", m.Version))
	}

	return nil
}
