package pg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sanchey92/trade-orders/internal/storage/migrate"
)

// Serializes concurrent Init calls from several replicas.
const migrationLockID = 727001

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var migrations = []migrate.Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    symbol TEXT NOT NULL,
    price DOUBLE PRECISION NOT NULL,
    quantity BIGINT NOT NULL,
    order_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox (
    id BIGSERIAL PRIMARY KEY,
    topic TEXT NOT NULL,
    message_key TEXT NOT NULL,
    event_type TEXT NOT NULL,
    payload BYTEA NOT NULL,
    headers JSONB NOT NULL DEFAULT '{}',
    retry_count INT NOT NULL DEFAULT 0,
    last_error TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox(created_at) WHERE published_at IS NULL;
`,
	},
}

// Init creates the schema if absent. Safe to call on every start.
func (s *Storage) Init(ctx context.Context) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		return s.withConn(ctx, func(q querier) error {
			if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
				return unavailable("migration lock", err)
			}
			if _, err := q.Exec(ctx, schemaVersionTable); err != nil {
				return unavailable("create schema_version", err)
			}

			rows, err := q.Query(ctx, `SELECT version FROM schema_version`)
			if err != nil {
				return unavailable("read schema_version", err)
			}
			var applied []string
			for rows.Next() {
				var v string
				if err = rows.Scan(&v); err != nil {
					rows.Close()
					return unavailable("scan schema_version", err)
				}
				applied = append(applied, v)
			}
			rows.Close()
			if err = rows.Err(); err != nil {
				return unavailable("read schema_version", err)
			}

			pending, err := migrate.Pending(migrations, applied)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}

			for _, m := range pending {
				if _, err = q.Exec(ctx, m.Up); err != nil {
					return unavailable("apply migration "+m.Version, err)
				}
				if _, err = q.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.Version); err != nil {
					return unavailable("record migration "+m.Version, err)
				}
				s.logger.Info("migration applied", slog.String("version", m.Version))
			}
			return nil
		})
	})
}
