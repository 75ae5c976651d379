package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

const maxOutboxRetries = 5

func (s *Storage) InsertOutboxMsg(ctx context.Context, msg *model.OutboxMessage) error {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	query := `INSERT INTO outbox (topic, message_key, event_type, payload, headers)
              VALUES (?, ?, ?, ?, ?)`

	return s.withConn(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, query, msg.Topic, msg.Key, msg.EventType, msg.Payload, string(headers)); err != nil {
			return unavailable("insert outbox msg", err)
		}
		return nil
	})
}

func (s *Storage) GetBatch(ctx context.Context, batchSize int) ([]*model.OutboxMessage, error) {
	query := `SELECT id, topic, message_key, event_type, payload, headers
              FROM outbox
              WHERE published_at IS NULL AND retry_count < ?
              ORDER BY id
              LIMIT ?`

	var msgs []*model.OutboxMessage
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query, maxOutboxRetries, batchSize)
		if err != nil {
			return unavailable("get batch", err)
		}
		defer rows.Close()

		for rows.Next() {
			msg := &model.OutboxMessage{}
			var headersJSON string
			if err = rows.Scan(&msg.ID, &msg.Topic, &msg.Key, &msg.EventType, &msg.Payload, &headersJSON); err != nil {
				return unavailable("scan outbox message", err)
			}
			if err = json.Unmarshal([]byte(headersJSON), &msg.Headers); err != nil {
				return fmt.Errorf("unmarshal headers: %w", err)
			}
			msgs = append(msgs, msg)
		}
		if err = rows.Err(); err != nil {
			return unavailable("iterate outbox rows", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Storage) UpdateRetryCount(ctx context.Context, id int64, errMsg string) error {
	query := `UPDATE outbox
              SET
                  retry_count = retry_count + 1,
                  last_error = ?
              WHERE id = ?`

	return s.withConn(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, query, errMsg, id); err != nil {
			return unavailable("update retry count", err)
		}
		return nil
	})
}

func (s *Storage) MarkPublished(ctx context.Context, id int64) error {
	query := `UPDATE outbox
              SET published_at = CURRENT_TIMESTAMP
              WHERE id = ?`

	return s.withConn(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, query, id); err != nil {
			return unavailable("mark published", err)
		}
		return nil
	})
}
