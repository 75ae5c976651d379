package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

type RelayRepo interface {
	GetBatch(ctx context.Context, batchSize int) ([]*model.OutboxMessage, error)
	UpdateRetryCount(ctx context.Context, id int64, errMsg string) error
	MarkPublished(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, msg *model.OutboxMessage) error
}

// Relay publishes stored order events. Delivery is at least once: a crash
// between publish and MarkPublished republishes the row, keyed by order id.
type Relay struct {
	repo         RelayRepo
	publisher    Publisher
	logger       *slog.Logger
	batchSize    int
	pollInterval time.Duration
}

func NewRelay(r RelayRepo, p Publisher, l *slog.Logger, batchSize int, pollInterval time.Duration) *Relay {
	return &Relay{
		repo:         r,
		publisher:    p,
		logger:       l,
		batchSize:    batchSize,
		pollInterval: pollInterval,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started",
		slog.Int("batch_size", r.batchSize),
		slog.Duration("poll_interval", r.pollInterval))

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fetched, published, err := r.processBatch(ctx)
		if err != nil {
			r.logger.Error("outbox batch failed", slog.Any("error", err))
			return
		}
		// a batch that published nothing waits for the next tick
		if fetched < r.batchSize || published == 0 {
			return
		}
	}
}

// processBatch reports rows fetched and rows published. Rows are not held in
// a transaction while publishing, so a slow broker never blocks order writes.
func (r *Relay) processBatch(ctx context.Context) (fetched, published int, err error) {
	msgs, err := r.repo.GetBatch(ctx, r.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, msg := range msgs {
		if pubErr := r.publisher.Publish(ctx, msg); pubErr != nil {
			r.logger.Error("publish failed",
				slog.Int64("id", msg.ID),
				slog.Any("error", pubErr))
			if retryErr := r.repo.UpdateRetryCount(ctx, msg.ID, pubErr.Error()); retryErr != nil {
				return len(msgs), published, retryErr
			}
			continue
		}
		if err = r.repo.MarkPublished(ctx, msg.ID); err != nil {
			return len(msgs), published, err
		}
		published++
	}

	return len(msgs), published, nil
}
