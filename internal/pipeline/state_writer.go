package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/metrics"
)

type LiveStateStore interface {
	PipelineStateUpdate(ctx context.Context, reading domain.TemperatureReading, ttl time.Duration) error
}

// StateWriter keeps the latest reading of every shipment in Redis for the
// live dashboard tiles.
type StateWriter struct {
	ch     <-chan domain.TemperatureReading
	redis  LiveStateStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewStateWriter(
	ch <-chan domain.TemperatureReading,
	redis LiveStateStore,
	ttl time.Duration,
	logger *zap.Logger,
) *StateWriter {
	return &StateWriter{ch: ch, redis: redis, ttl: ttl, logger: logger}
}

func (w *StateWriter) Run(ctx context.Context) {
	batch := make([]domain.TemperatureReading, 0, 100)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-w.ch:
			if !ok {
				w.flushBatch(context.Background(), batch)
				return
			}
			batch = append(batch, r)
			if len(batch) >= 100 {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			w.flushBatch(context.Background(), batch)
			return
		}
	}
}

func (w *StateWriter) flushBatch(ctx context.Context, batch []domain.TemperatureReading) {
	for _, r := range batch {
		if err := w.redis.PipelineStateUpdate(ctx, r, w.ttl); err != nil {
			metrics.StateWriteFailures.Add(1)
			w.logger.Warn("live state update failed",
				zap.String("shipment_id", r.ShipmentID),
				zap.String("reading_id", r.ID),
				zap.Error(err),
			)
		}
	}
}
