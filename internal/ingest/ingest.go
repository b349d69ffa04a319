package ingest

import (
	"context"
	"log/slog"
	"time"

	"lifetrack/internal/model"
)

// SendNonBlocking drops the point rather than stalling the producer when
// the channel is full.
func SendNonBlocking(ctx context.Context, out chan<- model.MetricPoint, pt model.MetricPoint, logger *slog.Logger) bool {
	select {
	case out <- pt:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("point channel full, dropping point", "key", pt.Key, "metric", pt.Metric, "date", pt.Date)
		}
		return false
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
