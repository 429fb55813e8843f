// Package worker reloads booking datasets in the background, driven by AMQP
// refresh messages and an optional periodic ticker.
package worker

import (
	"context"
	"fmt"
	"time"

	"flightdash/internal/amqp"
	"flightdash/internal/dataset"
	"flightdash/internal/log"
)

// RefreshWorker pulls fresh copies of booking tables through the loader so
// the serving cache and the snapshot store stay current.
type RefreshWorker struct {
	loader *dataset.Loader
	logger *log.Logger
}

func NewRefreshWorker(loader *dataset.Loader, logger *log.Logger) *RefreshWorker {
	return &RefreshWorker{
		loader: loader,
		logger: logger.WithComponent("refresh-worker"),
	}
}

// HandleRefreshMessage processes a single refresh message from AMQP.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	w.logger.InfoContext(ctx, "processing refresh message",
		"locator", msg.Locator,
		"reason", msg.Reason,
		"requested_at", msg.Timestamp)

	ds, err := w.loader.Refresh(ctx, msg.Locator)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", msg.Locator, err)
	}

	w.logger.InfoContext(ctx, "dataset refreshed",
		"locator", msg.Locator,
		"rows", len(ds.Bookings),
		"dropped", ds.Dropped)
	return nil
}

// RunPeriodic refreshes the locator on a fixed interval until ctx is
// cancelled. A failed refresh is logged and retried on the next tick.
func (w *RefreshWorker) RunPeriodic(ctx context.Context, locator string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "starting periodic refresh",
		"locator", locator, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "stopping periodic refresh", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.loader.Refresh(ctx, locator); err != nil {
				w.logger.ErrorContext(ctx, "periodic refresh failed",
					"locator", locator, "error", err)
			}
		}
	}
}
