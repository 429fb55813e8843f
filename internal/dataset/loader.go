// Package dataset loads normalized booking tables and memoizes them for the
// process lifetime. A locator is fetched at most once until it is explicitly
// invalidated or refreshed.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"flightdash/internal/cache"
	"flightdash/internal/core"
	"flightdash/internal/log"
	"flightdash/internal/normalize"
	"flightdash/internal/source"
)

// SnapshotStore persists the last good dataset per locator so a restart can
// serve reports while the upstream source is unreachable.
type SnapshotStore interface {
	Save(ctx context.Context, locator string, ds *core.Dataset) error
	Load(ctx context.Context, locator string) (*core.Dataset, error)
}

// Loader ties a source to the normalizer, a no-expiry LRU of loaded datasets
// and an optional snapshot store.
type Loader struct {
	src       source.Source
	snapshots SnapshotStore
	datasets  *cache.LRUCache[*core.Dataset]
	group     singleflight.Group
	logger    *log.Logger
}

// maxDatasets bounds how many distinct locators stay memoized at once.
const maxDatasets = 16

func NewLoader(src source.Source, snapshots SnapshotStore, logger *log.Logger) *Loader {
	return &Loader{
		src:       src,
		snapshots: snapshots,
		datasets:  cache.NewLRUCache[*core.Dataset](maxDatasets, 0),
		logger:    logger.WithComponent("dataset"),
	}
}

// Load returns the dataset for locator, fetching and normalizing it on first
// use. Concurrent loads of the same locator share one fetch. When the source
// fails, the last persisted snapshot is served instead.
func (l *Loader) Load(ctx context.Context, locator string) (*core.Dataset, error) {
	if ds, ok := l.datasets.Get(locator); ok {
		return ds, nil
	}

	v, err, _ := l.group.Do(locator, func() (interface{}, error) {
		// A concurrent caller may have populated the cache while this one
		// waited on the group.
		if ds, ok := l.datasets.Get(locator); ok {
			return ds, nil
		}
		return l.load(ctx, locator)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Dataset), nil
}

func (l *Loader) load(ctx context.Context, locator string) (*core.Dataset, error) {
	start := time.Now()
	df, err := l.src.Fetch(ctx, locator)
	if err != nil {
		if ds, snapErr := l.loadSnapshot(ctx, locator); snapErr == nil {
			l.logger.WarnContext(ctx, "source fetch failed, serving snapshot",
				"locator", locator, "snapshot_loaded_at", ds.LoadedAt, "error", err)
			l.datasets.Set(locator, ds)
			return ds, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", locator, err)
	}

	ds, err := normalize.Normalize(df)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", locator, err)
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		"locator", locator,
		"rows", len(ds.Bookings),
		"dropped", ds.Dropped,
		"duration_ms", time.Since(start).Milliseconds())

	l.datasets.Set(locator, ds)
	l.saveSnapshot(ctx, locator, ds)
	return ds, nil
}

func (l *Loader) loadSnapshot(ctx context.Context, locator string) (*core.Dataset, error) {
	if l.snapshots == nil {
		return nil, errors.New("no snapshot store configured")
	}
	return l.snapshots.Load(ctx, locator)
}

// saveSnapshot is best effort; a failed save never fails the load.
func (l *Loader) saveSnapshot(ctx context.Context, locator string, ds *core.Dataset) {
	if l.snapshots == nil {
		return
	}
	if err := l.snapshots.Save(ctx, locator, ds); err != nil {
		l.logger.WarnContext(ctx, "snapshot save failed", "locator", locator, "error", err)
	}
}

// Invalidate drops the memoized dataset so the next Load hits the source.
func (l *Loader) Invalidate(locator string) {
	l.datasets.Delete(locator)
}

// Refresh invalidates and reloads the locator in one step.
func (l *Loader) Refresh(ctx context.Context, locator string) (*core.Dataset, error) {
	l.Invalidate(locator)
	return l.Load(ctx, locator)
}
