// Package sensors merges live telemetry, administrative flood zones and the
// static flood-prone catalog into one set of normalized readings.
package sensors

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"floodwatch/internal/types"
)

// LiveSource lists raw live telemetry records.
type LiveSource interface {
	ListLiveSensors(ctx context.Context) ([]RawRecord, error)
}

// ZoneSource lists raw administrative flood zone records.
type ZoneSource interface {
	ListFloodZones(ctx context.Context) ([]RawRecord, error)
}

// CatalogSource loads the static flood-prone catalog.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) ([]CatalogEntry, error)
}

// AggregatorConfig wires the three sources. A nil source contributes nothing.
type AggregatorConfig struct {
	Live    LiveSource
	Zones   ZoneSource
	Catalog CatalogSource
	Logger  *slog.Logger
	Clock   types.Clock
}

// Aggregator produces the per-cycle reading map.
type Aggregator struct {
	live    LiveSource
	zones   ZoneSource
	catalog CatalogSource
	logger  *slog.Logger
	clock   types.Clock
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Aggregator{
		live:    cfg.Live,
		zones:   cfg.Zones,
		catalog: cfg.Catalog,
		logger:  logger,
		clock:   clock,
	}
}

// Collect reads all sources concurrently and merges them by namespaced id.
// A failing source is logged and skipped; Collect never fails.
func (a *Aggregator) Collect(ctx context.Context) map[string]types.SensorReading {
	nowMs := a.clock.Now().UnixMilli()
	start := time.Now()

	var live, zones, catalog []types.SensorReading
	var g errgroup.Group

	if a.live != nil {
		g.Go(func() error {
			records, err := a.live.ListLiveSensors(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "live sensor read failed", "error", err)
				return nil
			}
			live = mapRecords(records, nowMs, FromLive)
			if skipped := len(records) - len(live); skipped > 0 {
				a.logger.DebugContext(ctx, "live sensors skipped", "count", skipped, "reason", "missing coordinates")
			}
			return nil
		})
	}
	if a.zones != nil {
		g.Go(func() error {
			records, err := a.zones.ListFloodZones(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "flood zone read failed", "error", err)
				return nil
			}
			zones = mapRecords(records, nowMs, FromZone)
			return nil
		})
	}
	if a.catalog != nil {
		g.Go(func() error {
			entries, err := a.catalog.LoadCatalog(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "flood-prone catalog read failed", "error", err)
				return nil
			}
			for _, e := range entries {
				if r, ok := FromCatalog(e, nowMs); ok {
					catalog = append(catalog, r)
				}
			}
			return nil
		})
	}
	// Every goroutine swallows its own error.
	_ = g.Wait()

	merged := make(map[string]types.SensorReading, len(live)+len(zones)+len(catalog))
	for _, group := range [][]types.SensorReading{live, zones, catalog} {
		for _, r := range group {
			if _, exists := merged[r.ID]; !exists {
				merged[r.ID] = r
			}
		}
	}

	a.logger.DebugContext(ctx, "sensor readings collected",
		"live", len(live),
		"zones", len(zones),
		"catalog", len(catalog),
		"total", len(merged),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return merged
}

func mapRecords(records []RawRecord, nowMs int64, fn func(RawRecord, int64) (types.SensorReading, bool)) []types.SensorReading {
	out := make([]types.SensorReading, 0, len(records))
	for _, rec := range records {
		if r, ok := fn(rec, nowMs); ok {
			out = append(out, r)
		}
	}
	return out
}
