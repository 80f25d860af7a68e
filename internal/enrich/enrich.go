package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/route-enrich/internal/engine"
	"github.com/sells-group/route-enrich/internal/model"
)

// Config is the run-scoped configuration threaded through every stage.
type Config struct {
	StorageSRID int
	MeasureSRID int
	Workers     int
	Thresholds  Thresholds
}

// LayerStats reports per-layer outcomes for one run.
type LayerStats struct {
	Key              string
	Regions          int
	ExcludedRegions  int
	Overlaps         int
	PrimaryAssigned  int
	FallbackAssigned int
	MembershipRoutes int
}

// Result is the output of one pipeline run.
type Result struct {
	RunID        string
	Records      []model.OutputRecord
	Lookups      map[string][]model.RegionRef
	Operators    []model.Operator
	Layers       []LayerStats
	DroppedAttrs int
}

// Pipeline runs the full enrichment batch: prepare, detect, assign,
// aggregate, assemble, once per region layer over a shared route set.
type Pipeline struct {
	cfg Config
	eng engine.Engine
}

// New creates a Pipeline. The engine is the only external collaborator.
func New(cfg Config, eng engine.Engine) *Pipeline {
	return &Pipeline{cfg: cfg, eng: eng}
}

// Run enriches the given routes against every layer. The computation is
// deterministic for unchanged inputs and thresholds: running twice yields
// identical records.
func (p *Pipeline) Run(ctx context.Context, routes []model.Route, layers []model.Layer) (*Result, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("component", "enrich"), zap.String("run_id", runID))

	start := time.Now()
	log.Info("preparing routes", zap.Int("routes", len(routes)))
	prepared, err := PrepareRoutes(ctx, p.eng, routes, p.cfg.StorageSRID, p.cfg.MeasureSRID, p.cfg.Workers)
	if err != nil {
		return nil, err
	}
	log.Info("routes prepared", zap.Duration("elapsed", time.Since(start)))

	result := &Result{
		RunID:   runID,
		Lookups: make(map[string][]model.RegionRef, len(layers)),
	}
	outcomes := make([]LayerOutcome, 0, len(layers))

	for _, layer := range layers {
		stats, outcome, preparedLayer, err := p.runLayer(ctx, log, prepared, layer)
		if err != nil {
			return nil, err
		}
		result.Layers = append(result.Layers, stats)
		// Lookup tables reflect only regions that survived preparation.
		result.Lookups[layer.Key] = RegionLookup(preparedLayer)
		outcomes = append(outcomes, outcome)
	}

	records, dropped := Assemble(prepared, outcomes)
	result.Records = records
	result.DroppedAttrs = dropped
	result.Operators = Operators(records)

	log.Info("run complete",
		zap.Int("records", len(records)),
		zap.Int("dropped_attributes", dropped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) runLayer(ctx context.Context, log *zap.Logger, routes []model.Route, layer model.Layer) (LayerStats, LayerOutcome, model.Layer, error) {
	llog := log.With(zap.String("layer", layer.Key))
	start := time.Now()

	preparedLayer, excluded, err := PrepareLayer(ctx, p.eng, layer, p.cfg.StorageSRID, p.cfg.MeasureSRID)
	if err != nil {
		return LayerStats{}, LayerOutcome{}, model.Layer{}, err
	}
	if excluded > 0 {
		llog.Warn("regions excluded after failed geometry repair", zap.Int("excluded", excluded))
	}
	if len(preparedLayer.Regions) == 0 {
		llog.Warn("layer has no usable regions; all routes unassigned for this layer")
	}

	overlaps, err := DetectOverlaps(ctx, p.eng, routes, preparedLayer, p.cfg.Workers)
	if err != nil {
		return LayerStats{}, LayerOutcome{}, model.Layer{}, err
	}
	llog.Info("overlaps detected", zap.Int("overlaps", len(overlaps)), zap.Duration("elapsed", time.Since(start)))

	primary, fallbacks, err := AssignPrimary(ctx, p.eng, routes, preparedLayer, overlaps)
	if err != nil {
		return LayerStats{}, LayerOutcome{}, model.Layer{}, err
	}
	if fallbacks > 0 {
		llog.Info("routes assigned by nearest-region fallback", zap.Int("fallback", fallbacks))
	}

	membership := AggregateMembership(routes, overlaps, p.cfg.Thresholds)

	stats := LayerStats{
		Key:              layer.Key,
		Regions:          len(preparedLayer.Regions),
		ExcludedRegions:  excluded,
		Overlaps:         len(overlaps),
		PrimaryAssigned:  len(primary),
		FallbackAssigned: fallbacks,
		MembershipRoutes: len(membership),
	}
	outcome := LayerOutcome{
		Key:        layer.Key,
		Primary:    primary,
		Membership: membership,
	}
	return stats, outcome, preparedLayer, nil
}
