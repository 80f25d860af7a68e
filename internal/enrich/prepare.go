// Package enrich implements the route/region enrichment pipeline: layer
// preparation, overlap detection, primary assignment, membership
// aggregation, and output assembly. All geometry work is delegated to an
// engine.Engine; the stages themselves are pure data plumbing.
package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/route-enrich/internal/engine"
	"github.com/sells-group/route-enrich/internal/model"
)

// PrepareRoutes projects route geometries into the measurement CRS and
// computes total route lengths in meters. The input slice is not
// modified; routes are immutable after this step.
func PrepareRoutes(ctx context.Context, eng engine.Engine, routes []model.Route, storageSRID, measureSRID, workers int) ([]model.Route, error) {
	out := make([]model.Route, len(routes))
	copy(out, routes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(workers))
	for i := range out {
		g.Go(func() error {
			projected, err := eng.Project(gctx, out[i].Geometry, storageSRID, measureSRID)
			if err != nil {
				return eris.Wrapf(err, "enrich: project route %d", out[i].ID)
			}
			length, err := eng.Length(gctx, projected)
			if err != nil {
				if eris.Is(err, engine.ErrUndefinedLength) {
					// A route the engine cannot measure keeps length zero;
					// the membership share test then fails conservatively.
					out[i].Projected = projected
					return nil
				}
				return eris.Wrapf(err, "enrich: measure route %d", out[i].ID)
			}
			out[i].Projected = projected
			out[i].LengthM = length
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PrepareLayer repairs and projects region geometries for one layer.
// Regions that remain invalid after repair are excluded from matching
// entirely; the excluded count is returned so callers can surface it as a
// warning rather than aborting the run.
func PrepareLayer(ctx context.Context, eng engine.Engine, layer model.Layer, storageSRID, measureSRID int) (model.Layer, int, error) {
	log := zap.L().With(zap.String("component", "enrich"), zap.String("layer", layer.Key))

	prepared := model.Layer{Key: layer.Key, Regions: make([]model.Region, 0, len(layer.Regions))}
	excluded := 0

	for _, region := range layer.Regions {
		repaired, err := eng.Repair(ctx, region.Geometry)
		if err != nil {
			return model.Layer{}, 0, eris.Wrapf(err, "enrich: repair region %s", region.Code)
		}
		valid, err := eng.IsValid(ctx, repaired)
		if err != nil {
			return model.Layer{}, 0, eris.Wrapf(err, "enrich: validate region %s", region.Code)
		}
		if !valid {
			excluded++
			log.Warn("region geometry unrepairable, excluding from matching",
				zap.String("code", region.Code),
				zap.String("name", region.Name),
			)
			continue
		}

		projected, err := eng.Project(ctx, repaired, storageSRID, measureSRID)
		if err != nil {
			return model.Layer{}, 0, eris.Wrapf(err, "enrich: project region %s", region.Code)
		}
		// Reprojection can reintroduce self-intersections; repair again in
		// the measurement CRS.
		projected, err = eng.Repair(ctx, projected)
		if err != nil {
			return model.Layer{}, 0, eris.Wrapf(err, "enrich: repair projected region %s", region.Code)
		}

		region.Geometry = repaired
		region.Projected = projected
		prepared.Regions = append(prepared.Regions, region)
	}

	return prepared, excluded, nil
}

func workerLimit(workers int) int {
	if workers <= 0 {
		return 4
	}
	return workers
}
