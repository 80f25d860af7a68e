package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/route-enrich/internal/engine"
	"github.com/sells-group/route-enrich/internal/model"
)

// DetectOverlaps finds every (route, region) pair whose projected
// geometries intersect and measures the overlap length in the planar CRS.
// Pairs whose intersection length is undefined or non-positive are
// discarded: touching-but-not-overlapping and degenerate geometry are not
// matches.
//
// Matching is independent per route and runs in parallel with bounded
// concurrency. A bounding-box prefilter skips region candidates that
// cannot intersect before the exact engine test. The returned overlaps
// preserve route input order, then region input order within a route.
func DetectOverlaps(ctx context.Context, eng engine.Engine, routes []model.Route, layer model.Layer, workers int) ([]model.Overlap, error) {
	perRoute := make([][]model.Overlap, len(routes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(workers))
	for i := range routes {
		g.Go(func() error {
			route := routes[i]
			bounds := route.Projected.Bounds()
			for _, region := range layer.Regions {
				if !bounds.Overlaps(route.Projected.Layout(), region.Projected.Bounds()) {
					continue
				}
				hit, err := eng.Intersects(gctx, route.Projected, region.Projected)
				if err != nil {
					return eris.Wrapf(err, "enrich: intersects route %d region %s", route.ID, region.Code)
				}
				if !hit {
					continue
				}
				clipped, err := eng.Intersection(gctx, route.Projected, region.Projected)
				if err != nil {
					return eris.Wrapf(err, "enrich: intersection route %d region %s", route.ID, region.Code)
				}
				length, err := eng.Length(gctx, clipped)
				if err != nil {
					if eris.Is(err, engine.ErrUndefinedLength) {
						continue
					}
					return eris.Wrapf(err, "enrich: overlap length route %d region %s", route.ID, region.Code)
				}
				if length <= 0 {
					continue
				}
				perRoute[i] = append(perRoute[i], model.Overlap{
					RouteID: route.ID,
					Code:    region.Code,
					Name:    region.Name,
					LengthM: length,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var overlaps []model.Overlap
	for _, rows := range perRoute {
		overlaps = append(overlaps, rows...)
	}
	return overlaps, nil
}
