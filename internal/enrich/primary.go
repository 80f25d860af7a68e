package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/route-enrich/internal/engine"
	"github.com/sells-group/route-enrich/internal/model"
)

// AssignPrimary selects, per route, the region with the greatest overlap
// length. When several regions share the exact maximum, the one with the
// lexically smallest code wins; the same tie-break applies everywhere a
// maximum or minimum is taken so that repeated runs produce identical
// output.
//
// Routes with no overlaps at all fall back to the nearest region by
// projected geometric distance, which keeps coverage near-total for
// routes that merely graze a boundary or sit in a gap between regions.
// The returned fallback count covers those assignments. When the layer
// has no regions the result is empty and every route is left unassigned.
func AssignPrimary(ctx context.Context, eng engine.Engine, routes []model.Route, layer model.Layer, overlaps []model.Overlap) (map[int64]model.PrimaryAssignment, int, error) {
	assignments := make(map[int64]model.PrimaryAssignment, len(routes))
	if len(layer.Regions) == 0 {
		return assignments, 0, nil
	}

	grouped := make(map[int64][]model.Overlap)
	for _, o := range overlaps {
		grouped[o.RouteID] = append(grouped[o.RouteID], o)
	}

	fallbacks := 0
	for _, route := range routes {
		group := grouped[route.ID]
		if len(group) > 0 {
			best := group[0]
			for _, o := range group[1:] {
				if o.LengthM > best.LengthM || (o.LengthM == best.LengthM && o.Code < best.Code) {
					best = o
				}
			}
			assignments[route.ID] = model.PrimaryAssignment{RouteID: route.ID, Code: best.Code, Name: best.Name}
			continue
		}

		nearest, err := nearestRegion(ctx, eng, route, layer)
		if err != nil {
			return nil, 0, err
		}
		assignments[route.ID] = model.PrimaryAssignment{RouteID: route.ID, Code: nearest.Code, Name: nearest.Name}
		fallbacks++
	}

	return assignments, fallbacks, nil
}

// nearestRegion returns the region minimizing projected distance to the
// route, ties broken by ascending region code.
func nearestRegion(ctx context.Context, eng engine.Engine, route model.Route, layer model.Layer) (model.Region, error) {
	var best model.Region
	bestDist := 0.0
	found := false

	for _, region := range layer.Regions {
		dist, err := eng.Distance(ctx, route.Projected, region.Projected)
		if err != nil {
			return model.Region{}, eris.Wrapf(err, "enrich: distance route %d region %s", route.ID, region.Code)
		}
		if !found || dist < bestDist || (dist == bestDist && region.Code < best.Code) {
			best = region
			bestDist = dist
			found = true
		}
	}

	return best, nil
}
