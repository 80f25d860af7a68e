package enrich

import (
	"context"
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/route-enrich/internal/engine"
)

// fakeEngine is a deterministic planar engine for tests. Regions are
// treated as their bounding boxes; intersections clip line segments
// against those boxes (Liang-Barsky), so overlap lengths are exact for
// the rectangular fixtures the tests use. Projection is the identity.
type fakeEngine struct {
	invalid      map[geom.T]bool // geometries that stay invalid even after Repair
	undefined    map[geom.T]bool // geometries whose Length is undefined
	undefinedAll bool            // every Length call is undefined
	opErr        error           // when set, every operation fails with this
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		invalid:   map[geom.T]bool{},
		undefined: map[geom.T]bool{},
	}
}

func (f *fakeEngine) IsValid(_ context.Context, g geom.T) (bool, error) {
	if f.opErr != nil {
		return false, f.opErr
	}
	return !f.invalid[g], nil
}

func (f *fakeEngine) Repair(_ context.Context, g geom.T) (geom.T, error) {
	if f.opErr != nil {
		return nil, f.opErr
	}
	return g, nil
}

func (f *fakeEngine) Project(_ context.Context, g geom.T, _, _ int) (geom.T, error) {
	if f.opErr != nil {
		return nil, f.opErr
	}
	return g, nil
}

func (f *fakeEngine) Intersects(_ context.Context, a, b geom.T) (bool, error) {
	if f.opErr != nil {
		return false, f.opErr
	}
	return a.Bounds().Overlaps(geom.XY, b.Bounds()), nil
}

func (f *fakeEngine) Intersection(_ context.Context, a, b geom.T) (geom.T, error) {
	if f.opErr != nil {
		return nil, f.opErr
	}
	box := b.Bounds()
	mls := geom.NewMultiLineString(geom.XY)
	for _, seg := range segments(a) {
		clipped, ok := clipSegment(seg, box)
		if !ok {
			continue
		}
		_ = mls.Push(geom.NewLineStringFlat(geom.XY, []float64{
			clipped[0], clipped[1], clipped[2], clipped[3],
		}))
	}
	return mls, nil
}

func (f *fakeEngine) Length(_ context.Context, g geom.T) (float64, error) {
	if f.opErr != nil {
		return 0, f.opErr
	}
	if f.undefinedAll || f.undefined[g] {
		return 0, engine.ErrUndefinedLength
	}
	total := 0.0
	for _, seg := range segments(g) {
		total += math.Hypot(seg[2]-seg[0], seg[3]-seg[1])
	}
	return total, nil
}

func (f *fakeEngine) Distance(_ context.Context, a, b geom.T) (float64, error) {
	if f.opErr != nil {
		return 0, f.opErr
	}
	ab, bb := a.Bounds(), b.Bounds()
	dx := axisGap(ab.Min(0), ab.Max(0), bb.Min(0), bb.Max(0))
	dy := axisGap(ab.Min(1), ab.Max(1), bb.Min(1), bb.Max(1))
	return math.Hypot(dx, dy), nil
}

// segments flattens line geometries into [x1 y1 x2 y2] segments.
func segments(g geom.T) [][4]float64 {
	var segs [][4]float64
	collect := func(coords []float64) {
		for i := 0; i+3 < len(coords); i += 2 {
			segs = append(segs, [4]float64{coords[i], coords[i+1], coords[i+2], coords[i+3]})
		}
	}
	switch t := g.(type) {
	case *geom.LineString:
		collect(t.FlatCoords())
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			collect(t.LineString(i).FlatCoords())
		}
	}
	return segs
}

// clipSegment clips a segment to a bounding box (Liang-Barsky). Returns
// false when the segment lies entirely outside.
func clipSegment(seg [4]float64, box *geom.Bounds) ([4]float64, bool) {
	x1, y1, x2, y2 := seg[0], seg[1], seg[2], seg[3]
	dx, dy := x2-x1, y2-y1
	t0, t1 := 0.0, 1.0

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}

	if !clip(-dx, x1-box.Min(0)) || !clip(dx, box.Max(0)-x1) ||
		!clip(-dy, y1-box.Min(1)) || !clip(dy, box.Max(1)-y1) {
		return [4]float64{}, false
	}
	return [4]float64{x1 + t0*dx, y1 + t0*dy, x1 + t1*dx, y1 + t1*dy}, true
}

func axisGap(min1, max1, min2, max2 float64) float64 {
	if max1 < min2 {
		return min2 - max1
	}
	if max2 < min1 {
		return min1 - max2
	}
	return 0
}
