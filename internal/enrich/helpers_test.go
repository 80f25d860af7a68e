package enrich

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/route-enrich/internal/model"
)

// line builds a LineString route geometry from coordinate pairs.
func line(coords ...float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, coords)
}

// rect builds a rectangular region polygon.
func rect(minX, minY, maxX, maxY float64) *geom.Polygon {
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
	})
	poly := geom.NewPolygon(geom.XY)
	_ = poly.Push(ring)
	return poly
}

func route(id int64, g geom.T, attrs map[string]any) model.Route {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return model.Route{ID: id, Geometry: g, Attrs: attrs}
}

func region(code, name string, g geom.T) model.Region {
	return model.Region{Code: code, Name: name, Geometry: g}
}
