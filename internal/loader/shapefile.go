package loader

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/route-enrich/internal/model"
)

// loadLayerShapefile reads a boundary shapefile as a region layer. DBF
// field names are resolved against the spec's candidate lists the same
// way GeoJSON properties are.
func loadLayerShapefile(spec LayerSpec) (model.Layer, error) {
	reader, err := shp.Open(spec.Path)
	if err != nil {
		return model.Layer{}, eris.Wrapf(err, "loader: open shapefile %s", spec.Path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	keys := make(map[string]bool, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		names[i] = name
		keys[name] = true
	}

	codeField, ok := resolveProperty(keys, spec.CodeProperties)
	if !ok {
		return model.Layer{}, eris.Errorf("loader: layer %q: no code field among %v", spec.Key, spec.CodeProperties)
	}
	nameField, _ := resolveProperty(keys, spec.NameProperties)

	codeIdx, nameIdx := -1, -1
	for i, n := range names {
		if n == codeField {
			codeIdx = i
		}
		if nameField != "" && n == nameField {
			nameIdx = i
		}
	}

	layer := model.Layer{Key: spec.Key}
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		code := strings.TrimSpace(strings.TrimRight(reader.Attribute(codeIdx), "\x00"))
		if code == "" {
			skipped++
			continue
		}
		name := ""
		if nameIdx >= 0 {
			name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}

		layer.Regions = append(layer.Regions, model.Region{Code: code, Name: name, Geometry: g})
	}

	if skipped > 0 {
		zap.L().Warn("shapefile records skipped",
			zap.String("layer", spec.Key), zap.Int("skipped", skipped))
	}
	zap.L().Info("region layer loaded",
		zap.String("layer", spec.Key),
		zap.String("path", spec.Path),
		zap.Int("regions", len(layer.Regions)),
	)
	return layer, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a go-geom
// MultiPolygon, one single-ring polygon per part. Returns nil for empty
// or malformed shapes.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
