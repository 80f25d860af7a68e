package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/route-enrich/internal/model"
)

// LoadRoutes reads a route FeatureCollection. Route ids are assigned
// sequentially in input order (1-based) and are stable for unchanged
// input. Feature properties are carried through as opaque attributes.
// A feature without geometry is fatal, and only line geometries are
// accepted.
func LoadRoutes(path string) ([]model.Route, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	routes := make([]model.Route, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, eris.Errorf("loader: route feature %d has no geometry", i)
		}
		switch f.Geometry.(type) {
		case *geom.LineString, *geom.MultiLineString:
		default:
			return nil, eris.Errorf("loader: route feature %d has non-line geometry %T", i, f.Geometry)
		}
		attrs := f.Properties
		if attrs == nil {
			attrs = map[string]any{}
		}
		routes = append(routes, model.Route{
			ID:       int64(i + 1),
			Geometry: f.Geometry,
			Attrs:    attrs,
		})
	}

	zap.L().Info("routes loaded", zap.String("path", path), zap.Int("routes", len(routes)))
	return routes, nil
}

// LoadLayer reads one region layer according to its spec, dispatching on
// the file extension (.shp for shapefiles, GeoJSON otherwise).
func LoadLayer(spec LayerSpec) (model.Layer, error) {
	if strings.EqualFold(filepath.Ext(spec.Path), ".shp") {
		return loadLayerShapefile(spec)
	}
	return loadLayerGeoJSON(spec)
}

func loadLayerGeoJSON(spec LayerSpec) (model.Layer, error) {
	fc, err := readFeatureCollection(spec.Path)
	if err != nil {
		return model.Layer{}, err
	}

	// Property names are resolved once against the union of keys across
	// all features; individual features may omit values.
	keys := map[string]bool{}
	for _, f := range fc.Features {
		for k := range f.Properties {
			keys[k] = true
		}
	}
	codeProp, ok := resolveProperty(keys, spec.CodeProperties)
	if !ok {
		return model.Layer{}, eris.Errorf("loader: layer %q: no code property among %v", spec.Key, spec.CodeProperties)
	}
	nameProp, _ := resolveProperty(keys, spec.NameProperties)

	layer := model.Layer{Key: spec.Key, Regions: make([]model.Region, 0, len(fc.Features))}
	skipped := 0
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return model.Layer{}, eris.Errorf("loader: layer %q feature %d has no geometry", spec.Key, i)
		}
		code := propertyString(f.Properties, codeProp)
		if code == "" {
			skipped++
			continue
		}
		layer.Regions = append(layer.Regions, model.Region{
			Code:     code,
			Name:     propertyString(f.Properties, nameProp),
			Geometry: f.Geometry,
		})
	}
	if skipped > 0 {
		zap.L().Warn("regions skipped for missing code value",
			zap.String("layer", spec.Key), zap.Int("skipped", skipped))
	}

	zap.L().Info("region layer loaded",
		zap.String("layer", spec.Key),
		zap.String("path", spec.Path),
		zap.Int("regions", len(layer.Regions)),
	)
	return layer, nil
}

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "loader: parse %s", path)
	}
	return &fc, nil
}

// resolveProperty finds the first candidate present in the key set,
// matching case-insensitively, and returns the key's actual spelling.
func resolveProperty(keys map[string]bool, candidates []string) (string, bool) {
	lower := make(map[string]string, len(keys))
	for k := range keys {
		lower[strings.ToLower(k)] = k
	}
	for _, c := range candidates {
		if actual, ok := lower[strings.ToLower(c)]; ok {
			return actual, true
		}
	}
	return "", false
}

func propertyString(props map[string]any, key string) string {
	if key == "" || props == nil {
		return ""
	}
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
