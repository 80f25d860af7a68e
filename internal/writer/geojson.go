// Package writer serializes enrichment results to GeoJSON and SQLite
// artifacts for downstream tile rendering and analytic queries.
package writer

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/route-enrich/internal/model"
)

// WriteGeoJSON writes the enriched records as a FeatureCollection in the
// storage (geographic) CRS.
func WriteGeoJSON(path string, records []model.OutputRecord) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, rec := range records {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   rec.Geometry,
			Properties: rec.Fields,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "writer: marshal feature collection")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "writer: write %s", path)
	}

	zap.L().Info("enriched GeoJSON written",
		zap.String("path", path),
		zap.Int("features", len(fc.Features)),
	)
	return nil
}
