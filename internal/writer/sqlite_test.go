package writer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/route-enrich/internal/model"
)

func openTestArtifacts(t *testing.T) (*Artifacts, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.db")
	a, err := OpenArtifacts(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Migrate(context.Background()))
	return a, path
}

func testRecords() []model.OutputRecord {
	return []model.OutputRecord{
		{
			RouteID:  1,
			Geometry: geom.NewLineStringFlat(geom.XY, []float64{-4.25, 55.86, -4.26, 55.87}),
			Fields: map[string]any{
				"service": "X17",
				"laCode":  "S12000033",
				"laCodes": "|S12000033|",
			},
		},
		{
			RouteID:  2,
			Geometry: geom.NewLineStringFlat(geom.XY, []float64{-3.19, 55.95, -3.20, 55.96}),
			Fields:   map[string]any{"service": "201"},
		},
	}
}

func TestArtifactsWriteRoutes(t *testing.T) {
	a, _ := openTestArtifacts(t)
	ctx := context.Background()

	require.NoError(t, a.WriteRoutes(ctx, testRecords()))

	var count int
	require.NoError(t, a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routes`).Scan(&count))
	assert.Equal(t, 2, count)

	var props, geomText string
	require.NoError(t, a.db.QueryRowContext(ctx,
		`SELECT properties, geometry FROM routes WHERE route_id = 1`).Scan(&props, &geomText))

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(props), &fields))
	assert.Equal(t, "S12000033", fields["laCode"])
	assert.Equal(t, "|S12000033|", fields["laCodes"])

	var gj map[string]any
	require.NoError(t, json.Unmarshal([]byte(geomText), &gj))
	assert.Equal(t, "LineString", gj["type"])
}

func TestArtifactsWriteRoutes_ReplacesExisting(t *testing.T) {
	a, _ := openTestArtifacts(t)
	ctx := context.Background()

	require.NoError(t, a.WriteRoutes(ctx, testRecords()))
	require.NoError(t, a.WriteRoutes(ctx, testRecords()[:1]))

	var count int
	require.NoError(t, a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routes`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestArtifactsWriteRegions_ScopedToLayer(t *testing.T) {
	a, _ := openTestArtifacts(t)
	ctx := context.Background()

	require.NoError(t, a.WriteRegions(ctx, "la", []model.RegionRef{
		{Code: "S12000033", Name: "Aberdeen City"},
		{Code: "S12000034", Name: "Aberdeenshire"},
	}))
	require.NoError(t, a.WriteRegions(ctx, "rpt", []model.RegionRef{
		{Code: "NE", Name: "North East"},
	}))

	// Rewriting one layer leaves the other intact.
	require.NoError(t, a.WriteRegions(ctx, "la", []model.RegionRef{
		{Code: "S12000033", Name: "Aberdeen City"},
	}))

	var laCount, rptCount int
	require.NoError(t, a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM regions WHERE layer = 'la'`).Scan(&laCount))
	require.NoError(t, a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM regions WHERE layer = 'rpt'`).Scan(&rptCount))
	assert.Equal(t, 1, laCount)
	assert.Equal(t, 1, rptCount)
}

func TestArtifactsWriteOperators(t *testing.T) {
	a, _ := openTestArtifacts(t)
	ctx := context.Background()

	require.NoError(t, a.WriteOperators(ctx, []model.Operator{
		{Code: "SCOT", Name: "Scotbus"},
		{Code: "ABUS", Name: "Arran Buses"},
	}))

	var name string
	require.NoError(t, a.db.QueryRowContext(ctx,
		`SELECT operator_name FROM operators WHERE operator_code = 'SCOT'`).Scan(&name))
	assert.Equal(t, "Scotbus", name)
}

func TestOpenArtifacts_ReopensExistingFile(t *testing.T) {
	a, path := openTestArtifacts(t)
	ctx := context.Background()
	require.NoError(t, a.WriteRoutes(ctx, testRecords()))
	require.NoError(t, a.Close())

	reopened, err := OpenArtifacts(path)
	require.NoError(t, err)
	defer reopened.Close()

	var count int
	require.NoError(t, reopened.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routes`).Scan(&count))
	assert.Equal(t, 2, count)
}
