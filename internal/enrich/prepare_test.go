package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/route-enrich/internal/model"
)

func TestPrepareRoutes_ComputesLengths(t *testing.T) {
	eng := newFakeEngine()
	routes := []model.Route{
		route(1, line(0, 0, 1000, 0), nil),
		route(2, line(0, 0, 300, 0, 300, 400), nil),
	}

	prepared, err := PrepareRoutes(context.Background(), eng, routes, 4326, 27700, 2)
	require.NoError(t, err)
	require.Len(t, prepared, 2)

	assert.Equal(t, 1000.0, prepared[0].LengthM)
	assert.Equal(t, 700.0, prepared[1].LengthM)
	assert.NotNil(t, prepared[0].Projected)

	// Input slice untouched.
	assert.Zero(t, routes[0].LengthM)
	assert.Nil(t, routes[0].Projected)
}

func TestPrepareRoutes_UndefinedLengthKeepsZero(t *testing.T) {
	eng := newFakeEngine()
	g := line(0, 0, 10, 0)
	eng.undefined[g] = true

	prepared, err := PrepareRoutes(context.Background(), eng, []model.Route{route(1, g, nil)}, 4326, 27700, 1)
	require.NoError(t, err)
	assert.Zero(t, prepared[0].LengthM)
	assert.NotNil(t, prepared[0].Projected)
}

func TestPrepareLayer_ExcludesUnrepairableRegions(t *testing.T) {
	eng := newFakeEngine()
	bad := rect(0, 0, 10, 10)
	eng.invalid[bad] = true

	layer := model.Layer{Key: "la", Regions: []model.Region{
		region("A", "Alpha", rect(0, 0, 5, 5)),
		region("C", "Broken", bad),
		region("B", "Beta", rect(5, 0, 10, 5)),
	}}

	prepared, excluded, err := PrepareLayer(context.Background(), eng, layer, 4326, 27700)
	require.NoError(t, err)

	assert.Equal(t, 1, excluded)
	require.Len(t, prepared.Regions, 2)
	assert.Equal(t, "A", prepared.Regions[0].Code)
	assert.Equal(t, "B", prepared.Regions[1].Code)
	for _, r := range prepared.Regions {
		assert.NotNil(t, r.Projected)
	}
}

func TestPrepareLayer_EngineErrorIsFatal(t *testing.T) {
	eng := newFakeEngine()
	eng.opErr = assert.AnError

	layer := model.Layer{Key: "la", Regions: []model.Region{region("A", "Alpha", rect(0, 0, 1, 1))}}
	_, _, err := PrepareLayer(context.Background(), eng, layer, 4326, 27700)
	require.Error(t, err)
}
