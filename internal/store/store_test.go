package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
)

// sampleAnalysis builds a small complete analysis of the 2x2 reference grid.
func sampleAnalysis(t *testing.T, layer string) *model.Analysis {
	t.Helper()
	g, err := index.NewGrid([]float64{-1.0, 0.1, 0.5, -9999}, 2, 2, -9999)
	require.NoError(t, err)
	stats := index.ComputeStatistics(g)
	area, err := index.BuildAreaReport(stats, 2, 2, 100)
	require.NoError(t, err)

	return &model.Analysis{
		Layer:          layer,
		Kind:           index.KindFromName(layer),
		Status:         model.AnalysisStatusComplete,
		Width:          2,
		Height:         2,
		Resolution:     100,
		Stats:          stats,
		Area:           area,
		Interpretation: index.Classify(index.KindFromName(layer), stats.Mean, stats.Fractions),
		Footprint:      []byte(`{"type":"Polygon","coordinates":[[[0,0],[200,0],[200,200],[0,200],[0,0]]]}`),
	}
}

func TestBinRows(t *testing.T) {
	a := sampleAnalysis(t, "NDVI")
	rows := binRows(a)
	require.Len(t, rows, len(index.Bins))
	for i, r := range rows {
		assert.Equal(t, index.Bins[i], r.Bin)
	}
	assert.Equal(t, int64(1), rows[0].Pixels)
	assert.InDelta(t, 100.0/3, rows[0].Percent, 1e-9)
	assert.InDelta(t, 4.0/3, rows[0].AreaHa, 1e-9)
}

func TestBinRows_Empty(t *testing.T) {
	a := &model.Analysis{Stats: index.Statistics{Fractions: index.Fractions{}}}
	assert.Empty(t, binRows(a))
}

func TestListLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, listLimit(AnalysisFilter{}))
	assert.Equal(t, 5, listLimit(AnalysisFilter{Limit: 5}))
}

func TestFootprintEWKB(t *testing.T) {
	data, err := footprintEWKB([]byte(`{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}`))
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	poly, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.InDelta(t, 100.0, poly.Area(), 1e-9)
}

func TestFootprintEWKB_Empty(t *testing.T) {
	data, err := footprintEWKB(nil)
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestFootprintEWKB_Invalid(t *testing.T) {
	_, err := footprintEWKB([]byte(`{"type":`))
	assert.Error(t, err)
}
