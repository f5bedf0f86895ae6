package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAreaReport_TotalIndependentOfStats(t *testing.T) {
	cases := []Statistics{
		{},
		{Fractions: Fractions{}},
		{Fractions: Fractions{BinMedio: 100}},
		{Fractions: Fractions{BinMuyBajo: 50, BinMuyAlto: 50}},
	}
	for _, stats := range cases {
		r, err := BuildAreaReport(stats, 100, 100, 10)
		require.NoError(t, err)
		assert.Equal(t, 1000.0, r.TotalHa)
	}
}

func TestBuildAreaReport_PerBin(t *testing.T) {
	stats := Statistics{Fractions: Fractions{
		BinMuyBajo: 25, BinBajo: 0, BinMedioBajo: 25,
		BinMedio: 0, BinMedioAlto: 50, BinAlto: 0, BinMuyAlto: 0,
	}}

	r, err := BuildAreaReport(stats, 200, 50, 2)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, r.TotalHa, 1e-12)
	assert.InDelta(t, 1.0, r.PerBinHa[BinMuyBajo], 1e-12)
	assert.InDelta(t, 1.0, r.PerBinHa[BinMedioBajo], 1e-12)
	assert.InDelta(t, 2.0, r.PerBinHa[BinMedioAlto], 1e-12)
	assert.Len(t, r.PerBinHa, 7)
}

func TestBuildAreaReport_NoData(t *testing.T) {
	r, err := BuildAreaReport(Statistics{Fractions: Fractions{}}, 10, 10, 30)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, r.TotalHa, 1e-12)
	assert.Empty(t, r.PerBinHa)
	assert.Nil(t, r.Entries(Fractions{}))
}

func TestBuildAreaReport_InvalidGeometry(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		resolution    float64
	}{
		{"zero resolution", 10, 10, 0},
		{"negative resolution", 10, 10, -1},
		{"NaN resolution", 10, 10, math.NaN()},
		{"infinite resolution", 10, 10, math.Inf(1)},
		{"negative width", -1, 10, 10},
		{"negative height", 10, -5, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildAreaReport(Statistics{}, tt.width, tt.height, tt.resolution)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestBuildAreaReport_ZeroDimensions(t *testing.T) {
	r, err := BuildAreaReport(Statistics{}, 0, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, r.TotalHa)
}

func TestAreaReport_EntriesCanonicalOrder(t *testing.T) {
	g, err := NewGrid([]float64{-1.0, 0.1, 0.5, noData}, 2, 2, noData)
	require.NoError(t, err)
	stats := ComputeStatistics(g)

	r, err := BuildAreaReport(stats, 2, 2, 100)
	require.NoError(t, err)

	entries := r.Entries(stats.Fractions)
	require.Len(t, entries, len(Bins))
	for i, e := range entries {
		assert.Equal(t, Bins[i], e.Bin)
	}
	assert.InDelta(t, 4.0/3, entries[0].AreaHa, 1e-9)
	assert.InDelta(t, 100.0/3, entries[0].Percent, 1e-9)
	assert.Zero(t, entries[1].AreaHa)
}

func TestBinFor_Boundaries(t *testing.T) {
	tests := []struct {
		v    float64
		want Bin
	}{
		{-100, BinMuyBajo},
		{math.Nextafter(-0.5, -1), BinMuyBajo},
		{-0.5, BinBajo},
		{math.Nextafter(0, -1), BinBajo},
		{0, BinMedioBajo},
		{0.2, BinMedio},
		{0.4, BinMedioAlto},
		{0.6, BinAlto},
		{math.Nextafter(0.8, 0), BinAlto},
		{0.8, BinMuyAlto},
		{42, BinMuyAlto},
	}
	for _, tt := range tests {
		got, ok := BinFor(tt.v)
		assert.True(t, ok, "value %v", tt.v)
		assert.Equal(t, tt.want, got, "value %v", tt.v)
	}

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, ok := BinFor(v)
		assert.False(t, ok, "value %v", v)
	}
}

func TestBin_Interval(t *testing.T) {
	assert.True(t, math.IsInf(BinMuyBajo.Interval().Min, -1))
	assert.Equal(t, -0.5, BinMuyBajo.Interval().Max)
	assert.Equal(t, Interval{Min: 0.2, Max: 0.4}, BinMedio.Interval())
	assert.Equal(t, 0.8, BinMuyAlto.Interval().Min)
	assert.True(t, math.IsInf(BinMuyAlto.Interval().Max, 1))
	assert.False(t, Bin("unknown").Valid())

	for _, b := range Bins {
		iv := b.Interval()
		got, ok := BinFor(iv.Min)
		if math.IsInf(iv.Min, -1) {
			continue
		}
		require.True(t, ok)
		assert.Equal(t, b, got, "lower bound of %s belongs to it", b)
	}
}
