package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Ping(context.Background()))

	require.NoError(t, st.Close())
	assert.Error(t, st.Ping(context.Background()))
}

func TestSQLite_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleAnalysis(t, "NDVI")
	require.NoError(t, st.SaveAnalysis(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := st.GetAnalysis(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "NDVI", got.Layer)
	assert.Equal(t, index.KindNDVILike, got.Kind)
	assert.InDelta(t, a.Stats.Mean, got.Stats.Mean, 1e-12)
	assert.Equal(t, a.Stats.Counts, got.Stats.Counts)
	assert.InDelta(t, 4.0, got.Area.TotalHa, 1e-12)
	assert.Equal(t, index.StateScarce, got.Interpretation.State)
	require.NotNil(t, got.Interpretation.Advisory)
	assert.JSONEq(t, string(a.Footprint), string(got.Footprint))
	assert.WithinDuration(t, a.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLite_SaveKeepsExplicitID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleAnalysis(t, "NDWI")
	a.ID = "fixed-id"
	require.NoError(t, st.SaveAnalysis(ctx, a))

	got, err := st.GetAnalysis(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, index.KindOther, got.Kind)

	assert.Error(t, st.SaveAnalysis(ctx, a), "duplicate id")
}

func TestSQLite_SaveEmptyAnalysis(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := &model.Analysis{
		Layer:  "NDVI",
		Kind:   index.KindNDVILike,
		Status: model.AnalysisStatusNoData,
		Stats:  index.Statistics{Fractions: index.Fractions{}, Counts: map[index.Bin]int64{}},
		Area:   index.AreaReport{PerBinHa: map[index.Bin]float64{}},
	}
	require.NoError(t, st.SaveAnalysis(ctx, a))

	got, err := st.GetAnalysis(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisStatusNoData, got.Status)
	assert.Empty(t, got.Stats.Fractions)
	assert.True(t, got.Stats.Empty())
}

func TestSQLite_GetNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetAnalysis(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ndvi := sampleAnalysis(t, "NDVI")
	ndvi.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveAnalysis(ctx, ndvi))

	ndwi := sampleAnalysis(t, "NDWI")
	ndwi.CreatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveAnalysis(ctx, ndwi))

	all, err := st.ListAnalyses(ctx, AnalysisFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "NDWI", all[0].Layer, "newest first")

	byLayer, err := st.ListAnalyses(ctx, AnalysisFilter{Layer: "NDVI"})
	require.NoError(t, err)
	require.Len(t, byLayer, 1)
	assert.Equal(t, ndvi.ID, byLayer[0].ID)

	byKind, err := st.ListAnalyses(ctx, AnalysisFilter{Kind: index.KindOther})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "NDWI", byKind[0].Layer)

	after, err := st.ListAnalyses(ctx, AnalysisFilter{CreatedAfter: time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "NDWI", after[0].Layer)

	byStatus, err := st.ListAnalyses(ctx, AnalysisFilter{Status: model.AnalysisStatusNoData})
	require.NoError(t, err)
	assert.Empty(t, byStatus)

	paged, err := st.ListAnalyses(ctx, AnalysisFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "NDVI", paged[0].Layer)
}

func TestSQLite_ListByBinShare(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveAnalysis(ctx, sampleAnalysis(t, "NDVI")))

	hit, err := st.ListAnalyses(ctx, AnalysisFilter{Bin: index.BinMuyBajo, MinPercent: 30})
	require.NoError(t, err)
	assert.Len(t, hit, 1)

	miss, err := st.ListAnalyses(ctx, AnalysisFilter{Bin: index.BinMuyBajo, MinPercent: 50})
	require.NoError(t, err)
	assert.Empty(t, miss)

	zero, err := st.ListAnalyses(ctx, AnalysisFilter{Bin: index.BinAlto, MinPercent: 1})
	require.NoError(t, err)
	assert.Empty(t, zero)
}

func TestSQLite_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleAnalysis(t, "NDVI")
	require.NoError(t, st.SaveAnalysis(ctx, a))
	require.NoError(t, st.DeleteAnalysis(ctx, a.ID))

	_, err := st.GetAnalysis(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.DeleteAnalysis(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_bins`).Scan(&n))
	assert.Zero(t, n, "bins cascade")
}
