package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
)

// ErrNotFound is returned when an analysis id does not exist.
var ErrNotFound = eris.New("analysis not found")

// defaultListLimit caps ListAnalyses when the filter has no limit.
const defaultListLimit = 100

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Layer        string               `json:"layer,omitempty"`
	Kind         index.Kind           `json:"kind,omitempty"`
	Status       model.AnalysisStatus `json:"status,omitempty"`
	CreatedAfter time.Time            `json:"created_after,omitempty"`

	// Bin and MinPercent select analyses where Bin covers at least
	// MinPercent of the valid pixels.
	Bin        index.Bin `json:"bin,omitempty"`
	MinPercent float64   `json:"min_percent,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis history.
type Store interface {
	// SaveAnalysis persists a, assigning a.ID when it is empty.
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)
	DeleteAnalysis(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// binRow is one analysis_bins record.
type binRow struct {
	Bin     index.Bin
	Pixels  int64
	Percent float64
	AreaHa  float64
}

// binRows flattens the per-category results in canonical order. Empty
// analyses have no rows.
func binRows(a *model.Analysis) []binRow {
	var rows []binRow
	for _, b := range index.Bins {
		pct, ok := a.Stats.Fractions[b]
		if !ok {
			continue
		}
		rows = append(rows, binRow{
			Bin:     b,
			Pixels:  a.Stats.Counts[b],
			Percent: pct,
			AreaHa:  a.Area.PerBinHa[b],
		})
	}
	return rows
}

func listLimit(f AnalysisFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
