// Package model holds the records exchanged between the analysis pipeline,
// report sinks and the store.
package model

import (
	"encoding/json"
	"time"

	"github.com/sells-group/vegindex-cli/internal/index"
)

// AnalysisStatus is the outcome of one layer analysis.
type AnalysisStatus string

const (
	AnalysisStatusComplete AnalysisStatus = "complete"
	AnalysisStatusNoData   AnalysisStatus = "no_data"
)

// Analysis is the full result for one raster layer.
type Analysis struct {
	ID     string         `json:"id"`
	Layer  string         `json:"layer"`
	Path   string         `json:"path,omitempty"`
	Kind   index.Kind     `json:"kind"`
	Status AnalysisStatus `json:"status"`

	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Resolution float64 `json:"resolution"`

	Stats          index.Statistics     `json:"stats"`
	Area           index.AreaReport     `json:"area"`
	Interpretation index.Interpretation `json:"interpretation"`

	// Footprint is the raster extent encoded as GeoJSON.
	Footprint json.RawMessage `json:"footprint,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Pixels returns the number of cells in the raster.
func (a *Analysis) Pixels() int { return a.Width * a.Height }

// Distribution returns the per-category rows in canonical order.
func (a *Analysis) Distribution() []index.AreaEntry {
	return a.Area.Entries(a.Stats.Fractions)
}
