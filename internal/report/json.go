package report

import (
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
)

// Document is the JSON rendering of one analysis. Distribution is ordered
// from muy_bajo to muy_alto and is empty when the raster had no valid
// samples.
type Document struct {
	ID             string               `json:"id,omitempty"`
	Layer          string               `json:"layer"`
	Kind           index.Kind           `json:"kind"`
	Status         model.AnalysisStatus `json:"status"`
	Spatial        Spatial              `json:"spatial"`
	Statistics     Statistics           `json:"statistics"`
	Distribution   []DistributionEntry  `json:"distribution"`
	Interpretation Interpretation       `json:"interpretation"`
	Footprint      json.RawMessage      `json:"footprint,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// Spatial describes the raster geometry.
type Spatial struct {
	Resolution float64 `json:"resolution"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Pixels     int     `json:"pixels"`
	TotalHa    float64 `json:"total_ha"`
}

// Statistics is the summary block of a Document.
type Statistics struct {
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	ValidCount     int64   `json:"valid_count"`
	NoDataCount    int64   `json:"nodata_count"`
	NonFiniteCount int64   `json:"non_finite_count"`
}

// DistributionEntry is one category row. Min or Max is nil for the open
// ended outer categories.
type DistributionEntry struct {
	Bin     index.Bin `json:"bin"`
	Label   string    `json:"label"`
	Min     *float64  `json:"min"`
	Max     *float64  `json:"max"`
	Pixels  int64     `json:"pixels"`
	Percent float64   `json:"percent"`
	AreaHa  float64   `json:"area_ha"`
}

// Interpretation adds the display label to the classifier output.
type Interpretation struct {
	State      index.State     `json:"state"`
	StateLabel string          `json:"state_label"`
	Advisory   *index.Advisory `json:"advisory,omitempty"`
}

// NewDocument converts an analysis into its JSON document.
func NewDocument(a *model.Analysis) Document {
	doc := Document{
		ID:     a.ID,
		Layer:  a.Layer,
		Kind:   a.Kind,
		Status: a.Status,
		Spatial: Spatial{
			Resolution: a.Resolution,
			Width:      a.Width,
			Height:     a.Height,
			Pixels:     a.Pixels(),
			TotalHa:    a.Area.TotalHa,
		},
		Statistics: Statistics{
			Mean:           a.Stats.Mean,
			StdDev:         a.Stats.StdDev,
			Min:            a.Stats.Min,
			Max:            a.Stats.Max,
			ValidCount:     a.Stats.ValidCount,
			NoDataCount:    a.Stats.NoDataCount,
			NonFiniteCount: a.Stats.NonFiniteCount,
		},
		Distribution: []DistributionEntry{},
		Interpretation: Interpretation{
			State:      a.Interpretation.State,
			StateLabel: StateLabel(a.Interpretation.State),
			Advisory:   a.Interpretation.Advisory,
		},
		Footprint: a.Footprint,
		CreatedAt: a.CreatedAt,
	}

	for _, e := range a.Distribution() {
		iv := e.Bin.Interval()
		doc.Distribution = append(doc.Distribution, DistributionEntry{
			Bin:     e.Bin,
			Label:   binLabel(a.Layer, e.Bin),
			Min:     finite(iv.Min),
			Max:     finite(iv.Max),
			Pixels:  a.Stats.Counts[e.Bin],
			Percent: e.Percent,
			AreaHa:  e.AreaHa,
		})
	}
	return doc
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// WriteJSON writes the documents for analyses as an indented JSON array.
func WriteJSON(w io.Writer, analyses []*model.Analysis) error {
	docs := make([]Document, 0, len(analyses))
	for _, a := range analyses {
		docs = append(docs, NewDocument(a))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
