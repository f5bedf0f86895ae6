package index

import (
	"math"

	"github.com/rotisserie/eris"
)

// Grid is a read-only row-major view of a single raster band.
type Grid struct {
	Values []float64
	Width  int
	Height int
	NoData float64
}

// NewGrid validates the shape of values and returns a Grid.
func NewGrid(values []float64, width, height int, noData float64) (Grid, error) {
	if width < 0 || height < 0 {
		return Grid{}, eris.Wrapf(ErrInvalidGeometry, "index: grid shape %dx%d", width, height)
	}
	if height > 0 && width > math.MaxInt/height {
		return Grid{}, eris.Wrapf(ErrInvalidGeometry, "index: grid shape %dx%d overflows", width, height)
	}
	if len(values) != width*height {
		return Grid{}, eris.Errorf("index: grid has %d values, want %d (%dx%d)", len(values), width*height, width, height)
	}
	return Grid{Values: values, Width: width, Height: height, NoData: noData}, nil
}

// Len returns the number of cells in the grid.
func (g Grid) Len() int { return g.Width * g.Height }

// Options tunes how samples are filtered and how work is split.
type Options struct {
	// NoDataTolerance widens no-data matching to |v-NoData| <= tolerance.
	// Zero keeps exact equality.
	NoDataTolerance float64
	// Workers caps the number of partitions processed concurrently by
	// ComputeStatisticsParallel. Values < 1 mean one worker.
	Workers int
}

func (o Options) isNoData(v, noData float64) bool {
	if v == noData {
		return true
	}
	if o.NoDataTolerance > 0 {
		return math.Abs(v-noData) <= o.NoDataTolerance
	}
	return false
}
