// Package raster loads single-band index rasters and hands them to the
// analysis core as decoded grids.
package raster

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vegindex-cli/internal/index"
)

// ErrRasterUnavailable marks any failure to obtain a decoded grid: missing
// file, unknown layer, unreadable or malformed data.
var ErrRasterUnavailable = eris.New("raster unavailable")

// Raster is a decoded band plus the geometry needed for area reporting.
type Raster struct {
	Name       string
	Path       string
	Grid       index.Grid
	Resolution float64 // ground units per pixel edge
	OriginX    float64 // lower-left corner
	OriginY    float64
}

// Width returns the number of columns.
func (r *Raster) Width() int { return r.Grid.Width }

// Height returns the number of rows.
func (r *Raster) Height() int { return r.Grid.Height }

// Sampler produces a decoded raster.
type Sampler interface {
	Sample(ctx context.Context) (*Raster, error)
}

// unavailable wraps ErrRasterUnavailable with context describing the cause.
func unavailable(format string, args ...any) error {
	return eris.Wrapf(ErrRasterUnavailable, format, args...)
}
