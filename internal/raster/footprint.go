package raster

import (
	"github.com/twpayne/go-geom"
)

// Footprint returns the raster extent as a closed polygon in the raster's
// own coordinate units.
func Footprint(r *Raster) *geom.Polygon {
	minX, minY := r.OriginX, r.OriginY
	maxX := minX + float64(r.Width())*r.Resolution
	maxY := minY + float64(r.Height())*r.Resolution
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}, []int{10})
}
