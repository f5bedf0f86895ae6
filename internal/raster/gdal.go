//go:build gdal

package raster

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/sells-group/vegindex-cli/internal/index"
)

var registerDrivers sync.Once

// GDALFile samples the first band of any raster GDAL can open (GeoTIFF,
// JP2, ...). Only built with -tags gdal since it links against libgdal.
type GDALFile struct {
	Path string
	Name string
}

// Sample opens the dataset and reads band 1 as float64.
func (g GDALFile) Sample(ctx context.Context) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("raster: %s: %v", g.Path, err)
	}
	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Open(g.Path)
	if err != nil {
		return nil, unavailable("raster: open %s: %v", g.Path, err)
	}
	defer ds.Close() //nolint:errcheck

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, unavailable("raster: %s has no bands", g.Path)
	}
	band := bands[0]
	st := band.Structure()

	data := make([]float64, st.SizeX*st.SizeY)
	if err := band.Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
		return nil, unavailable("raster: read %s: %v", g.Path, err)
	}

	noData, ok := band.NoData()
	if !ok {
		noData = math.NaN()
	}
	grid, err := index.NewGrid(data, st.SizeX, st.SizeY, noData)
	if err != nil {
		return nil, unavailable("raster: %s: %v", g.Path, err)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, unavailable("raster: %s: geotransform: %v", g.Path, err)
	}
	if gt[1] <= 0 || math.Abs(gt[1]) != math.Abs(gt[5]) {
		return nil, unavailable("raster: %s: pixels are not square (%v x %v)", g.Path, gt[1], gt[5])
	}

	name := g.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(g.Path), filepath.Ext(g.Path))
	}
	return &Raster{
		Name:       name,
		Path:       g.Path,
		Grid:       grid,
		Resolution: gt[1],
		OriginX:    gt[0],
		OriginY:    gt[3] + gt[5]*float64(st.SizeY),
	}, nil
}

func gdalSampler(path, name string) (Sampler, error) {
	return GDALFile{Path: path, Name: name}, nil
}
