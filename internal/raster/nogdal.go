//go:build !gdal

package raster

func gdalSampler(path, _ string) (Sampler, error) {
	return nil, unavailable("raster: %s: GeoTIFF support requires a build with -tags gdal", path)
}
