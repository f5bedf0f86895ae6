package raster

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SamplerFor picks a decoder from the file extension.
func SamplerFor(path, name string) (Sampler, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
		return ASCIIGridFile{Path: path, Name: name}, nil
	case ".tif", ".tiff", ".jp2", ".img", ".vrt":
		return gdalSampler(path, name)
	default:
		return nil, unavailable("raster: %s: unsupported format", path)
	}
}

// Source resolves configured layer names to files under one directory.
type Source struct {
	dir   string
	files map[string]string
}

// NewSource returns a Source reading files (layer name → file name,
// relative to dir).
func NewSource(dir string, files map[string]string) *Source {
	cp := make(map[string]string, len(files))
	for k, v := range files {
		cp[k] = v
	}
	return &Source{dir: dir, files: cp}
}

// Names returns the configured layer names in sorted order.
func (s *Source) Names() []string {
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookup finds a layer by name, ignoring case when there is no exact
// match. It returns the name as configured.
func (s *Source) lookup(name string) (string, string, bool) {
	if file, ok := s.files[name]; ok {
		return name, file, true
	}
	for _, configured := range s.Names() {
		if strings.EqualFold(configured, name) {
			return configured, s.files[configured], true
		}
	}
	return "", "", false
}

// Path returns the resolved file path for a layer. Names match
// case-insensitively.
func (s *Source) Path(name string) (string, bool) {
	_, file, ok := s.lookup(name)
	if !ok {
		return "", false
	}
	if filepath.IsAbs(file) {
		return file, true
	}
	return filepath.Join(s.dir, file), true
}

// Sampler returns the sampler for a named layer. The raster carries the
// configured spelling of the name. Unknown layers and missing files are
// reported as ErrRasterUnavailable.
func (s *Source) Sampler(name string) (Sampler, error) {
	configured, _, ok := s.lookup(name)
	if !ok {
		return nil, unavailable("raster: layer %q is not configured", name)
	}
	path, _ := s.Path(configured)
	if _, err := os.Stat(path); err != nil {
		return nil, unavailable("raster: layer %q: file not found: %s", configured, path)
	}
	return SamplerFor(path, configured)
}
