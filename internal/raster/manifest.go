package raster

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest lists the layers of a batch run.
type Manifest struct {
	Dir    string  `yaml:"dir"`
	Layers []Layer `yaml:"layers"`
}

// Layer is one manifest entry.
type Layer struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
	// Kind overrides the kind inferred from Name ("ndvi" or "other").
	Kind string `yaml:"kind,omitempty"`
	// Resolution overrides the resolution declared by the file.
	Resolution float64 `yaml:"resolution,omitempty"`
}

// LoadManifest reads a YAML manifest. A relative Dir is resolved against the
// manifest's own directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "raster: parse manifest")
	}

	if !filepath.IsAbs(m.Dir) {
		m.Dir = filepath.Join(filepath.Dir(path), m.Dir)
	}
	for i, l := range m.Layers {
		if l.File == "" {
			return nil, eris.Errorf("raster: manifest layer %d has no file", i)
		}
		if l.Name == "" {
			m.Layers[i].Name = l.File
		}
	}
	return &m, nil
}

// Source returns a Source over the manifest's layers.
func (m *Manifest) Source() *Source {
	files := make(map[string]string, len(m.Layers))
	for _, l := range m.Layers {
		files[l.Name] = l.File
	}
	return NewSource(m.Dir, files)
}
