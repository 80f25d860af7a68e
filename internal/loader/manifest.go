// Package loader ingests route and region layers from GeoJSON and
// shapefile sources, resolving attribute names from candidate lists.
package loader

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LayerSpec describes one region layer source: where to read it and which
// properties hold the region code and display name. Candidates are tried
// in order, case-insensitively, against the source's attribute names.
type LayerSpec struct {
	Key            string   `yaml:"key"`
	Path           string   `yaml:"path"`
	CodeProperties []string `yaml:"code_properties"`
	NameProperties []string `yaml:"name_properties"`
}

// Manifest lists the region layers for a run.
type Manifest struct {
	Layers []LayerSpec `yaml:"layers"`
}

// DefaultManifest returns the standard two-layer setup: local authorities
// and regional transport partnerships.
func DefaultManifest(laPath, rptPath string) *Manifest {
	return &Manifest{Layers: []LayerSpec{
		{
			Key:            "la",
			Path:           laPath,
			CodeProperties: []string{"code", "la_code", "la"},
			NameProperties: []string{"local_authority", "la_name", "name"},
		},
		{
			Key:            "rpt",
			Path:           rptPath,
			CodeProperties: []string{"rpt_code", "code", "rpt"},
			NameProperties: []string{"rpt_name", "name"},
		},
	}}
}

// LoadManifest reads a layer manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "loader: parse manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that layer keys are present and unique and that each
// layer names at least one code property.
func (m *Manifest) Validate() error {
	if len(m.Layers) == 0 {
		return eris.New("loader: manifest has no layers")
	}
	seen := make(map[string]bool, len(m.Layers))
	for _, spec := range m.Layers {
		if spec.Key == "" {
			return eris.New("loader: layer with empty key")
		}
		if seen[spec.Key] {
			return eris.Errorf("loader: duplicate layer key %q", spec.Key)
		}
		seen[spec.Key] = true
		if spec.Path == "" {
			return eris.Errorf("loader: layer %q has no path", spec.Key)
		}
		if len(spec.CodeProperties) == 0 {
			return eris.Errorf("loader: layer %q has no code property candidates", spec.Key)
		}
	}
	return nil
}
