package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
	"gopkg.in/yaml.v3"
)

// Package presets loads named filter sets (YAML/JSON) for list queries.

type Preset struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Filters     map[string]any `json:"filters" yaml:"filters"`
}

type file struct {
	Presets []Preset `json:"presets" yaml:"presets"`
}

// Registry is an immutable set of presets indexed by name.
type Registry struct {
	presets []Preset
	idx     map[string]Preset
}

// Load reads presets from path. The extension picks the decoder; unknown
// extensions try YAML then JSON.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("presets file path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes preset definitions from data.
func Parse(data []byte, ext string) (*Registry, error) {
	doc, err := decode(data, ext)
	if err != nil {
		return nil, err
	}
	if len(doc.Presets) == 0 {
		return nil, errors.New("presets file contains no presets entries")
	}

	reg := &Registry{
		presets: make([]Preset, 0, len(doc.Presets)),
		idx:     make(map[string]Preset, len(doc.Presets)),
	}
	for i, p := range doc.Presets {
		p.Name = strings.TrimSpace(p.Name)
		p.Description = strings.TrimSpace(p.Description)
		if p.Name == "" {
			return nil, fmt.Errorf("presets[%d]: name is required", i)
		}
		if _, exists := reg.idx[p.Name]; exists {
			return nil, fmt.Errorf("duplicate preset name %q", p.Name)
		}
		if p.Filters == nil {
			p.Filters = map[string]any{}
		}
		reg.presets = append(reg.presets, p)
		reg.idx[p.Name] = p
	}
	return reg, nil
}

func decode(data []byte, ext string) (file, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	known := false
	for _, d := range decoders {
		if ext == d.ext {
			known = true
		}
	}

	for _, d := range decoders {
		if known && ext != d.ext {
			continue
		}
		var doc file
		if err := d.fn(data, &doc); err == nil {
			return doc, nil
		}
	}
	return file{}, errors.New("presets file format not recognized (expected YAML or JSON)")
}

// Get returns a copy of the named preset's filters.
func (r *Registry) Get(name string) (obligations.FilterSet, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.idx[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	out := make(obligations.FilterSet, len(p.Filters))
	for k, v := range p.Filters {
		out[k] = v
	}
	return out, true
}

// Names returns the preset names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.presets))
	for _, p := range r.presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
