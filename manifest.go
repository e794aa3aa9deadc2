package frames2mod

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// A Manifest is the on-disk description of one portrait set:
//
//	name: Aela
//	hash: abc123
//	switch: true
//	items:
//	  - source: media/aela.gif
//	    width: 256
//	    height: 256
//	    static_toggle: true
//	    static_frame: 3
//	  - source: media/aela_alt.mp4
//	    fps: 12
//	    width: 256
//	    height: 256
//	    custom_static: media/aela_alt_thumb.png
type Manifest struct {
	Name   string         `yaml:"name"`
	Hash   string         `yaml:"hash"`
	Switch bool           `yaml:"switch"`
	Items  []ManifestItem `yaml:"items"`

	dir string
}

type ManifestItem struct {
	Source       string  `yaml:"source"`
	Frames       int     `yaml:"frames,omitempty"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FPS          float64 `yaml:"fps,omitempty"`
	StaticToggle bool    `yaml:"static_toggle,omitempty"`
	StaticFrame  int     `yaml:"static_frame,omitempty"`
	CustomStatic string  `yaml:"custom_static,omitempty"`
}

// LoadManifest reads the manifest at path. Relative media paths are resolved
// against the manifest's folder.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile %q failed: %w", path, err)
	}
	m := &Manifest{}
	if err = yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal %q failed: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}

// Set returns the portrait set of m. Alternates are only included in switch
// mode. An empty hash is looked up in c when c is not nil.
func (m *Manifest) Set(c *HashCatalog) (PortraitSet, error) {
	if len(m.Items) == 0 {
		return nil, validationError("", fmt.Sprintf("manifest %q has no items", m.Name))
	}
	hash := m.Hash
	if hash == "" && c != nil {
		if h, ok := c.Lookup(m.Name); ok {
			hash = h
		}
	}
	items := m.Items
	if !m.Switch {
		items = items[:1]
	}
	set := make(PortraitSet, 0, len(items))
	for _, mi := range items {
		set = append(set, PortraitItem{
			Name:         m.Name,
			Hash:         hash,
			Source:       m.resolve(mi.Source),
			FrameCount:   mi.Frames,
			Width:        mi.Width,
			Height:       mi.Height,
			FPS:          mi.FPS,
			StaticToggle: mi.StaticToggle,
			StaticFrame:  mi.StaticFrame,
			CustomStatic: m.resolve(mi.CustomStatic),
		})
	}
	return set, nil
}
