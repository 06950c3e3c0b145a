package assets

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/styles.yaml
var stylesYAML []byte

//go:embed catalog/presets.yaml
var presetsYAML []byte

// StyleEntry describes one photography style: the prompt descriptor sent to
// the model plus the label and short description shown to users.
type StyleEntry struct {
	Key         string `yaml:"key" json:"key"`
	Display     string `yaml:"display" json:"display"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
	Descriptor  string `yaml:"descriptor" json:"-"`
}

// Preset is a ready-made dish request offered as a quick start.
type Preset struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	DishName    string `yaml:"dishName" json:"dishName"`
	Description string `yaml:"description" json:"description"`
	Style       string `yaml:"style" json:"style"`
}

var (
	styles  = mustParse[[]StyleEntry]("styles", stylesYAML)
	presets = mustParse[[]Preset]("presets", presetsYAML)
)

func mustParse[T any](name string, data []byte) T {
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		panic(fmt.Sprintf("assets: malformed %s catalog: %v", name, err))
	}
	return v
}

// Styles returns the style catalog in display order.
func Styles() []StyleEntry {
	out := make([]StyleEntry, len(styles))
	copy(out, styles)
	return out
}

// Presets returns the cuisine presets in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// FindPreset looks up a preset by its ID.
func FindPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
