// Package prompt turns dish requests and edit instructions into the
// natural-language prompts sent to the image models.
package prompt

import (
	"fmt"
	"strings"

	"github.com/fpang/gourmet-lens/internal/assets"
)

// Style selects the photographic direction appended to generation prompts.
type Style string

const (
	StyleRustic Style = "RUSTIC"
	StyleModern Style = "MODERN"
	StyleSocial Style = "SOCIAL"
)

// DefaultStyle is preselected for new requests.
const DefaultStyle = StyleModern

var allStyles = []Style{StyleRustic, StyleModern, StyleSocial}

// descriptors maps every Style to its catalog entry. Populated and checked
// for completeness at init.
var descriptors = loadDescriptors(assets.Styles())

func loadDescriptors(entries []assets.StyleEntry) map[Style]assets.StyleEntry {
	m := make(map[Style]assets.StyleEntry, len(entries))
	for _, e := range entries {
		m[Style(e.Key)] = e
	}
	for _, s := range allStyles {
		e, ok := m[s]
		if !ok || e.Descriptor == "" {
			panic(fmt.Sprintf("prompt: style %s has no descriptor in the catalog", s))
		}
	}
	return m
}

// Styles returns every style in display order.
func Styles() []Style {
	out := make([]Style, len(allStyles))
	copy(out, allStyles)
	return out
}

// Valid reports whether s is one of the known styles.
func (s Style) Valid() bool {
	_, ok := descriptors[s]
	return ok
}

// Descriptor returns the fixed prompt fragment for the style.
func (s Style) Descriptor() string {
	return descriptors[s].Descriptor
}

// Label returns the human-readable style name.
func (s Style) Label() string {
	if e, ok := descriptors[s]; ok {
		return e.Label
	}
	return string(s)
}

// ParseStyle accepts a style key (case-insensitive) or its display name,
// e.g. "social", "SOCIAL" or "Social Media (Top-Down)".
func ParseStyle(v string) (Style, error) {
	v = strings.TrimSpace(v)
	for _, s := range allStyles {
		e := descriptors[s]
		if strings.EqualFold(v, e.Key) || strings.EqualFold(v, e.Display) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown style %q", v)
}

// BuildGenerationPrompt builds the text-to-image prompt for a dish. Empty
// fields are allowed and simply produce a sparser prompt.
func BuildGenerationPrompt(dishName, description string, style Style) string {
	return assets.RenderGenerationPrompt(assets.GenerationPromptData{
		DishName:        dishName,
		Description:     description,
		StyleDescriptor: style.Descriptor(),
	})
}

// BuildEditPrompt wraps a free-text instruction with the menu photorealism framing.
func BuildEditPrompt(instruction string) string {
	return assets.RenderEditPrompt(instruction)
}
