package studio

import (
	"fmt"

	"github.com/fpang/gourmet-lens/internal/assets"
	"github.com/fpang/gourmet-lens/internal/prompt"
)

// Draft is a request as typed by a user: the style is unparsed and a
// catalog preset may fill whatever was left empty.
type Draft struct {
	DishName    string `json:"dishName"`
	Description string `json:"description"`
	Style       string `json:"style"`
	Preset      string `json:"preset,omitempty"`
}

// ApplyPreset copies the named preset's fields into the empty fields of d.
func (d Draft) ApplyPreset() (Draft, error) {
	if d.Preset == "" {
		return d, nil
	}
	p, ok := assets.FindPreset(d.Preset)
	if !ok {
		return d, fmt.Errorf("%w: unknown preset %q", ErrInvalidRequest, d.Preset)
	}
	if d.DishName == "" {
		d.DishName = p.DishName
	}
	if d.Description == "" {
		d.Description = p.Description
	}
	if d.Style == "" {
		d.Style = p.Style
	}
	return d, nil
}

// Resolve applies the preset, parses the style and validates the result.
func (d Draft) Resolve() (Request, error) {
	d, err := d.ApplyPreset()
	if err != nil {
		return Request{}, err
	}

	req := Request{DishName: d.DishName, Description: d.Description}
	if d.Style != "" {
		style, err := prompt.ParseStyle(d.Style)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		req.Style = style
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
