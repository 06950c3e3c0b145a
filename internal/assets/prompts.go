// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
// The style and preset catalog lives under catalog/ as YAML.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed prompts/generation.txt
var generationTemplate string

//go:embed prompts/edit.txt
var editTemplate string

// Pre-parsed templates. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var (
	generationPromptTmpl = template.Must(template.New("generation").Parse(generationTemplate))
	editPromptTmpl       = template.Must(template.New("edit").Parse(editTemplate))
)

// GenerationPromptData holds the dynamic data injected into the generation prompt.
type GenerationPromptData struct {
	DishName        string
	Description     string
	StyleDescriptor string
}

// EditPromptData holds the dynamic data injected into the edit prompt.
type EditPromptData struct {
	Instruction string
}

// RenderGenerationPrompt renders the text-to-image prompt template.
func RenderGenerationPrompt(data GenerationPromptData) string {
	return renderTemplate(generationPromptTmpl, data)
}

// RenderEditPrompt renders the edit framing template around a user instruction.
func RenderEditPrompt(instruction string) string {
	return renderTemplate(editPromptTmpl, EditPromptData{Instruction: instruction})
}

// renderTemplate executes a pre-parsed template with the given data.
func renderTemplate(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Execution errors are not expected with these field-only templates;
	// whatever was rendered is returned.
	_ = tmpl.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}
