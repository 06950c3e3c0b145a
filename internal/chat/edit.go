package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// EditOutputMIMEType is assumed when the edit model returns image bytes
// without a MIME type. The edit path encodes differently from generation.
const EditOutputMIMEType = "image/png"

// EditError reports a failed image edit. The input image is unaffected.
type EditError struct {
	Model string
	Err   error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("image edit with %s failed: %v", e.Model, e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// Editor applies text instructions to existing photos with a Gemini image model.
type Editor struct {
	models ImageModels
	model  string
}

// NewEditor returns an Editor calling model through models.
// An empty model selects DefaultEditModel.
func NewEditor(models ImageModels, model string) *Editor {
	if model == "" {
		model = DefaultEditModel
	}
	return &Editor{models: models, model: model}
}

// Model returns the model ID this editor calls.
func (e *Editor) Model() string {
	return e.model
}

// Edit sends current together with the framed instruction and returns the
// first image in the response. It makes a single attempt; any failure is an
// *EditError.
func (e *Editor) Edit(ctx context.Context, current imaging.Handle, instruction string) (imaging.Handle, error) {
	inputMIME := current.MIMEType
	if inputMIME == "" {
		inputMIME = imaging.DefaultMIMEType
	}
	editPrompt := prompt.BuildEditPrompt(instruction)

	log.Info().
		Str("model", e.model).
		Int("image_bytes", len(current.Data)).
		Str("image_mime", inputMIME).
		Str("instruction", truncateString(instruction, 100)).
		Msg("Sending image to Gemini for editing")

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: inputMIME, Data: current.Data}},
			{Text: editPrompt},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage)},
	}

	start := time.Now()
	var out imaging.Handle
	resp, err := e.models.GenerateContent(ctx, e.model, contents, config)
	if err == nil {
		out, err = FirstInlineImage(resp)
	}
	recordCall("Edit", e.model, start, err)
	if err != nil {
		logCallFailure(err, e.model, start, "Image edit failed")
		return imaging.Handle{}, &EditError{Model: e.model, Err: err}
	}

	log.Info().
		Int("output_bytes", len(out.Data)).
		Str("output_mime", out.MIMEType).
		Dur("duration", time.Since(start)).
		Msg("Gemini image editing complete")

	return out, nil
}

// FirstInlineImage scans every candidate's parts in order and returns the
// first inline image payload. The returned MIME type is whatever accompanied
// the payload, falling back to EditOutputMIMEType.
func FirstInlineImage(resp *genai.GenerateContentResponse) (imaging.Handle, error) {
	if resp == nil {
		return imaging.Handle{}, ErrNoImage
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = EditOutputMIMEType
				}
				return imaging.Handle{MIMEType: mimeType, Data: part.InlineData.Data}, nil
			}
			text.WriteString(part.Text)
		}
	}

	if text.Len() > 0 {
		return imaging.Handle{}, fmt.Errorf("%w (text: %s)", ErrNoImage, truncateString(text.String(), 200))
	}
	return imaging.Handle{}, ErrNoImage
}
