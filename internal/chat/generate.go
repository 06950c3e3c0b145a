package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Generation output settings. Square JPEG works for both menus and social posts.
const (
	GenerationMIMEType    = "image/jpeg"
	GenerationAspectRatio = "1:1"
)

// ErrNoImage is wrapped by GenerationError and EditError when the service
// answered but returned no image payload.
var ErrNoImage = errors.New("no image returned")

// GenerationError reports a failed text-to-image call. The caller must not
// assume any partial result.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("image generation with %s failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator creates dish photos with an Imagen model.
type Generator struct {
	models ImageModels
	model  string
}

// NewGenerator returns a Generator calling model through models.
// An empty model selects DefaultImageModel.
func NewGenerator(models ImageModels, model string) *Generator {
	if model == "" {
		model = DefaultImageModel
	}
	return &Generator{models: models, model: model}
}

// Model returns the model ID this generator calls.
func (g *Generator) Model() string {
	return g.model
}

// Generate builds the prompt for the dish and requests exactly one square
// image. It makes a single attempt; any failure is a *GenerationError.
func (g *Generator) Generate(ctx context.Context, dishName, description string, style prompt.Style) (imaging.Handle, error) {
	fullPrompt := prompt.BuildGenerationPrompt(dishName, description, style)

	log.Info().
		Str("model", g.model).
		Str("dish", truncateString(dishName, 80)).
		Str("style", string(style)).
		Int("prompt_length", len(fullPrompt)).
		Msg("Generating dish photo")

	start := time.Now()
	resp, err := g.models.GenerateImages(ctx, g.model, fullPrompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: GenerationMIMEType,
		AspectRatio:    GenerationAspectRatio,
	})
	if err == nil {
		err = firstGeneratedImageErr(resp)
	}
	recordCall("Generate", g.model, start, err)
	if err != nil {
		logCallFailure(err, g.model, start, "Image generation failed")
		return imaging.Handle{}, &GenerationError{Model: g.model, Err: err}
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = GenerationMIMEType
	}

	log.Info().
		Int("output_bytes", len(img.ImageBytes)).
		Str("output_mime", mimeType).
		Dur("duration", time.Since(start)).
		Msg("Dish photo generated")

	return imaging.New(mimeType, img.ImageBytes), nil
}

// firstGeneratedImageErr treats an empty response as a failure.
func firstGeneratedImageErr(resp *genai.GenerateImagesResponse) error {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return ErrNoImage
	}
	first := resp.GeneratedImages[0]
	if first == nil || first.Image == nil || len(first.Image.ImageBytes) == 0 {
		if first != nil && first.RAIFilteredReason != "" {
			return fmt.Errorf("%w: filtered: %s", ErrNoImage, first.RAIFilteredReason)
		}
		return ErrNoImage
	}
	return nil
}
