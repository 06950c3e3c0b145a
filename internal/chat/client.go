package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/gourmet-lens/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ImageModels is the subset of the Gemini Models service used for image work.
// *genai.Models satisfies it; tests substitute a fake.
type ImageModels interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiClient creates a Gemini API client authenticated with apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// recordCall emits one latency metric document for a remote model call.
func recordCall(operation, model string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.RemoteCall(operation, model, time.Since(start), result)
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// logCallFailure logs a failed remote call with its duration.
func logCallFailure(err error, model string, start time.Time, msg string) {
	log.Error().
		Err(err).
		Str("model", model).
		Dur("duration", time.Since(start)).
		Msg(msg)
}
