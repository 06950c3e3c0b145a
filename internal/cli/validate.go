package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/gourmet-lens/internal/auth"
	"github.com/rs/zerolog/log"
)

// EnsureOutputDir creates dirPath if needed and returns its absolute path.
// An existing non-directory is an error.
func EnsureOutputDir(dirPath string) (string, error) {
	info, err := os.Stat(dirPath)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%s is not a directory", dirPath)
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dirPath, err)
		}
	case err != nil:
		return "", fmt.Errorf("failed to access %s: %w", dirPath, err)
	}

	if abs, err := filepath.Abs(dirPath); err == nil {
		dirPath = abs
	}
	return dirPath, nil
}

// HandleValidationError processes auth.ValidationError and exits with appropriate messaging.
func HandleValidationError(err error) {
	var validationErr *auth.ValidationError
	if !errors.As(err, &validationErr) {
		log.Fatal().Err(err).Msg("unexpected error during API key validation")
	}
	switch validationErr.Type {
	case auth.ErrTypeNoKey:
		log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY or GOOGLE_API_KEY, or store it in ~/.gourmet-lens/credentials.gpg")
	case auth.ErrTypeInvalidKey:
		log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
	case auth.ErrTypeNetworkError:
		log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
	case auth.ErrTypeQuotaExceeded:
		log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
	default:
		log.Fatal().Err(err).Msg("API key validation failed")
	}
}
