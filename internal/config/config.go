// Package config loads process configuration from the environment, with
// optional .env files for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fpang/gourmet-lens/internal/chat"
	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are read in order when present. Earlier files win, and
// real environment variables win over all of them.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config holds all configuration for the binaries.
type Config struct {
	Port          int
	LogLevel      string
	ImageModel    string
	EditModel     string
	Metrics       bool
	ThumbnailSize int
}

// Load reads the env files that exist and then the GOURMET_* variables.
// Missing files are ignored; malformed values are errors.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		LogLevel:   envOr("GOURMET_LOG_LEVEL", "info"),
		ImageModel: envOr("GOURMET_IMAGE_MODEL", chat.DefaultImageModel),
		EditModel:  envOr("GOURMET_EDIT_MODEL", chat.DefaultEditModel),
	}

	var err error
	if cfg.Port, err = envInt("GOURMET_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.ThumbnailSize, err = envInt("GOURMET_THUMBNAIL_SIZE", imaging.DefaultThumbnailMaxDimension); err != nil {
		return nil, err
	}
	if cfg.Metrics, err = envBool("GOURMET_METRICS", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.ThumbnailSize < 1 {
		errs = append(errs, fmt.Errorf("thumbnail size must be positive, got %d", c.ThumbnailSize))
	}
	if c.ImageModel == "" || c.EditModel == "" {
		errs = append(errs, errors.New("model IDs must not be empty"))
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
