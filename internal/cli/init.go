// Package cli holds the startup sequence shared by the gourmet binaries:
// configuration, logging, metrics, the Gemini client and the studio.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/fpang/gourmet-lens/internal/auth"
	"github.com/fpang/gourmet-lens/internal/chat"
	"github.com/fpang/gourmet-lens/internal/config"
	"github.com/fpang/gourmet-lens/internal/logging"
	"github.com/fpang/gourmet-lens/internal/metrics"
	"github.com/fpang/gourmet-lens/internal/studio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

// Build identity, set with -ldflags "-X github.com/fpang/gourmet-lens/internal/cli.CommitHash=...".
var (
	CommitHash = "dev"
	BuildTime  = ""
)

// Flags are the options every binary accepts. Flags left unset fall back
// to the environment.
type Flags struct {
	LogLevel       string
	ImageModel     string
	EditModel      string
	Metrics        bool
	SkipValidation bool
}

// RegisterFlags adds the shared flags to cmd.
func RegisterFlags(cmd *cobra.Command, f *Flags) {
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error (env GOURMET_LOG_LEVEL)")
	cmd.Flags().StringVar(&f.ImageModel, "image-model", "", "Imagen model for generation (env GOURMET_IMAGE_MODEL)")
	cmd.Flags().StringVar(&f.EditModel, "edit-model", "", "Gemini model for edits (env GOURMET_EDIT_MODEL)")
	cmd.Flags().BoolVar(&f.Metrics, "metrics", false, "Write metric documents to stdout (env GOURMET_METRICS)")
	cmd.Flags().BoolVar(&f.SkipValidation, "skip-validation", false, "Skip the API key check at startup")
}

// Apply overrides cfg with the flags the user actually set on cmd.
func (f *Flags) Apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = f.LogLevel
	}
	if changed("image-model") {
		cfg.ImageModel = f.ImageModel
	}
	if changed("edit-model") {
		cfg.EditModel = f.EditModel
	}
	if changed("metrics") {
		cfg.Metrics = f.Metrics
	}
}

// Boot loads configuration, initializes logging and metrics, connects to
// Gemini and returns a ready Studio. Metric documents go to metricsOut when
// enabled. Failures are fatal.
func Boot(ctx context.Context, name string, cmd *cobra.Command, f *Flags, metricsOut io.Writer) (*config.Config, *studio.Studio) {
	initStart := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("info")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	f.Apply(cmd, cfg)
	logging.Init(cfg.LogLevel)

	if cfg.Metrics {
		metrics.Configure(metricsOut, name)
	}

	client := InitGeminiClient(ctx, f.SkipValidation)
	st := studio.New(
		chat.NewGenerator(client.Models, cfg.ImageModel),
		chat.NewEditor(client.Models, cfg.EditModel),
	)

	logging.NewStartupLogger(name).
		CommitHash(CommitHash).
		BuildTime(BuildTime).
		Model("image", cfg.ImageModel).
		Model("edit", cfg.EditModel).
		Feature("metrics", cfg.Metrics).
		Feature("keyValidation", !f.SkipValidation).
		InitDuration(time.Since(initStart)).
		Log()

	return cfg, st
}

// InitGeminiClient creates a Gemini client and, unless skipValidation is
// set, checks the key with a minimal request. Exits fatally on failure.
func InitGeminiClient(ctx context.Context, skipValidation bool) *genai.Client {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		HandleValidationError(&auth.ValidationError{Type: auth.ErrTypeNoKey, Message: "no API key", Err: err})
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	if skipValidation {
		log.Warn().Msg("Skipping API key validation")
		return client
	}
	if err := auth.ValidateAPIKey(ctx, client.Models); err != nil {
		HandleValidationError(err)
	}
	return client
}
