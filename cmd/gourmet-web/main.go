package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/gourmet-lens/internal/cli"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	portFlag  int
	flags     cli.Flags
	thumbFlag int
)

var rootCmd = &cobra.Command{
	Use:   "gourmet-web",
	Short: "Local HTTP API for generating and editing dish photos",
	Long: `Gourmet Web starts a local JSON API for the food photo studio. Generate
dish photos from a name, description and style, browse the gallery, and
refine any photo through an edit session with version history.

Examples:
  gourmet-web
  gourmet-web --port 9090
  gourmet-web --image-model imagen-4.0-fast-generate-001 --metrics`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (env GOURMET_PORT, default 8080)")
	rootCmd.Flags().IntVar(&thumbFlag, "thumbnail-size", 0, "Longest thumbnail edge in pixels (env GOURMET_THUMBNAIL_SIZE)")
	cli.RegisterFlags(rootCmd, &flags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cfg, st := cli.Boot(ctx, "gourmet-web", cmd, &flags, os.Stdout)
	if cmd.Flags().Changed("port") {
		cfg.Port = portFlag
	}
	if cmd.Flags().Changed("thumbnail-size") {
		cfg.ThumbnailSize = thumbFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      newRouter(newServer(st, cfg.ThumbnailSize)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		st.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Graceful shutdown incomplete")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Starting web server")
	fmt.Fprintf(os.Stderr, "\n  GourmetLens API: http://localhost:%d/api\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
