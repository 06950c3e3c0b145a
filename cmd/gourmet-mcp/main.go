package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpang/gourmet-lens/internal/cli"
	"github.com/fpang/gourmet-lens/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flags cli.Flags

var rootCmd = &cobra.Command{
	Use:   "gourmet-mcp",
	Short: "MCP server for generating and editing dish photos",
	Long: `Gourmet MCP serves the food photo studio over the Model Context Protocol
on stdin/stdout. Logs and metric documents go to stderr so the protocol
stream stays clean.

Tools:
  generate_dish_photo        dish name, description, style or preset
  list_dish_photos           gallery, newest first
  edit_dish_photo            natural-language edit of a photo
  select_dish_photo_version  view an earlier version
  close_dish_photo_editor    end the edit session for a photo`,
	Run: runMain,
}

func init() {
	cli.RegisterFlags(rootCmd, &flags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newMCPServer(st *studio.Studio) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gourmet-lens", Version: cli.CommitHash}, nil)
	(&toolset{studio: st}).register(server)
	return server
}

func runMain(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, st := cli.Boot(ctx, "gourmet-mcp", cmd, &flags, os.Stderr)
	defer st.Shutdown()

	log.Info().Msg("Serving MCP on stdio")
	if err := newMCPServer(st).Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
