package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpang/gourmet-lens/internal/archive"
	"github.com/fpang/gourmet-lens/internal/cli"
	"github.com/fpang/gourmet-lens/internal/studio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	flags           cli.Flags
	dishFlag        string
	descriptionFlag string
	styleFlag       string
	presetFlag      string
	editFlags       []string
	outFlag         string
	zipFlag         bool
	zipMethodFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "gourmet-cli",
	Short: "Generate and refine a dish photo from the terminal",
	Long: `Gourmet CLI generates a professional food photo from a dish name, a short
description and a photography style, then applies any edit instructions in
order. Every version is written to the output directory as v0.jpg, v1.png
and so on.

When --dish is omitted (and no preset is given) the CLI asks for the dish,
the description and the style, then keeps asking for edit instructions until
an empty line.

Examples:
  gourmet-cli --dish "Smashburger" --description "melting cheddar" --style SOCIAL
  gourmet-cli --preset en1 --edit "add steam" --edit "darker background" --zip
  gourmet-cli -o ./shoots/brisket --preset us1
  gourmet-cli  # Interactive mode`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&dishFlag, "dish", "", "Dish name")
	rootCmd.Flags().StringVar(&descriptionFlag, "description", "", "Visual description of the dish")
	rootCmd.Flags().StringVarP(&styleFlag, "style", "s", "", "Photography style: RUSTIC, MODERN or SOCIAL (default MODERN)")
	rootCmd.Flags().StringVarP(&presetFlag, "preset", "p", "", "Start from a catalog preset (e.g. en1, us1)")
	rootCmd.Flags().StringArrayVarP(&editFlags, "edit", "e", nil, "Edit instruction, applied in order (repeatable)")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", ".", "Output directory for image versions")
	rootCmd.Flags().BoolVar(&zipFlag, "zip", false, "Also bundle all versions into a ZIP archive")
	rootCmd.Flags().StringVar(&zipMethodFlag, "zip-method", "deflate", "ZIP compression: store, deflate or zstd")
	cli.RegisterFlags(rootCmd, &flags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	method, err := archive.ParseMethod(zipMethodFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --zip-method")
	}
	outDir, err := cli.EnsureOutputDir(outFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid output directory")
	}

	stdin := bufio.NewReader(os.Stdin)
	interactive := dishFlag == "" && presetFlag == ""
	req, err := resolveRequest(studio.Draft{
		DishName:    dishFlag,
		Description: descriptionFlag,
		Style:       styleFlag,
		Preset:      presetFlag,
	}, stdin, os.Stderr, interactive)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid request")
	}

	_, st := cli.Boot(ctx, "gourmet-cli", cmd, &flags, os.Stderr)
	defer st.Shutdown()

	edits := fixedEdits(editFlags)
	if interactive {
		edits = chainEdits(edits, promptEdits(stdin, os.Stderr))
	}

	res, err := run(ctx, st, req, edits, outDir, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Generation failed")
	}

	if zipFlag {
		path, err := writeArchive(outDir, res.Versions, method, res.Finished)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to write archive")
		}
		res.Files = append(res.Files, path)
	}

	printSummary(os.Stdout, res)
}

func printSummary(w io.Writer, res result) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s (%s)\n", res.Record.DishName, res.Record.Style.Label())
	fmt.Fprintf(w, "  Versions: %d, failed edits: %d, took %s\n", len(res.Versions), res.FailedEdits, cli.FormatDurationShort(res.Elapsed))
	for _, f := range res.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	fmt.Fprintln(w)
}
