package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fpang/gourmet-lens/internal/archive"
	"github.com/fpang/gourmet-lens/internal/cli"
	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/fpang/gourmet-lens/internal/store"
	"github.com/fpang/gourmet-lens/internal/studio"
	"github.com/rs/zerolog/log"
)

// resolveRequest applies the preset and, when interactive, asks for each
// field with the current value as the default. Flags win over the preset.
func resolveRequest(d studio.Draft, in *bufio.Reader, out io.Writer, interactive bool) (studio.Request, error) {
	d, err := d.ApplyPreset()
	if err != nil {
		return studio.Request{}, err
	}

	if interactive {
		if d.DishName, err = cli.PromptLine(in, out, "Dish name", d.DishName); err != nil {
			return studio.Request{}, err
		}
		if d.Description, err = cli.PromptLine(in, out, "Description", d.Description); err != nil {
			return studio.Request{}, err
		}
		def := d.Style
		if def == "" {
			def = string(prompt.DefaultStyle)
		}
		if d.Style, err = cli.PromptLine(in, out, "Style (RUSTIC, MODERN, SOCIAL)", def); err != nil {
			return studio.Request{}, err
		}
	}
	return d.Resolve()
}

// editSource yields the next edit instruction. ok is false when there are
// no more.
type editSource func() (instruction string, ok bool, err error)

func fixedEdits(list []string) editSource {
	i := 0
	return func() (string, bool, error) {
		if i >= len(list) {
			return "", false, nil
		}
		i++
		return list[i-1], true, nil
	}
}

// promptEdits asks for instructions until an empty line or EOF.
func promptEdits(in *bufio.Reader, out io.Writer) editSource {
	return func() (string, bool, error) {
		line, err := cli.PromptLine(in, out, "Edit instruction (blank to finish)", "")
		if err != nil {
			return "", false, err
		}
		return line, line != "", nil
	}
}

func chainEdits(sources ...editSource) editSource {
	return func() (string, bool, error) {
		for len(sources) > 0 {
			s, ok, err := sources[0]()
			if err != nil || ok {
				return s, ok, err
			}
			sources = sources[1:]
		}
		return "", false, nil
	}
}

type result struct {
	Record      store.Record
	Versions    []imaging.Handle
	Files       []string
	FailedEdits int
	Elapsed     time.Duration
	Finished    time.Time
}

// run generates the photo, applies each edit in turn and writes every new
// version to outDir as it arrives. A failed edit is reported and skipped;
// the history keeps its previous versions.
func run(ctx context.Context, st *studio.Studio, req studio.Request, edits editSource, outDir string, progress io.Writer) (result, error) {
	start := time.Now()
	var res result

	fmt.Fprintf(progress, "Generating %s...\n", req.DishName)
	rec, err := st.Generate(ctx, req)
	if err != nil {
		return res, err
	}
	res.Record = rec

	path, err := writeVersion(outDir, 0, rec.Image)
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, path)
	res.Versions = append(res.Versions, rec.Image)
	fmt.Fprintf(progress, "  v0 -> %s (%s)\n", path, cli.FormatSize(len(rec.Image.Data)))

	sess, err := st.OpenEditor(rec.ID)
	if err != nil {
		return res, err
	}
	defer func() {
		if err := st.CloseEditor(sess.ID); err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("Failed to close edit session")
		}
	}()

	for {
		instruction, ok, err := edits()
		if err != nil {
			return res, err
		}
		if !ok {
			break
		}

		editStart := time.Now()
		out, err := sess.SubmitEdit(ctx, instruction)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.FailedEdits++
			log.Warn().Err(err).Str("instruction", instruction).Msg("Edit failed")
			fmt.Fprintf(progress, "  edit %q failed, keeping v%d\n", strings.TrimSpace(instruction), len(res.Versions)-1)
			continue
		}

		i := len(res.Versions)
		path, err := writeVersion(outDir, i, out)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)
		res.Versions = append(res.Versions, out)
		fmt.Fprintf(progress, "  v%d -> %s (%s, %s)\n", i, path, cli.FormatSize(len(out.Data)), cli.FormatDurationShort(time.Since(editStart)))
	}

	res.Finished = time.Now()
	res.Elapsed = res.Finished.Sub(start)
	return res, nil
}

func writeVersion(dir string, i int, h imaging.Handle) (string, error) {
	path := filepath.Join(dir, archive.EntryName(i, h))
	if err := os.WriteFile(path, h.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func writeArchive(dir string, versions []imaging.Handle, method archive.Method, at time.Time) (string, error) {
	var buf bytes.Buffer
	if err := archive.WriteVersions(&buf, versions, method); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("gourmet-lens-%d.zip", at.UnixMilli()))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
