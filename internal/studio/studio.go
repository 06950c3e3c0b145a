// Package studio ties generation, the gallery and edit sessions together.
// One Studio is created per process and handed to each surface.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fpang/gourmet-lens/internal/editor"
	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/jobs"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/fpang/gourmet-lens/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrGenerationInFlight = errors.New("a generation is already in progress")
)

// ImageGenerator turns a dish request into a photo.
type ImageGenerator interface {
	Generate(ctx context.Context, dishName, description string, style prompt.Style) (imaging.Handle, error)
}

// Request describes the dish to photograph. An empty Style selects
// prompt.DefaultStyle.
type Request struct {
	DishName    string       `json:"dishName"`
	Description string       `json:"description"`
	Style       prompt.Style `json:"style"`
}

// Validate checks that both text fields are present and the style is known.
func (r Request) Validate() error {
	if strings.TrimSpace(r.DishName) == "" {
		return fmt.Errorf("%w: dish name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidRequest)
	}
	if r.Style != "" && !r.Style.Valid() {
		return fmt.Errorf("%w: unknown style %q", ErrInvalidRequest, r.Style)
	}
	return nil
}

// Studio is the application state shared by the HTTP, CLI and MCP surfaces.
type Studio struct {
	generator  ImageGenerator
	records    *store.RecordStore
	sessions   *editor.Registry
	generating atomic.Bool
}

// New returns a Studio with an empty gallery.
func New(gen ImageGenerator, ed editor.ImageEditor) *Studio {
	records := store.New()
	return &Studio{
		generator: gen,
		records:   records,
		sessions:  editor.NewRegistry(ed, records),
	}
}

// Generate produces one photo and adds it to the front of the gallery.
// Only one generation runs at a time. The remote call is detached from
// ctx: if the caller stops waiting, the record is still created when the
// photo arrives.
func (s *Studio) Generate(ctx context.Context, req Request) (store.Record, error) {
	if err := req.Validate(); err != nil {
		return store.Record{}, err
	}
	if req.Style == "" {
		req.Style = prompt.DefaultStyle
	}
	if !s.generating.CompareAndSwap(false, true) {
		return store.Record{}, ErrGenerationInFlight
	}

	task := jobs.Start(ctx, "gen-", func(taskCtx context.Context) (store.Record, error) {
		defer s.generating.Store(false)

		img, err := s.generator.Generate(taskCtx, req.DishName, req.Description, req.Style)
		if err != nil {
			return store.Record{}, err
		}
		return s.records.Create(req.DishName, req.Description, req.Style, img), nil
	})

	log.Info().
		Str("task", task.ID).
		Str("dish", req.DishName).
		Str("style", string(req.Style)).
		Msg("Generation started")

	rec, err := task.Wait(ctx)
	if err != nil {
		return store.Record{}, err
	}

	log.Info().
		Str("id", rec.ID).
		Dur("duration", time.Since(task.Started)).
		Int("gallery_size", s.records.Len()).
		Msg("Generation complete")
	return rec, nil
}

// Generating reports whether a generation is running.
func (s *Studio) Generating() bool {
	return s.generating.Load()
}

// Records returns the gallery, newest first.
func (s *Studio) Records() []store.Record {
	return s.records.List()
}

// Record returns one gallery entry.
func (s *Studio) Record(id string) (store.Record, error) {
	rec, ok := s.records.FindByID(id)
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

// OpenEditor starts an edit session seeded with the record's current image.
func (s *Studio) OpenEditor(recordID string) (*editor.Session, error) {
	rec, err := s.Record(recordID)
	if err != nil {
		return nil, err
	}
	return s.sessions.Open(rec.ID, rec.Image), nil
}

// EditorFor returns an open session over recordID, opening one if none exists.
func (s *Studio) EditorFor(recordID string) (*editor.Session, error) {
	if sess, ok := s.FindEditor(recordID); ok {
		return sess, nil
	}
	return s.OpenEditor(recordID)
}

// FindEditor returns the open session over recordID, if any.
func (s *Studio) FindEditor(recordID string) (*editor.Session, bool) {
	return s.sessions.FindByRecord(recordID)
}

// Session returns an open edit session.
func (s *Studio) Session(id string) (*editor.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, editor.ErrSessionNotFound
	}
	return sess, nil
}

// CloseEditor closes an edit session. The record keeps the image of the
// last successful edit regardless of the version being viewed.
func (s *Studio) CloseEditor(id string) error {
	return s.sessions.Close(id)
}

// Shutdown closes every open session.
func (s *Studio) Shutdown() {
	s.sessions.CloseAll()
}
