package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fpang/gourmet-lens/internal/archive"
	"github.com/fpang/gourmet-lens/internal/assets"
	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/fpang/gourmet-lens/internal/studio"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
)

type server struct {
	studio    *studio.Studio
	thumbSize int
	now       func() time.Time
}

func newServer(st *studio.Studio, thumbSize int) *server {
	if thumbSize <= 0 {
		thumbSize = imaging.DefaultThumbnailMaxDimension
	}
	return &server{studio: st, thumbSize: thumbSize, now: time.Now}
}

// GET /api/health
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]any{
		"status":     "ok",
		"records":    len(s.studio.Records()),
		"generating": s.studio.Generating(),
	})
}

type catalogResponse struct {
	Styles       []assets.StyleEntry `json:"styles"`
	Presets      []assets.Preset     `json:"presets"`
	DefaultStyle prompt.Style        `json:"defaultStyle"`
}

// GET /api/catalog
func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, catalogResponse{
		Styles:       assets.Styles(),
		Presets:      assets.Presets(),
		DefaultStyle: prompt.DefaultStyle,
	})
}

// GET /api/images
func (s *server) handleListImages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, s.studio.Records())
}

// POST /api/images
func (s *server) handleCreateImage(w http.ResponseWriter, r *http.Request) {
	var body studio.Draft
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := body.Resolve()
	if err != nil {
		respondErr(w, r, err)
		return
	}

	rec, err := s.studio.Generate(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, rec)
}

// GET /api/images/{id}
func (s *server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.Record(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, rec)
}

// GET /api/images/{id}/thumbnail
func (s *server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.Record(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	thumb, err := imaging.Thumbnail(rec.Image, s.thumbSize)
	if err != nil {
		log.Warn().Err(err).Str("id", rec.ID).Msg("Failed to generate thumbnail")
		httpError(w, r, http.StatusInternalServerError, "thumbnail generation failed")
		return
	}
	w.Header().Set("Content-Type", thumb.MIMEType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(thumb.Data)
}

// downloadFilename names a download after the moment it was requested.
func downloadFilename(at time.Time, h imaging.Handle) string {
	return fmt.Sprintf("gourmet-lens-%d%s", at.UnixMilli(), h.Extension())
}

// GET /api/images/{id}/download
func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.Record(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", rec.Image.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename(s.now(), rec.Image)))
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Image.Data)))
	w.Write(rec.Image.Data)
}

// POST /api/images/{id}/sessions
func (s *server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.OpenEditor(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, sess.Snapshot())
}

// GET /api/sessions/{sid}
func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.Session(chi.URLParam(r, "sid"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sess.Snapshot())
}

// DELETE /api/sessions/{sid}
func (s *server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.CloseEditor(chi.URLParam(r, "sid")); err != nil {
		respondErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

type submitEditRequest struct {
	Instruction string `json:"instruction"`
}

// POST /api/sessions/{sid}/edits
func (s *server) handleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.Session(chi.URLParam(r, "sid"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var body submitEditRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := sess.SubmitEdit(r.Context(), body.Instruction); err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sess.Snapshot())
}

type selectVersionRequest struct {
	Version *int `json:"version"`
}

// PUT /api/sessions/{sid}/current
func (s *server) handleSelectVersion(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.Session(chi.URLParam(r, "sid"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var body selectVersionRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil || body.Version == nil {
		httpError(w, r, http.StatusBadRequest, "version is required")
		return
	}

	if err := sess.SelectVersion(*body.Version); err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sess.Snapshot())
}

// GET /api/sessions/{sid}/archive?method=deflate|store|zstd
func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.Session(chi.URLParam(r, "sid"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	method, err := archive.ParseMethod(r.URL.Query().Get("method"))
	if err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := archive.WriteVersions(&buf, sess.Snapshot().Versions, method); err != nil {
		respondErr(w, r, errors.Join(errors.New("archive failed"), err))
		return
	}

	name := fmt.Sprintf("gourmet-lens-%d.zip", s.now().UnixMilli())
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
