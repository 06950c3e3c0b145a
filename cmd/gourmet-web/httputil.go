package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/fpang/gourmet-lens/internal/chat"
	"github.com/fpang/gourmet-lens/internal/editor"
	"github.com/fpang/gourmet-lens/internal/store"
	"github.com/fpang/gourmet-lens/internal/studio"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
)

// User-facing messages for remote failures. Details stay in the logs.
const (
	msgGenerationFailed = "Generation failed."
	msgEditFailed       = "Edit failed."
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

func httpError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorResponse{Error: message})
}

// respondErr maps domain errors to HTTP statuses.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var genErr *chat.GenerationError
	var editErr *chat.EditError

	switch {
	case errors.Is(err, studio.ErrInvalidRequest),
		errors.Is(err, editor.ErrEmptyInstruction),
		errors.Is(err, editor.ErrVersionOutOfRange):
		httpError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, editor.ErrSessionNotFound):
		httpError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, studio.ErrGenerationInFlight),
		errors.Is(err, editor.ErrEditInFlight),
		errors.Is(err, editor.ErrSessionClosed):
		httpError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &genErr):
		httpError(w, r, http.StatusBadGateway, msgGenerationFailed)
	case errors.As(err, &editErr):
		httpError(w, r, http.StatusBadGateway, msgEditFailed)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpError(w, r, http.StatusGatewayTimeout, "request ended before the result arrived")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled error")
		httpError(w, r, http.StatusInternalServerError, "internal error")
	}
}
