// Package editor implements the per-photo edit session: a linear version
// history seeded with the record's image, at most one edit in flight, and
// propagation of every successful edit back to the owning record.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/jobs"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyInstruction  = errors.New("edit instruction is empty")
	ErrEditInFlight      = errors.New("an edit is already in progress")
	ErrSessionClosed     = errors.New("edit session is closed")
	ErrVersionOutOfRange = errors.New("version index out of range")
)

// ImageEditor applies a text instruction to an image.
type ImageEditor interface {
	Edit(ctx context.Context, current imaging.Handle, instruction string) (imaging.Handle, error)
}

// RecordUpdater receives the image of every successful edit.
type RecordUpdater interface {
	UpdateImage(id string, img imaging.Handle) error
}

// State is the submission state of a session.
type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

// Session is one open editor over one record.
type Session struct {
	ID       string
	RecordID string
	Opened   time.Time

	editor  ImageEditor
	records RecordUpdater

	mu       sync.Mutex
	history  []imaging.Handle // index 0 is the base image
	current  int
	inflight *jobs.Task[imaging.Handle]
	seq      uint64
	lastErr  error
	closed   bool
}

// Open seeds a session with base as version 0.
func Open(id, recordID string, base imaging.Handle, ed ImageEditor, records RecordUpdater) *Session {
	return &Session{
		ID:       id,
		RecordID: recordID,
		Opened:   time.Now(),
		editor:   ed,
		records:  records,
		history:  []imaging.Handle{base},
	}
}

// SubmitEdit edits the currently displayed version and blocks until the
// result is applied or ctx is done. The edit itself runs detached: if ctx
// ends first the result still lands in the session when it arrives. Only
// Close aborts it.
//
// Whitespace-only instructions are rejected without a remote call, as is a
// submission while another edit is running.
func (s *Session) SubmitEdit(ctx context.Context, instruction string) (imaging.Handle, error) {
	if strings.TrimSpace(instruction) == "" {
		return imaging.Handle{}, ErrEmptyInstruction
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return imaging.Handle{}, ErrSessionClosed
	}
	if s.inflight != nil {
		s.mu.Unlock()
		return imaging.Handle{}, ErrEditInFlight
	}
	s.lastErr = nil
	s.seq++
	seq := s.seq
	base := s.history[s.current]
	fromVersion := s.current

	s.inflight = jobs.Start(ctx, "job-", func(taskCtx context.Context) (imaging.Handle, error) {
		out, err := s.editor.Edit(taskCtx, base, instruction)
		if !s.finish(seq, out, err) {
			return imaging.Handle{}, ErrSessionClosed
		}
		return out, err
	})
	task := s.inflight
	s.mu.Unlock()

	log.Info().
		Str("session", s.ID).
		Str("record", s.RecordID).
		Str("task", task.ID).
		Int("from_version", fromVersion).
		Msg("Edit submitted")

	return task.Wait(ctx)
}

// finish applies a completed edit and reports whether the session took it.
// Results for a closed session, or for a submission that is no longer
// current, are dropped.
func (s *Session) finish(seq uint64, out imaging.Handle, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.seq || s.inflight == nil {
		log.Debug().
			Str("session", s.ID).
			Bool("failed", err != nil).
			Msg("Dropping edit result for closed session")
		return false
	}
	s.inflight = nil

	if err != nil {
		s.lastErr = err
		log.Warn().Err(err).Str("session", s.ID).Msg("Edit failed")
		return true
	}

	s.history = append(s.history, out)
	s.current = len(s.history) - 1

	if uerr := s.records.UpdateImage(s.RecordID, out); uerr != nil {
		log.Warn().Err(uerr).Str("session", s.ID).Str("record", s.RecordID).Msg("Failed to propagate edit to record")
	}

	log.Info().
		Str("session", s.ID).
		Int("version", s.current).
		Int("versions", len(s.history)).
		Msg("Edit applied")
	return true
}

// SelectVersion makes history[index] the displayed version. It never
// touches the record.
func (s *Session) SelectVersion(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrSessionClosed
	case s.inflight != nil:
		return ErrEditInFlight
	case index < 0 || index >= len(s.history):
		return ErrVersionOutOfRange
	}
	s.current = index
	return nil
}

// Close cancels any in-flight edit. Its result, if one still arrives, is
// discarded. Calling Close again is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.inflight != nil {
		s.inflight.Cancel()
		s.inflight = nil
	}
	log.Debug().Str("session", s.ID).Int("versions", len(s.history)).Msg("Edit session closed")
}

// Current returns the displayed version.
func (s *Session) Current() imaging.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[s.current]
}

// State reports whether an edit is running.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		return StateSubmitting
	}
	return StateIdle
}

// LastError returns the error of the most recent failed edit, or nil.
// It is cleared by the next submission.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// View is a point-in-time copy of a session.
type View struct {
	ID         string           `json:"id"`
	RecordID   string           `json:"recordId"`
	Opened     time.Time        `json:"opened"`
	Versions   []imaging.Handle `json:"versions"`
	Current    int              `json:"current"`
	Submitting bool             `json:"submitting"`
	LastError  string           `json:"lastError,omitempty"`
	Closed     bool             `json:"closed"`
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:         s.ID,
		RecordID:   s.RecordID,
		Opened:     s.Opened,
		Versions:   append([]imaging.Handle(nil), s.history...),
		Current:    s.current,
		Submitting: s.inflight != nil,
		Closed:     s.closed,
	}
	if s.lastErr != nil {
		v.LastError = s.lastErr.Error()
	}
	return v
}
