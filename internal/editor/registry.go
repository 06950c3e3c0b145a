package editor

import (
	"errors"
	"sync"

	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/jobs"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("edit session not found")

// Registry tracks the open sessions of one process.
type Registry struct {
	editor  ImageEditor
	records RecordUpdater

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry whose sessions edit with ed and
// propagate results to records.
func NewRegistry(ed ImageEditor, records RecordUpdater) *Registry {
	return &Registry{
		editor:   ed,
		records:  records,
		sessions: make(map[string]*Session),
	}
}

// Open starts a new session over recordID seeded with base.
func (r *Registry) Open(recordID string, base imaging.Handle) *Session {
	s := Open(jobs.GenerateID("edit-"), recordID, base, r.editor, r.records)

	r.mu.Lock()
	r.sessions[s.ID] = s
	open := len(r.sessions)
	r.mu.Unlock()

	log.Info().Str("session", s.ID).Str("record", recordID).Int("open", open).Msg("Edit session opened")
	return s
}

// Get returns the open session with the given ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// FindByRecord returns an open session over recordID, if any.
func (r *Registry) FindByRecord(recordID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.RecordID == recordID {
			return s, true
		}
	}
	return nil, false
}

// Close closes and forgets the session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
