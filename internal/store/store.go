// Package store holds the in-memory gallery of generated dish photos.
//
// Records live for the lifetime of the process. They are created after a
// successful generation, their image is replaced in place after every
// successful edit, and they are never deleted. Iteration order is newest
// first.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no record matches the requested ID.
var ErrNotFound = errors.New("record not found")

// Record is a generated photo plus the request that produced it.
type Record struct {
	ID          string         `json:"id"`
	DishName    string         `json:"dishName"`
	Description string         `json:"description"`
	Style       prompt.Style   `json:"style"`
	Image       imaging.Handle `json:"imageUrl"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// RecordStore is a concurrency-safe, newest-first collection of records.
type RecordStore struct {
	mu      sync.RWMutex
	records []*Record // index 0 is the most recent
	now     func() time.Time
	newID   func() string
}

// New returns an empty store.
func New() *RecordStore {
	return &RecordStore{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create allocates a fresh ID and timestamp and inserts the record at the front.
func (s *RecordStore) Create(dishName, description string, style prompt.Style, img imaging.Handle) Record {
	rec := &Record{
		ID:          s.newID(),
		DishName:    dishName,
		Description: description,
		Style:       style,
		Image:       img,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	s.records = append([]*Record{rec}, s.records...)
	total := len(s.records)
	s.mu.Unlock()

	log.Debug().
		Str("id", rec.ID).
		Str("dish", rec.DishName).
		Str("style", string(rec.Style)).
		Int("total", total).
		Msg("Record created")

	return *rec
}

// UpdateImage replaces the image of the record with the given ID. No other
// field changes. Returns ErrNotFound if the ID is absent; never creates.
func (s *RecordStore) UpdateImage(id string, img imaging.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == id {
			rec.Image = img
			log.Debug().
				Str("id", id).
				Str("mime", img.MIMEType).
				Int("bytes", len(img.Data)).
				Msg("Record image updated")
			return nil
		}
	}
	return ErrNotFound
}

// List returns a snapshot of all records, newest first.
func (s *RecordStore) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, rec := range s.records {
		out[i] = *rec
	}
	return out
}

// FindByID returns the record with the given ID.
func (s *RecordStore) FindByID(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return *rec, true
		}
	}
	return Record{}, false
}

// Len returns the number of records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
