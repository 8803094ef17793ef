// Package notes keeps per-user notes attached to catalog heroes.
package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"heroindex/internal"
	"heroindex/internal/storage"
)

// Fixed-width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	ErrEmptyNote = errors.New("note needs a title or a description")
	ErrNotFound  = errors.New("note not found")
	ErrNoUser    = errors.New("user not found")
)

type Service struct {
	db    *storage.DB
	now   func() time.Time
	newID func() string
}

func NewService(db *storage.DB) *Service {
	return &Service{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Add stores a note for uid on the given hero. Title and description are
// trimmed and at least one of them must remain.
func (s *Service) Add(uid, heroAPIID, title, description string) (internal.HeroNote, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return internal.HeroNote{}, fmt.Errorf("%w: uid is required", ErrNoUser)
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" && description == "" {
		return internal.HeroNote{}, ErrEmptyNote
	}

	user, err := s.db.GetUser(uid)
	if err != nil {
		return internal.HeroNote{}, err
	}
	if user == nil {
		return internal.HeroNote{}, fmt.Errorf("%w: %s", ErrNoUser, uid)
	}

	ts := s.timestamp()
	note := internal.HeroNote{
		ID:          s.newID(),
		UID:         uid,
		HeroAPIID:   strings.TrimSpace(heroAPIID),
		Title:       title,
		Description: description,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.db.InsertNote(note); err != nil {
		return internal.HeroNote{}, fmt.Errorf("insert note: %w", err)
	}
	return note, nil
}

// ListByHero returns uid's notes for one hero, newest first. An empty
// heroAPIID returns every note the user has.
func (s *Service) ListByHero(uid, heroAPIID string) ([]internal.HeroNote, error) {
	return s.db.ListNotes(uid, heroAPIID)
}

// GroupByHero maps hero id to that hero's notes, newest first.
func (s *Service) GroupByHero(uid string) (map[string][]internal.HeroNote, error) {
	all, err := s.db.ListNotes(uid, "")
	if err != nil {
		return nil, err
	}
	out := map[string][]internal.HeroNote{}
	for _, n := range all {
		out[n.HeroAPIID] = append(out[n.HeroAPIID], n)
	}
	return out, nil
}

func (s *Service) Update(uid, id, title, description string) (internal.HeroNote, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" && description == "" {
		return internal.HeroNote{}, ErrEmptyNote
	}

	note, err := s.db.GetNote(uid, id)
	if err != nil {
		return internal.HeroNote{}, err
	}
	if note == nil {
		return internal.HeroNote{}, ErrNotFound
	}

	note.Title = title
	note.Description = description
	note.UpdatedAt = s.timestamp()
	ok, err := s.db.UpdateNote(*note)
	if err != nil {
		return internal.HeroNote{}, fmt.Errorf("update note: %w", err)
	}
	if !ok {
		return internal.HeroNote{}, ErrNotFound
	}
	return *note, nil
}

func (s *Service) Delete(uid, id string) error {
	ok, err := s.db.DeleteNote(uid, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}
