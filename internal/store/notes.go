package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxTextNotes caps the saved text history.
const MaxTextNotes = 100

// ErrEmptyNote is returned when a note has no content after trimming.
var ErrEmptyNote = errors.New("note is empty")

// TextNote is a saved piece of text with the page it came from.
type TextNote struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

// Notes is the repository for saved text notes, newest first.
type Notes struct {
	kv  KV
	ids *IDSource
	now func() time.Time
}

// NewNotes wraps kv.
func NewNotes(kv KV) *Notes {
	return &Notes{kv: kv, ids: &defaultIDs, now: time.Now}
}

// List returns all notes, newest first.
func (r *Notes) List(ctx context.Context) ([]TextNote, error) {
	var notes []TextNote
	if _, err := getJSON(ctx, r.kv, KeySavedTexts, &notes); err != nil {
		return nil, storageErr("list notes", err)
	}
	return notes, nil
}

// Get returns the note with the given id.
func (r *Notes) Get(ctx context.Context, id int64) (TextNote, error) {
	notes, err := r.List(ctx)
	if err != nil {
		return TextNote{}, err
	}
	for _, n := range notes {
		if n.ID == id {
			return n, nil
		}
	}
	return TextNote{}, fmt.Errorf("note %d: %w", id, ErrNotFound)
}

// Add trims content, stores it at the front and keeps at most MaxTextNotes.
func (r *Notes) Add(ctx context.Context, content, url, title string) (TextNote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return TextNote{}, ErrEmptyNote
	}
	note := TextNote{
		ID:        r.ids.Next(),
		Content:   content,
		URL:       url,
		Title:     title,
		Timestamp: FormatTimestamp(r.now()),
	}

	notes, err := r.List(ctx)
	if err != nil {
		return TextNote{}, err
	}
	notes = append([]TextNote{note}, notes...)
	if len(notes) > MaxTextNotes {
		notes = notes[:MaxTextNotes]
	}
	if err := r.kv.Set(ctx, map[string]any{KeySavedTexts: notes}); err != nil {
		return TextNote{}, storageErr("save note", err)
	}
	return note, nil
}

// Delete removes the note with the given id.
func (r *Notes) Delete(ctx context.Context, id int64) error {
	notes, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := notes[:0]
	found := false
	for _, n := range notes {
		if n.ID == id {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err := r.kv.Set(ctx, map[string]any{KeySavedTexts: kept}); err != nil {
		return storageErr("delete note", err)
	}
	return nil
}

// Edit removes the note and returns its content so it can be rewritten and
// saved again as a new note.
func (r *Notes) Edit(ctx context.Context, id int64) (string, error) {
	n, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := r.Delete(ctx, id); err != nil {
		return "", err
	}
	return n.Content, nil
}
