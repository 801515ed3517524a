package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"screenshot-pro/pkg/geometry"
)

// Kind says how a screenshot was taken.
type Kind string

const (
	KindFullTab       Kind = "full-tab"
	KindAreaSelection Kind = "area-selection"
)

// Area is the selected region in viewport CSS pixels.
type Area struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AreaFromRect converts a viewport rectangle.
func AreaFromRect(r geometry.Rect) *Area {
	return &Area{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Rect returns the area as a geometry.Rect.
func (a Area) Rect() geometry.Rect {
	return geometry.NewRect(a.X, a.Y, a.Width, a.Height)
}

// Screenshot is the persisted record. Its JSON shape is read by export and
// submission tooling, so field names must not change.
type Screenshot struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
	DataURL   string `json:"dataUrl"`
	Type      Kind   `json:"type"`
	Area      *Area  `json:"area,omitempty"`
}

// Time parses the record timestamp.
func (s Screenshot) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s.Timestamp)
}

// FormatTimestamp renders t the way records store it (ISO 8601, UTC, ms).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// IDSource hands out millisecond timestamps as record ids, bumped so ids stay
// strictly increasing within a process even when two records share a
// millisecond.
type IDSource struct {
	mu   sync.Mutex
	last int64
	Now  func() time.Time
}

// Next returns a fresh id.
func (g *IDSource) Next() int64 {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	id := now().UnixMilli()

	g.mu.Lock()
	defer g.mu.Unlock()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

var defaultIDs IDSource

// ScreenshotsOption configures a Screenshots repository.
type ScreenshotsOption func(*Screenshots)

// WithIDSource replaces the process-wide id source.
func WithIDSource(ids *IDSource) ScreenshotsOption {
	return func(r *Screenshots) { r.ids = ids }
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) ScreenshotsOption {
	return func(r *Screenshots) { r.now = now }
}

// Screenshots is the repository for the screenshot history, newest first.
type Screenshots struct {
	kv  KV
	ids *IDSource
	now func() time.Time
}

// NewScreenshots wraps kv.
func NewScreenshots(kv KV, opts ...ScreenshotsOption) *Screenshots {
	r := &Screenshots{kv: kv, ids: &defaultIDs, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns every stored screenshot, newest first.
func (r *Screenshots) List(ctx context.Context) ([]Screenshot, error) {
	var list []Screenshot
	if _, err := getJSON(ctx, r.kv, KeyScreenshots, &list); err != nil {
		return nil, storageErr("list screenshots", err)
	}
	return list, nil
}

// Get returns the screenshot with the given id.
func (r *Screenshots) Get(ctx context.Context, id int64) (Screenshot, error) {
	list, err := r.List(ctx)
	if err != nil {
		return Screenshot{}, err
	}
	for _, s := range list {
		if s.ID == id {
			return s, nil
		}
	}
	return Screenshot{}, fmt.Errorf("screenshot %d: %w", id, ErrNotFound)
}

// Latest returns the newest screenshot; ok is false when there is none.
func (r *Screenshots) Latest(ctx context.Context) (s Screenshot, ok bool, err error) {
	list, err := r.List(ctx)
	if err != nil || len(list) == 0 {
		return Screenshot{}, false, err
	}
	return list[0], true, nil
}

// Add fills in id and timestamp when unset, puts the record at the front and
// trims the history to the configured maximum.
func (r *Screenshots) Add(ctx context.Context, s Screenshot) (Screenshot, error) {
	if s.ID == 0 {
		s.ID = r.ids.Next()
	}
	if s.Timestamp == "" {
		s.Timestamp = FormatTimestamp(r.now())
	}

	settings, err := NewSettingsRepo(r.kv).Load(ctx)
	if err != nil {
		return Screenshot{}, err
	}
	list, err := r.List(ctx)
	if err != nil {
		return Screenshot{}, err
	}

	list = append([]Screenshot{s}, list...)
	list = list[:min(len(list), historyLimit(settings.MaxScreenshots))]
	if err := r.kv.Set(ctx, map[string]any{KeyScreenshots: list}); err != nil {
		return Screenshot{}, storageErr("save screenshot", err)
	}
	return s, nil
}

// ReplaceImage swaps the image of an existing record and refreshes its
// timestamp. The whole list is written in one Set, so a failure leaves the
// stored record as it was.
func (r *Screenshots) ReplaceImage(ctx context.Context, id int64, dataURL string) (Screenshot, error) {
	list, err := r.List(ctx)
	if err != nil {
		return Screenshot{}, err
	}
	for i := range list {
		if list[i].ID != id {
			continue
		}
		updated := list[i]
		updated.DataURL = dataURL
		updated.Timestamp = FormatTimestamp(r.now())
		list[i] = updated
		if err := r.kv.Set(ctx, map[string]any{KeyScreenshots: list}); err != nil {
			return Screenshot{}, storageErr("save annotated screenshot", err)
		}
		return updated, nil
	}
	return Screenshot{}, fmt.Errorf("screenshot %d: %w", id, ErrNotFound)
}

// Delete removes the record with the given id.
func (r *Screenshots) Delete(ctx context.Context, id int64) error {
	list, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, s := range list {
		if s.ID == id {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return fmt.Errorf("screenshot %d: %w", id, ErrNotFound)
	}
	if err := r.kv.Set(ctx, map[string]any{KeyScreenshots: kept}); err != nil {
		return storageErr("delete screenshot", err)
	}
	return nil
}

// Clear removes all screenshots.
func (r *Screenshots) Clear(ctx context.Context) error {
	if err := r.kv.Remove(ctx, KeyScreenshots); err != nil {
		return storageErr("clear screenshots", err)
	}
	return nil
}

// Enforce trims the history to at most limit records, dropping the oldest.
func (r *Screenshots) Enforce(ctx context.Context, limit int) error {
	list, err := r.List(ctx)
	if err != nil {
		return err
	}
	limit = historyLimit(limit)
	if len(list) <= limit {
		return nil
	}
	if err := r.kv.Set(ctx, map[string]any{KeyScreenshots: list[:limit]}); err != nil {
		return storageErr("trim screenshots", err)
	}
	return nil
}

// historyLimit keeps a history size inside 1..MaxScreenshotsLimit so the
// newest record always survives.
func historyLimit(n int) int {
	if n < 1 || n > MaxScreenshotsLimit {
		return DefaultSettings().MaxScreenshots
	}
	return n
}
