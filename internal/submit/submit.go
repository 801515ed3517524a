// Package submit posts the newest screenshot and a text note to a
// user-configured HTTP endpoint.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"screenshot-pro/internal/store"
)

var (
	ErrNoEndpoint    = errors.New("no API endpoint configured")
	ErrNoScreenshots = errors.New("no screenshots to submit")
	ErrBadEndpoint   = errors.New("invalid API endpoint")
	ErrHTTPStatus    = errors.New("unexpected HTTP status")
)

// MsgSubmitted is shown after a successful submission.
const MsgSubmitted = "Successfully submitted to API"

// DefaultTimeout bounds one submission.
const DefaultTimeout = 30 * time.Second

// ScreenshotPayload is the screenshot part of the request body.
type ScreenshotPayload struct {
	ID      int64       `json:"id"`
	DataURL string      `json:"dataUrl"`
	Type    store.Kind  `json:"type"`
	Area    *store.Area `json:"area,omitempty"`
}

// Payload is the JSON body posted to the endpoint.
type Payload struct {
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	Timestamp  string            `json:"timestamp"`
	TextInput  string            `json:"textInput"`
	Screenshot ScreenshotPayload `json:"screenshot"`
}

// Page is the page the user is looking at when submitting.
type Page struct {
	URL   string
	Title string
}

// Client submits payloads.
type Client struct {
	http   *http.Client
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(cl *Client) { cl.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: DefaultTimeout},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build assembles the body for shot.
func (c *Client) Build(page Page, text string, shot store.Screenshot) Payload {
	return Payload{
		URL:       page.URL,
		Title:     page.Title,
		Timestamp: store.FormatTimestamp(c.now()),
		TextInput: text,
		Screenshot: ScreenshotPayload{
			ID:      shot.ID,
			DataURL: shot.DataURL,
			Type:    shot.Type,
			Area:    shot.Area,
		},
	}
}

// Post sends p to endpoint. Any non-2xx answer is ErrHTTPStatus.
func (c *Client) Post(ctx context.Context, endpoint string, p Payload) error {
	if endpoint == "" {
		return ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBadEndpoint, endpoint)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: HTTP %s", ErrHTTPStatus, resp.Status)
	}
	c.logger.Info("submitted screenshot", "endpoint", u.Redacted(), "id", p.Screenshot.ID, "bytes", len(body))
	return nil
}

// SubmitLatest posts the newest stored screenshot with text to the stored
// endpoint.
func (c *Client) SubmitLatest(ctx context.Context, kv store.KV, page Page, text string) error {
	endpoint, err := store.NewSettingsRepo(kv).APIEndpoint(ctx)
	if err != nil {
		return err
	}
	if endpoint == "" {
		return ErrNoEndpoint
	}
	shot, ok, err := store.NewScreenshots(kv).Latest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoScreenshots
	}
	return c.Post(ctx, endpoint, c.Build(page, text, shot))
}
