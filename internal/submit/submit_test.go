package submit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshot-pro/internal/store"
)

func fixedNow() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestSubmitLatestPostsPayload(t *testing.T) {
	ctx := context.Background()
	var gotBody map[string]any
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	kv := store.NewMemory()
	shots := store.NewScreenshots(kv)
	_, err := shots.Add(ctx, store.Screenshot{ID: 1, DataURL: "data:old", Type: store.KindFullTab})
	require.NoError(t, err)
	_, err = shots.Add(ctx, store.Screenshot{
		ID: 2, DataURL: "data:new", Type: store.KindAreaSelection,
		Area: &store.Area{X: 1, Y: 2, Width: 30, Height: 40},
	})
	require.NoError(t, err)
	require.NoError(t, store.NewSettingsRepo(kv).SetAPIEndpoint(ctx, srv.URL+"/hook"))

	c := NewClient(WithClock(fixedNow))
	err = c.SubmitLatest(ctx, kv, Page{URL: "https://example.com", Title: "Ex"}, "a note")
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "https://example.com", gotBody["url"])
	assert.Equal(t, "Ex", gotBody["title"])
	assert.Equal(t, "2024-03-01T12:00:00.000Z", gotBody["timestamp"])
	assert.Equal(t, "a note", gotBody["textInput"])

	shot := gotBody["screenshot"].(map[string]any)
	assert.Equal(t, float64(2), shot["id"])
	assert.Equal(t, "data:new", shot["dataUrl"])
	assert.Equal(t, "area-selection", shot["type"])
	assert.Equal(t, map[string]any{"x": float64(1), "y": float64(2), "width": float64(30), "height": float64(40)}, shot["area"])
}

func TestSubmitLatestPreconditions(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	c := NewClient()

	assert.ErrorIs(t, c.SubmitLatest(ctx, kv, Page{}, ""), ErrNoEndpoint)

	require.NoError(t, store.NewSettingsRepo(kv).SetAPIEndpoint(ctx, "http://127.0.0.1:1/x"))
	assert.ErrorIs(t, c.SubmitLatest(ctx, kv, Page{}, ""), ErrNoScreenshots)
}

func TestPostNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient().Post(context.Background(), srv.URL, Payload{})
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.Contains(t, err.Error(), "500")
}

func TestPostRejectsBadEndpoint(t *testing.T) {
	c := NewClient()
	assert.ErrorIs(t, c.Post(context.Background(), "", Payload{}), ErrNoEndpoint)
	assert.ErrorIs(t, c.Post(context.Background(), "ftp://example.com", Payload{}), ErrBadEndpoint)
	assert.ErrorIs(t, c.Post(context.Background(), "not a url", Payload{}), ErrBadEndpoint)
}

func TestFullTabPayloadOmitsArea(t *testing.T) {
	p := NewClient(WithClock(fixedNow)).Build(Page{}, "", store.Screenshot{ID: 5, Type: store.KindFullTab})
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"area"`)
}
