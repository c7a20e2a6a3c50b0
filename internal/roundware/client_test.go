package roundware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fieldtone/fieldtone/internal/domain"
	"github.com/fieldtone/fieldtone/internal/store"
)

const testConfigJSON = `[
	{"device": {"device_id": "dev-1"}},
	{"session": {"session_id": 42}},
	{"project": {
		"project_id": 1, "project_name": "Sound Walk",
		"listen_enabled": true,
		"files_url": "https://cdn.example.org/bundle.zip",
		"files_version": 2
	}}
]`

const testTagsJSON = `{
	"listen": [
		{
			"id": 5, "code": "exhibit", "name": "Exhibit", "order": 1,
			"select": "single",
			"options": [{"tag_id": 1, "order": 1, "value": "De Young"}]
		}
	]
}`

func TestParseConfigDocument(t *testing.T) {
	doc, err := parseConfigDocument([]byte(testConfigJSON))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if doc.Session.SessionID != 42 {
		t.Fatalf("session id = %d, want 42", doc.Session.SessionID)
	}
	if doc.Project.ProjectID != 1 || doc.Project.Name != "Sound Walk" {
		t.Fatalf("unexpected project: %+v", doc.Project)
	}
	if doc.Project.FilesVersion != 2 {
		t.Fatalf("files version = %d, want 2", doc.Project.FilesVersion)
	}
}

func TestParseConfigDocumentInvalid(t *testing.T) {
	if _, err := parseConfigDocument([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatal("expected error for non-array config document")
	}
}

func TestOperationError(t *testing.T) {
	if err := operationError([]byte(`{"error_message":"session expired"}`)); err == nil {
		t.Fatal("expected error for error_message payload")
	}
	if err := operationError([]byte(`{"stream_url":"http://x"}`)); err != nil {
		t.Fatalf("expected no error for normal payload, got %v", err)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("operation") {
		case "get_config":
			w.Write([]byte(testConfigJSON))
		case "get_tags":
			w.Write([]byte(testTagsJSON))
		case "request_stream":
			w.Write([]byte(`{"stream_url":"http://stream.example.org/s42"}`))
		case "modify_stream", "vote_asset", "heartbeat":
			w.Write([]byte(`{}`))
		default:
			http.Error(w, "unknown operation", http.StatusBadRequest)
		}
	}))
}

func collectEvents(t *testing.T, c *Client, n int) []domain.EventKind {
	t.Helper()
	kinds := make([]domain.EventKind, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-c.Events():
			kinds = append(kinds, ev.Kind)
		default:
			t.Fatalf("expected %d events, got %d: %v", n, len(kinds), kinds)
		}
	}
	return kinds
}

func TestConnectEmitsEventsInOrder(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	st, err := store.New("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := NewClient(srv.URL, t.TempDir(), st, nil)

	if err := c.Connect(context.Background(), "dev-1", 1); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	want := []domain.EventKind{
		domain.EventConfigurationLoaded,
		domain.EventSessionOnline,
		domain.EventTagsLoaded,
	}
	got := collectEvents(t, c, len(want))
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event order = %v, want %v", got, want)
		}
	}

	if c.Catalog() == nil {
		t.Fatal("catalog should be loaded")
	}
	if c.Catalog().Source() != domain.SourceServer {
		t.Fatal("catalog should come from the server")
	}
}

func TestConnectFallsBackToCachedConfig(t *testing.T) {
	srv := newTestServer(t)

	st, err := store.New("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	// First connect populates the cache.
	c := NewClient(srv.URL, t.TempDir(), st, nil)
	if err := c.Connect(context.Background(), "dev-1", 1); err != nil {
		t.Fatalf("connect: %v", err)
	}
	c.Disconnect()
	srv.Close()

	// Second connect cannot reach the server and must come up off-line
	// from the cache.
	c2 := NewClient(srv.URL, t.TempDir(), st, nil)
	if err := c2.Connect(context.Background(), "dev-1", 1); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c2.Disconnect()

	want := []domain.EventKind{
		domain.EventConfigurationLoaded,
		domain.EventSessionOffline,
		domain.EventTagsLoaded,
	}
	got := collectEvents(t, c2, len(want))
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event order = %v, want %v", got, want)
		}
	}
	if c2.Catalog().Source() != domain.SourceCache {
		t.Fatal("catalog should come from the cache")
	}
}

func TestHeartbeatRecoversOfflineSession(t *testing.T) {
	var configDown atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := r.URL.Query().Get("operation")
		if op == "get_config" && configDown.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		switch op {
		case "get_config":
			w.Write([]byte(testConfigJSON))
		case "get_tags":
			w.Write([]byte(testTagsJSON))
		case "heartbeat":
			w.Write([]byte(`{}`))
		default:
			http.Error(w, "unknown operation", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	st, err := store.New("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	// First connect populates the cache.
	c1 := NewClient(srv.URL, t.TempDir(), st, nil)
	if err := c1.Connect(context.Background(), "dev-1", 1); err != nil {
		t.Fatalf("connect: %v", err)
	}
	c1.Disconnect()

	// Second connect comes up off-line from the cache.
	configDown.Store(true)
	c2 := NewClient(srv.URL, t.TempDir(), st, nil)
	if err := c2.Connect(context.Background(), "dev-1", 1); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c2.Disconnect()
	if got := collectEvents(t, c2, 3); got[1] != domain.EventSessionOffline {
		t.Fatalf("expected an off-line session, got %v", got)
	}

	// A successful heartbeat must bring the session back on-line and
	// re-fetch the catalog.
	c2.heartbeatOnce()

	want := []domain.EventKind{
		domain.EventSessionOnline,
		domain.EventTagsLoaded,
	}
	got := collectEvents(t, c2, len(want))
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("recovery events = %v, want %v", got, want)
		}
	}
	if c2.Catalog().Source() != domain.SourceServer {
		t.Fatal("catalog must be re-fetched from the server on recovery")
	}

	// Once on-line, further heartbeats stay quiet.
	c2.heartbeatOnce()
	if extra := collectEventsAvailable(c2); len(extra) != 0 {
		t.Fatalf("no events expected while staying on-line, got %v", extra)
	}
}

func collectEventsAvailable(c *Client) []domain.EventKind {
	var kinds []domain.EventKind
	for {
		select {
		case ev := <-c.Events():
			kinds = append(kinds, ev.Kind)
		default:
			return kinds
		}
	}
}

func TestStartAndPlaybackState(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	st, err := store.New("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := NewClient(srv.URL, t.TempDir(), st, nil)
	if err := c.Connect(context.Background(), "dev-1", 1); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()
	collectEvents(t, c, 3)

	if err := c.Start(context.Background(), []int{1}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !c.IsPlaying() || !c.IsPlayingMuted() {
		t.Fatal("a fresh stream plays muted until fade-in")
	}
	if got := collectEvents(t, c, 1); got[0] != domain.EventReadyToPlay {
		t.Fatalf("expected ready-to-play, got %v", got[0])
	}

	c.FadeIn(55)
	if c.IsPlayingMuted() {
		t.Fatal("fade-in should unmute")
	}
	if c.Volume() != 55 {
		t.Fatalf("volume = %d, want 55", c.Volume())
	}

	c.FadeOut()
	if !c.IsPlayingMuted() {
		t.Fatal("fade-out should mute but keep playing")
	}

	c.Stop()
	if c.IsPlaying() {
		t.Fatal("stop should end playback")
	}
}

func TestFailedVoteIsQueued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("operation") {
		case "get_config":
			w.Write([]byte(testConfigJSON))
		case "get_tags":
			w.Write([]byte(testTagsJSON))
		default:
			http.Error(w, "down", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	st, err := store.New("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := NewClient(srv.URL, t.TempDir(), st, nil)
	if err := c.Connect(context.Background(), "dev-1", 1); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.Vote(context.Background(), domain.Vote{AssetID: 9, Type: domain.VoteLike}); err == nil {
		t.Fatal("expected vote to fail")
	}
	if c.QueueSize() != 1 {
		t.Fatalf("failed vote must be queued, queue size %d", c.QueueSize())
	}
	c.DeleteQueue()
	if c.QueueSize() != 0 {
		t.Fatalf("queue must be erased, size %d", c.QueueSize())
	}
}
