package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldtone/fieldtone/internal/roundware"
	"github.com/fieldtone/fieldtone/internal/store"
)

const liveConfigJSON = `[
	{"device": {"device_id": "dev-1"}},
	{"session": {"session_id": 42}},
	{"project": {"project_id": 1, "project_name": "Sound Walk", "listen_enabled": true}}
]`

const liveTagsJSON = `{
	"listen": [
		{
			"id": 5, "code": "exhibit", "name": "Exhibit", "order": 1,
			"select": "single",
			"options": [{"tag_id": 1, "order": 1, "value": "De Young"}]
		}
	]
}`

// The HTTP client emits session and catalog events while Connect is still
// in flight, so this exercises the full startup path the way main wires
// it: controller loop running, real async dispatch, real client.
func TestStartupWithLiveClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("operation") {
		case "get_config":
			w.Write([]byte(liveConfigJSON))
		case "get_tags":
			w.Write([]byte(liveTagsJSON))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	st, err := store.New("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	client := roundware.NewClient(srv.URL, t.TempDir(), st, nil)
	ctrl := New(client, st, Config{ProjectID: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)
	defer ctrl.Teardown()

	if err := ctrl.StartSession(ctx); err != nil {
		t.Fatalf("start session: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for ctrl.State() != StateTagsLoaded {
		select {
		case <-deadline:
			t.Fatalf("session stuck at %v, want %v", ctrl.State(), StateTagsLoaded)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(ctrl.SelectionRows()) == 0 {
		t.Fatal("selection list must be built from the live catalog")
	}
}
