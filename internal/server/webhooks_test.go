package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/db"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/engine"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/migrate"
)

func TestWebhookDeliversFilteredEvents(t *testing.T) {
	var (
		mu       sync.Mutex
		received []webhookEvent
		secrets  []string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, evt)
		secrets = append(secrets, r.Header.Get("X-Mdhf-Secret"))
		mu.Unlock()
	}))
	defer hook.Close()

	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	d := &WebhookDispatcher{
		Repo:  e.Repo,
		Hooks: []config.WebhookConfig{{URL: hook.URL, Events: []string{"conversion.succeeded"}, Secret: "s3"}},
	}
	d.DispatchAll(ctx) // positions the cursor

	data, err := os.ReadFile("../cordeau/testdata/p01-mini.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Convert(ctx, engine.ConvertOptions{Name: "p01", Input: bytes.NewReader(data)}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	d.DispatchAll(ctx)
	d.DispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(received))
	}
	if received[0].Type != "conversion.succeeded" || received[0].EntityKind != "run" || secrets[0] != "s3" {
		t.Fatalf("unexpected delivery %+v (secret %q)", received[0], secrets[0])
	}
}

func TestEventFilter(t *testing.T) {
	if !newEventFilter(nil).match("anything") {
		t.Fatalf("empty filter should match everything")
	}
	f := newEventFilter([]string{" conversion.failed ", ""})
	if !f.match("conversion.failed") || f.match("conversion.succeeded") {
		t.Fatalf("unexpected filter behavior")
	}
}
