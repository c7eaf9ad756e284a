package engine_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/db"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/engine"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/migrate"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	eng.Host = "test-host"
	return testEnv{Engine: eng, Ctx: ctx}
}

func fixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../cordeau/testdata/p01-mini.txt")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestConvertRecordsRun(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	res, err := env.Engine.Convert(env.Ctx, engine.ConvertOptions{
		Name:   "p01",
		Source: "testdata/p01-mini.txt",
		Input:  bytes.NewReader(fixture(t)),
		Output: &out,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.HasPrefix(out.String(), "7 999 6 2 4\n") {
		t.Fatalf("unexpected output header: %q", strings.SplitN(out.String(), "\n", 2)[0])
	}
	run, err := env.Engine.GetRun(env.Ctx, res.Run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != engine.StatusSucceeded || run.Customers != 6 || run.Depots != 2 || run.Seed != 42 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Stats == nil || run.Stats.MinCapacity != 50 || run.Host != "test-host" {
		t.Fatalf("run stats or host not stored: %+v", run)
	}
	if !strings.Contains(run.ConfigYAML, "a_threshold") {
		t.Fatalf("config snapshot missing: %q", run.ConfigYAML)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{EntityKind: "run", EntityID: run.ID})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) < 2 || evts[0].Type != "conversion.succeeded" || evts[len(evts)-1].Type != "conversion.started" {
		t.Fatalf("unexpected events: %+v", evts)
	}
}

func TestConvertSameSeedSameOutput(t *testing.T) {
	env := newTestEnv(t)
	var a, b bytes.Buffer
	for _, out := range []*bytes.Buffer{&a, &b} {
		if _, err := env.Engine.Convert(env.Ctx, engine.ConvertOptions{Name: "p01", Input: bytes.NewReader(fixture(t)), Output: out, Format: engine.FormatJSON}); err != nil {
			t.Fatalf("convert: %v", err)
		}
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("outputs differ")
	}
	seed := int64(7)
	var c bytes.Buffer
	if _, err := env.Engine.Convert(env.Ctx, engine.ConvertOptions{Name: "p01", Input: bytes.NewReader(fixture(t)), Output: &c, Format: engine.FormatJSON, Seed: &seed}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(c.String(), `"randomSeed": 7`) {
		t.Fatalf("seed override not applied")
	}
}

func TestConvertFailureRecorded(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	res, err := env.Engine.Convert(env.Ctx, engine.ConvertOptions{
		Name:   "broken",
		Input:  strings.NewReader("6 1 2 1\n100 50\n"),
		Output: &out,
	})
	if !errors.Is(err, domain.ErrMalformedInstance) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("output written on failure: %q", out.String())
	}
	run, err := env.Engine.GetRun(env.Ctx, res.Run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != engine.StatusFailed || run.Error == "" || run.Stats != nil {
		t.Fatalf("unexpected failed run: %+v", run)
	}
	failed, err := env.Engine.ListRuns(env.Ctx, repo.RunFilters{Status: engine.StatusFailed})
	if err != nil || len(failed) != 1 {
		t.Fatalf("list failed runs: %v %d", err, len(failed))
	}
}

func TestConvertRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Convert(env.Ctx, engine.ConvertOptions{Name: "p01", Input: bytes.NewReader(fixture(t)), Format: "xml"})
	if err == nil {
		t.Fatalf("expected format error")
	}
}

func TestConvertWithoutLedger(t *testing.T) {
	eng := engine.New(nil, config.Default())
	var out bytes.Buffer
	res, err := eng.Convert(context.Background(), engine.ConvertOptions{Name: "p01", Input: bytes.NewReader(fixture(t)), Output: &out})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Stats.CategoryA+res.Stats.CategoryB+res.Stats.CategoryC != 6 || out.Len() == 0 {
		t.Fatalf("unexpected result: %+v", res.Stats)
	}
	if _, err := eng.ListRuns(context.Background(), repo.RunFilters{}); err == nil {
		t.Fatalf("expected error listing runs without a ledger")
	}
}

func TestInspectConvertedOutput(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	if _, err := env.Engine.Convert(env.Ctx, engine.ConvertOptions{Name: "p01", Input: bytes.NewReader(fixture(t)), Output: &out}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	inst, stats, err := env.Engine.Inspect("out", &out)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if inst.Format != domain.Extended || stats.MinCapacity != 50 {
		t.Fatalf("unexpected inspection: %v %+v", inst.Format, stats)
	}
}
