package batch_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/batch"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/db"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/engine"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/migrate"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/repo"
)

func setupDirs(t *testing.T) (in, out string) {
	t.Helper()
	root := t.TempDir()
	in, out = filepath.Join(root, "cordeau"), filepath.Join(root, "mdhf")
	if err := os.MkdirAll(in, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile("../cordeau/testdata/p01-mini.txt")
	if err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string][]byte{
		"pr01": data,
		"pr02": []byte("6 1 2 1\n100 50\n"),
		"pr03": data,
	} {
		if err := os.WriteFile(filepath.Join(in, name), content, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return in, out
}

func newEngine(t *testing.T) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return engine.New(conn, config.Default())
}

func TestRunContinuesPastFailures(t *testing.T) {
	in, out := setupDirs(t)
	e := newEngine(t)
	cfg := config.Default().Batch
	cfg.InputDir, cfg.OutputDir = in, out
	cfg.Instances = []string{"pr01", "pr02", "pr03", "pr04"}
	cfg.Workers = 2

	results, err := batch.Runner{Engine: e, Config: cfg}.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 4 || batch.Failed(results) != 2 {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Err != nil || results[0].Output != filepath.Join(out, "taha01-n6.txt") {
		t.Fatalf("pr01: %+v", results[0])
	}
	if !errors.Is(results[1].Err, domain.ErrMalformedInstance) || results[1].RunID == "" {
		t.Fatalf("pr02 should fail as malformed with a recorded run: %+v", results[1])
	}
	if !errors.Is(results[3].Err, os.ErrNotExist) {
		t.Fatalf("pr04 should be missing: %v", results[3].Err)
	}

	first, err := os.ReadFile(results[0].Output)
	if err != nil {
		t.Fatal(err)
	}
	third, err := os.ReadFile(results[2].Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(first), "7 999 6 2 4\n") {
		t.Fatalf("unexpected output header: %q", strings.SplitN(string(first), "\n", 2)[0])
	}
	if !bytes.Equal(first, third) {
		t.Fatalf("identical inputs must convert identically")
	}
	if _, err := os.Stat(filepath.Join(out, "taha02-n2.txt")); !os.IsNotExist(err) {
		t.Fatalf("failed conversion must not leave an output file")
	}

	runs, err := e.ListRuns(context.Background(), repo.RunFilters{Status: engine.StatusFailed})
	if err != nil || len(runs) != 1 || runs[0].Name != "taha02-n2" {
		t.Fatalf("failed runs: %+v %v", runs, err)
	}
	run, err := e.GetRun(context.Background(), results[0].RunID)
	if err != nil || run.Output != results[0].Output {
		t.Fatalf("run output not recorded: %+v %v", run, err)
	}
}

func TestRunScansDirectoryAsJSON(t *testing.T) {
	in, out := setupDirs(t)
	cfg := config.BatchConfig{InputDir: in, OutputDir: out, OutputPrefix: "taha", Format: "json", Workers: 3}
	seed := int64(5)
	results, err := batch.Runner{Engine: engine.New(nil, config.Default()), Config: cfg, Seed: &seed}.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 3 || batch.Failed(results) != 1 {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Output != filepath.Join(out, "taha01-n6.json") || results[0].Customers != 6 {
		t.Fatalf("pr01: %+v", results[0])
	}
	data, err := os.ReadFile(results[0].Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"instanceName": "taha01-n6"`) || !strings.Contains(string(data), `"randomSeed": 5`) {
		t.Fatalf("unexpected json document: %s", data)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	in, out := setupDirs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := config.BatchConfig{InputDir: in, OutputDir: out, Format: "text", Workers: 1}
	_, err := batch.Runner{Engine: engine.New(nil, config.Default()), Config: cfg}.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOutputStem(t *testing.T) {
	cases := []struct {
		prefix, input string
		customers     int
		want          string
	}{
		{"taha", "pr01", 48, "taha01-n48"},
		{"taha", "pr20", 288, "taha20-n288"},
		{"", "pr7.txt", 10, "taha07-n10"},
		{"taha", "p01-mini.txt", 6, "taha-p01-mini-n6"},
		{"x", "prize", 0, "x-prize"},
	}
	for _, tc := range cases {
		if got := batch.OutputStem(tc.prefix, tc.input, tc.customers); got != tc.want {
			t.Fatalf("OutputStem(%q, %q, %d) = %q, want %q", tc.prefix, tc.input, tc.customers, got, tc.want)
		}
	}
}
