package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := ResolveConfig(t.TempDir(), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Seed != config.Default().Seed {
		t.Fatalf("expected default seed, got %d", cfg.Seed)
	}
}

func TestResolveConfigWorkspaceAndPath(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(config.Path(ws), []byte("seed: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := ResolveConfig(ws, "")
	if err != nil || cfg.Seed != 9 {
		t.Fatalf("workspace config: %+v %v", cfg, err)
	}

	other := filepath.Join(t.TempDir(), "alt.yml")
	if err := os.WriteFile(other, []byte("categories: {a_threshold: 0.95, b_threshold: 0.9}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ResolveConfig(ws, other)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if _, err := ResolveConfig(ws, filepath.Join(ws, "missing.yml")); err == nil {
		t.Fatalf("expected error for a missing explicit path")
	}
}

func TestOpenLedgerMigrates(t *testing.T) {
	conn, err := OpenLedger(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("runs table: %d %v", n, err)
	}
}
