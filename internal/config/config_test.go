package config

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Categories.AThreshold != 0.70 || cfg.Categories.BThreshold != 0.90 {
		t.Fatalf("unexpected thresholds %+v", cfg.Categories)
	}
	if len(cfg.Fleet.CapacityFactors) != 4 || cfg.Batch.Workers != 4 {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Fleet, cfg.Batch)
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("seed: 7\nservice: {decimals: 2}\n"))
	if err != nil {
		t.Fatalf("from yaml: %v", err)
	}
	if cfg.Seed != 7 || cfg.Service.Decimals != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Service.BaseOperationFactor != 0.2 || cfg.Pickup.BRatio.Max != 0.5 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidateReportsField(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{"threshold range", "categories: {a_threshold: 1.5, b_threshold: 1.6}", "categories.a_threshold"},
		{"threshold order", "categories: {a_threshold: 0.9, b_threshold: 0.7}", "categories"},
		{"ratio order", "pickup: {a_ratio: {min: 0.3, max: 0.1}}", "pickup.a_ratio"},
		{"int range order", "pickup: {return_only: {min: 4, max: 2}}", "pickup.return_only"},
		{"return-only minimum", "pickup: {return_only: {min: 0, max: 2}}", "pickup.return_only.min"},
		{"capacity factors", "fleet: {capacity_factors: [0.5, 0.4, 0.8, 1.2]}", "fleet.capacity_factors"},
		{"capacity factor count", "fleet: {capacity_factors: [0.5, 1.0]}", "fleet.capacity_factors"},
		{"batch format", "batch: {format: xml}", "batch.format"},
		{"webhook url", "server: {webhooks: [{url: not-a-url}]}", "server.webhooks[0].url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tc.yaml))
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected invalid config, got %v", err)
			}
			var ce *domain.ConfigError
			if !errors.As(err, &ce) || ce.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestFromYAMLSyntaxError(t *testing.T) {
	if _, err := FromYAML([]byte("seed: [")); err == nil || !strings.Contains(err.Error(), "invalid config yaml") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}

func TestLoadAndLoadOptional(t *testing.T) {
	ws := t.TempDir()
	if _, err := Load(ws); err == nil || !strings.Contains(err.Error(), "config init") {
		t.Fatalf("expected missing config error, got %v", err)
	}
	cfg, err := LoadOptional(ws)
	if err != nil || cfg.Seed != 42 {
		t.Fatalf("load optional: %+v %v", cfg, err)
	}
	if err := os.WriteFile(Path(ws), []byte(GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(ws)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	again, err := FromYAML([]byte(out))
	if err != nil || again.Seed != cfg.Seed || again.Fleet.FixedCost != cfg.Fleet.FixedCost {
		t.Fatalf("snapshot does not reload: %v", err)
	}
}

func TestYAMLMasksWebhookSecrets(t *testing.T) {
	cfg, err := FromYAML([]byte("server: {webhooks: [{url: 'https://example.org/hook', secret: s3cret}]}"))
	if err != nil {
		t.Fatalf("from yaml: %v", err)
	}
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if strings.Contains(out, "s3cret") || cfg.Server.Webhooks[0].Secret != "s3cret" {
		t.Fatalf("secret leaked into snapshot or config mutated:\n%s", out)
	}
}
