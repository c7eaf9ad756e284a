package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

// FileName is the workspace config file.
const FileName = "mdhf.yml"

// Config models mdhf.yml.
type Config struct {
	Seed       int64          `yaml:"seed" json:"seed"`
	Categories CategoryConfig `yaml:"categories" json:"categories"`
	Pickup     PickupConfig   `yaml:"pickup" json:"pickup"`
	Service    ServiceConfig  `yaml:"service" json:"service"`
	Fleet      FleetConfig    `yaml:"fleet" json:"fleet"`
	Reader     ReaderConfig   `yaml:"reader" json:"reader"`
	Batch      BatchConfig    `yaml:"batch" json:"batch"`
	Server     ServerConfig   `yaml:"server" json:"server"`
}

// CategoryConfig holds the two thresholds splitting [0,1) into A, B and C.
type CategoryConfig struct {
	AThreshold float64 `yaml:"a_threshold" json:"a_threshold" validate:"gte=0,lte=1"`
	BThreshold float64 `yaml:"b_threshold" json:"b_threshold" validate:"gte=0,lte=1"`
}

type Range struct {
	Min float64 `yaml:"min" json:"min" validate:"gte=0"`
	Max float64 `yaml:"max" json:"max" validate:"gte=0"`
}

// IntRange bounds the return-only pickup draw; a return-only customer always
// hands back at least one item.
type IntRange struct {
	Min int `yaml:"min" json:"min" validate:"gte=1"`
	Max int `yaml:"max" json:"max" validate:"gte=0"`
}

type PickupConfig struct {
	ARatio     Range    `yaml:"a_ratio" json:"a_ratio"`
	BRatio     Range    `yaml:"b_ratio" json:"b_ratio"`
	ReturnOnly IntRange `yaml:"return_only" json:"return_only"`
}

type ServiceConfig struct {
	BaseOperationFactor  float64 `yaml:"base_operation_factor" json:"base_operation_factor" validate:"gte=0,lte=1"`
	PickupHandlingFactor float64 `yaml:"pickup_handling_factor" json:"pickup_handling_factor" validate:"gte=0"`
	Decimals             int     `yaml:"decimals" json:"decimals" validate:"gte=0,lte=6"`
}

// CostFormula yields Base + Step*(k-1) for class k.
type CostFormula struct {
	Base float64 `yaml:"base" json:"base" validate:"gte=0"`
	Step float64 `yaml:"step" json:"step" validate:"gt=0"`
}

type FleetConfig struct {
	CapacityFactors []float64   `yaml:"capacity_factors" json:"capacity_factors" validate:"len=4,dive,gt=0"`
	FixedCost       CostFormula `yaml:"fixed_cost" json:"fixed_cost"`
	VariableCost    CostFormula `yaml:"variable_cost" json:"variable_cost"`
	Names           []string    `yaml:"names" json:"names" validate:"omitempty,len=4"`
	Descriptions    []string    `yaml:"descriptions" json:"descriptions" validate:"omitempty,len=4"`
}

type ReaderConfig struct {
	// DefaultHorizon closes untimed windows when every depot route duration is 0.
	DefaultHorizon float64 `yaml:"default_horizon" json:"default_horizon" validate:"gt=0"`
}

type BatchConfig struct {
	InputDir     string   `yaml:"input_dir" json:"input_dir"`
	OutputDir    string   `yaml:"output_dir" json:"output_dir"`
	Instances    []string `yaml:"instances" json:"instances"`
	OutputPrefix string   `yaml:"output_prefix" json:"output_prefix"`
	Format       string   `yaml:"format" json:"format" validate:"oneof=text json"`
	Workers      int      `yaml:"workers" json:"workers" validate:"gte=1"`
}

type ServerConfig struct {
	Addr        string  `yaml:"addr" json:"addr"`
	BasePath    string  `yaml:"base_path" json:"base_path"`
	RequireAuth bool    `yaml:"require_auth" json:"require_auth"`
	RateLimit   float64 `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	Burst       int     `yaml:"burst" json:"burst" validate:"gte=0"`
	MaxBodyKB   int     `yaml:"max_body_kb" json:"max_body_kb" validate:"gte=0"`

	// Webhooks receive ledger events as they are recorded.
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks" validate:"dive"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url" validate:"required,url"`
	Events         []string `yaml:"events" json:"events"`
	Secret         string   `yaml:"secret" json:"-"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and the cross-field constraints the
// conversion depends on. Errors are *domain.ConfigError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &domain.ConfigError{Field: yamlPath(fe.Namespace()), Msg: fmt.Sprintf("fails %q (value %v)", fe.Tag(), fe.Value())}
		}
		return &domain.ConfigError{Field: "config", Msg: err.Error()}
	}
	if c.Categories.AThreshold > c.Categories.BThreshold {
		return &domain.ConfigError{Field: "categories", Msg: "a_threshold must not exceed b_threshold"}
	}
	if c.Pickup.ARatio.Min > c.Pickup.ARatio.Max {
		return &domain.ConfigError{Field: "pickup.a_ratio", Msg: "min must not exceed max"}
	}
	if c.Pickup.BRatio.Min > c.Pickup.BRatio.Max {
		return &domain.ConfigError{Field: "pickup.b_ratio", Msg: "min must not exceed max"}
	}
	if c.Pickup.ReturnOnly.Min > c.Pickup.ReturnOnly.Max {
		return &domain.ConfigError{Field: "pickup.return_only", Msg: "min must not exceed max"}
	}
	for i := 1; i < len(c.Fleet.CapacityFactors); i++ {
		if c.Fleet.CapacityFactors[i] <= c.Fleet.CapacityFactors[i-1] {
			return &domain.ConfigError{Field: "fleet.capacity_factors", Msg: "must be strictly increasing"}
		}
	}
	return nil
}

// yamlPath turns "Config.pickup.a_ratio.min" into "pickup.a_ratio.min".
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with mdhf config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// YAML renders the config, used for run snapshots. Webhook secrets are
// masked.
func (c *Config) YAML() (string, error) {
	out := *c
	out.Server.Webhooks = make([]WebhookConfig, len(c.Server.Webhooks))
	for i, h := range c.Server.Webhooks {
		if h.Secret != "" {
			h.Secret = "********"
		}
		out.Server.Webhooks[i] = h
	}
	b, err := yaml.Marshal(&out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const defaultTemplate = `seed: 42

categories:
  a_threshold: 0.70 # delivery + low return below this
  b_threshold: 0.90 # delivery + significant return below this, return-only above

pickup:
  a_ratio: {min: 0.05, max: 0.20}
  b_ratio: {min: 0.20, max: 0.50}
  return_only: {min: 1, max: 3}

service:
  base_operation_factor: 0.2
  pickup_handling_factor: 0.5 # minutes per returned item
  decimals: 1

fleet:
  capacity_factors: [0.25, 0.50, 0.80, 1.20]
  fixed_cost: {base: 60, step: 60}
  variable_cost: {base: 0.45, step: 0.15}
  names: [Class1, Class2, Class3, Class4]
  descriptions: ["Cargo bike/micro-EV", "Small van (1 t)", "Large van (2 t)", "7.5-t truck"]

reader:
  default_horizon: 1000

batch:
  input_dir: instances/cordeau
  output_dir: instances/mdhf
  instances: [pr01, pr02, pr03, pr04, pr05, pr06, pr07, pr08, pr09, pr10,
              pr11, pr12, pr13, pr14, pr15, pr16, pr17, pr18, pr19, pr20]
  output_prefix: taha
  format: text
  workers: 4

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  require_auth: false
  rate_limit: 5
  burst: 10
  max_body_kb: 2048
  webhooks: []
  # - url: https://solver.example.org/hooks/mdhf
  #   events: [conversion.succeeded]
  #   secret: change-me
`
