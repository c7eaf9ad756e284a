package engine

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/cordeau"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/demand"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/events"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/metrics"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/repo"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/rng"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/transform"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Engine converts instances and, when DB is set, records every run in the
// ledger. Without a DB it converts only.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Logger *log.Logger
	// Host is stored with each run.
	Host string
	// Metrics enables the Prometheus conversion counters.
	Metrics bool
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// ConvertOptions are parameters for one conversion.
type ConvertOptions struct {
	// Name becomes the instance name and is used in error messages.
	Name string
	// Source is recorded as the run input, e.g. a path or "upload".
	Source string
	Input  io.Reader
	Output io.Writer
	// OutputPath is recorded as the run output when set.
	OutputPath string
	Format     string
	// Seed overrides Config.Seed when non-nil.
	Seed    *int64
	ActorID string
}

type Result struct {
	Run      domain.Run
	Instance *domain.Instance
	Stats    domain.Stats
}

// Convert parses opts.Input, transforms it and writes the rendering to
// opts.Output. Nothing is written when any step fails.
func (e Engine) Convert(ctx context.Context, opts ConvertOptions) (Result, error) {
	if e.Config == nil {
		return Result{}, errors.New("config not loaded")
	}
	if opts.Input == nil {
		return Result{}, errors.New("input is required")
	}
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.Format != FormatText && opts.Format != FormatJSON {
		return Result{}, fmt.Errorf("unsupported format %q (text|json)", opts.Format)
	}
	if opts.Name == "" {
		opts.Name = "instance"
	}
	if opts.Source == "" {
		opts.Source = opts.Name
	}
	if opts.ActorID == "" {
		opts.ActorID = "cli"
	}
	seed := e.Config.Seed
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	snapshot, err := e.Config.YAML()
	if err != nil {
		return Result{}, fmt.Errorf("snapshot config: %w", err)
	}

	started := e.now()
	run := domain.Run{
		ID:         uuid.NewString(),
		Name:       opts.Name,
		Input:      opts.Source,
		Output:     opts.OutputPath,
		Format:     opts.Format,
		Seed:       seed,
		Status:     StatusRunning,
		ConfigYAML: snapshot,
		Host:       e.Host,
		StartedAt:  started.UTC().Format(domain.TimeLayout),
	}
	if err := e.startRun(ctx, run, opts.ActorID); err != nil {
		return Result{}, err
	}

	var repairs []demand.Repair
	inst, stats, rendered, convErr := e.convert(opts, seed, &repairs)
	if inst != nil {
		run.Customers = len(inst.Customers)
		run.Depots = len(inst.Depots)
	}
	if convErr == nil && opts.Output != nil {
		if _, err := io.Copy(opts.Output, rendered); err != nil {
			convErr = fmt.Errorf("write output: %w", err)
		}
	}

	run.FinishedAt = e.now().UTC().Format(domain.TimeLayout)
	if convErr != nil {
		run.Status = StatusFailed
		run.Error = convErr.Error()
		run.Output = ""
		e.logf("convert %s: %v", opts.Name, convErr)
	} else {
		run.Status = StatusSucceeded
		run.Stats = &stats
		e.logf("convert %s: %d customers, %d capacity repairs, %d window repairs",
			opts.Name, run.Customers, stats.CapacityRepairs, stats.WindowRepairs)
	}
	if err := e.finishRun(ctx, run, repairs, opts.ActorID); err != nil {
		if convErr != nil {
			return Result{Run: run}, errors.Join(convErr, err)
		}
		return Result{Run: run}, err
	}
	e.observe(run, stats, e.now().Sub(started))
	if convErr != nil {
		return Result{Run: run}, convErr
	}
	return Result{Run: run, Instance: inst, Stats: stats}, nil
}

func (e Engine) convert(opts ConvertOptions, seed int64, repairs *[]demand.Repair) (*domain.Instance, domain.Stats, *bytes.Buffer, error) {
	inst, err := cordeau.Parse(opts.Name, opts.Input, cordeau.ReadOptions{DefaultHorizon: e.Config.Reader.DefaultHorizon})
	if err != nil {
		return nil, domain.Stats{}, nil, err
	}
	stats, err := transform.Transform(inst, e.Config, rng.New(seed), transform.Options{
		OnRepair: func(r demand.Repair) { *repairs = append(*repairs, r) },
	})
	if err != nil {
		return inst, domain.Stats{}, nil, err
	}
	var buf bytes.Buffer
	switch opts.Format {
	case FormatJSON:
		err = cordeau.WriteJSON(&buf, inst, stats, seed)
	default:
		err = cordeau.Write(&buf, inst)
	}
	if err != nil {
		return inst, stats, nil, fmt.Errorf("render %s: %w", opts.Format, err)
	}
	return inst, stats, &buf, nil
}

func (e Engine) startRun(ctx context.Context, run domain.Run, actorID string) error {
	if e.DB == nil {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRun(ctx, tx, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.ConversionStarted, "run", run.ID, actorID, events.EventPayload{
		"name": run.Name, "input": run.Input, "format": run.Format, "seed": run.Seed,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) finishRun(ctx context.Context, run domain.Run, repairs []demand.Repair, actorID string) error {
	if e.DB == nil {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.FinishRun(ctx, tx, run); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	for _, r := range repairs {
		if err := e.Events.Append(ctx, tx, events.CapacityRepaired, "run", run.ID, actorID, events.EventPayload{
			"customer": r.Customer, "pickup_before": r.PickupBefore, "pickup_after": r.PickupAfter,
		}); err != nil {
			return err
		}
	}
	evt, payload := events.ConversionSucceeded, events.EventPayload{"customers": run.Customers, "depots": run.Depots}
	if run.Status == StatusFailed {
		evt, payload = events.ConversionFailed, events.EventPayload{"error": run.Error}
	} else if run.Stats != nil {
		payload["capacity_repairs"] = run.Stats.CapacityRepairs
		payload["window_repairs"] = run.Stats.WindowRepairs
	}
	if err := e.Events.Append(ctx, tx, evt, "run", run.ID, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) observe(run domain.Run, stats domain.Stats, elapsed time.Duration) {
	if !e.Metrics {
		return
	}
	metrics.Register()
	metrics.Conversions.WithLabelValues(run.Format, run.Status).Inc()
	metrics.ConversionDuration.WithLabelValues(run.Format).Observe(elapsed.Seconds())
	if run.Status != StatusSucceeded {
		return
	}
	metrics.CustomersByCategory.WithLabelValues(string(domain.CategoryA)).Add(float64(stats.CategoryA))
	metrics.CustomersByCategory.WithLabelValues(string(domain.CategoryB)).Add(float64(stats.CategoryB))
	metrics.CustomersByCategory.WithLabelValues(string(domain.CategoryC)).Add(float64(stats.CategoryC))
	metrics.Repairs.WithLabelValues("capacity").Add(float64(stats.CapacityRepairs))
	metrics.Repairs.WithLabelValues("window").Add(float64(stats.WindowRepairs))
}

// Inspect parses any supported file without converting it.
func (e Engine) Inspect(name string, r io.Reader) (*domain.Instance, domain.Stats, error) {
	opts := cordeau.ReadOptions{}
	if e.Config != nil {
		opts.DefaultHorizon = e.Config.Reader.DefaultHorizon
	}
	inst, err := cordeau.Parse(name, r, opts)
	if err != nil {
		return nil, domain.Stats{}, err
	}
	return inst, transform.Summarize(inst), nil
}

func (e Engine) GetRun(ctx context.Context, id string) (domain.Run, error) {
	if e.DB == nil {
		return domain.Run{}, errors.New("no ledger open")
	}
	return e.Repo.GetRun(ctx, id)
}

func (e Engine) ListRuns(ctx context.Context, f repo.RunFilters) ([]domain.Run, error) {
	if e.DB == nil {
		return nil, errors.New("no ledger open")
	}
	return e.Repo.ListRuns(ctx, f)
}
