package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/app"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/batch"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/cordeau"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/db"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/engine"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/events"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/repo"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/server"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/sysinfo"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/transform"
)

var rootCmd = &cobra.Command{
	Use:   "mdhf",
	Short: "Cordeau to MDHF-VRPTW-SPD instance converter",
	Long: `mdhf turns Cordeau multi-depot benchmark instances (types 2 and 6) into the
multi-depot heterogeneous-fleet VRP with time windows and simultaneous pickup
and delivery (type 7).
- Demands: every customer keeps its delivery and gets a pickup drawn from its
  category (A low return, B significant return, C return-only).
- Fleet: four vehicle classes per depot, sized from the depot capacity.
- Service: the original service time is split between delivery and pickup;
  windows are widened when the new service no longer fits.
- Ledger: every conversion is recorded in .mdhf/ledger.db with its seed and
  config snapshot; view it with 'mdhf runs list' and 'mdhf log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(filepath.Join(viper.GetString("workspace"), ".env"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MDHF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default <workspace>/mdhf.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "cli", "actor recorded in the ledger")
	rootCmd.PersistentFlags().Int64("seed", 0, "random seed (overrides the config)")
	rootCmd.PersistentFlags().Bool("no-ledger", false, "do not record runs")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress logs")
	for _, name := range []string{"workspace", "config", "json", "actor-id", "seed", "no-ledger", "quiet"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

func convertCmd() *cobra.Command {
	var output, format, name string
	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert one instance (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				input := args[0]
				var in io.Reader = os.Stdin
				source := "stdin"
				if input != "-" {
					f, err := os.Open(input)
					if err != nil {
						return err
					}
					defer f.Close()
					in, source = f, input
				}
				if name == "" {
					name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
				}
				var out bytes.Buffer
				res, err := e.Convert(ctx, engine.ConvertOptions{
					Name:       name,
					Source:     source,
					Input:      in,
					Output:     &out,
					OutputPath: output,
					Format:     format,
					Seed:       seedOverride(),
					ActorID:    viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				if output == "" {
					_, err := os.Stdout.Write(out.Bytes())
					return err
				}
				if err := os.WriteFile(output, out.Bytes(), 0o644); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"run": res.Run, "stats": res.Stats})
				}
				fmt.Printf("wrote %s (%d customers, %d depots)\n", output, res.Run.Customers, res.Run.Depots)
				printStats(res.Stats)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", engine.FormatText, "output format (text|json)")
	cmd.Flags().StringVar(&name, "name", "", "instance name (default input base name)")
	return cmd
}

func batchCmd() *cobra.Command {
	var inputDir, outputDir, format, prefix string
	var workers int
	cmd := &cobra.Command{
		Use:   "batch [instances...]",
		Short: "Convert a set of instances concurrently",
		Long:  "Converts the configured batch.instances from batch.input_dir (or every file there) into batch.output_dir. prNN inputs are written as <prefix>NN-n<customers>. A failing file does not stop the others.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				bc := e.Config.Batch
				flags := cmd.Flags()
				if flags.Changed("input-dir") {
					bc.InputDir = inputDir
				}
				if flags.Changed("output-dir") {
					bc.OutputDir = outputDir
				}
				if flags.Changed("format") {
					bc.Format = format
				}
				if flags.Changed("prefix") {
					bc.OutputPrefix = prefix
				}
				if flags.Changed("workers") {
					bc.Workers = workers
				}
				if len(args) > 0 {
					bc.Instances = args
				}
				runner := batch.Runner{
					Engine:  e,
					Config:  bc,
					Seed:    seedOverride(),
					ActorID: viper.GetString("actor-id"),
					Logger:  e.Logger,
				}
				results, err := runner.Run(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					if err := printJSON(batchRows(results)); err != nil {
						return err
					}
				} else {
					printBatchTable(results)
				}
				if failed := batch.Failed(results); failed > 0 {
					return fmt.Errorf("%d of %d conversions failed", failed, len(results))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inputDir, "input-dir", "", "directory holding the Cordeau files")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for converted files")
	cmd.Flags().StringVar(&format, "format", engine.FormatText, "output format (text|json)")
	cmd.Flags().StringVar(&prefix, "prefix", "taha", "output name prefix")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent conversions")
	return cmd
}

type batchRow struct {
	Input     string       `json:"input"`
	Output    string       `json:"output,omitempty"`
	RunID     string       `json:"run_id,omitempty"`
	Customers int          `json:"customers"`
	Stats     domain.Stats `json:"stats"`
	Error     string       `json:"error,omitempty"`
}

func batchRows(results []batch.Result) []batchRow {
	rows := make([]batchRow, 0, len(results))
	for _, r := range results {
		row := batchRow{Input: r.Input, Output: r.Output, RunID: r.RunID, Customers: r.Customers, Stats: r.Stats}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

func printBatchTable(results []batch.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Input", "Output", "Customers", "A", "B", "C", "Pickup/Delivery", "Repairs", "Status"})
	for _, r := range results {
		if r.Err != nil {
			tw.AppendRow(table.Row{filepath.Base(r.Input), "", "", "", "", "", "", "", "failed: " + r.Err.Error()})
			continue
		}
		tw.AppendRow(table.Row{
			filepath.Base(r.Input), filepath.Base(r.Output), r.Customers,
			r.Stats.CategoryA, r.Stats.CategoryB, r.Stats.CategoryC,
			fmt.Sprintf("%.1f%%", r.Stats.PickupRatio*100),
			r.Stats.CapacityRepairs + r.Stats.WindowRepairs, "ok",
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "", "", "failed", batch.Failed(results)})
	tw.Render()
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Parse an instance of any supported type and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			inst, stats, err := engine.New(nil, cfg).Inspect(filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{
					"name": inst.Name, "format": int(inst.Format), "customers": len(inst.Customers),
					"depots": len(inst.Depots), "stats": stats,
				})
			}
			fmt.Printf("%s: type %d, %d customers, %d depots\n", inst.Name, inst.Format, len(inst.Customers), len(inst.Depots))
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Depot", "X", "Y", "Duration", "Capacity", "Fleet"})
			for _, d := range inst.Depots {
				var fleet []string
				for _, vc := range d.Fleet {
					fleet = append(fleet, fmt.Sprintf("%s:%d", vc.Name, vc.Capacity))
				}
				tw.AppendRow(table.Row{d.ID, d.X, d.Y, d.RouteDuration, d.Capacity, strings.Join(fleet, " ")})
			}
			tw.Render()
			if inst.Format == domain.Extended {
				printStats(stats)
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <source> <converted>",
		Short: "Verify a converted file against its source instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			opts := cordeau.ReadOptions{DefaultHorizon: cfg.Reader.DefaultHorizon}
			source, err := cordeau.ParseFile(args[0], opts)
			if err != nil {
				return err
			}
			converted, err := cordeau.ParseFile(args[1], opts)
			if err != nil {
				return err
			}
			problems := transform.Verify(source, converted)
			if viper.GetBool("json") {
				if err := printJSON(map[string]any{"ok": len(problems) == 0, "problems": problems}); err != nil {
					return err
				}
			} else {
				for _, p := range problems {
					fmt.Println("-", p)
				}
			}
			if len(problems) > 0 {
				return fmt.Errorf("%s does not match %s: %d problems", args[1], args[0], len(problems))
			}
			if !viper.GetBool("json") {
				fmt.Println("check OK")
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage mdhf.yml",
		Long:  "mdhf.yml holds the seed, category thresholds, pickup ratios, service-time factors, fleet classes and batch/server settings. Missing keys keep their defaults.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := resolveConfig()
			if viper.GetBool("json") {
				res := map[string]any{"ok": err == nil}
				var ce *domain.ConfigError
				if errors.As(err, &ce) {
					res["field"] = ce.Field
				}
				if err != nil {
					res["error"] = err.Error()
				}
				if perr := printJSON(res); perr != nil {
					return perr
				}
				return err
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func runsCmd() *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Browse recorded conversions",
	}
	runs.AddCommand(runsListCmd())
	runs.AddCommand(runsShowCmd())
	return runs
}

func runsListCmd() *cobra.Command {
	var f repo.RunFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListRuns(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Seed", "Format", "Status", "Customers", "Started"})
				for _, run := range items {
					status := run.Status
					if run.Error != "" {
						status += ": " + run.Error
					}
					tw.AppendRow(table.Row{run.ID, run.Name, run.Seed, run.Format, status, run.Customers, run.StartedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "instance name filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter (running|succeeded|failed)")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum runs")
	return cmd
}

func runsShowCmd() *cobra.Command {
	var withConfig bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				run, err := r.GetRun(ctx, args[0])
				if err != nil {
					if errors.Is(err, repo.ErrNotFound) {
						return fmt.Errorf("run %s not found", args[0])
					}
					return err
				}
				if !withConfig {
					run.ConfigYAML = ""
				}
				return printJSONOrTable(run)
			})
		},
	}
	cmd.Flags().BoolVar(&withConfig, "config", false, "include the config snapshot")
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Read the event log",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor", "Payload"})
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for the HTTP service",
	}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyRevokeCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name, envFile string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key; the raw key is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(actor) == "" {
				return fmt.Errorf("--actor is required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw, hash, err := repo.GenerateAPIKey()
				if err != nil {
					return err
				}
				key := domain.APIKey{
					ID:        uuid.NewString(),
					ActorID:   actor,
					Name:      name,
					KeyHash:   hash,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := r.InsertAPIKey(ctx, tx, key); err != nil {
					return err
				}
				w := events.Writer{DB: r.DB}
				if err := w.Append(ctx, tx, events.APIKeyCreated, "apikey", key.ID, viper.GetString("actor-id"), events.EventPayload{
					"actor_id": actor, "name": name,
				}); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				if envFile != "" {
					if err := setEnvValue(envFile, "MDHF_API_KEY", raw); err != nil {
						return fmt.Errorf("write %s: %w", envFile, err)
					}
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "actor_id": actor, "name": name, "key": raw})
				}
				fmt.Printf("API key %s for %s:\n%s\n", key.ID, actor, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "label")
	cmd.Flags().StringVar(&envFile, "env-file", "", "also store the key as MDHF_API_KEY in this file")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor filter")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token with MDHF_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				subject = viper.GetString("actor-id")
			}
			token, err := server.SignToken(os.Getenv("MDHF_JWT_SECRET"), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "actor id in the token (default --actor-id)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP conversion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sc := e.Config.Server
				if cmd.Flags().Changed("addr") || sc.Addr == "" {
					sc.Addr = addr
				}
				if cmd.Flags().Changed("base-path") || sc.BasePath == "" {
					sc.BasePath = basePath
				}
				authCfg := server.AuthConfig{
					Required:  sc.RequireAuth,
					JWTSecret: os.Getenv("MDHF_JWT_SECRET"),
					Logger:    e.Logger,
				}
				if authCfg.Required && authCfg.JWTSecret == "" {
					e.Logger.Printf("MDHF_JWT_SECRET is not set; only API keys will authenticate")
				}
				handler, err := server.New(server.Config{
					Engine:       e,
					BasePath:     sc.BasePath,
					Auth:         authCfg,
					RateLimit:    sc.RateLimit,
					Burst:        sc.Burst,
					MaxBodyBytes: int64(sc.MaxBodyKB) * 1024,
				})
				if err != nil {
					return err
				}
				if e.DB != nil && len(sc.Webhooks) > 0 {
					d := &server.WebhookDispatcher{Repo: e.Repo, Hooks: sc.Webhooks, Logger: e.Logger}
					go d.Run(ctx)
				}
				srv := &http.Server{Addr: sc.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving mdhf API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs, metrics at /metrics)\n",
					sc.Addr, sc.BasePath, sc.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func newLogger() *log.Logger {
	if viper.GetBool("quiet") {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "mdhf ", log.LstdFlags|log.Lmicroseconds)
}

func resolveConfig() (*config.Config, error) {
	return app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
}

// seedOverride returns the --seed flag or MDHF_SEED when either is set.
func seedOverride() *int64 {
	if !viper.IsSet("seed") {
		return nil
	}
	seed := viper.GetInt64("seed")
	return &seed
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	var e engine.Engine
	if viper.GetBool("no-ledger") {
		e = engine.New(nil, cfg)
	} else {
		conn, err := app.OpenLedger(ctx, viper.GetString("workspace"))
		if err != nil {
			return err
		}
		defer conn.Close()
		e = engine.New(conn, cfg)
		e.Host = sysinfo.Collect().String()
	}
	e.Logger = newLogger()
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	if _, err := os.Stat(db.Path(workspace)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no ledger at %s; convert something first", db.Path(workspace))
	}
	conn, err := app.OpenLedger(ctx, workspace)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, repo.Repo{DB: conn})
}

func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func printStats(s domain.Stats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Statistic", "Value"})
	tw.AppendRows([]table.Row{
		{"delivery with low return (A)", s.CategoryA},
		{"delivery with significant return (B)", s.CategoryB},
		{"return only (C)", s.CategoryC},
		{"total delivery", s.TotalDelivery},
		{"total pickup", s.TotalPickup},
		{"pickup/delivery", fmt.Sprintf("%.2f%%", s.PickupRatio*100)},
		{"smallest vehicle capacity", s.MinCapacity},
		{"capacity repairs", s.CapacityRepairs},
		{"window repairs", s.WindowRepairs},
	})
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setEnvValue sets key=value in a dotenv file, keeping every other variable.
// The file is rewritten in godotenv's sorted form and stays owner-only.
func setEnvValue(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		env = map[string]string{}
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
