package batch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/engine"
)

// Result is the outcome for one input file. Err is set when the file was
// skipped or its conversion failed.
type Result struct {
	Input     string
	Output    string
	Name      string
	RunID     string
	Customers int
	Stats     domain.Stats
	Elapsed   time.Duration
	Err       error
}

// Runner converts a directory of instances concurrently.
type Runner struct {
	Engine engine.Engine
	Config config.BatchConfig
	// Seed overrides the engine's configured seed when non-nil.
	Seed    *int64
	ActorID string
	Logger  *log.Logger
}

func (r Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// Run converts every configured instance and returns one result per input,
// in input order. A failing file never stops the others; the returned error
// covers setup problems and cancellation only.
func (r Runner) Run(ctx context.Context) ([]Result, error) {
	inputs, err := r.inputs()
	if err != nil {
		return nil, err
	}
	if r.Config.OutputDir == "" {
		return nil, fmt.Errorf("batch output_dir is required")
	}
	if err := os.MkdirAll(r.Config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	workers := r.Config.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(inputs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.convertOne(gctx, input)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			if res.Err != nil {
				r.logf("batch: %s failed: %v", input, res.Err)
			} else {
				r.logf("batch: %s -> %s (%d customers, %s)", input, res.Output, res.Customers, res.Elapsed.Round(time.Millisecond))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (r Runner) inputs() ([]string, error) {
	dir := r.Config.InputDir
	if len(r.Config.Instances) > 0 {
		out := make([]string, 0, len(r.Config.Instances))
		for _, name := range r.Config.Instances {
			if filepath.IsAbs(name) || dir == "" {
				out = append(out, name)
				continue
			}
			out = append(out, filepath.Join(dir, name))
		}
		return out, nil
	}
	if dir == "" {
		return nil, fmt.Errorf("batch needs input_dir or instances")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r Runner) convertOne(ctx context.Context, input string) Result {
	started := time.Now()
	res := Result{Input: input}
	data, err := os.ReadFile(input)
	if err != nil {
		res.Err = err
		return res
	}
	format := r.Config.Format
	if format == "" {
		format = engine.FormatText
	}
	res.Name = OutputStem(r.Config.OutputPrefix, filepath.Base(input), headerCustomers(data))
	path := filepath.Join(r.Config.OutputDir, res.Name+extension(format))

	var out bytes.Buffer
	conv, err := r.Engine.Convert(ctx, engine.ConvertOptions{
		Name:       res.Name,
		Source:     input,
		Input:      bytes.NewReader(data),
		Output:     &out,
		OutputPath: path,
		Format:     format,
		Seed:       r.Seed,
		ActorID:    r.ActorID,
	})
	res.RunID = conv.Run.ID
	res.Elapsed = time.Since(started)
	if err != nil {
		res.Err = err
		return res
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		res.Err = fmt.Errorf("write %s: %w", path, err)
		return res
	}
	res.Output = path
	res.Customers = len(conv.Instance.Customers)
	res.Stats = conv.Stats
	return res
}

// OutputStem names a converted instance. Inputs named prNN become
// <prefix>NN-n<customers>; other names keep their base name.
func OutputStem(prefix, input string, customers int) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if prefix == "" {
		prefix = "taha"
	}
	stem := prefix + "-" + base
	if digits := strings.TrimPrefix(strings.ToLower(base), "pr"); digits != strings.ToLower(base) {
		if n, err := strconv.Atoi(digits); err == nil {
			stem = fmt.Sprintf("%s%02d", prefix, n)
		}
	}
	if customers > 0 {
		stem = fmt.Sprintf("%s-n%d", stem, customers)
	}
	return stem
}

// headerCustomers reads the customer count from the header line, 0 when it
// cannot be read. The conversion itself reports malformed headers.
func headerCustomers(data []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return 0
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 3 {
		return 0
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func extension(format string) string {
	if format == engine.FormatJSON {
		return ".json"
	}
	return ".txt"
}

// Failed counts results with an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
