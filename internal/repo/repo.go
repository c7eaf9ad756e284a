package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const runColumns = `id,name,input,COALESCE(output,''),format,seed,status,COALESCE(error,''),customers,depots,stats_json,COALESCE(config_yaml,''),COALESCE(host,''),started_at,COALESCE(finished_at,'')`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (domain.Run, error) {
	var run domain.Run
	var stats sql.NullString
	err := s.Scan(&run.ID, &run.Name, &run.Input, &run.Output, &run.Format, &run.Seed, &run.Status, &run.Error,
		&run.Customers, &run.Depots, &stats, &run.ConfigYAML, &run.Host, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	if err != nil {
		return run, err
	}
	if stats.Valid && stats.String != "" {
		var st domain.Stats
		if err := json.Unmarshal([]byte(stats.String), &st); err != nil {
			return run, fmt.Errorf("decode stats of run %s: %w", run.ID, err)
		}
		run.Stats = &st
	}
	return run, nil
}

// InsertRun records a run in the running state.
func (r Repo) InsertRun(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO runs(id,name,input,output,format,seed,status,customers,depots,config_yaml,host,started_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Name, run.Input, nullable(run.Output), run.Format, run.Seed, run.Status, run.Customers, run.Depots,
		nullable(run.ConfigYAML), nullable(run.Host), run.StartedAt)
	return err
}

// FinishRun stores the terminal status, statistics and error of a run.
func (r Repo) FinishRun(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	var stats any
	if run.Stats != nil {
		b, err := json.Marshal(run.Stats)
		if err != nil {
			return err
		}
		stats = string(b)
	}
	res, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, error=?, output=?, customers=?, depots=?, stats_json=?, finished_at=? WHERE id=?`,
		run.Status, nullable(run.Error), nullable(run.Output), run.Customers, run.Depots, stats, nullable(run.FinishedAt), run.ID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	return scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
}

type RunFilters struct {
	Name   string
	Status string
	Limit  int
	// Cursor is RunCursor of the last run on the previous page.
	Cursor string
}

// RunCursor encodes the (started_at, id) position of run in the listing.
func RunCursor(run domain.Run) string {
	return run.StartedAt + "|" + run.ID
}

// splitRunCursor accepts a bare started_at as well, which pages by time only.
func splitRunCursor(cursor string) (startedAt, id string) {
	if i := strings.LastIndex(cursor, "|"); i >= 0 {
		return cursor[:i], cursor[i+1:]
	}
	return cursor, ""
}

// ListRuns returns runs newest first.
func (r Repo) ListRuns(ctx context.Context, f RunFilters) ([]domain.Run, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Name != "" {
		clauses = append(clauses, "name=?")
		args = append(args, f.Name)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Cursor != "" {
		startedAt, id := splitRunCursor(f.Cursor)
		if id == "" {
			clauses = append(clauses, "started_at<?")
			args = append(args, startedAt)
		} else {
			clauses = append(clauses, "(started_at<? OR (started_at=? AND id<?))")
			args = append(args, startedAt, startedAt, id)
		}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM runs WHERE %s ORDER BY started_at DESC, id DESC LIMIT ?`, runColumns, strings.Join(clauses, " AND "))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

// CountRunsByStatus backs the run summary in the CLI.
func (r Repo) CountRunsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		res[status] = n
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
