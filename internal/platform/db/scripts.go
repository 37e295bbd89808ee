package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Script is a numbered SQL file belonging to a refresh job.
type Script struct {
	Order int
	Name  string
	SQL   string
}

// ScriptRun is one logged execution of a script.
type ScriptRun struct {
	RunID      uuid.UUID  `json:"run_id"`
	Job        string     `json:"job"`
	Script     string     `json:"script"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

// ScriptRunner executes the SQL scripts of a job directory, each in its own
// transaction, and records every execution in performance_refresh_log.
type ScriptRunner struct {
	pool *pgxpool.Pool
	dir  string // root directory; each job is a subdirectory
}

func NewScriptRunner(pool *pgxpool.Pool, scriptsDir string) *ScriptRunner {
	return &ScriptRunner{pool: pool, dir: scriptsDir}
}

const refreshLogTable = "cms.performance_refresh_log"

func (r *ScriptRunner) EnsureLogTable(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+refreshLogTable+` (
    run_id UUID NOT NULL,
    job VARCHAR(50) NOT NULL,
    script VARCHAR(255) NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    error TEXT
)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", refreshLogTable, err)
	}
	return nil
}

// LoadScripts reads the .sql files of job, ordered by their numeric prefix
// ("010_scores.sql" -> 10). Files without a numeric prefix are skipped.
func (r *ScriptRunner) LoadScripts(job string) ([]Script, error) {
	dir := filepath.Join(r.dir, job)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scripts directory %s: %w", dir, err)
	}

	var scripts []Script
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		order, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read script %s: %w", name, err)
		}
		scripts = append(scripts, Script{Order: order, Name: name, SQL: string(content)})
	}

	sort.SliceStable(scripts, func(i, j int) bool {
		return scripts[i].Order < scripts[j].Order
	})
	return scripts, nil
}

// Run executes every script of job in order and stops at the first failure.
// Returns the number of scripts that completed.
func (r *ScriptRunner) Run(ctx context.Context, job string) (int, error) {
	if err := r.EnsureLogTable(ctx); err != nil {
		return 0, err
	}

	scripts, err := r.LoadScripts(job)
	if err != nil {
		return 0, err
	}

	runID := uuid.New()
	count := 0
	for _, s := range scripts {
		started := time.Now().UTC()
		execErr := r.execScript(ctx, s)
		if logErr := r.record(ctx, runID, job, s.Name, started, execErr); logErr != nil && execErr == nil {
			return count, logErr
		}
		if execErr != nil {
			return count, fmt.Errorf("run %s script %s: %w", job, s.Name, execErr)
		}
		count++
	}
	return count, nil
}

func (r *ScriptRunner) execScript(ctx context.Context, s Script) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, s.SQL); err != nil {
		return fmt.Errorf("execute SQL: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *ScriptRunner) record(ctx context.Context, runID uuid.UUID, job, script string, started time.Time, runErr error) error {
	var msg *string
	if runErr != nil {
		s := runErr.Error()
		msg = &s
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO `+refreshLogTable+` (run_id, job, script, started_at, finished_at, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, job, script, started, time.Now().UTC(), msg)
	if err != nil {
		return fmt.Errorf("record script run: %w", err)
	}
	return nil
}

// Recent returns the latest logged script runs, newest first.
func (r *ScriptRunner) Recent(ctx context.Context, limit int) ([]ScriptRun, error) {
	if err := r.EnsureLogTable(ctx); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT run_id, job, script, started_at, finished_at, error
		 FROM `+refreshLogTable+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query script runs: %w", err)
	}
	defer rows.Close()

	var runs []ScriptRun
	for rows.Next() {
		var run ScriptRun
		if err := rows.Scan(&run.RunID, &run.Job, &run.Script, &run.StartedAt, &run.FinishedAt, &run.Error); err != nil {
			return nil, fmt.Errorf("scan script run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate script runs: %w", err)
	}
	return runs, nil
}
