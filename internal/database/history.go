package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ApplyStep is the outcome of one host step of a write.
type ApplyStep struct {
	Step    string `json:"step"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ApplyRun is one journaled configuration write.
type ApplyRun struct {
	ID            int64       `json:"id"`
	StartedAt     time.Time   `json:"startedAt"`
	FinishedAt    time.Time   `json:"finishedAt"`
	Duration      int64       `json:"durationMs"`
	Source        string      `json:"source"`
	DaemonEnabled bool        `json:"daemonEnabled"`
	TCPMSS1024    bool        `json:"tcpMss1024"`
	Connections   int         `json:"connections"`
	Gateways      int         `json:"gateways"`
	ScriptSHA256  string      `json:"scriptSha256"`
	Error         string      `json:"error,omitempty"`
	Steps         []ApplyStep `json:"steps"`
}

// RecordApply stores run and its steps in one transaction and returns the new id.
func RecordApply(ctx context.Context, db *sql.DB, run ApplyRun) (int64, error) {
	if db == nil {
		return 0, errors.New("database handle is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var runErr any
	if run.Error != "" {
		runErr = run.Error
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO apply_runs (started_at, finished_at, duration_ms, source, daemon_enabled, tcp_mss_1024,
    connections, gateways, script_sha256, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Unix(), run.FinishedAt.Unix(), run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		run.Source, boolInt(run.DaemonEnabled), boolInt(run.TCPMSS1024),
		run.Connections, run.Gateways, run.ScriptSHA256, runErr,
	)
	if err != nil {
		return 0, fmt.Errorf("insert apply run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, step := range run.Steps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO apply_steps (run_id, step, ok, message) VALUES (?, ?, ?, ?)`,
			id, step.Step, boolInt(step.OK), step.Message,
		); err != nil {
			return 0, fmt.Errorf("insert apply step %s: %w", step.Step, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListApplies returns the newest runs first, at most limit of them.
func ListApplies(ctx context.Context, db *sql.DB, limit int) ([]ApplyRun, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, started_at, finished_at, duration_ms, source, daemon_enabled, tcp_mss_1024,
    connections, gateways, script_sha256, COALESCE(error, '')
FROM apply_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]ApplyRun, 0)
	for rows.Next() {
		var (
			run             ApplyRun
			started, ended  int64
			daemonOn, mssOn int
		)
		if err := rows.Scan(&run.ID, &started, &ended, &run.Duration, &run.Source, &daemonOn, &mssOn,
			&run.Connections, &run.Gateways, &run.ScriptSHA256, &run.Error); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(started, 0).UTC()
		run.FinishedAt = time.Unix(ended, 0).UTC()
		run.DaemonEnabled = daemonOn != 0
		run.TCPMSS1024 = mssOn != 0
		run.Steps = []ApplyStep{}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range runs {
		steps, err := listSteps(ctx, db, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Steps = steps
	}
	return runs, nil
}

func listSteps(ctx context.Context, db *sql.DB, runID int64) ([]ApplyStep, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT step, ok, message FROM apply_steps WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	steps := make([]ApplyStep, 0)
	for rows.Next() {
		var (
			step ApplyStep
			ok   int
		)
		if err := rows.Scan(&step.Step, &ok, &step.Message); err != nil {
			return nil, err
		}
		step.OK = ok != 0
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
