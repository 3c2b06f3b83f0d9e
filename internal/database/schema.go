package database

// migrations are applied in order; index i moves the schema to user_version i+1.
// Append only.
var migrations = []string{
	`
CREATE TABLE apply_runs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at     INTEGER NOT NULL,
    finished_at    INTEGER NOT NULL,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    source         TEXT    NOT NULL DEFAULT '',
    daemon_enabled INTEGER NOT NULL DEFAULT 0,
    tcp_mss_1024   INTEGER NOT NULL DEFAULT 0,
    connections    INTEGER NOT NULL DEFAULT 0,
    gateways       INTEGER NOT NULL DEFAULT 0,
    error          TEXT
);
CREATE INDEX idx_apply_runs_started ON apply_runs (started_at);

CREATE TABLE apply_steps (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id  INTEGER NOT NULL REFERENCES apply_runs(id) ON DELETE CASCADE,
    step    TEXT    NOT NULL,
    ok      INTEGER NOT NULL DEFAULT 1,
    message TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX idx_apply_steps_run ON apply_steps (run_id);
`,
	`ALTER TABLE apply_runs ADD COLUMN script_sha256 TEXT NOT NULL DEFAULT '';`,
}
