// Package store provides the SQLite run history: every generation run, its
// inputs, outputs, and token usage.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB and provides migration support.
type DB struct {
	*sql.DB
}

// New opens a SQLite connection with WAL mode and foreign keys enabled,
// creating the parent directory if needed. Driver name is "sqlite"
// (modernc.org/sqlite, not mattn/go-sqlite3).
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store.New: mkdir: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("store.New: open: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("store.New: ping: %w", err)
	}
	// Limit to 1 writer at a time to avoid SQLITE_BUSY in WAL mode.
	sqlDB.SetMaxOpenConns(1)
	return &DB{sqlDB}, nil
}

// Migrate runs all CREATE TABLE IF NOT EXISTS migrations exactly once per
// schema version.
func (d *DB) Migrate() error {
	// Ensure the settings table exists first (holds schema_version).
	if _, err := d.Exec(ddlSettings); err != nil {
		return fmt.Errorf("store.Migrate: settings table: %w", err)
	}

	var version int
	row := d.QueryRow(`SELECT value FROM settings WHERE key='schema_version' LIMIT 1`)
	_ = row.Scan(&version) // Ignore scan error — row may not exist yet (version=0).

	if version >= schemaVersion {
		return nil
	}

	tables := []string{
		ddlInputs,
		ddlRuns,
		ddlRunInputs,
		ddlOutputs,
		ddlTokenUsage,
		ddlIndexes,
	}
	for _, ddl := range tables {
		if _, err := d.Exec(ddl); err != nil {
			return fmt.Errorf("store.Migrate: %w", err)
		}
	}

	_, err := d.Exec(`INSERT INTO settings (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, schemaVersion)
	if err != nil {
		return fmt.Errorf("store.Migrate: schema_version upsert: %w", err)
	}
	return nil
}

const schemaVersion = 1

// ── DDL Statements ───────────────────────────────────────────────────────────

const ddlSettings = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);`

const ddlInputs = `CREATE TABLE IF NOT EXISTS inputs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	type         TEXT    NOT NULL,
	source_path  TEXT    NOT NULL DEFAULT '',
	title        TEXT    NOT NULL DEFAULT '',
	content_hash TEXT    NOT NULL UNIQUE,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const ddlRuns = `CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp      DATETIME DEFAULT CURRENT_TIMESTAMP,
	task           TEXT    NOT NULL,
	model          TEXT    NOT NULL,
	thinking_level TEXT    NOT NULL DEFAULT '',
	stream         INTEGER NOT NULL DEFAULT 1,
	currency       TEXT    NOT NULL DEFAULT '$',
	status         TEXT    NOT NULL DEFAULT 'pending',
	error_message  TEXT    NOT NULL DEFAULT ''
);`

const ddlRunInputs = `CREATE TABLE IF NOT EXISTS run_inputs (
	run_id   INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	input_id INTEGER NOT NULL REFERENCES inputs(id) ON DELETE CASCADE,
	PRIMARY KEY (run_id, input_id)
);`

const ddlOutputs = `CREATE TABLE IF NOT EXISTS outputs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	output_type  TEXT    NOT NULL,
	content_type TEXT    NOT NULL DEFAULT 'text',
	content      TEXT    NOT NULL DEFAULT ''
);`

const ddlTokenUsage = `CREATE TABLE IF NOT EXISTS token_usage (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost_input    REAL    NOT NULL DEFAULT 0,
	cost_output   REAL    NOT NULL DEFAULT 0,
	process_time  REAL    NOT NULL DEFAULT 0
);`

const ddlIndexes = `
CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
CREATE INDEX IF NOT EXISTS idx_runs_model     ON runs(model);
CREATE INDEX IF NOT EXISTS idx_runs_task      ON runs(task);
CREATE INDEX IF NOT EXISTS idx_inputs_hash    ON inputs(content_hash);
CREATE INDEX IF NOT EXISTS idx_outputs_run    ON outputs(run_id);`
