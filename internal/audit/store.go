// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package audit persists every stage of the detect-and-inject pipeline to
// a local SQLite database: one access_log row per HTTP event, and zero or
// more ai_analysis rows if the classifier was invoked.
package audit

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store handles persistence of access_log and ai_analysis rows.
type Store struct {
	db *sql.DB
}

// Open opens or creates the audit database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// QueryRow exposes the underlying database handle for read-only queries
// from callers that need to inspect persisted rows directly, such as
// tests in other packages.
func (s *Store) QueryRow(query string, args ...any) *sql.Row {
	return s.db.QueryRow(query, args...)
}

// DB returns the underlying database handle so other packages backed by
// the same file (the policy loader, in particular) can read from it
// without opening a second connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policy (
		policy_id INTEGER PRIMARY KEY AUTOINCREMENT,
		policy_name TEXT NOT NULL,
		policy_type TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		is_enabled INTEGER NOT NULL DEFAULT 1,
		risk_level TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		block_status_code INTEGER NOT NULL DEFAULT 403,
		redirect_url TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS policy_rule (
		rule_id INTEGER PRIMARY KEY AUTOINCREMENT,
		policy_id INTEGER NOT NULL,
		rule_type TEXT NOT NULL DEFAULT 'HOST',
		match_type TEXT NOT NULL DEFAULT 'EXACT',
		pattern TEXT NOT NULL,
		is_case_sensitive INTEGER NOT NULL DEFAULT 0,
		is_negated INTEGER NOT NULL DEFAULT 0,
		rule_order INTEGER NOT NULL DEFAULT 0,
		is_enabled INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_policy_rule_policy_id ON policy_rule(policy_id);

	CREATE TABLE IF NOT EXISTS access_log (
		log_id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		detect_timestamp DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
		client_ip TEXT NOT NULL,
		host TEXT NOT NULL,
		path TEXT NOT NULL,
		decision TEXT NOT NULL,
		reason TEXT NOT NULL,
		decision_stage TEXT NOT NULL,
		policy_id INTEGER,
		inject_attempted INTEGER,
		inject_send INTEGER,
		inject_errno INTEGER,
		inject_latency_ms INTEGER,
		inject_status_code INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_access_log_request_id ON access_log(request_id);
	CREATE INDEX IF NOT EXISTS idx_access_log_host ON access_log(host);

	CREATE TABLE IF NOT EXISTS ai_analysis (
		analysis_id INTEGER PRIMARY KEY AUTOINCREMENT,
		log_id INTEGER NOT NULL,
		analyzed_at DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
		score REAL NOT NULL,
		label TEXT,
		ai_response INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		model_version TEXT NOT NULL,
		error_code TEXT,
		analysis_seq INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ai_analysis_log_id ON ai_analysis(log_id);
	`
	_, err := s.db.Exec(schema)
	return err
}
