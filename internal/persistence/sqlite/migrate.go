package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; the position in the slice plus one is the
// schema version recorded in user_version. Never reorder or edit an entry
// once released; append a new one instead.
var migrations = []string{
	`CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		scheduled_for TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		status TEXT NOT NULL,
		join_link TEXT NOT NULL DEFAULT '',
		access_policy TEXT NOT NULL,
		verification_method TEXT NOT NULL,
		cache_minutes INTEGER NOT NULL,
		mediator TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		sides TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE waiting_entries (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		name TEXT NOT NULL,
		side TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		enqueued_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		admitted_at TEXT
	)`,
	`CREATE INDEX idx_waiting_entries_session ON waiting_entries(session_id, status)`,
	`CREATE TABLE join_attempts (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		name TEXT NOT NULL,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, name)
	)`,
	`CREATE TABLE rejoin_tokens (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		issued_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		join_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX idx_rejoin_tokens_name ON rejoin_tokens(session_id, name)`,
	`CREATE TABLE meeting_admins (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		designation TEXT NOT NULL DEFAULT '',
		permissions TEXT NOT NULL DEFAULT '',
		added_by TEXT NOT NULL DEFAULT '',
		granted_at TEXT NOT NULL,
		PRIMARY KEY (session_id, email)
	)`,
	`CREATE TABLE participants (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		name TEXT NOT NULL,
		designation TEXT NOT NULL DEFAULT '',
		side TEXT NOT NULL DEFAULT '',
		authenticated INTEGER NOT NULL DEFAULT 0,
		joined_at TEXT NOT NULL,
		PRIMARY KEY (session_id, name)
	)`,
	`CREATE TABLE breakout_rooms (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		name TEXT NOT NULL COLLATE NOCASE,
		participants TEXT NOT NULL DEFAULT '',
		baseline INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE (session_id, name)
	)`,
	`CREATE TABLE messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		author TEXT NOT NULL,
		body TEXT NOT NULL,
		recipients TEXT NOT NULL DEFAULT '',
		sent_at TEXT NOT NULL
	)`,
	`CREATE TABLE summons (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		side TEXT NOT NULL,
		requested_by TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		raised_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE invites (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		side TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		code_hash TEXT NOT NULL DEFAULT '',
		requested_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_invites_session_name ON invites(session_id, name)`,
}

// Migrate brings the schema up to the current version. Each pending
// statement runs in its own transaction and bumps user_version on success.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	var version int
	if err := pool.DB().QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build supports (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		statement := migrations[i]
		next := i + 1
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("migration %d failed: %w", next, err)
			}
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", next)); err != nil {
				return fmt.Errorf("failed to record schema version %d: %w", next, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
