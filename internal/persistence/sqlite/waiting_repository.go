package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/mediation-portal/internal/persistence"
)

// WaitingRepository implements persistence.WaitingRepository and
// persistence.AttemptRepository using SQLite.
type WaitingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewWaitingRepository creates a new SQLite waiting-room repository.
func NewWaitingRepository(pool *ConnectionPool) *WaitingRepository {
	return &WaitingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const waitingColumns = `id, session_id, name, side, role, status, enqueued_at, expires_at, admitted_at`

// CreateEntry inserts a new waiting-room entry.
func (r *WaitingRepository) CreateEntry(ctx context.Context, entry persistence.WaitingEntry) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := fmt.Sprintf(`INSERT INTO waiting_entries (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, waitingColumns)
	_, err := r.helper.Exec(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.Name,
		entry.Side,
		entry.Role,
		entry.Status,
		formatTime(entry.EnqueuedAt),
		formatTime(entry.ExpiresAt),
		formatNullableTime(entry.AdmittedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateEntry updates an existing waiting-room entry.
func (r *WaitingRepository) UpdateEntry(ctx context.Context, entry persistence.WaitingEntry) error {
	query := `UPDATE waiting_entries
		SET name = ?, side = ?, role = ?, status = ?, enqueued_at = ?, expires_at = ?, admitted_at = ?
		WHERE session_id = ? AND id = ?`

	result, err := r.helper.Exec(ctx, query,
		entry.Name,
		entry.Side,
		entry.Role,
		entry.Status,
		formatTime(entry.EnqueuedAt),
		formatTime(entry.ExpiresAt),
		formatNullableTime(entry.AdmittedAt),
		entry.SessionID,
		entry.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetEntry retrieves a waiting-room entry by session and ID.
func (r *WaitingRepository) GetEntry(ctx context.Context, sessionID, entryID string) (persistence.WaitingEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waiting_entries WHERE session_id = ? AND id = ?`, waitingColumns)
	row := r.helper.QueryRow(ctx, query, sessionID, entryID)
	entry, err := scanWaitingEntry(row)
	if err != nil {
		return persistence.WaitingEntry{}, r.mapper.MapError(err)
	}
	return entry, nil
}

// ListEntries returns all entries for a session in enqueue order.
func (r *WaitingRepository) ListEntries(ctx context.Context, sessionID string) ([]persistence.WaitingEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waiting_entries WHERE session_id = ? ORDER BY enqueued_at, id`, waitingColumns)
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.WaitingEntry
	for rows.Next() {
		entry, err := scanWaitingEntry(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteExpiredEntries removes expired entries that are still waiting.
// Admitted rows are never removed here; they remain as join history.
func (r *WaitingRepository) DeleteExpiredEntries(ctx context.Context, reference time.Time) (int, error) {
	query := `DELETE FROM waiting_entries WHERE status = 'waiting' AND expires_at <= ?`
	result, err := r.helper.Exec(ctx, query, formatTime(reference))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// IncrementAttempts bumps the join attempt counter for a guest name and
// returns the new count. The upsert keeps the read and write atomic.
func (r *WaitingRepository) IncrementAttempts(ctx context.Context, sessionID, name string) (int, error) {
	var count int
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO join_attempts (session_id, name, attempt_count)
			VALUES (?, ?, 1)
			ON CONFLICT (session_id, name) DO UPDATE SET attempt_count = attempt_count + 1`,
			sessionID, name)
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT attempt_count FROM join_attempts WHERE session_id = ? AND name = ?`,
			sessionID, name).Scan(&count)
	})
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// GetAttempts returns the join attempt counter for a guest name. Unknown
// names have zero attempts.
func (r *WaitingRepository) GetAttempts(ctx context.Context, sessionID, name string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		`SELECT attempt_count FROM join_attempts WHERE session_id = ? AND name = ?`,
		sessionID, name).Scan(&count)
	if err != nil {
		if r.mapper.MapError(err) == persistence.ErrNotFound {
			return 0, nil
		}
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

func scanWaitingEntry(row rowScanner) (persistence.WaitingEntry, error) {
	var (
		entry                 persistence.WaitingEntry
		enqueuedAt, expiresAt string
		admittedAt            sql.NullString
	)

	err := row.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.Name,
		&entry.Side,
		&entry.Role,
		&entry.Status,
		&enqueuedAt,
		&expiresAt,
		&admittedAt,
	)
	if err != nil {
		return persistence.WaitingEntry{}, err
	}

	if entry.EnqueuedAt, err = parseTime(enqueuedAt); err != nil {
		return persistence.WaitingEntry{}, fmt.Errorf("invalid enqueued_at: %w", err)
	}
	if entry.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.WaitingEntry{}, fmt.Errorf("invalid expires_at: %w", err)
	}
	if entry.AdmittedAt, err = parseNullableTime(admittedAt); err != nil {
		return persistence.WaitingEntry{}, fmt.Errorf("invalid admitted_at: %w", err)
	}
	return entry, nil
}
