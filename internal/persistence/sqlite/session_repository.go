package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/mediation-portal/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = `id, title, scheduled_for, duration_minutes, status, join_link,
	access_policy, verification_method, cache_minutes, mediator,
	started_at, completed_at, sides, created_at, updated_at`

// CreateSession inserts a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := fmt.Sprintf(`INSERT INTO sessions (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, sessionColumns)
	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.Title,
		formatTime(session.ScheduledFor),
		session.DurationMinutes,
		session.Status,
		session.JoinLink,
		session.AccessPolicy,
		session.VerificationMethod,
		session.CacheMinutes,
		session.Mediator,
		formatNullableTime(session.StartedAt),
		formatNullableTime(session.CompletedAt),
		encodeList(session.Sides),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateSession updates an existing session.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) error {
	query := `UPDATE sessions
		SET title = ?, scheduled_for = ?, duration_minutes = ?, status = ?, join_link = ?,
			access_policy = ?, verification_method = ?, cache_minutes = ?, mediator = ?,
			started_at = ?, completed_at = ?, sides = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.helper.Exec(ctx, query,
		session.Title,
		formatTime(session.ScheduledFor),
		session.DurationMinutes,
		session.Status,
		session.JoinLink,
		session.AccessPolicy,
		session.VerificationMethod,
		session.CacheMinutes,
		session.Mediator,
		formatNullableTime(session.StartedAt),
		formatNullableTime(session.CompletedAt),
		encodeList(session.Sides),
		formatTime(session.UpdatedAt),
		session.ID,
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

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = ?`, sessionColumns)
	row := r.helper.QueryRow(ctx, query, id)
	session, err := scanSession(row)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// ListSessions returns all sessions ordered by scheduled time.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]persistence.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions ORDER BY scheduled_for, id`, sessionColumns)
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                persistence.Session
		scheduledFor           string
		startedAt, completedAt sql.NullString
		sides                  string
		createdAt, updatedAt   string
	)

	err := row.Scan(
		&session.ID,
		&session.Title,
		&scheduledFor,
		&session.DurationMinutes,
		&session.Status,
		&session.JoinLink,
		&session.AccessPolicy,
		&session.VerificationMethod,
		&session.CacheMinutes,
		&session.Mediator,
		&startedAt,
		&completedAt,
		&sides,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Session{}, err
	}

	if session.ScheduledFor, err = parseTime(scheduledFor); err != nil {
		return persistence.Session{}, fmt.Errorf("invalid scheduled_for: %w", err)
	}
	if session.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("invalid started_at: %w", err)
	}
	if session.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("invalid completed_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("invalid created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("invalid updated_at: %w", err)
	}
	session.Sides = decodeList(sides)
	return session, nil
}
