package sqlite

import (
	"context"
	"fmt"

	"github.com/example/mediation-portal/internal/persistence"
)

// MessagingRepository implements persistence.MessageRepository and
// persistence.SummonRepository using SQLite.
type MessagingRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMessagingRepository creates a new SQLite messaging repository.
func NewMessagingRepository(pool *ConnectionPool) *MessagingRepository {
	return &MessagingRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateMessage appends a broadcast to the message log.
func (r *MessagingRepository) CreateMessage(ctx context.Context, message persistence.Message) error {
	if message.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO messages (id, session_id, author, body, recipients, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.Author,
		message.Body,
		encodeList(message.Recipients),
		formatTime(message.SentAt),
	)
	return r.mapper.MapError(err)
}

// ListMessages returns a session's broadcasts, newest first.
func (r *MessagingRepository) ListMessages(ctx context.Context, sessionID string) ([]persistence.Message, error) {
	query := `SELECT id, session_id, author, body, recipients, sent_at
		FROM messages WHERE session_id = ? ORDER BY sent_at DESC, id`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var messages []persistence.Message
	for rows.Next() {
		var (
			message    persistence.Message
			recipients string
			sentAt     string
		)
		err := rows.Scan(&message.ID, &message.SessionID, &message.Author, &message.Body, &recipients, &sentAt)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		message.Recipients = decodeList(recipients)
		if message.SentAt, err = parseTime(sentAt); err != nil {
			return nil, fmt.Errorf("invalid sent_at: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// CreateSummon inserts a new summon.
func (r *MessagingRepository) CreateSummon(ctx context.Context, summon persistence.Summon) error {
	if summon.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO summons (id, session_id, side, requested_by, note, status, raised_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		summon.ID,
		summon.SessionID,
		summon.Side,
		summon.RequestedBy,
		summon.Note,
		summon.Status,
		formatTime(summon.RaisedAt),
		formatTime(summon.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateSummon updates a summon's status.
func (r *MessagingRepository) UpdateSummon(ctx context.Context, summon persistence.Summon) error {
	query := `UPDATE summons SET status = ?, updated_at = ? WHERE session_id = ? AND id = ?`
	result, err := r.helper.Exec(ctx, query,
		summon.Status,
		formatTime(summon.UpdatedAt),
		summon.SessionID,
		summon.ID,
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

// GetSummon retrieves a summon by session and ID.
func (r *MessagingRepository) GetSummon(ctx context.Context, sessionID, summonID string) (persistence.Summon, error) {
	query := `SELECT id, session_id, side, requested_by, note, status, raised_at, updated_at
		FROM summons WHERE session_id = ? AND id = ?`
	row := r.helper.QueryRow(ctx, query, sessionID, summonID)
	summon, err := scanSummon(row)
	if err != nil {
		return persistence.Summon{}, r.mapper.MapError(err)
	}
	return summon, nil
}

// ListSummons returns a session's summons, newest first.
func (r *MessagingRepository) ListSummons(ctx context.Context, sessionID string) ([]persistence.Summon, error) {
	query := `SELECT id, session_id, side, requested_by, note, status, raised_at, updated_at
		FROM summons WHERE session_id = ? ORDER BY raised_at DESC, id`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var summons []persistence.Summon
	for rows.Next() {
		summon, err := scanSummon(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		summons = append(summons, summon)
	}
	return summons, rows.Err()
}

func scanSummon(row rowScanner) (persistence.Summon, error) {
	var (
		summon              persistence.Summon
		raisedAt, updatedAt string
	)

	err := row.Scan(&summon.ID, &summon.SessionID, &summon.Side, &summon.RequestedBy, &summon.Note, &summon.Status, &raisedAt, &updatedAt)
	if err != nil {
		return persistence.Summon{}, err
	}

	if summon.RaisedAt, err = parseTime(raisedAt); err != nil {
		return persistence.Summon{}, fmt.Errorf("invalid raised_at: %w", err)
	}
	if summon.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Summon{}, fmt.Errorf("invalid updated_at: %w", err)
	}
	return summon, nil
}
