package sqlite

import (
	"context"
	"fmt"

	"github.com/example/mediation-portal/internal/persistence"
)

// BreakoutRepository implements persistence.BreakoutRepository using SQLite.
// The schema compares room names case-insensitively, so the duplicate rule
// is enforced at the storage layer too.
type BreakoutRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBreakoutRepository creates a new SQLite breakout-room repository.
func NewBreakoutRepository(pool *ConnectionPool) *BreakoutRepository {
	return &BreakoutRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a caucus room.
func (r *BreakoutRepository) CreateRoom(ctx context.Context, room persistence.BreakoutRoom) error {
	if room.ID == "" || room.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO breakout_rooms (id, session_id, name, participants, baseline, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		room.ID,
		room.SessionID,
		room.Name,
		encodeList(room.Participants),
		room.Baseline,
		formatTime(room.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateRoom updates a room's membership.
func (r *BreakoutRepository) UpdateRoom(ctx context.Context, room persistence.BreakoutRoom) error {
	query := `UPDATE breakout_rooms SET name = ?, participants = ? WHERE session_id = ? AND id = ?`
	result, err := r.helper.Exec(ctx, query,
		room.Name,
		encodeList(room.Participants),
		room.SessionID,
		room.ID,
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

// GetRoom retrieves a room by session and ID.
func (r *BreakoutRepository) GetRoom(ctx context.Context, sessionID, roomID string) (persistence.BreakoutRoom, error) {
	query := `SELECT id, session_id, name, participants, baseline, created_at
		FROM breakout_rooms WHERE session_id = ? AND id = ?`
	row := r.helper.QueryRow(ctx, query, sessionID, roomID)
	room, err := scanBreakoutRoom(row)
	if err != nil {
		return persistence.BreakoutRoom{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns a session's rooms in creation order.
func (r *BreakoutRepository) ListRooms(ctx context.Context, sessionID string) ([]persistence.BreakoutRoom, error) {
	query := `SELECT id, session_id, name, participants, baseline, created_at
		FROM breakout_rooms WHERE session_id = ? ORDER BY created_at, id`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.BreakoutRoom
	for rows.Next() {
		room, err := scanBreakoutRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func scanBreakoutRoom(row rowScanner) (persistence.BreakoutRoom, error) {
	var (
		room         persistence.BreakoutRoom
		participants string
		createdAt    string
	)

	err := row.Scan(&room.ID, &room.SessionID, &room.Name, &participants, &room.Baseline, &createdAt)
	if err != nil {
		return persistence.BreakoutRoom{}, err
	}

	room.Participants = decodeList(participants)
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.BreakoutRoom{}, fmt.Errorf("invalid created_at: %w", err)
	}
	return room, nil
}
