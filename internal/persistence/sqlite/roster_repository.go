package sqlite

import (
	"context"
	"fmt"

	"github.com/example/mediation-portal/internal/persistence"
)

// RosterRepository implements persistence.AdminRepository and
// persistence.ParticipantRepository using SQLite.
type RosterRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRosterRepository creates a new SQLite roster repository.
func NewRosterRepository(pool *ConnectionPool) *RosterRepository {
	return &RosterRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAdmin inserts a delegated authority holder.
func (r *RosterRepository) CreateAdmin(ctx context.Context, admin persistence.MeetingAdmin) error {
	if admin.SessionID == "" || admin.Email == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO meeting_admins (session_id, name, email, designation, permissions, added_by, granted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		admin.SessionID,
		admin.Name,
		admin.Email,
		admin.Designation,
		encodeList(admin.Permissions),
		admin.AddedBy,
		formatTime(admin.GrantedAt),
	)
	return r.mapper.MapError(err)
}

// ListAdmins returns the session's authority holders in grant order.
func (r *RosterRepository) ListAdmins(ctx context.Context, sessionID string) ([]persistence.MeetingAdmin, error) {
	query := `SELECT session_id, name, email, designation, permissions, added_by, granted_at
		FROM meeting_admins WHERE session_id = ? ORDER BY granted_at, email`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var admins []persistence.MeetingAdmin
	for rows.Next() {
		var (
			admin       persistence.MeetingAdmin
			permissions string
			grantedAt   string
		)
		err := rows.Scan(&admin.SessionID, &admin.Name, &admin.Email, &admin.Designation, &permissions, &admin.AddedBy, &grantedAt)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		admin.Permissions = decodeList(permissions)
		if admin.GrantedAt, err = parseTime(grantedAt); err != nil {
			return nil, fmt.Errorf("invalid granted_at: %w", err)
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

// UpsertParticipant inserts or refreshes a roster member. Re-admission
// keeps the original row, updating side, designation, and auth state.
func (r *RosterRepository) UpsertParticipant(ctx context.Context, participant persistence.Participant) error {
	if participant.SessionID == "" || participant.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO participants (session_id, name, designation, side, authenticated, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, name) DO UPDATE SET
			designation = excluded.designation,
			side = excluded.side,
			authenticated = excluded.authenticated`
	_, err := r.helper.Exec(ctx, query,
		participant.SessionID,
		participant.Name,
		participant.Designation,
		participant.Side,
		participant.Authenticated,
		formatTime(participant.JoinedAt),
	)
	return r.mapper.MapError(err)
}

// ListParticipants returns the session roster in join order.
func (r *RosterRepository) ListParticipants(ctx context.Context, sessionID string) ([]persistence.Participant, error) {
	query := `SELECT session_id, name, designation, side, authenticated, joined_at
		FROM participants WHERE session_id = ? ORDER BY joined_at, name`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var roster []persistence.Participant
	for rows.Next() {
		var (
			participant persistence.Participant
			joinedAt    string
		)
		err := rows.Scan(&participant.SessionID, &participant.Name, &participant.Designation, &participant.Side, &participant.Authenticated, &joinedAt)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		if participant.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, fmt.Errorf("invalid joined_at: %w", err)
		}
		roster = append(roster, participant)
	}
	return roster, rows.Err()
}
