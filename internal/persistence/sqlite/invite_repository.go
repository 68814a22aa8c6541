package sqlite

import (
	"context"
	"fmt"

	"github.com/example/mediation-portal/internal/persistence"
)

// InviteRepository implements persistence.InviteRepository using SQLite.
type InviteRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewInviteRepository creates a new SQLite invite repository.
func NewInviteRepository(pool *ConnectionPool) *InviteRepository {
	return &InviteRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const inviteColumns = `id, session_id, email, name, side, role, status, code_hash, requested_at`

// CreateInvite inserts a queued invitation.
func (r *InviteRepository) CreateInvite(ctx context.Context, invite persistence.Invite) error {
	if invite.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := fmt.Sprintf(`INSERT INTO invites (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, inviteColumns)
	_, err := r.helper.Exec(ctx, query,
		invite.ID,
		invite.SessionID,
		invite.Email,
		invite.Name,
		invite.Side,
		invite.Role,
		invite.Status,
		invite.CodeHash,
		formatTime(invite.RequestedAt),
	)
	return r.mapper.MapError(err)
}

// GetInviteByName returns the newest invitation for a guest name.
func (r *InviteRepository) GetInviteByName(ctx context.Context, sessionID, name string) (persistence.Invite, error) {
	query := fmt.Sprintf(`SELECT %s FROM invites WHERE session_id = ? AND name = ?
		ORDER BY requested_at DESC, id LIMIT 1`, inviteColumns)
	row := r.helper.QueryRow(ctx, query, sessionID, name)
	invite, err := scanInvite(row)
	if err != nil {
		return persistence.Invite{}, r.mapper.MapError(err)
	}
	return invite, nil
}

// ListInvites returns a session's invitations in request order.
func (r *InviteRepository) ListInvites(ctx context.Context, sessionID string) ([]persistence.Invite, error) {
	query := fmt.Sprintf(`SELECT %s FROM invites WHERE session_id = ? ORDER BY requested_at, id`, inviteColumns)
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var invites []persistence.Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func scanInvite(row rowScanner) (persistence.Invite, error) {
	var (
		invite      persistence.Invite
		requestedAt string
	)

	err := row.Scan(&invite.ID, &invite.SessionID, &invite.Email, &invite.Name, &invite.Side, &invite.Role, &invite.Status, &invite.CodeHash, &requestedAt)
	if err != nil {
		return persistence.Invite{}, err
	}

	if invite.RequestedAt, err = parseTime(requestedAt); err != nil {
		return persistence.Invite{}, fmt.Errorf("invalid requested_at: %w", err)
	}
	return invite, nil
}
