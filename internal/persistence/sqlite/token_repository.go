package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/mediation-portal/internal/persistence"
)

// TokenRepository implements persistence.TokenRepository using SQLite.
type TokenRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTokenRepository creates a new SQLite rejoin-token repository.
func NewTokenRepository(pool *ConnectionPool) *TokenRepository {
	return &TokenRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateToken inserts an issued rejoin token.
func (r *TokenRepository) CreateToken(ctx context.Context, token persistence.RejoinToken) error {
	if token.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO rejoin_tokens (id, session_id, name, role, issued_at, expires_at, join_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		token.ID,
		token.SessionID,
		token.Name,
		token.Role,
		formatTime(token.IssuedAt),
		formatTime(token.ExpiresAt),
		token.JoinURL,
	)
	return r.mapper.MapError(err)
}

// ListTokensForName returns every token issued to a guest name within a
// session, newest first.
func (r *TokenRepository) ListTokensForName(ctx context.Context, sessionID, name string) ([]persistence.RejoinToken, error) {
	query := `SELECT id, session_id, name, role, issued_at, expires_at, join_url
		FROM rejoin_tokens WHERE session_id = ? AND name = ? ORDER BY issued_at DESC`
	rows, err := r.helper.Query(ctx, query, sessionID, name)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var tokens []persistence.RejoinToken
	for rows.Next() {
		var (
			token               persistence.RejoinToken
			issuedAt, expiresAt string
		)
		err := rows.Scan(&token.ID, &token.SessionID, &token.Name, &token.Role, &issuedAt, &expiresAt, &token.JoinURL)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		if token.IssuedAt, err = parseTime(issuedAt); err != nil {
			return nil, fmt.Errorf("invalid issued_at: %w", err)
		}
		if token.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, fmt.Errorf("invalid expires_at: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// DeleteExpiredTokens removes tokens whose expiry has passed.
func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context, reference time.Time) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM rejoin_tokens WHERE expires_at <= ?`, formatTime(reference))
	return r.mapper.MapError(err)
}
