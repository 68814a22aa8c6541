package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenRepository captures the persistence interactions for rejoin tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token RejoinToken) (RejoinToken, error)
	ListTokensForName(ctx context.Context, sessionID, name string) ([]RejoinToken, error)
	DeleteExpiredTokens(ctx context.Context, reference time.Time) error
}

// TokenIssuer mints rejoin tokens and resolves presented ones. Reissuing for
// the same name leaves prior tokens valid; the gate accepts any non-expired
// token for that name.
type TokenIssuer struct {
	tokens   TokenRepository
	cache    *rejoinCache
	joinBase string
	tokenTTL time.Duration
	tokenID  func() string
	now      func() time.Time
	logger   *slog.Logger
}

// NewTokenIssuer wires dependencies for token issuance. When tokenID is nil,
// random UUIDs are used.
func NewTokenIssuer(tokens TokenRepository, joinBase string, tokenTTL time.Duration, tokenID func() string, now func() time.Time, logger *slog.Logger) *TokenIssuer {
	if tokenID == nil {
		tokenID = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &TokenIssuer{
		tokens:   tokens,
		cache:    newRejoinCache(0, tokenTTL),
		joinBase: strings.TrimRight(joinBase, "/"),
		tokenTTL: tokenTTL,
		tokenID:  tokenID,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (i *TokenIssuer) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, i.logger, "TokenIssuer", operation, attrs...)
}

// Issue mints a rejoin token for a guest admitted to the session. The token
// expires after the session's rejoin-cache window or the hard token lifetime,
// whichever comes first.
func (i *TokenIssuer) Issue(ctx context.Context, session Session, name, role string) (token RejoinToken, err error) {
	if i == nil {
		err = fmt.Errorf("TokenIssuer is nil")
		return
	}

	name = strings.TrimSpace(name)
	if name == "" {
		err = errors.New("token recipient name is required")
		return
	}

	logger := i.loggerWith(ctx, "Issue", "session_id", session.ID, "name", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "token issuance failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("token_id", token.ID).InfoContext(ctx, "rejoin token issued")
	}()

	now := i.now()
	ttl := i.tokenTTL
	if session.CacheMinutes > 0 {
		if cacheTTL := time.Duration(session.CacheMinutes) * time.Minute; cacheTTL < ttl {
			ttl = cacheTTL
		}
	}

	id := i.tokenID()
	token = RejoinToken{
		ID:        id,
		SessionID: session.ID,
		Name:      name,
		Role:      strings.TrimSpace(role),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		JoinURL:   fmt.Sprintf("%s/%s?token=%s", i.joinBase, session.ID, id),
	}

	if i.tokens != nil {
		var persisted RejoinToken
		persisted, err = i.tokens.CreateToken(ctx, token)
		if err != nil {
			return
		}
		token = persisted
	}

	i.cache.Store(token)
	return
}

// Resolve returns the rejoin token matching a presented identifier for the
// named guest, if one exists and has not expired. It consults the in-memory
// cache before falling back to the repository.
func (i *TokenIssuer) Resolve(ctx context.Context, sessionID, name, presented string) (RejoinToken, bool, error) {
	if i == nil {
		return RejoinToken{}, false, fmt.Errorf("TokenIssuer is nil")
	}

	presented = strings.TrimSpace(presented)
	name = strings.TrimSpace(name)
	if presented == "" || name == "" {
		return RejoinToken{}, false, nil
	}

	now := i.now()
	if cached, ok := i.cache.Get(sessionID, presented); ok {
		if cached.Name == name && cached.Valid(now) {
			return cached, true, nil
		}
		if !cached.Valid(now) {
			i.cache.Remove(sessionID, presented)
		}
	}

	if i.tokens == nil {
		return RejoinToken{}, false, nil
	}

	issued, err := i.tokens.ListTokensForName(ctx, sessionID, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RejoinToken{}, false, nil
		}
		return RejoinToken{}, false, err
	}

	for _, candidate := range issued {
		if candidate.ID != presented {
			continue
		}
		if !candidate.Valid(now) {
			return RejoinToken{}, false, ErrTokenExpired
		}
		i.cache.Store(candidate)
		return candidate, true, nil
	}

	return RejoinToken{}, false, nil
}

// LatestForName returns the most recently issued still-valid token for the
// named guest, if any.
func (i *TokenIssuer) LatestForName(ctx context.Context, sessionID, name string) (RejoinToken, bool, error) {
	if i == nil || i.tokens == nil {
		return RejoinToken{}, false, nil
	}

	issued, err := i.tokens.ListTokensForName(ctx, sessionID, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RejoinToken{}, false, nil
		}
		return RejoinToken{}, false, err
	}

	now := i.now()
	var latest RejoinToken
	found := false
	for _, candidate := range issued {
		if !candidate.Valid(now) {
			continue
		}
		if !found || candidate.IssuedAt.After(latest.IssuedAt) {
			latest = candidate
			found = true
		}
	}
	return latest, found, nil
}

// PruneExpired removes expired tokens from the repository. The in-memory
// cache evicts on its own TTL.
func (i *TokenIssuer) PruneExpired(ctx context.Context) error {
	if i == nil || i.tokens == nil {
		return nil
	}
	return i.tokens.DeleteExpiredTokens(ctx, i.now())
}
