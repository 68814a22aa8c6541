package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// AdminRepository captures the persistence interactions for delegated
// meeting admins.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin MeetingAdmin) (MeetingAdmin, error)
	ListAdmins(ctx context.Context, sessionID string) ([]MeetingAdmin, error)
}

// AuthorityService tracks host authority: the primary mediator implicit on
// every session, plus any delegated meeting admins.
type AuthorityService struct {
	sessions SessionRepository
	admins   AdminRepository
	locks    *LockTable
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthorityService wires dependencies for authority and delegation.
func NewAuthorityService(sessions SessionRepository, admins AdminRepository, locks *LockTable, now func() time.Time, logger *slog.Logger) *AuthorityService {
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = NewLockTable()
	}
	return &AuthorityService{
		sessions: sessions,
		admins:   admins,
		locks:    locks,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *AuthorityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthorityService", operation, attrs...)
}

// GrantAdmin delegates the full host permission bundle to a co-mediator.
// Delegation is only allowed while the session is editable; partial grants
// are not a supported configuration.
func (s *AuthorityService) GrantAdmin(ctx context.Context, params GrantAdminParams) (admin MeetingAdmin, err error) {
	if s == nil {
		err = fmt.Errorf("AuthorityService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.admins == nil {
		err = fmt.Errorf("admin repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "GrantAdmin",
		"session_id", params.SessionID,
		"actor", params.Actor.Name,
		"grantee", strings.TrimSpace(params.Input.Name),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "admin grant failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting admin granted")
	}()

	lock := s.locks.ForSession(params.SessionID)
	lock.Lock()
	defer lock.Unlock()

	var session Session
	session, err = s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return
	}

	if !s.IsAuthority(ctx, session, params.Actor) {
		err = ErrAuthorityRequired
		return
	}

	if !session.Editable() {
		err = ErrSessionLocked
		return
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(params.Input.Email) == "" {
		vErr.add("email", "email is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	admin = MeetingAdmin{
		SessionID:   params.SessionID,
		Name:        strings.TrimSpace(params.Input.Name),
		Email:       strings.TrimSpace(params.Input.Email),
		Designation: strings.TrimSpace(params.Input.Designation),
		Permissions: FullPermissionBundle(),
		AddedBy:     params.Actor.Name,
		GrantedAt:   s.now(),
	}

	admin, err = s.admins.CreateAdmin(ctx, admin)
	return
}

// CheckAuthority reports whether the actor may perform operations guarded by
// the given permission. It never fails; repository problems are logged and
// treated as no authority, so callers branch on the boolean alone.
func (s *AuthorityService) CheckAuthority(ctx context.Context, session Session, actor Actor, permission Permission) bool {
	if s == nil {
		return false
	}
	if actorIsMediator(session, actor) {
		return true
	}
	if s.admins == nil {
		return false
	}

	admins, err := s.admins.ListAdmins(ctx, session.ID)
	if err != nil {
		s.loggerWith(ctx, "CheckAuthority", "session_id", session.ID, "actor", actor.Name).
			ErrorContext(ctx, "admin lookup failed", "error", err, "error_kind", ErrorKind(err))
		return false
	}

	for _, admin := range admins {
		if !strings.EqualFold(admin.Name, actor.Name) {
			continue
		}
		for _, held := range admin.Permissions {
			if held == permission {
				return true
			}
		}
	}
	return false
}

// IsAuthority reports whether the actor holds any host authority for the
// session: the primary mediator or any delegated admin.
func (s *AuthorityService) IsAuthority(ctx context.Context, session Session, actor Actor) bool {
	if s == nil {
		return false
	}
	if actorIsMediator(session, actor) {
		return true
	}
	if s.admins == nil {
		return false
	}

	admins, err := s.admins.ListAdmins(ctx, session.ID)
	if err != nil {
		s.loggerWith(ctx, "IsAuthority", "session_id", session.ID, "actor", actor.Name).
			ErrorContext(ctx, "admin lookup failed", "error", err, "error_kind", ErrorKind(err))
		return false
	}

	for _, admin := range admins {
		if strings.EqualFold(admin.Name, actor.Name) {
			return true
		}
	}
	return false
}

// ListAuthorityHolders returns the session's authority roster: the primary
// mediator first, then delegated admins ordered by grant time.
func (s *AuthorityService) ListAuthorityHolders(ctx context.Context, sessionID string) ([]MeetingAdmin, error) {
	if s == nil {
		return nil, fmt.Errorf("AuthorityService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	holders := []MeetingAdmin{{
		SessionID:   session.ID,
		Name:        session.Mediator,
		Designation: "Mediator host",
		Permissions: FullPermissionBundle(),
		AddedBy:     "Case intake",
		GrantedAt:   session.CreatedAt,
	}}

	if s.admins == nil {
		return holders, nil
	}

	admins, err := s.admins.ListAdmins(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ordered := make([]MeetingAdmin, len(admins))
	copy(ordered, admins)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].GrantedAt.Before(ordered[j].GrantedAt)
	})

	return append(holders, ordered...), nil
}

func actorIsMediator(session Session, actor Actor) bool {
	name := strings.TrimSpace(actor.Name)
	return name != "" && strings.EqualFold(session.Mediator, name)
}
