package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// SessionRepository captures the persistence interactions needed by the
// session lifecycle service.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
}

// InviteRepository captures the persistence interactions for guest invites.
type InviteRepository interface {
	CreateInvite(ctx context.Context, invite Invite) (Invite, error)
	ListInvites(ctx context.Context, sessionID string) ([]Invite, error)
}

// BaselineProvisioner creates the fixed baseline breakout rooms for a new
// session (one per side plus a host room).
type BaselineProvisioner interface {
	EnsureBaseline(ctx context.Context, session Session) error
}

// DefaultSides are assigned when a session is scheduled without named sides.
var DefaultSides = []string{"Policyholder side", "Carrier side"}

const (
	defaultDurationMinutes = 60
	defaultCacheMinutes    = 60
)

// SessionService owns the session lifecycle: Scheduled, InProgress,
// Completed, and the editability lock on access settings.
type SessionService struct {
	sessions    SessionRepository
	invites     InviteRepository
	baseline    BaselineProvisioner
	magicLinks  *MagicLinkSigner
	locks       *LockTable
	joinBase    string
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService wires dependencies for session lifecycle operations.
// magicLinks may be nil, in which case invites for link-verified sessions
// carry no minted link.
func NewSessionService(sessions SessionRepository, invites InviteRepository, baseline BaselineProvisioner, magicLinks *MagicLinkSigner, locks *LockTable, joinBase string, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = NewLockTable()
	}
	return &SessionService{
		sessions:    sessions,
		invites:     invites,
		baseline:    baseline,
		magicLinks:  magicLinks,
		locks:       locks,
		joinBase:    strings.TrimRight(joinBase, "/"),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates the request and persists a Scheduled session with
// default access settings.
func (s *SessionService) CreateSession(ctx context.Context, input SessionInput) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession", "title", strings.TrimSpace(input.Title))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session scheduled")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if strings.TrimSpace(input.Mediator) == "" {
		vErr.add("mediator", "mediator is required")
	}
	if input.AccessPolicy != "" && input.AccessPolicy != PolicyVerified && input.AccessPolicy != PolicyOpen {
		vErr.add("access_policy", "access policy must be verified or open")
	}
	if input.VerificationMethod != "" && input.VerificationMethod != VerifyMagicLink && input.VerificationMethod != VerifyCode {
		vErr.add("verification_method", "verification method must be magic_link or code")
	}
	if input.DurationMinutes < 0 {
		vErr.add("duration_minutes", "duration must not be negative")
	}
	if input.CacheMinutes < 0 {
		vErr.add("cache_minutes", "rejoin cache window must not be negative")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	session = Session{
		ID:                 s.idGenerator(),
		Title:              strings.TrimSpace(input.Title),
		ScheduledFor:       input.ScheduledFor,
		DurationMinutes:    input.DurationMinutes,
		Status:             StatusScheduled,
		AccessPolicy:       input.AccessPolicy,
		VerificationMethod: input.VerificationMethod,
		CacheMinutes:       input.CacheMinutes,
		Mediator:           strings.TrimSpace(input.Mediator),
		Sides:              normalizeSides(input.Sides),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if session.ScheduledFor.IsZero() {
		session.ScheduledFor = now.Add(time.Hour)
	}
	if session.DurationMinutes == 0 {
		session.DurationMinutes = defaultDurationMinutes
	}
	if session.AccessPolicy == "" {
		session.AccessPolicy = PolicyVerified
	}
	if session.VerificationMethod == "" {
		session.VerificationMethod = VerifyMagicLink
	}
	if session.CacheMinutes == 0 {
		session.CacheMinutes = defaultCacheMinutes
	}
	if s.joinBase != "" {
		session.JoinLink = fmt.Sprintf("%s/%s", s.joinBase, session.ID)
	}

	if s.sessions == nil {
		return
	}

	var persisted Session
	persisted, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		return
	}
	session = persisted

	if s.baseline != nil {
		if err = s.baseline.EnsureBaseline(ctx, session); err != nil {
			return
		}
	}
	return
}

// UpdateSettings patches the session's access settings. Settings freeze for
// the session's lifetime once the first join sets StartedAt.
func (s *SessionService) UpdateSettings(ctx context.Context, sessionID string, patch SettingsPatch) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSettings", "session_id", sessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "settings update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session settings updated")
	}()

	lock := s.locks.ForSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return
	}

	if !session.Editable() {
		session = Session{}
		err = ErrSettingsLocked
		return
	}

	vErr := &ValidationError{}
	if patch.AccessPolicy != nil {
		if *patch.AccessPolicy != PolicyVerified && *patch.AccessPolicy != PolicyOpen {
			vErr.add("access_policy", "access policy must be verified or open")
		} else {
			session.AccessPolicy = *patch.AccessPolicy
		}
	}
	if patch.VerificationMethod != nil {
		if *patch.VerificationMethod != VerifyMagicLink && *patch.VerificationMethod != VerifyCode {
			vErr.add("verification_method", "verification method must be magic_link or code")
		} else {
			session.VerificationMethod = *patch.VerificationMethod
		}
	}
	if patch.CacheMinutes != nil {
		if *patch.CacheMinutes <= 0 {
			vErr.add("cache_minutes", "rejoin cache window must be positive")
		} else {
			session.CacheMinutes = *patch.CacheMinutes
		}
	}
	if vErr.HasErrors() {
		session = Session{}
		err = vErr
		return
	}

	session.UpdatedAt = s.now()
	session, err = s.sessions.UpdateSession(ctx, session)
	return
}

// Start moves the session to InProgress and records StartedAt. A second call
// is a no-op, not an error.
func (s *SessionService) Start(ctx context.Context, sessionID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	lock := s.locks.ForSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return s.startLocked(ctx, sessionID)
}

// StartLocked applies the start transition for callers that already hold the
// session lock, such as the admission path on first admit.
func (s *SessionService) StartLocked(ctx context.Context, sessionID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}
	return s.startLocked(ctx, sessionID)
}

func (s *SessionService) startLocked(ctx context.Context, sessionID string) (Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	if session.StartedAt != nil {
		return session, nil
	}

	now := s.now()
	session.Status = StatusInProgress
	session.StartedAt = &now
	session.UpdatedAt = now

	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		return Session{}, err
	}

	s.loggerWith(ctx, "Start", "session_id", sessionID).InfoContext(ctx, "session started")
	return session, nil
}

// Complete marks the session Completed. The transition is unconditional so a
// Scheduled session can be cancelled; there is no way back out of Completed.
func (s *SessionService) Complete(ctx context.Context, sessionID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	lock := s.locks.ForSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	if session.Status == StatusCompleted {
		return session, nil
	}

	now := s.now()
	session.Status = StatusCompleted
	session.CompletedAt = &now
	session.UpdatedAt = now

	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		return Session{}, err
	}

	s.loggerWith(ctx, "Complete", "session_id", sessionID).InfoContext(ctx, "session completed")
	return session, nil
}

// GetSession returns the session with the given identifier.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}
	return s.sessions.GetSession(ctx, sessionID)
}

// ListSessions enumerates sessions ordered by scheduled time.
func (s *SessionService) ListSessions(ctx context.Context) ([]Session, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	sessions, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	ordered := make([]Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ScheduledFor.Equal(ordered[j].ScheduledFor) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].ScheduledFor.Before(ordered[j].ScheduledFor)
	})
	return ordered, nil
}

// Invite queues a guest invitation for a side of the session, pre-registering
// the expected name for that side's waiting room. For code-verified sessions
// the result carries the one-time code; for link-verified sessions a signed
// magic link. Delivery of either happens outside this package.
func (s *SessionService) Invite(ctx context.Context, params InviteParams) (result InviteResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.invites == nil {
		err = fmt.Errorf("invite repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Invite", "session_id", params.SessionID, "name", strings.TrimSpace(params.Name))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "invite failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("invite_id", result.Invite.ID).InfoContext(ctx, "invite queued")
	}()

	var session Session
	if s.sessions != nil {
		session, err = s.sessions.GetSession(ctx, params.SessionID)
		if err != nil {
			return
		}
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(params.Email) == "" {
		vErr.add("email", "email is required")
	}
	if side := strings.TrimSpace(params.Side); side != "" && len(session.Sides) > 0 && !sideKnown(session.Sides, side) {
		vErr.add("side", "side is not part of this session")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	invite := Invite{
		ID:          s.idGenerator(),
		SessionID:   params.SessionID,
		Email:       strings.TrimSpace(params.Email),
		Name:        strings.TrimSpace(params.Name),
		Side:        strings.TrimSpace(params.Side),
		Role:        strings.TrimSpace(params.Role),
		Status:      "pending",
		RequestedAt: s.now(),
	}
	if invite.Role == "" {
		invite.Role = "Guest"
	}

	switch session.VerificationMethod {
	case VerifyCode:
		var code string
		code, err = GenerateVerificationCode()
		if err != nil {
			return
		}
		invite.CodeHash, err = CreateCodeHash(code, DefaultArgon2idParams)
		if err != nil {
			return
		}
		result.VerificationCode = code
	case VerifyMagicLink:
		if s.magicLinks != nil {
			result.MagicLink, err = s.magicLinks.Link(MagicLinkClaims{
				SessionID: params.SessionID,
				Name:      invite.Name,
				Side:      invite.Side,
			})
			if err != nil {
				return
			}
		}
	}

	result.Invite, err = s.invites.CreateInvite(ctx, invite)
	return
}

// ListInvites enumerates invitations queued for the session.
func (s *SessionService) ListInvites(ctx context.Context, sessionID string) ([]Invite, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	if s.invites == nil {
		return nil, fmt.Errorf("invite repository not configured")
	}
	return s.invites.ListInvites(ctx, sessionID)
}

func normalizeSides(sides []string) []string {
	cleaned := make([]string, 0, len(sides))
	seen := make(map[string]struct{}, len(sides))
	for _, side := range sides {
		side = strings.TrimSpace(side)
		if side == "" {
			continue
		}
		key := strings.ToLower(side)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, side)
	}
	if len(cleaned) == 0 {
		return append([]string(nil), DefaultSides...)
	}
	return cleaned
}

func sideKnown(sides []string, side string) bool {
	for _, candidate := range sides {
		if strings.EqualFold(candidate, side) {
			return true
		}
	}
	return false
}
