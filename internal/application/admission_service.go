package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// WaitingRepository captures the persistence interactions for waiting-room
// entries.
type WaitingRepository interface {
	CreateEntry(ctx context.Context, entry WaitingEntry) (WaitingEntry, error)
	GetEntry(ctx context.Context, sessionID, entryID string) (WaitingEntry, error)
	UpdateEntry(ctx context.Context, entry WaitingEntry) (WaitingEntry, error)
	ListEntries(ctx context.Context, sessionID string) ([]WaitingEntry, error)
	// DeleteExpiredEntries removes entries that are still strictly waiting and
	// past their expiry. Admitted entries are retained as join history.
	DeleteExpiredEntries(ctx context.Context, reference time.Time) (int, error)
}

// AttemptRepository tracks join attempts per (session, guest name).
// Counts are never reset within a session.
type AttemptRepository interface {
	IncrementAttempts(ctx context.Context, sessionID, name string) (int, error)
	GetAttempts(ctx context.Context, sessionID, name string) (int, error)
}

// ParticipantRepository captures the persistence interactions for the
// admitted roster.
type ParticipantRepository interface {
	UpsertParticipant(ctx context.Context, participant Participant) (Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]Participant, error)
}

// AuthorityChecker gates privileged admission operations.
type AuthorityChecker interface {
	CheckAuthority(ctx context.Context, session Session, actor Actor, permission Permission) bool
}

// SessionStarter triggers the idempotent start transition on first admission.
// Callers hold the session lock when invoking it.
type SessionStarter interface {
	StartLocked(ctx context.Context, sessionID string) (Session, error)
}

// CodeInviteLookup resolves a pending invite so a guest can redeem an
// emailed verification code.
type CodeInviteLookup interface {
	GetInviteByName(ctx context.Context, sessionID, name string) (Invite, error)
}

const (
	// DefaultWaitingTTL is the window an unadmitted guest stays queued.
	DefaultWaitingTTL = 5 * time.Minute
	// DefaultMaxJoinAttempts caps verified-policy join attempts per guest name.
	DefaultMaxJoinAttempts = 3
)

// AdmissionService is the verification gate and waiting room: it decides how
// each join attempt is handled and lets authority holders admit queued
// guests. The gate operates identically before and after the session starts.
type AdmissionService struct {
	sessions     SessionRepository
	waiting      WaitingRepository
	attempts     AttemptRepository
	participants ParticipantRepository
	invites      CodeInviteLookup
	issuer       *TokenIssuer
	magicLinks   *MagicLinkSigner
	authority    AuthorityChecker
	starter      SessionStarter
	locks        *LockTable
	waitingTTL   time.Duration
	maxAttempts  int
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// AdmissionConfig bundles the dependencies of the admission service.
type AdmissionConfig struct {
	Sessions     SessionRepository
	Waiting      WaitingRepository
	Attempts     AttemptRepository
	Participants ParticipantRepository
	Invites      CodeInviteLookup
	Issuer       *TokenIssuer
	MagicLinks   *MagicLinkSigner
	Authority    AuthorityChecker
	Starter      SessionStarter
	Locks        *LockTable
	WaitingTTL   time.Duration
	MaxAttempts  int
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAdmissionService wires dependencies for join and admission flows.
func NewAdmissionService(cfg AdmissionConfig) *AdmissionService {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.WaitingTTL <= 0 {
		cfg.WaitingTTL = DefaultWaitingTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxJoinAttempts
	}
	if cfg.Locks == nil {
		cfg.Locks = NewLockTable()
	}
	return &AdmissionService{
		sessions:     cfg.Sessions,
		waiting:      cfg.Waiting,
		attempts:     cfg.Attempts,
		participants: cfg.Participants,
		invites:      cfg.Invites,
		issuer:       cfg.Issuer,
		magicLinks:   cfg.MagicLinks,
		authority:    cfg.Authority,
		starter:      cfg.Starter,
		locks:        cfg.Locks,
		waitingTTL:   cfg.WaitingTTL,
		maxAttempts:  cfg.MaxAttempts,
		idGenerator:  cfg.IDGenerator,
		now:          cfg.Now,
		logger:       defaultLogger(cfg.Logger),
	}
}

func (s *AdmissionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AdmissionService", operation, attrs...)
}

// AttemptJoin runs the verification gate for an inbound join request.
//
// A valid rejoin token admits immediately without touching the attempt
// counter. Under the open policy guests are admitted directly but still need
// a side for routing. Under the verified policy the attempt counter is
// incremented first; once it passes the cap the guest must be admitted
// out-of-band by an authority holder.
func (s *AdmissionService) AttemptJoin(ctx context.Context, params JoinParams) (result JoinResult, err error) {
	if s == nil {
		err = fmt.Errorf("AdmissionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	name := strings.TrimSpace(params.Name)
	side := strings.TrimSpace(params.Side)

	logger := s.loggerWith(ctx, "AttemptJoin",
		"session_id", params.SessionID,
		"name", name,
		"side", side,
		"token_presented", strings.TrimSpace(params.Token) != "",
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "join attempt rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("outcome", string(result.Outcome)).InfoContext(ctx, "join attempt handled")
	}()

	lock := s.locks.ForSession(params.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return
	}

	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if side == "" {
		vErr.add("side", "side is required")
	} else if !sideKnown(session.Sides, side) {
		vErr.add("side", "side is not part of this session")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	s.sweepLocked(ctx)
	now := s.now()

	// 1. A non-expired rejoin token bypasses verification and the attempt cap.
	if presented := strings.TrimSpace(params.Token); presented != "" {
		var token RejoinToken
		var ok bool
		token, ok, err = s.issuer.Resolve(ctx, session.ID, name, presented)
		if err != nil && !errors.Is(err, ErrTokenExpired) {
			return
		}
		err = nil
		if ok {
			var participant Participant
			participant, err = s.recordParticipant(ctx, session, name, token.Role, side, true, now)
			if err != nil {
				return
			}
			result = JoinResult{Outcome: JoinAdmitted, Participant: participant, Token: &token}
			return
		}
	}

	// 2. Open access admits directly; the side selection above still routes.
	if session.AccessPolicy == PolicyOpen {
		var participant Participant
		participant, err = s.recordParticipant(ctx, session, name, params.Role, side, false, now)
		if err != nil {
			return
		}
		result = JoinResult{Outcome: JoinAdmitted, Participant: participant}
		if params.RequestToken && s.issuer != nil {
			var token RejoinToken
			token, err = s.issuer.Issue(ctx, session, name, params.Role)
			if err != nil {
				return
			}
			result.Token = &token
		}
		return
	}

	// 3. Verified policy without a valid token: count the attempt, then queue.
	if s.attempts == nil {
		err = fmt.Errorf("attempt repository not configured")
		return
	}
	count, err := s.attempts.IncrementAttempts(ctx, session.ID, strings.ToLower(name))
	if err != nil {
		return
	}
	if count > s.maxAttempts {
		err = ErrMaxAttemptsExceeded
		return
	}

	if s.waiting == nil {
		err = fmt.Errorf("waiting repository not configured")
		return
	}
	entry := WaitingEntry{
		ID:         s.idGenerator(),
		SessionID:  session.ID,
		Name:       name,
		Side:       side,
		Role:       strings.TrimSpace(params.Role),
		Status:     EntryWaiting,
		EnqueuedAt: now,
		ExpiresAt:  now.Add(s.waitingTTL),
	}
	entry, err = s.waiting.CreateEntry(ctx, entry)
	if err != nil {
		return
	}

	result = JoinResult{Outcome: JoinPending, Entry: entry}
	return
}

// AdmitWaitingEntry lets an authority holder admit a queued guest. Admission
// issues a rejoin token and, on the first admission session-wide, triggers
// the idempotent start transition. Admitting an already-admitted entry does
// not reissue or re-trigger anything.
func (s *AdmissionService) AdmitWaitingEntry(ctx context.Context, params AdmitParams) (token RejoinToken, err error) {
	if s == nil {
		err = fmt.Errorf("AdmissionService is nil")
		return
	}
	if s.sessions == nil || s.waiting == nil {
		err = fmt.Errorf("admission repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "AdmitWaitingEntry",
		"session_id", params.SessionID,
		"entry_id", params.EntryID,
		"actor", params.Actor.Name,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "admission failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("token_id", token.ID).InfoContext(ctx, "waiting guest admitted")
	}()

	lock := s.locks.ForSession(params.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return
	}

	if s.authority == nil || !s.authority.CheckAuthority(ctx, session, params.Actor, PermissionAdmission) {
		err = ErrAuthorityRequired
		return
	}

	entry, err := s.waiting.GetEntry(ctx, session.ID, params.EntryID)
	if err != nil {
		return
	}

	if entry.Status == EntryAdmitted {
		// Idempotent: hand back the newest still-valid token, if any.
		if s.issuer != nil {
			if existing, ok, lookupErr := s.issuer.LatestForName(ctx, session.ID, entry.Name); lookupErr == nil && ok {
				token = existing
			}
		}
		return
	}

	now := s.now()
	entry.Status = EntryAdmitted
	entry.AdmittedAt = &now
	entry, err = s.waiting.UpdateEntry(ctx, entry)
	if err != nil {
		return
	}

	if _, err = s.recordParticipant(ctx, session, entry.Name, entry.Role, entry.Side, true, now); err != nil {
		return
	}

	if s.issuer != nil {
		token, err = s.issuer.Issue(ctx, session, entry.Name, entry.Role)
		if err != nil {
			return
		}
	}

	if session.StartedAt == nil && s.starter != nil {
		if _, err = s.starter.StartLocked(ctx, session.ID); err != nil {
			return
		}
	}
	return
}

// RedeemMagicLink verifies a signed magic-link assertion and admits the
// guest directly as a verified participant, issuing a rejoin token.
func (s *AdmissionService) RedeemMagicLink(ctx context.Context, assertion string) (result JoinResult, err error) {
	if s == nil {
		err = fmt.Errorf("AdmissionService is nil")
		return
	}
	if s.magicLinks == nil {
		err = fmt.Errorf("magic link signer not configured")
		return
	}

	logger := s.loggerWith(ctx, "RedeemMagicLink")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "magic link rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", result.Participant.SessionID, "name", result.Participant.Name).
			InfoContext(ctx, "magic link redeemed")
	}()

	claims, err := s.magicLinks.Verify(assertion)
	if err != nil {
		return
	}

	lock := s.locks.ForSession(claims.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		return
	}

	return s.admitVerifiedLocked(ctx, session, claims.Name, "", claims.Side)
}

// RedeemVerificationCode checks an emailed code against the stored invite
// hash and admits the guest as a verified participant.
func (s *AdmissionService) RedeemVerificationCode(ctx context.Context, sessionID, name, code string) (result JoinResult, err error) {
	if s == nil {
		err = fmt.Errorf("AdmissionService is nil")
		return
	}
	if s.invites == nil {
		err = fmt.Errorf("invite lookup not configured")
		return
	}

	name = strings.TrimSpace(name)
	logger := s.loggerWith(ctx, "RedeemVerificationCode", "session_id", sessionID, "name", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "verification code rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "verification code redeemed")
	}()

	lock := s.locks.ForSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return
	}

	invite, err := s.invites.GetInviteByName(ctx, sessionID, name)
	if err != nil {
		return
	}
	if invite.CodeHash == "" {
		err = ErrCodeMismatch
		return
	}
	if err = VerifyCodeHash(invite.CodeHash, strings.TrimSpace(code)); err != nil {
		return
	}

	return s.admitVerifiedLocked(ctx, session, invite.Name, invite.Role, invite.Side)
}

// ListWaitingRoom returns the live queue for a session grouped in enqueue
// order, sweeping expired entries first so readers never observe them.
func (s *AdmissionService) ListWaitingRoom(ctx context.Context, sessionID string) ([]WaitingEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("AdmissionService is nil")
	}
	if s.waiting == nil {
		return nil, fmt.Errorf("waiting repository not configured")
	}

	lock := s.locks.ForSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.sweepLocked(ctx)

	entries, err := s.waiting.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ordered := make([]WaitingEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Side == ordered[j].Side {
			return ordered[i].EnqueuedAt.Before(ordered[j].EnqueuedAt)
		}
		return ordered[i].Side < ordered[j].Side
	})
	return ordered, nil
}

// ListParticipants returns the admitted roster for a session.
func (s *AdmissionService) ListParticipants(ctx context.Context, sessionID string) ([]Participant, error) {
	if s == nil {
		return nil, fmt.Errorf("AdmissionService is nil")
	}
	if s.participants == nil {
		return nil, fmt.Errorf("participant repository not configured")
	}
	return s.participants.ListParticipants(ctx, sessionID)
}

// SweepExpired removes expired waiting entries and rejoin tokens. The
// periodic runner calls this on a fixed cadence to bound staleness for
// observers that only ever write.
func (s *AdmissionService) SweepExpired(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.waiting != nil {
		removed, err := s.waiting.DeleteExpiredEntries(ctx, s.now())
		if err != nil {
			return err
		}
		if removed > 0 {
			s.loggerWith(ctx, "SweepExpired").InfoContext(ctx, "expired waiting entries removed", "count", removed)
		}
	}

	if s.issuer != nil {
		if err := s.issuer.PruneExpired(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *AdmissionService) sweepLocked(ctx context.Context) {
	if s.waiting == nil {
		return
	}
	if _, err := s.waiting.DeleteExpiredEntries(ctx, s.now()); err != nil {
		s.loggerWith(ctx, "sweep").ErrorContext(ctx, "lazy sweep failed", "error", err)
	}
}

func (s *AdmissionService) admitVerifiedLocked(ctx context.Context, session Session, name, role, side string) (JoinResult, error) {
	now := s.now()
	participant, err := s.recordParticipant(ctx, session, name, role, side, true, now)
	if err != nil {
		return JoinResult{}, err
	}

	result := JoinResult{Outcome: JoinAdmitted, Participant: participant}
	if s.issuer != nil {
		token, err := s.issuer.Issue(ctx, session, name, role)
		if err != nil {
			return JoinResult{}, err
		}
		result.Token = &token
	}
	return result, nil
}

func (s *AdmissionService) recordParticipant(ctx context.Context, session Session, name, role, side string, authenticated bool, now time.Time) (Participant, error) {
	participant := Participant{
		SessionID:     session.ID,
		Name:          strings.TrimSpace(name),
		Designation:   strings.TrimSpace(role),
		Side:          strings.TrimSpace(side),
		Authenticated: authenticated,
		JoinedAt:      now,
	}
	if s.participants == nil {
		return participant, nil
	}
	return s.participants.UpsertParticipant(ctx, participant)
}
