package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// MessageRepository captures the persistence interactions for mediator
// broadcasts. Messages are append-only.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message Message) (Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}

// SummonRepository captures the persistence interactions for participant
// summons.
type SummonRepository interface {
	CreateSummon(ctx context.Context, summon Summon) (Summon, error)
	GetSummon(ctx context.Context, sessionID, summonID string) (Summon, error)
	UpdateSummon(ctx context.Context, summon Summon) (Summon, error)
	ListSummons(ctx context.Context, sessionID string) ([]Summon, error)
}

// AuthorityVerifier reports whether an actor holds host authority at all,
// without naming a specific permission.
type AuthorityVerifier interface {
	IsAuthority(ctx context.Context, session Session, actor Actor) bool
}

// MessagingService handles one-directional mediator broadcasts and the
// summon channel through which sides request authority attention.
type MessagingService struct {
	sessions    SessionRepository
	messages    MessageRepository
	summons     SummonRepository
	authority   AuthorityVerifier
	locks       *LockTable
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMessagingService wires dependencies for broadcast and summon flows.
func NewMessagingService(sessions SessionRepository, messages MessageRepository, summons SummonRepository, authority AuthorityVerifier, locks *LockTable, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MessagingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = NewLockTable()
	}
	return &MessagingService{
		sessions:    sessions,
		messages:    messages,
		summons:     summons,
		authority:   authority,
		locks:       locks,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MessagingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MessagingService", operation, attrs...)
}

// SendMessage broadcasts a message from an authority holder. Recipients
// default to everyone when the caller names none. Participants cannot reply
// through this channel.
func (s *MessagingService) SendMessage(ctx context.Context, params SendMessageParams) (message Message, err error) {
	if s == nil {
		err = fmt.Errorf("MessagingService is nil")
		return
	}
	if s.sessions == nil || s.messages == nil {
		err = fmt.Errorf("messaging repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "SendMessage", "session_id", params.SessionID, "actor", params.Actor.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "broadcast failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("message_id", message.ID).InfoContext(ctx, "message broadcast")
	}()

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return
	}

	if s.authority == nil || !s.authority.IsAuthority(ctx, session, params.Actor) {
		err = ErrAuthorityRequired
		return
	}

	body := strings.TrimSpace(params.Body)
	if body == "" {
		err = ErrEmptyBody
		return
	}

	recipients := dedupeStrings(params.Recipients)
	if len(recipients) == 0 {
		recipients = []string{RecipientAll}
	}

	message = Message{
		ID:         s.idGenerator(),
		SessionID:  session.ID,
		Author:     params.Actor.Name,
		Body:       body,
		Recipients: recipients,
		SentAt:     s.now(),
	}
	message, err = s.messages.CreateMessage(ctx, message)
	return
}

// ListMessages returns the session's broadcasts, newest first.
func (s *MessagingService) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	if s == nil {
		return nil, fmt.Errorf("MessagingService is nil")
	}
	if s.messages == nil {
		return nil, fmt.Errorf("message repository not configured")
	}

	messages, err := s.messages.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ordered := make([]Message, len(messages))
	copy(ordered, messages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SentAt.After(ordered[j].SentAt)
	})
	return ordered, nil
}

// RaiseSummon files a request for authority attention on behalf of a side.
// Any participant may raise one; no authority is required.
func (s *MessagingService) RaiseSummon(ctx context.Context, params RaiseSummonParams) (summon Summon, err error) {
	if s == nil {
		err = fmt.Errorf("MessagingService is nil")
		return
	}
	if s.sessions == nil || s.summons == nil {
		err = fmt.Errorf("summon repositories not configured")
		return
	}

	side := strings.TrimSpace(params.Side)
	logger := s.loggerWith(ctx, "RaiseSummon", "session_id", params.SessionID, "side", side)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "summon failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("summon_id", summon.ID).InfoContext(ctx, "summon raised")
	}()

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return
	}

	vErr := &ValidationError{}
	if side == "" {
		vErr.add("side", "side is required")
	} else if !sideKnown(session.Sides, side) {
		vErr.add("side", "side is not part of this session")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	summon = Summon{
		ID:          s.idGenerator(),
		SessionID:   session.ID,
		Side:        side,
		RequestedBy: strings.TrimSpace(params.RequestedBy),
		Note:        strings.TrimSpace(params.Note),
		Status:      SummonOpen,
		RaisedAt:    now,
		UpdatedAt:   now,
	}
	summon, err = s.summons.CreateSummon(ctx, summon)
	return
}

// summonRank orders the summon lifecycle. Transitions only move forward.
func summonRank(status SummonStatus) int {
	switch status {
	case SummonOpen:
		return 0
	case SummonAcknowledged:
		return 1
	case SummonResolved:
		return 2
	default:
		return -1
	}
}

// AdvanceSummon moves a summon forward through open, acknowledged, resolved.
// Only authority holders may advance; going backwards or repeating a state
// fails with ErrInvalidTransition.
func (s *MessagingService) AdvanceSummon(ctx context.Context, params AdvanceSummonParams) (summon Summon, err error) {
	if s == nil {
		err = fmt.Errorf("MessagingService is nil")
		return
	}
	if s.sessions == nil || s.summons == nil {
		err = fmt.Errorf("summon repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "AdvanceSummon",
		"session_id", params.SessionID,
		"summon_id", params.SummonID,
		"target", string(params.Status),
		"actor", params.Actor.Name,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "summon advance failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "summon advanced")
	}()

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return
	}

	if s.authority == nil || !s.authority.IsAuthority(ctx, session, params.Actor) {
		err = ErrAuthorityRequired
		return
	}

	target := summonRank(params.Status)
	if target < 0 {
		vErr := &ValidationError{}
		vErr.add("status", "status must be open, acknowledged, or resolved")
		err = vErr
		return
	}

	lock := s.locks.ForSession(session.ID)
	lock.Lock()
	defer lock.Unlock()

	summon, err = s.summons.GetSummon(ctx, session.ID, params.SummonID)
	if err != nil {
		return
	}

	if target <= summonRank(summon.Status) {
		summon = Summon{}
		err = ErrInvalidTransition
		return
	}

	summon.Status = params.Status
	summon.UpdatedAt = s.now()
	summon, err = s.summons.UpdateSummon(ctx, summon)
	return
}

// ListSummons returns the session's summons, newest first.
func (s *MessagingService) ListSummons(ctx context.Context, sessionID string) ([]Summon, error) {
	if s == nil {
		return nil, fmt.Errorf("MessagingService is nil")
	}
	if s.summons == nil {
		return nil, fmt.Errorf("summon repository not configured")
	}

	summons, err := s.summons.ListSummons(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ordered := make([]Summon, len(summons))
	copy(ordered, summons)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RaisedAt.After(ordered[j].RaisedAt)
	})
	return ordered, nil
}
