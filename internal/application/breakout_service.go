package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// BreakoutRepository captures the persistence interactions for caucus rooms.
type BreakoutRepository interface {
	CreateRoom(ctx context.Context, room BreakoutRoom) (BreakoutRoom, error)
	GetRoom(ctx context.Context, sessionID, roomID string) (BreakoutRoom, error)
	UpdateRoom(ctx context.Context, room BreakoutRoom) (BreakoutRoom, error)
	ListRooms(ctx context.Context, sessionID string) ([]BreakoutRoom, error)
}

// HostRoomName is the baseline room reserved for authority holders.
const HostRoomName = "Host room"

// BreakoutService manages caucus rooms. Each session starts with a fixed
// baseline set (one room per side plus the host room) that cannot be removed;
// authority holders can add further rooms on top.
type BreakoutService struct {
	sessions     SessionRepository
	rooms        BreakoutRepository
	participants ParticipantRepository
	authority    AuthorityChecker
	locks        *LockTable
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewBreakoutService wires dependencies for caucus room management.
func NewBreakoutService(sessions SessionRepository, rooms BreakoutRepository, participants ParticipantRepository, authority AuthorityChecker, locks *LockTable, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BreakoutService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = NewLockTable()
	}
	return &BreakoutService{
		sessions:     sessions,
		rooms:        rooms,
		participants: participants,
		authority:    authority,
		locks:        locks,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *BreakoutService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BreakoutService", operation, attrs...)
}

// EnsureBaseline provisions the fixed baseline rooms for a session: one per
// side plus the host room. It is called once at scheduling time and tolerates
// rooms that already exist.
func (s *BreakoutService) EnsureBaseline(ctx context.Context, session Session) error {
	if s == nil {
		return fmt.Errorf("BreakoutService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("breakout repository not configured")
	}

	existing, err := s.rooms.ListRooms(ctx, session.ID)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(existing))
	for _, room := range existing {
		present[strings.ToLower(room.Name)] = struct{}{}
	}

	names := append(append([]string(nil), session.Sides...), HostRoomName)
	now := s.now()
	for _, name := range names {
		if _, ok := present[strings.ToLower(name)]; ok {
			continue
		}
		room := BreakoutRoom{
			ID:        s.idGenerator(),
			SessionID: session.ID,
			Name:      name,
			Baseline:  true,
			CreatedAt: now,
		}
		if _, err := s.rooms.CreateRoom(ctx, room); err != nil {
			return err
		}
	}

	s.loggerWith(ctx, "EnsureBaseline", "session_id", session.ID).
		InfoContext(ctx, "baseline rooms provisioned", "count", len(names))
	return nil
}

// CreateRoom adds a caucus room with an initial non-empty participant
// selection. Room names are unique per session, compared case-insensitively.
func (s *BreakoutService) CreateRoom(ctx context.Context, params CreateBreakoutParams) (room BreakoutRoom, err error) {
	if s == nil {
		err = fmt.Errorf("BreakoutService is nil")
		return
	}
	if s.sessions == nil || s.rooms == nil {
		err = fmt.Errorf("breakout repositories not configured")
		return
	}

	name := strings.TrimSpace(params.Name)
	logger := s.loggerWith(ctx, "CreateRoom", "session_id", params.SessionID, "name", name, "actor", params.Actor.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "room creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "caucus room created")
	}()

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return
	}

	if s.authority == nil || !s.authority.CheckAuthority(ctx, session, params.Actor, PermissionBreakout) {
		err = ErrAuthorityRequired
		return
	}

	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "room name is required")
		err = vErr
		return
	}

	members := dedupeStrings(params.ParticipantIDs)
	if len(members) == 0 {
		err = ErrEmptySelection
		return
	}

	lock := s.locks.ForSession(session.ID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.rooms.ListRooms(ctx, session.ID)
	if err != nil {
		return
	}
	for _, other := range existing {
		if strings.EqualFold(other.Name, name) {
			err = ErrDuplicateRoomName
			return
		}
	}

	room = BreakoutRoom{
		ID:           s.idGenerator(),
		SessionID:    session.ID,
		Name:         name,
		Participants: members,
		CreatedAt:    s.now(),
	}
	room, err = s.rooms.CreateRoom(ctx, room)
	return
}

// AddParticipant places a participant in a room. Adding a member twice is a
// no-op; membership is a set and one participant may sit in several rooms.
func (s *BreakoutService) AddParticipant(ctx context.Context, sessionID, roomID, participant string) (BreakoutRoom, error) {
	return s.updateMembership(ctx, sessionID, roomID, participant, true)
}

// RemoveParticipant takes a participant out of a room. Removing an absent
// member is a no-op.
func (s *BreakoutService) RemoveParticipant(ctx context.Context, sessionID, roomID, participant string) (BreakoutRoom, error) {
	return s.updateMembership(ctx, sessionID, roomID, participant, false)
}

func (s *BreakoutService) updateMembership(ctx context.Context, sessionID, roomID, participant string, add bool) (BreakoutRoom, error) {
	if s == nil {
		return BreakoutRoom{}, fmt.Errorf("BreakoutService is nil")
	}
	if s.rooms == nil {
		return BreakoutRoom{}, fmt.Errorf("breakout repository not configured")
	}

	participant = strings.TrimSpace(participant)
	if participant == "" {
		vErr := &ValidationError{}
		vErr.add("participant", "participant is required")
		return BreakoutRoom{}, vErr
	}

	lock := s.locks.ForSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.rooms.GetRoom(ctx, sessionID, roomID)
	if err != nil {
		return BreakoutRoom{}, err
	}

	idx := -1
	for i, member := range room.Participants {
		if member == participant {
			idx = i
			break
		}
	}

	switch {
	case add && idx >= 0, !add && idx < 0:
		return room, nil
	case add:
		room.Participants = append(room.Participants, participant)
	default:
		room.Participants = append(room.Participants[:idx], room.Participants[idx+1:]...)
	}

	return s.rooms.UpdateRoom(ctx, room)
}

// ListRooms enumerates the session's rooms, baseline rooms first, then by
// creation time.
func (s *BreakoutService) ListRooms(ctx context.Context, sessionID string) ([]BreakoutRoom, error) {
	if s == nil {
		return nil, fmt.Errorf("BreakoutService is nil")
	}
	if s.rooms == nil {
		return nil, fmt.Errorf("breakout repository not configured")
	}

	rooms, err := s.rooms.ListRooms(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ordered := make([]BreakoutRoom, len(rooms))
	copy(ordered, rooms)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Baseline != ordered[j].Baseline {
			return ordered[i].Baseline
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered, nil
}

// ListAvailable returns admitted participants not yet assigned to the given
// room, the candidate pool for an add.
func (s *BreakoutService) ListAvailable(ctx context.Context, sessionID, roomID string) ([]Participant, error) {
	if s == nil {
		return nil, fmt.Errorf("BreakoutService is nil")
	}
	if s.rooms == nil || s.participants == nil {
		return nil, fmt.Errorf("breakout repositories not configured")
	}

	room, err := s.rooms.GetRoom(ctx, sessionID, roomID)
	if err != nil {
		return nil, err
	}
	members := make(map[string]struct{}, len(room.Participants))
	for _, member := range room.Participants {
		members[member] = struct{}{}
	}

	roster, err := s.participants.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	available := make([]Participant, 0, len(roster))
	for _, participant := range roster {
		if _, ok := members[participant.Name]; ok {
			continue
		}
		available = append(available, participant)
	}
	return available, nil
}

func dedupeStrings(values []string) []string {
	cleaned := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		cleaned = append(cleaned, value)
	}
	return cleaned
}
