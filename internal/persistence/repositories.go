package persistence

import (
	"context"
	"time"
)

// SessionRepository exposes CRUD operations for mediation sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	UpdateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
}

// WaitingRepository stores waiting-room entries and their join history.
type WaitingRepository interface {
	CreateEntry(ctx context.Context, entry WaitingEntry) error
	UpdateEntry(ctx context.Context, entry WaitingEntry) error
	GetEntry(ctx context.Context, sessionID, entryID string) (WaitingEntry, error)
	ListEntries(ctx context.Context, sessionID string) ([]WaitingEntry, error)
	// DeleteExpiredEntries removes entries still in the waiting status whose
	// expiry is at or before the reference instant.
	DeleteExpiredEntries(ctx context.Context, reference time.Time) (int, error)
}

// AttemptRepository stores join attempt counters keyed by session and name.
type AttemptRepository interface {
	IncrementAttempts(ctx context.Context, sessionID, name string) (int, error)
	GetAttempts(ctx context.Context, sessionID, name string) (int, error)
}

// TokenRepository stores issued rejoin tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token RejoinToken) error
	ListTokensForName(ctx context.Context, sessionID, name string) ([]RejoinToken, error)
	DeleteExpiredTokens(ctx context.Context, reference time.Time) error
}

// AdminRepository stores delegated authority holders.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin MeetingAdmin) error
	ListAdmins(ctx context.Context, sessionID string) ([]MeetingAdmin, error)
}

// ParticipantRepository stores the admitted roster.
type ParticipantRepository interface {
	UpsertParticipant(ctx context.Context, participant Participant) error
	ListParticipants(ctx context.Context, sessionID string) ([]Participant, error)
}

// BreakoutRepository stores caucus rooms.
type BreakoutRepository interface {
	CreateRoom(ctx context.Context, room BreakoutRoom) error
	UpdateRoom(ctx context.Context, room BreakoutRoom) error
	GetRoom(ctx context.Context, sessionID, roomID string) (BreakoutRoom, error)
	ListRooms(ctx context.Context, sessionID string) ([]BreakoutRoom, error)
}

// MessageRepository stores mediator broadcasts. There is no delete; the
// message log is append-only.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message Message) error
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}

// SummonRepository stores participant summons.
type SummonRepository interface {
	CreateSummon(ctx context.Context, summon Summon) error
	UpdateSummon(ctx context.Context, summon Summon) error
	GetSummon(ctx context.Context, sessionID, summonID string) (Summon, error)
	ListSummons(ctx context.Context, sessionID string) ([]Summon, error)
}

// InviteRepository stores guest invitations.
type InviteRepository interface {
	CreateInvite(ctx context.Context, invite Invite) error
	GetInviteByName(ctx context.Context, sessionID, name string) (Invite, error)
	ListInvites(ctx context.Context, sessionID string) ([]Invite, error)
}
