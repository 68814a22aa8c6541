package application

import "time"

// SessionStatus identifies a session's lifecycle state.
type SessionStatus string

const (
	// StatusScheduled marks a session that has been created but not joined.
	StatusScheduled SessionStatus = "Scheduled"
	// StatusInProgress marks a session after the first join or an explicit start.
	StatusInProgress SessionStatus = "InProgress"
	// StatusCompleted is terminal; it is also used to record cancellations.
	StatusCompleted SessionStatus = "Completed"
)

// AccessPolicy controls how guests are admitted to a session.
type AccessPolicy string

const (
	// PolicyVerified requires guests to verify or present a rejoin token.
	PolicyVerified AccessPolicy = "verified"
	// PolicyOpen admits guests directly, requiring only a side selection.
	PolicyOpen AccessPolicy = "open"
)

// VerificationMethod identifies how guests prove their identity.
type VerificationMethod string

const (
	// VerifyMagicLink sends a signed single-use join link.
	VerifyMagicLink VerificationMethod = "magic_link"
	// VerifyCode sends a short numeric code checked against a stored hash.
	VerifyCode VerificationMethod = "code"
)

// EntryStatus identifies the state of a waiting-room entry.
type EntryStatus string

const (
	// EntryWaiting marks a guest queued for admission.
	EntryWaiting EntryStatus = "waiting"
	// EntryAdmitted marks a guest that an authority holder let in.
	EntryAdmitted EntryStatus = "admitted"
)

// SummonStatus identifies the state of a participant summon.
type SummonStatus string

const (
	SummonOpen         SummonStatus = "open"
	SummonAcknowledged SummonStatus = "acknowledged"
	SummonResolved     SummonStatus = "resolved"
)

// Permission names a host capability held by a meeting admin.
type Permission string

const (
	// PermissionAdmission covers admitting and removing waiting guests.
	PermissionAdmission Permission = "admission"
	// PermissionBreakout covers creating and steering caucus rooms.
	PermissionBreakout Permission = "breakout_control"
	// PermissionRecording covers starting and stopping recordings.
	PermissionRecording Permission = "recording"
	// PermissionRemoval covers removing admitted participants.
	PermissionRemoval Permission = "removal"
)

// FullPermissionBundle returns the fixed permission set granted to every
// meeting admin. Partial grants are not a supported configuration.
func FullPermissionBundle() []Permission {
	return []Permission{PermissionAdmission, PermissionBreakout, PermissionRecording, PermissionRemoval}
}

// Actor identifies the user invoking a service method, resolved by the
// directory service before the request reaches this package.
type Actor struct {
	Name  string
	Email string
}

// Session represents a scheduled virtual mediation.
type Session struct {
	ID                 string
	Title              string
	ScheduledFor       time.Time
	DurationMinutes    int
	Status             SessionStatus
	JoinLink           string
	AccessPolicy       AccessPolicy
	VerificationMethod VerificationMethod
	CacheMinutes       int
	Mediator           string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	Sides              []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Editable reports whether session settings and delegation are still open.
// A session is editable until its first join sets StartedAt.
func (s Session) Editable() bool {
	return s.StartedAt == nil
}

// SessionInput captures caller provided session fields.
type SessionInput struct {
	Title              string
	ScheduledFor       time.Time
	DurationMinutes    int
	AccessPolicy       AccessPolicy
	VerificationMethod VerificationMethod
	CacheMinutes       int
	Mediator           string
	Sides              []string
}

// SettingsPatch carries the mutable access settings of a session. Nil fields
// are left unchanged.
type SettingsPatch struct {
	AccessPolicy       *AccessPolicy
	VerificationMethod *VerificationMethod
	CacheMinutes       *int
}

// WaitingEntry represents an unauthenticated guest queued for admission.
type WaitingEntry struct {
	ID         string
	SessionID  string
	Name       string
	Side       string
	Role       string
	Status     EntryStatus
	EnqueuedAt time.Time
	ExpiresAt  time.Time
	AdmittedAt *time.Time
}

// RejoinToken lets a previously admitted guest re-enter without re-verification.
type RejoinToken struct {
	ID        string
	SessionID string
	Name      string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	JoinURL   string
}

// Valid reports whether the token still grants admission at the given instant.
func (t RejoinToken) Valid(now time.Time) bool {
	return t.ID != "" && now.Before(t.ExpiresAt)
}

// MeetingAdmin is a delegated authority holder with the full host permission set.
type MeetingAdmin struct {
	SessionID   string
	Name        string
	Email       string
	Designation string
	Permissions []Permission
	AddedBy     string
	GrantedAt   time.Time
}

// Participant is an admitted member of a session.
type Participant struct {
	SessionID     string
	Name          string
	Designation   string
	Side          string
	Authenticated bool
	JoinedAt      time.Time
}

// BreakoutRoom is a caucus sub-grouping of participants. Membership is a set;
// a participant may belong to several rooms at once.
type BreakoutRoom struct {
	ID           string
	SessionID    string
	Name         string
	Participants []string
	Baseline     bool
	CreatedAt    time.Time
}

// Message is a one-directional broadcast from host authority to parties.
type Message struct {
	ID         string
	SessionID  string
	Author     string
	Body       string
	Recipients []string
	SentAt     time.Time
}

// RecipientAll addresses a message to every participant.
const RecipientAll = "all"

// Summon is a low-priority request from a side for authority attention.
type Summon struct {
	ID          string
	SessionID   string
	Side        string
	RequestedBy string
	Note        string
	Status      SummonStatus
	RaisedAt    time.Time
	UpdatedAt   time.Time
}

// Invite records a guest invitation queued for a side of the session.
// CodeHash is set only for code-verified sessions and never leaves the
// persistence boundary in cleartext form.
type Invite struct {
	ID          string
	SessionID   string
	Email       string
	Name        string
	Side        string
	Role        string
	Status      string
	CodeHash    string
	RequestedAt time.Time
}

// InviteResult pairs a stored invite with the out-of-band credential minted
// for it. VerificationCode is populated for code-verified sessions and
// MagicLink for link-verified ones; delivery happens outside this package.
type InviteResult struct {
	Invite           Invite
	VerificationCode string
	MagicLink        string
}

// JoinOutcome classifies the result of a join attempt.
type JoinOutcome string

const (
	// JoinAdmitted means the guest was admitted directly.
	JoinAdmitted JoinOutcome = "admitted"
	// JoinPending means the guest was queued in the waiting room.
	JoinPending JoinOutcome = "pending_admission"
)

// JoinParams captures an inbound join attempt. RequestToken asks for a
// rejoin token on open-policy admissions, where none is issued by default.
type JoinParams struct {
	SessionID    string
	Name         string
	Side         string
	Role         string
	Token        string
	RequestToken bool
}

// JoinResult captures the outcome of a join attempt.
type JoinResult struct {
	Outcome     JoinOutcome
	Participant Participant
	Entry       WaitingEntry
	Token       *RejoinToken
}

// AdmitParams captures an authority-holder admission of a waiting entry.
type AdmitParams struct {
	SessionID string
	EntryID   string
	Actor     Actor
}

// AdminInput captures caller provided meeting-admin fields.
type AdminInput struct {
	Name        string
	Email       string
	Designation string
}

// GrantAdminParams wraps the data required to delegate host authority.
type GrantAdminParams struct {
	SessionID string
	Actor     Actor
	Input     AdminInput
}

// CreateBreakoutParams wraps the data required to create a caucus room.
type CreateBreakoutParams struct {
	SessionID      string
	Actor          Actor
	Name           string
	ParticipantIDs []string
}

// SendMessageParams wraps the data required to broadcast a mediator message.
type SendMessageParams struct {
	SessionID  string
	Actor      Actor
	Body       string
	Recipients []string
}

// RaiseSummonParams wraps the data required to file a summon from a side.
type RaiseSummonParams struct {
	SessionID   string
	Side        string
	RequestedBy string
	Note        string
}

// AdvanceSummonParams wraps the data required to advance a summon's status.
type AdvanceSummonParams struct {
	SessionID string
	SummonID  string
	Status    SummonStatus
	Actor     Actor
}

// InviteParams wraps the data required to queue a guest invitation.
type InviteParams struct {
	SessionID string
	Actor     Actor
	Email     string
	Name      string
	Side      string
	Role      string
}
