package persistence

import "time"

// Session represents a mediation session record.
type Session struct {
	ID                 string
	Title              string
	ScheduledFor       time.Time
	DurationMinutes    int
	Status             string
	JoinLink           string
	AccessPolicy       string
	VerificationMethod string
	CacheMinutes       int
	Mediator           string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	Sides              []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// WaitingEntry represents a queued or admitted waiting-room record.
type WaitingEntry struct {
	ID         string
	SessionID  string
	Name       string
	Side       string
	Role       string
	Status     string
	EnqueuedAt time.Time
	ExpiresAt  time.Time
	AdmittedAt *time.Time
}

// RejoinToken represents an issued rejoin credential.
type RejoinToken struct {
	ID        string
	SessionID string
	Name      string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	JoinURL   string
}

// MeetingAdmin represents a delegated authority holder.
type MeetingAdmin struct {
	SessionID   string
	Name        string
	Email       string
	Designation string
	Permissions []string
	AddedBy     string
	GrantedAt   time.Time
}

// Participant represents an admitted roster member.
type Participant struct {
	SessionID     string
	Name          string
	Designation   string
	Side          string
	Authenticated bool
	JoinedAt      time.Time
}

// BreakoutRoom represents a caucus room and its membership.
type BreakoutRoom struct {
	ID           string
	SessionID    string
	Name         string
	Participants []string
	Baseline     bool
	CreatedAt    time.Time
}

// Message represents a stored mediator broadcast.
type Message struct {
	ID         string
	SessionID  string
	Author     string
	Body       string
	Recipients []string
	SentAt     time.Time
}

// Summon represents a stored request for authority attention.
type Summon struct {
	ID          string
	SessionID   string
	Side        string
	RequestedBy string
	Note        string
	Status      string
	RaisedAt    time.Time
	UpdatedAt   time.Time
}

// Invite represents a queued guest invitation.
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
