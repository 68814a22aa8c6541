package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/mediation-portal/internal/application"
)

var sessionCounter uint64

var referenceTime = time.Date(2026, time.March, 9, 10, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// SessionOption configures a generated session fixture.
type SessionOption func(*application.Session)

// NewSessionFixture returns a deterministic scheduled session with optional
// overrides. Defaults follow a fresh verified-policy magic-link session.
func NewSessionFixture(opts ...SessionOption) application.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	session := application.Session{
		ID:                 id,
		Title:              fmt.Sprintf("Mediation %03d", idx),
		ScheduledFor:       created.Add(time.Hour),
		DurationMinutes:    60,
		Status:             application.StatusScheduled,
		AccessPolicy:       application.PolicyVerified,
		VerificationMethod: application.VerifyMagicLink,
		CacheMinutes:       60,
		Mediator:           "Jordan Avery",
		Sides:              append([]string(nil), application.DefaultSides...),
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *application.Session) {
		s.ID = id
	}
}

// WithAccessPolicy overrides the access policy.
func WithAccessPolicy(policy application.AccessPolicy) SessionOption {
	return func(s *application.Session) {
		s.AccessPolicy = policy
	}
}

// WithVerificationMethod overrides the verification method.
func WithVerificationMethod(method application.VerificationMethod) SessionOption {
	return func(s *application.Session) {
		s.VerificationMethod = method
	}
}

// WithCacheMinutes overrides the rejoin cache window.
func WithCacheMinutes(minutes int) SessionOption {
	return func(s *application.Session) {
		s.CacheMinutes = minutes
	}
}

// WithSides overrides the session's sides.
func WithSides(sides ...string) SessionOption {
	return func(s *application.Session) {
		s.Sides = sides
	}
}

// WithMediator overrides the mediator name.
func WithMediator(name string) SessionOption {
	return func(s *application.Session) {
		s.Mediator = name
	}
}

// Started marks the session as in progress at the given instant.
func Started(at time.Time) SessionOption {
	return func(s *application.Session) {
		s.Status = application.StatusInProgress
		s.StartedAt = &at
	}
}
