package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type inviteRepoStub struct {
	created []Invite
	listErr error
}

func (r *inviteRepoStub) CreateInvite(ctx context.Context, invite Invite) (Invite, error) {
	r.created = append(r.created, invite)
	return invite, nil
}

func (r *inviteRepoStub) ListInvites(ctx context.Context, sessionID string) ([]Invite, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Invite, 0, len(r.created))
	for _, invite := range r.created {
		if invite.SessionID == sessionID {
			out = append(out, invite)
		}
	}
	return out, nil
}

type baselineStub struct {
	sessions []string
	err      error
}

func (b *baselineStub) EnsureBaseline(ctx context.Context, session Session) error {
	if b.err != nil {
		return b.err
	}
	b.sessions = append(b.sessions, session.ID)
	return nil
}

func newSessionServiceFixture(session Session) (*SessionService, *sessionRepoStub, *inviteRepoStub, *baselineStub) {
	sessions := &sessionRepoStub{session: session}
	invites := &inviteRepoStub{}
	baseline := &baselineStub{}
	service := NewSessionService(sessions, invites, baseline, nil, nil, "http://mediation.local/join", sequentialIDs("session"), testClock(), nil)
	return service, sessions, invites, baseline
}

func TestSessionService_CreateSession(t *testing.T) {
	t.Run("validates required attributes", func(t *testing.T) {
		service, _, _, _ := newSessionServiceFixture(Session{})

		_, err := service.CreateSession(context.Background(), SessionInput{
			Title:    "   ",
			Mediator: "",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["title"]; !ok {
			t.Fatalf("expected title validation error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["mediator"]; !ok {
			t.Fatalf("expected mediator validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("applies defaults and provisions baseline rooms", func(t *testing.T) {
		service, sessions, _, baseline := newSessionServiceFixture(Session{})

		session, err := service.CreateSession(context.Background(), SessionInput{
			Title:    "Hail damage claim",
			Mediator: "Jordan Avery",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Status != StatusScheduled {
			t.Fatalf("expected Scheduled, got %s", session.Status)
		}
		if session.AccessPolicy != PolicyVerified || session.VerificationMethod != VerifyMagicLink {
			t.Fatalf("expected verified/magic_link defaults, got %s/%s", session.AccessPolicy, session.VerificationMethod)
		}
		if session.DurationMinutes != 60 || session.CacheMinutes != 60 {
			t.Fatalf("expected 60 minute defaults, got %d/%d", session.DurationMinutes, session.CacheMinutes)
		}
		if len(session.Sides) != 2 {
			t.Fatalf("expected default sides, got %v", session.Sides)
		}
		if !strings.HasPrefix(session.JoinLink, "http://mediation.local/join/") {
			t.Fatalf("expected join link, got %q", session.JoinLink)
		}
		if sessions.created.ID != session.ID {
			t.Fatalf("session was not persisted")
		}
		if len(baseline.sessions) != 1 || baseline.sessions[0] != session.ID {
			t.Fatalf("baseline rooms were not provisioned: %v", baseline.sessions)
		}
	})

	t.Run("deduplicates named sides", func(t *testing.T) {
		service, _, _, _ := newSessionServiceFixture(Session{})

		session, err := service.CreateSession(context.Background(), SessionInput{
			Title:    "Three way dispute",
			Mediator: "Jordan Avery",
			Sides:    []string{"Claimant", " claimant ", "Respondent", ""},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(session.Sides) != 2 {
			t.Fatalf("expected deduplicated sides, got %v", session.Sides)
		}
	})
}

func TestSessionService_UpdateSettings(t *testing.T) {
	t.Run("patches access settings before start", func(t *testing.T) {
		service, _, _, _ := newSessionServiceFixture(newTestSession())

		policy := PolicyOpen
		minutes := 30
		session, err := service.UpdateSettings(context.Background(), "session-001", SettingsPatch{
			AccessPolicy: &policy,
			CacheMinutes: &minutes,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.AccessPolicy != PolicyOpen || session.CacheMinutes != 30 {
			t.Fatalf("patch was not applied: %+v", session)
		}
		if session.VerificationMethod != VerifyMagicLink {
			t.Fatalf("unpatched fields must be preserved")
		}
	})

	t.Run("rejects changes once the session started", func(t *testing.T) {
		started := newTestSession()
		at := testReference.Add(-time.Minute)
		started.StartedAt = &at
		service, _, _, _ := newSessionServiceFixture(started)

		policy := PolicyOpen
		_, err := service.UpdateSettings(context.Background(), "session-001", SettingsPatch{AccessPolicy: &policy})
		if !errors.Is(err, ErrSettingsLocked) {
			t.Fatalf("expected ErrSettingsLocked, got %v", err)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		service, _, _, _ := newSessionServiceFixture(newTestSession())

		bad := AccessPolicy("invite_only")
		minutes := -5
		_, err := service.UpdateSettings(context.Background(), "session-001", SettingsPatch{
			AccessPolicy: &bad,
			CacheMinutes: &minutes,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(vErr.FieldErrors) != 2 {
			t.Fatalf("expected two field errors, got %v", vErr.FieldErrors)
		}
	})
}

func TestSessionService_Transitions(t *testing.T) {
	t.Run("start is idempotent", func(t *testing.T) {
		service, sessions, _, _ := newSessionServiceFixture(newTestSession())

		first, err := service.Start(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.Status != StatusInProgress || first.StartedAt == nil {
			t.Fatalf("expected started session, got %+v", first)
		}

		second, err := service.Start(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !second.StartedAt.Equal(*first.StartedAt) {
			t.Fatalf("second start must not move StartedAt")
		}
		if len(sessions.updated) != 1 {
			t.Fatalf("second start must not write, got %d updates", len(sessions.updated))
		}
	})

	t.Run("complete cancels a scheduled session", func(t *testing.T) {
		service, _, _, _ := newSessionServiceFixture(newTestSession())

		session, err := service.Complete(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Status != StatusCompleted || session.CompletedAt == nil {
			t.Fatalf("expected completed session, got %+v", session)
		}
	})

	t.Run("complete is idempotent", func(t *testing.T) {
		service, sessions, _, _ := newSessionServiceFixture(newTestSession())

		if _, err := service.Complete(context.Background(), "session-001"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := service.Complete(context.Background(), "session-001"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sessions.updated) != 1 {
			t.Fatalf("second complete must not write, got %d updates", len(sessions.updated))
		}
	})
}

func TestSessionService_ListSessions(t *testing.T) {
	t.Run("orders by scheduled time", func(t *testing.T) {
		sessions := &sessionRepoStub{list: []Session{
			{ID: "b", ScheduledFor: testReference.Add(2 * time.Hour)},
			{ID: "a", ScheduledFor: testReference.Add(time.Hour)},
			{ID: "c", ScheduledFor: testReference.Add(time.Hour)},
		}}
		service := NewSessionService(sessions, nil, nil, nil, nil, "", nil, testClock(), nil)

		listed, err := service.ListSessions(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := []string{listed[0].ID, listed[1].ID, listed[2].ID}
		if got[0] != "a" || got[1] != "c" || got[2] != "b" {
			t.Fatalf("unexpected order: %v", got)
		}
	})
}

func TestSessionService_Invite(t *testing.T) {
	t.Run("code sessions mint a verifiable one-time code", func(t *testing.T) {
		session := newTestSession()
		session.VerificationMethod = VerifyCode
		service, _, invites, _ := newSessionServiceFixture(session)

		result, err := service.Invite(context.Background(), InviteParams{
			SessionID: "session-001",
			Email:     "avery@example.com",
			Name:      "Avery Quinn",
			Side:      "Policyholder side",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.VerificationCode) != 6 {
			t.Fatalf("expected a six digit code, got %q", result.VerificationCode)
		}
		if result.Invite.CodeHash == "" {
			t.Fatalf("expected a stored code hash")
		}
		if err := VerifyCodeHash(result.Invite.CodeHash, result.VerificationCode); err != nil {
			t.Fatalf("minted code does not match its hash: %v", err)
		}
		if len(invites.created) != 1 {
			t.Fatalf("invite was not persisted")
		}
		if invites.created[0].Role != "Guest" {
			t.Fatalf("expected default role Guest, got %q", invites.created[0].Role)
		}
	})

	t.Run("link sessions mint a signed magic link", func(t *testing.T) {
		signer, err := NewMagicLinkSigner("test-secret", "http://mediation.local/join", time.Hour, testClock())
		if err != nil {
			t.Fatalf("signer setup failed: %v", err)
		}
		sessions := &sessionRepoStub{session: newTestSession()}
		invites := &inviteRepoStub{}
		service := NewSessionService(sessions, invites, nil, signer, nil, "http://mediation.local/join", sequentialIDs("invite"), testClock(), nil)

		result, err := service.Invite(context.Background(), InviteParams{
			SessionID: "session-001",
			Email:     "avery@example.com",
			Name:      "Avery Quinn",
			Side:      "Carrier side",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.MagicLink == "" {
			t.Fatalf("expected a magic link")
		}
		if result.Invite.CodeHash != "" {
			t.Fatalf("link invites carry no code hash")
		}
	})

	t.Run("rejects a side the session does not have", func(t *testing.T) {
		service, _, _, _ := newSessionServiceFixture(newTestSession())

		_, err := service.Invite(context.Background(), InviteParams{
			SessionID: "session-001",
			Email:     "avery@example.com",
			Name:      "Avery Quinn",
			Side:      "Adjuster side",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["side"]; !ok {
			t.Fatalf("expected side validation error, got %v", vErr.FieldErrors)
		}
	})
}
