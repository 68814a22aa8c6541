package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type messageRepoStub struct {
	messages []Message
}

func (r *messageRepoStub) CreateMessage(ctx context.Context, message Message) (Message, error) {
	r.messages = append(r.messages, message)
	return message, nil
}

func (r *messageRepoStub) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	out := make([]Message, 0, len(r.messages))
	for _, message := range r.messages {
		if message.SessionID == sessionID {
			out = append(out, message)
		}
	}
	return out, nil
}

type summonRepoStub struct {
	summons map[string]Summon
}

func newSummonRepoStub() *summonRepoStub {
	return &summonRepoStub{summons: make(map[string]Summon)}
}

func (r *summonRepoStub) CreateSummon(ctx context.Context, summon Summon) (Summon, error) {
	r.summons[summon.ID] = summon
	return summon, nil
}

func (r *summonRepoStub) GetSummon(ctx context.Context, sessionID, summonID string) (Summon, error) {
	summon, ok := r.summons[summonID]
	if !ok || summon.SessionID != sessionID {
		return Summon{}, ErrNotFound
	}
	return summon, nil
}

func (r *summonRepoStub) UpdateSummon(ctx context.Context, summon Summon) (Summon, error) {
	if _, ok := r.summons[summon.ID]; !ok {
		return Summon{}, ErrNotFound
	}
	r.summons[summon.ID] = summon
	return summon, nil
}

func (r *summonRepoStub) ListSummons(ctx context.Context, sessionID string) ([]Summon, error) {
	out := make([]Summon, 0, len(r.summons))
	for _, summon := range r.summons {
		if summon.SessionID == sessionID {
			out = append(out, summon)
		}
	}
	return out, nil
}

type authorityVerifierStub struct {
	allow bool
}

func (a *authorityVerifierStub) IsAuthority(ctx context.Context, session Session, actor Actor) bool {
	return a.allow
}

func newMessagingFixture(session Session) (*MessagingService, *messageRepoStub, *summonRepoStub, *authorityVerifierStub) {
	sessions := &sessionRepoStub{session: session}
	messages := &messageRepoStub{}
	summons := newSummonRepoStub()
	authority := &authorityVerifierStub{allow: true}
	service := NewMessagingService(sessions, messages, summons, authority, nil, sequentialIDs("msg"), testClock(), nil)
	return service, messages, summons, authority
}

func TestMessagingService_SendMessage(t *testing.T) {
	t.Run("requires host authority", func(t *testing.T) {
		service, _, _, authority := newMessagingFixture(newTestSession())
		authority.allow = false

		_, err := service.SendMessage(context.Background(), SendMessageParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "Casey Outsider"},
			Body:      "Please reconvene.",
		})
		if !errors.Is(err, ErrAuthorityRequired) {
			t.Fatalf("expected ErrAuthorityRequired, got %v", err)
		}
	})

	t.Run("rejects a blank body", func(t *testing.T) {
		service, _, _, _ := newMessagingFixture(newTestSession())

		_, err := service.SendMessage(context.Background(), SendMessageParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "Jordan Avery"},
			Body:      "   \n\t",
		})
		if !errors.Is(err, ErrEmptyBody) {
			t.Fatalf("expected ErrEmptyBody, got %v", err)
		}
	})

	t.Run("defaults recipients to everyone", func(t *testing.T) {
		service, messages, _, _ := newMessagingFixture(newTestSession())

		message, err := service.SendMessage(context.Background(), SendMessageParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "Jordan Avery"},
			Body:      "We resume at 11:00.",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(message.Recipients) != 1 || message.Recipients[0] != RecipientAll {
			t.Fatalf("expected the all recipient, got %v", message.Recipients)
		}
		if message.Author != "Jordan Avery" {
			t.Fatalf("expected author attribution, got %q", message.Author)
		}
		if len(messages.messages) != 1 {
			t.Fatalf("message was not persisted")
		}
	})

	t.Run("preserves a named recipient list", func(t *testing.T) {
		service, _, _, _ := newMessagingFixture(newTestSession())

		message, err := service.SendMessage(context.Background(), SendMessageParams{
			SessionID:  "session-001",
			Actor:      Actor{Name: "Jordan Avery"},
			Body:       "Carrier side only.",
			Recipients: []string{"Carrier side", "Carrier side"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(message.Recipients) != 1 || message.Recipients[0] != "Carrier side" {
			t.Fatalf("expected deduplicated recipients, got %v", message.Recipients)
		}
	})
}

func TestMessagingService_ListMessages(t *testing.T) {
	t.Run("newest first", func(t *testing.T) {
		service, messages, _, _ := newMessagingFixture(newTestSession())
		messages.messages = []Message{
			{ID: "m1", SessionID: "session-001", SentAt: testReference},
			{ID: "m2", SessionID: "session-001", SentAt: testReference.Add(time.Minute)},
		}

		listed, err := service.ListMessages(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if listed[0].ID != "m2" {
			t.Fatalf("expected newest first, got %q", listed[0].ID)
		}
	})
}

func TestMessagingService_RaiseSummon(t *testing.T) {
	t.Run("any participant may raise one", func(t *testing.T) {
		service, _, summons, authority := newMessagingFixture(newTestSession())
		authority.allow = false

		summon, err := service.RaiseSummon(context.Background(), RaiseSummonParams{
			SessionID:   "session-001",
			Side:        "Policyholder side",
			RequestedBy: "Avery Quinn",
			Note:        "We have a question about the offer.",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summon.Status != SummonOpen {
			t.Fatalf("expected open status, got %s", summon.Status)
		}
		if len(summons.summons) != 1 {
			t.Fatalf("summon was not persisted")
		}
	})

	t.Run("rejects an unknown side", func(t *testing.T) {
		service, _, _, _ := newMessagingFixture(newTestSession())

		_, err := service.RaiseSummon(context.Background(), RaiseSummonParams{
			SessionID: "session-001",
			Side:      "Adjuster side",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestMessagingService_AdvanceSummon(t *testing.T) {
	seed := func(summons *summonRepoStub, status SummonStatus) {
		summons.summons["s1"] = Summon{
			ID:        "s1",
			SessionID: "session-001",
			Side:      "Policyholder side",
			Status:    status,
			RaisedAt:  testReference,
			UpdatedAt: testReference,
		}
	}

	t.Run("requires host authority", func(t *testing.T) {
		service, _, summons, authority := newMessagingFixture(newTestSession())
		seed(summons, SummonOpen)
		authority.allow = false

		_, err := service.AdvanceSummon(context.Background(), AdvanceSummonParams{
			SessionID: "session-001",
			SummonID:  "s1",
			Status:    SummonAcknowledged,
			Actor:     Actor{Name: "Casey Outsider"},
		})
		if !errors.Is(err, ErrAuthorityRequired) {
			t.Fatalf("expected ErrAuthorityRequired, got %v", err)
		}
	})

	t.Run("moves forward through the lifecycle", func(t *testing.T) {
		service, _, summons, _ := newMessagingFixture(newTestSession())
		seed(summons, SummonOpen)
		actor := Actor{Name: "Jordan Avery"}

		acked, err := service.AdvanceSummon(context.Background(), AdvanceSummonParams{
			SessionID: "session-001", SummonID: "s1", Status: SummonAcknowledged, Actor: actor,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if acked.Status != SummonAcknowledged {
			t.Fatalf("expected acknowledged, got %s", acked.Status)
		}

		resolved, err := service.AdvanceSummon(context.Background(), AdvanceSummonParams{
			SessionID: "session-001", SummonID: "s1", Status: SummonResolved, Actor: actor,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resolved.Status != SummonResolved {
			t.Fatalf("expected resolved, got %s", resolved.Status)
		}
	})

	t.Run("open may jump straight to resolved", func(t *testing.T) {
		service, _, summons, _ := newMessagingFixture(newTestSession())
		seed(summons, SummonOpen)

		_, err := service.AdvanceSummon(context.Background(), AdvanceSummonParams{
			SessionID: "session-001", SummonID: "s1", Status: SummonResolved, Actor: Actor{Name: "Jordan Avery"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects a regression", func(t *testing.T) {
		service, _, summons, _ := newMessagingFixture(newTestSession())
		seed(summons, SummonResolved)

		_, err := service.AdvanceSummon(context.Background(), AdvanceSummonParams{
			SessionID: "session-001", SummonID: "s1", Status: SummonAcknowledged, Actor: Actor{Name: "Jordan Avery"},
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("rejects repeating the current state", func(t *testing.T) {
		service, _, summons, _ := newMessagingFixture(newTestSession())
		seed(summons, SummonAcknowledged)

		_, err := service.AdvanceSummon(context.Background(), AdvanceSummonParams{
			SessionID: "session-001", SummonID: "s1", Status: SummonAcknowledged, Actor: Actor{Name: "Jordan Avery"},
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		service, _, summons, _ := newMessagingFixture(newTestSession())
		seed(summons, SummonOpen)

		_, err := service.AdvanceSummon(context.Background(), AdvanceSummonParams{
			SessionID: "session-001", SummonID: "s1", Status: SummonStatus("escalated"), Actor: Actor{Name: "Jordan Avery"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestMessagingService_ListSummons(t *testing.T) {
	t.Run("newest first", func(t *testing.T) {
		service, _, summons, _ := newMessagingFixture(newTestSession())
		summons.summons["s1"] = Summon{ID: "s1", SessionID: "session-001", RaisedAt: testReference}
		summons.summons["s2"] = Summon{ID: "s2", SessionID: "session-001", RaisedAt: testReference.Add(time.Minute)}

		listed, err := service.ListSummons(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if listed[0].ID != "s2" {
			t.Fatalf("expected newest first, got %q", listed[0].ID)
		}
	})
}
