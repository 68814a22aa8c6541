package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type breakoutRepoStub struct {
	rooms     map[string]BreakoutRoom
	createErr error
	listErr   error
}

func newBreakoutRepoStub() *breakoutRepoStub {
	return &breakoutRepoStub{rooms: make(map[string]BreakoutRoom)}
}

func (r *breakoutRepoStub) CreateRoom(ctx context.Context, room BreakoutRoom) (BreakoutRoom, error) {
	if r.createErr != nil {
		return BreakoutRoom{}, r.createErr
	}
	r.rooms[room.ID] = room
	return room, nil
}

func (r *breakoutRepoStub) GetRoom(ctx context.Context, sessionID, roomID string) (BreakoutRoom, error) {
	room, ok := r.rooms[roomID]
	if !ok || room.SessionID != sessionID {
		return BreakoutRoom{}, ErrNotFound
	}
	return room, nil
}

func (r *breakoutRepoStub) UpdateRoom(ctx context.Context, room BreakoutRoom) (BreakoutRoom, error) {
	if _, ok := r.rooms[room.ID]; !ok {
		return BreakoutRoom{}, ErrNotFound
	}
	r.rooms[room.ID] = room
	return room, nil
}

func (r *breakoutRepoStub) ListRooms(ctx context.Context, sessionID string) ([]BreakoutRoom, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]BreakoutRoom, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.SessionID == sessionID {
			out = append(out, room)
		}
	}
	return out, nil
}

func newBreakoutFixture(session Session) (*BreakoutService, *breakoutRepoStub, *participantRepoStub, *authorityCheckerStub) {
	sessions := &sessionRepoStub{session: session}
	rooms := newBreakoutRepoStub()
	participants := &participantRepoStub{}
	authority := &authorityCheckerStub{allow: true}
	service := NewBreakoutService(sessions, rooms, participants, authority, nil, sequentialIDs("room"), testClock(), nil)
	return service, rooms, participants, authority
}

func TestBreakoutService_EnsureBaseline(t *testing.T) {
	t.Run("creates one room per side plus the host room", func(t *testing.T) {
		service, rooms, _, _ := newBreakoutFixture(newTestSession())

		if err := service.EnsureBaseline(context.Background(), newTestSession()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		listed, err := service.ListRooms(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(listed) != 3 {
			t.Fatalf("expected three baseline rooms, got %d", len(listed))
		}
		names := make(map[string]bool, len(listed))
		for _, room := range listed {
			if !room.Baseline {
				t.Fatalf("expected baseline flag on %q", room.Name)
			}
			names[room.Name] = true
		}
		if !names["Policyholder side"] || !names["Carrier side"] || !names[HostRoomName] {
			t.Fatalf("unexpected baseline names: %v", names)
		}
		if len(rooms.rooms) != 3 {
			t.Fatalf("expected three persisted rooms, got %d", len(rooms.rooms))
		}
	})

	t.Run("tolerates rooms that already exist", func(t *testing.T) {
		service, rooms, _, _ := newBreakoutFixture(newTestSession())
		rooms.rooms["existing"] = BreakoutRoom{
			ID:        "existing",
			SessionID: "session-001",
			Name:      "policyholder side",
			Baseline:  true,
		}

		if err := service.EnsureBaseline(context.Background(), newTestSession()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rooms.rooms) != 3 {
			t.Fatalf("expected three rooms after reprovisioning, got %d", len(rooms.rooms))
		}
	})
}

func TestBreakoutService_CreateRoom(t *testing.T) {
	t.Run("requires breakout authority", func(t *testing.T) {
		service, _, _, authority := newBreakoutFixture(newTestSession())
		authority.allow = false

		_, err := service.CreateRoom(context.Background(), CreateBreakoutParams{
			SessionID:      "session-001",
			Actor:          Actor{Name: "Casey Outsider"},
			Name:           "Settlement huddle",
			ParticipantIDs: []string{"Avery Quinn"},
		})
		if !errors.Is(err, ErrAuthorityRequired) {
			t.Fatalf("expected ErrAuthorityRequired, got %v", err)
		}
	})

	t.Run("rejects an empty selection", func(t *testing.T) {
		service, _, _, _ := newBreakoutFixture(newTestSession())

		_, err := service.CreateRoom(context.Background(), CreateBreakoutParams{
			SessionID:      "session-001",
			Actor:          Actor{Name: "Jordan Avery"},
			Name:           "Settlement huddle",
			ParticipantIDs: []string{"  ", ""},
		})
		if !errors.Is(err, ErrEmptySelection) {
			t.Fatalf("expected ErrEmptySelection, got %v", err)
		}
	})

	t.Run("rejects a duplicate name case-insensitively", func(t *testing.T) {
		service, rooms, _, _ := newBreakoutFixture(newTestSession())
		rooms.rooms["r1"] = BreakoutRoom{ID: "r1", SessionID: "session-001", Name: "Settlement Huddle"}

		_, err := service.CreateRoom(context.Background(), CreateBreakoutParams{
			SessionID:      "session-001",
			Actor:          Actor{Name: "Jordan Avery"},
			Name:           "settlement huddle",
			ParticipantIDs: []string{"Avery Quinn"},
		})
		if !errors.Is(err, ErrDuplicateRoomName) {
			t.Fatalf("expected ErrDuplicateRoomName, got %v", err)
		}
	})

	t.Run("creates a room with a deduplicated selection", func(t *testing.T) {
		service, _, _, _ := newBreakoutFixture(newTestSession())

		room, err := service.CreateRoom(context.Background(), CreateBreakoutParams{
			SessionID:      "session-001",
			Actor:          Actor{Name: "Jordan Avery"},
			Name:           "Settlement huddle",
			ParticipantIDs: []string{"Avery Quinn", "Avery Quinn", "Drew Lang"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(room.Participants) != 2 {
			t.Fatalf("expected two members, got %v", room.Participants)
		}
		if room.Baseline {
			t.Fatalf("ad hoc rooms are not baseline")
		}
	})
}

func TestBreakoutService_Membership(t *testing.T) {
	seed := func(f *breakoutRepoStub) {
		f.rooms["r1"] = BreakoutRoom{
			ID:           "r1",
			SessionID:    "session-001",
			Name:         "Settlement huddle",
			Participants: []string{"Avery Quinn"},
		}
	}

	t.Run("adding twice is a no-op", func(t *testing.T) {
		service, rooms, _, _ := newBreakoutFixture(newTestSession())
		seed(rooms)

		if _, err := service.AddParticipant(context.Background(), "session-001", "r1", "Drew Lang"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		room, err := service.AddParticipant(context.Background(), "session-001", "r1", "Drew Lang")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(room.Participants) != 2 {
			t.Fatalf("expected two members, got %v", room.Participants)
		}
	})

	t.Run("removing an absent member is a no-op", func(t *testing.T) {
		service, rooms, _, _ := newBreakoutFixture(newTestSession())
		seed(rooms)

		room, err := service.RemoveParticipant(context.Background(), "session-001", "r1", "Drew Lang")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(room.Participants) != 1 {
			t.Fatalf("expected one member, got %v", room.Participants)
		}
	})

	t.Run("a participant may sit in several rooms", func(t *testing.T) {
		service, rooms, _, _ := newBreakoutFixture(newTestSession())
		seed(rooms)
		rooms.rooms["r2"] = BreakoutRoom{ID: "r2", SessionID: "session-001", Name: "Carrier caucus"}

		if _, err := service.AddParticipant(context.Background(), "session-001", "r2", "Avery Quinn"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first, _ := rooms.GetRoom(context.Background(), "session-001", "r1")
		second, _ := rooms.GetRoom(context.Background(), "session-001", "r2")
		if len(first.Participants) != 1 || len(second.Participants) != 1 {
			t.Fatalf("membership must be independent per room: %v / %v", first.Participants, second.Participants)
		}
	})

	t.Run("unknown room fails", func(t *testing.T) {
		service, _, _, _ := newBreakoutFixture(newTestSession())

		_, err := service.AddParticipant(context.Background(), "session-001", "missing", "Avery Quinn")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBreakoutService_ListRooms(t *testing.T) {
	t.Run("baseline rooms lead the listing", func(t *testing.T) {
		service, rooms, _, _ := newBreakoutFixture(newTestSession())
		rooms.rooms["adhoc"] = BreakoutRoom{ID: "adhoc", SessionID: "session-001", Name: "Huddle", CreatedAt: testReference}
		rooms.rooms["base"] = BreakoutRoom{ID: "base", SessionID: "session-001", Name: HostRoomName, Baseline: true, CreatedAt: testReference.Add(time.Minute)}

		listed, err := service.ListRooms(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if listed[0].ID != "base" {
			t.Fatalf("baseline room must lead, got %q", listed[0].ID)
		}
	})
}

func TestBreakoutService_ListAvailable(t *testing.T) {
	t.Run("excludes current members", func(t *testing.T) {
		service, rooms, participants, _ := newBreakoutFixture(newTestSession())
		rooms.rooms["r1"] = BreakoutRoom{
			ID:           "r1",
			SessionID:    "session-001",
			Participants: []string{"Avery Quinn"},
		}
		participants.list = []Participant{
			{SessionID: "session-001", Name: "Avery Quinn"},
			{SessionID: "session-001", Name: "Drew Lang"},
		}

		available, err := service.ListAvailable(context.Background(), "session-001", "r1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(available) != 1 || available[0].Name != "Drew Lang" {
			t.Fatalf("expected only Drew Lang, got %+v", available)
		}
	})
}
