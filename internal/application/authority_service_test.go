package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type adminRepoStub struct {
	admins    []MeetingAdmin
	createErr error
	listErr   error
}

func (r *adminRepoStub) CreateAdmin(ctx context.Context, admin MeetingAdmin) (MeetingAdmin, error) {
	if r.createErr != nil {
		return MeetingAdmin{}, r.createErr
	}
	r.admins = append(r.admins, admin)
	return admin, nil
}

func (r *adminRepoStub) ListAdmins(ctx context.Context, sessionID string) ([]MeetingAdmin, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]MeetingAdmin, 0, len(r.admins))
	for _, admin := range r.admins {
		if admin.SessionID == sessionID {
			out = append(out, admin)
		}
	}
	return out, nil
}

func TestAuthorityService_GrantAdmin(t *testing.T) {
	t.Run("mediator delegates the full bundle", func(t *testing.T) {
		sessions := &sessionRepoStub{session: newTestSession()}
		admins := &adminRepoStub{}
		service := NewAuthorityService(sessions, admins, nil, testClock(), nil)

		admin, err := service.GrantAdmin(context.Background(), GrantAdminParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "Jordan Avery"},
			Input: AdminInput{
				Name:        "Riley Chen",
				Email:       "riley@example.com",
				Designation: "Co-mediator",
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(admin.Permissions) != len(FullPermissionBundle()) {
			t.Fatalf("expected the full bundle, got %v", admin.Permissions)
		}
		if admin.AddedBy != "Jordan Avery" {
			t.Fatalf("expected grantor attribution, got %q", admin.AddedBy)
		}
	})

	t.Run("non-authority cannot delegate", func(t *testing.T) {
		sessions := &sessionRepoStub{session: newTestSession()}
		service := NewAuthorityService(sessions, &adminRepoStub{}, nil, testClock(), nil)

		_, err := service.GrantAdmin(context.Background(), GrantAdminParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "Casey Outsider"},
			Input:     AdminInput{Name: "Riley Chen", Email: "riley@example.com"},
		})
		if !errors.Is(err, ErrAuthorityRequired) {
			t.Fatalf("expected ErrAuthorityRequired, got %v", err)
		}
	})

	t.Run("delegation closes once the session started", func(t *testing.T) {
		session := newTestSession()
		at := testReference.Add(-time.Minute)
		session.StartedAt = &at
		sessions := &sessionRepoStub{session: session}
		service := NewAuthorityService(sessions, &adminRepoStub{}, nil, testClock(), nil)

		_, err := service.GrantAdmin(context.Background(), GrantAdminParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "Jordan Avery"},
			Input:     AdminInput{Name: "Riley Chen", Email: "riley@example.com"},
		})
		if !errors.Is(err, ErrSessionLocked) {
			t.Fatalf("expected ErrSessionLocked, got %v", err)
		}
	})

	t.Run("validates grantee attributes", func(t *testing.T) {
		sessions := &sessionRepoStub{session: newTestSession()}
		service := NewAuthorityService(sessions, &adminRepoStub{}, nil, testClock(), nil)

		_, err := service.GrantAdmin(context.Background(), GrantAdminParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "Jordan Avery"},
			Input:     AdminInput{Name: "  ", Email: ""},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(vErr.FieldErrors) != 2 {
			t.Fatalf("expected two field errors, got %v", vErr.FieldErrors)
		}
	})

	t.Run("a delegated admin can delegate further", func(t *testing.T) {
		sessions := &sessionRepoStub{session: newTestSession()}
		admins := &adminRepoStub{admins: []MeetingAdmin{{
			SessionID:   "session-001",
			Name:        "Riley Chen",
			Permissions: FullPermissionBundle(),
		}}}
		service := NewAuthorityService(sessions, admins, nil, testClock(), nil)

		_, err := service.GrantAdmin(context.Background(), GrantAdminParams{
			SessionID: "session-001",
			Actor:     Actor{Name: "riley chen"},
			Input:     AdminInput{Name: "Sam Ortiz", Email: "sam@example.com"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestAuthorityService_CheckAuthority(t *testing.T) {
	session := newTestSession()

	t.Run("mediator holds every permission", func(t *testing.T) {
		service := NewAuthorityService(nil, &adminRepoStub{}, nil, testClock(), nil)

		for _, permission := range FullPermissionBundle() {
			if !service.CheckAuthority(context.Background(), session, Actor{Name: "Jordan Avery"}, permission) {
				t.Fatalf("mediator must hold %s", permission)
			}
		}
	})

	t.Run("mediator name matches case-insensitively", func(t *testing.T) {
		service := NewAuthorityService(nil, &adminRepoStub{}, nil, testClock(), nil)

		if !service.CheckAuthority(context.Background(), session, Actor{Name: "jordan avery"}, PermissionAdmission) {
			t.Fatalf("mediator match must be case-insensitive")
		}
	})

	t.Run("admins hold only their granted permissions", func(t *testing.T) {
		admins := &adminRepoStub{admins: []MeetingAdmin{{
			SessionID:   "session-001",
			Name:        "Riley Chen",
			Permissions: []Permission{PermissionAdmission},
		}}}
		service := NewAuthorityService(nil, admins, nil, testClock(), nil)

		actor := Actor{Name: "Riley Chen"}
		if !service.CheckAuthority(context.Background(), session, actor, PermissionAdmission) {
			t.Fatalf("expected admission permission")
		}
		if service.CheckAuthority(context.Background(), session, actor, PermissionBreakout) {
			t.Fatalf("unexpected breakout permission")
		}
	})

	t.Run("repository failure denies without error", func(t *testing.T) {
		admins := &adminRepoStub{listErr: errors.New("storage down")}
		service := NewAuthorityService(nil, admins, nil, testClock(), nil)

		if service.CheckAuthority(context.Background(), session, Actor{Name: "Riley Chen"}, PermissionAdmission) {
			t.Fatalf("lookup failure must deny authority")
		}
	})

	t.Run("anonymous actor has no authority", func(t *testing.T) {
		service := NewAuthorityService(nil, &adminRepoStub{}, nil, testClock(), nil)

		if service.CheckAuthority(context.Background(), session, Actor{}, PermissionAdmission) {
			t.Fatalf("empty actor must be denied")
		}
	})
}

func TestAuthorityService_ListAuthorityHolders(t *testing.T) {
	t.Run("mediator leads the roster", func(t *testing.T) {
		sessions := &sessionRepoStub{session: newTestSession()}
		admins := &adminRepoStub{admins: []MeetingAdmin{
			{SessionID: "session-001", Name: "Sam Ortiz", GrantedAt: testReference.Add(2 * time.Minute)},
			{SessionID: "session-001", Name: "Riley Chen", GrantedAt: testReference.Add(time.Minute)},
		}}
		service := NewAuthorityService(sessions, admins, nil, testClock(), nil)

		holders, err := service.ListAuthorityHolders(context.Background(), "session-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(holders) != 3 {
			t.Fatalf("expected three holders, got %d", len(holders))
		}
		if holders[0].Name != "Jordan Avery" {
			t.Fatalf("mediator must lead the roster, got %q", holders[0].Name)
		}
		if holders[1].Name != "Riley Chen" || holders[2].Name != "Sam Ortiz" {
			t.Fatalf("admins must be ordered by grant time: %q, %q", holders[1].Name, holders[2].Name)
		}
	})
}
