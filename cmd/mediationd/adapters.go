package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/mediation-portal/internal/application"
	"github.com/example/mediation-portal/internal/persistence"
)

// mapStorageError translates persistence sentinels into the application
// package's vocabulary. Other errors pass through unchanged.
func mapStorageError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return application.ErrNotFound
	}
	return err
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.CreateSession(ctx, toStoredSession(session)); err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return session, nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.UpdateSession(ctx, toStoredSession(session)); err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return session, nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return fromStoredSession(stored), nil
}

func (a *sessionRepositoryAdapter) ListSessions(ctx context.Context) ([]application.Session, error) {
	stored, err := a.repo.ListSessions(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	sessions := make([]application.Session, 0, len(stored))
	for _, record := range stored {
		sessions = append(sessions, fromStoredSession(record))
	}
	return sessions, nil
}

func toStoredSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:                 session.ID,
		Title:              session.Title,
		ScheduledFor:       session.ScheduledFor,
		DurationMinutes:    session.DurationMinutes,
		Status:             string(session.Status),
		JoinLink:           session.JoinLink,
		AccessPolicy:       string(session.AccessPolicy),
		VerificationMethod: string(session.VerificationMethod),
		CacheMinutes:       session.CacheMinutes,
		Mediator:           session.Mediator,
		StartedAt:          session.StartedAt,
		CompletedAt:        session.CompletedAt,
		Sides:              session.Sides,
		CreatedAt:          session.CreatedAt,
		UpdatedAt:          session.UpdatedAt,
	}
}

func fromStoredSession(stored persistence.Session) application.Session {
	return application.Session{
		ID:                 stored.ID,
		Title:              stored.Title,
		ScheduledFor:       stored.ScheduledFor,
		DurationMinutes:    stored.DurationMinutes,
		Status:             application.SessionStatus(stored.Status),
		JoinLink:           stored.JoinLink,
		AccessPolicy:       application.AccessPolicy(stored.AccessPolicy),
		VerificationMethod: application.VerificationMethod(stored.VerificationMethod),
		CacheMinutes:       stored.CacheMinutes,
		Mediator:           stored.Mediator,
		StartedAt:          stored.StartedAt,
		CompletedAt:        stored.CompletedAt,
		Sides:              stored.Sides,
		CreatedAt:          stored.CreatedAt,
		UpdatedAt:          stored.UpdatedAt,
	}
}

type waitingRepositoryAdapter struct {
	repo interface {
		persistence.WaitingRepository
		persistence.AttemptRepository
	}
}

func newWaitingRepositoryAdapter(repo interface {
	persistence.WaitingRepository
	persistence.AttemptRepository
}) *waitingRepositoryAdapter {
	return &waitingRepositoryAdapter{repo: repo}
}

func (a *waitingRepositoryAdapter) CreateEntry(ctx context.Context, entry application.WaitingEntry) (application.WaitingEntry, error) {
	if err := a.repo.CreateEntry(ctx, toStoredEntry(entry)); err != nil {
		return application.WaitingEntry{}, mapStorageError(err)
	}
	return entry, nil
}

func (a *waitingRepositoryAdapter) UpdateEntry(ctx context.Context, entry application.WaitingEntry) (application.WaitingEntry, error) {
	if err := a.repo.UpdateEntry(ctx, toStoredEntry(entry)); err != nil {
		return application.WaitingEntry{}, mapStorageError(err)
	}
	return entry, nil
}

func (a *waitingRepositoryAdapter) GetEntry(ctx context.Context, sessionID, entryID string) (application.WaitingEntry, error) {
	stored, err := a.repo.GetEntry(ctx, sessionID, entryID)
	if err != nil {
		return application.WaitingEntry{}, mapStorageError(err)
	}
	return fromStoredEntry(stored), nil
}

func (a *waitingRepositoryAdapter) ListEntries(ctx context.Context, sessionID string) ([]application.WaitingEntry, error) {
	stored, err := a.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	entries := make([]application.WaitingEntry, 0, len(stored))
	for _, record := range stored {
		entries = append(entries, fromStoredEntry(record))
	}
	return entries, nil
}

func (a *waitingRepositoryAdapter) DeleteExpiredEntries(ctx context.Context, reference time.Time) (int, error) {
	removed, err := a.repo.DeleteExpiredEntries(ctx, reference)
	return removed, mapStorageError(err)
}

func (a *waitingRepositoryAdapter) IncrementAttempts(ctx context.Context, sessionID, name string) (int, error) {
	count, err := a.repo.IncrementAttempts(ctx, sessionID, name)
	return count, mapStorageError(err)
}

func (a *waitingRepositoryAdapter) GetAttempts(ctx context.Context, sessionID, name string) (int, error) {
	count, err := a.repo.GetAttempts(ctx, sessionID, name)
	return count, mapStorageError(err)
}

func toStoredEntry(entry application.WaitingEntry) persistence.WaitingEntry {
	return persistence.WaitingEntry{
		ID:         entry.ID,
		SessionID:  entry.SessionID,
		Name:       entry.Name,
		Side:       entry.Side,
		Role:       entry.Role,
		Status:     string(entry.Status),
		EnqueuedAt: entry.EnqueuedAt,
		ExpiresAt:  entry.ExpiresAt,
		AdmittedAt: entry.AdmittedAt,
	}
}

func fromStoredEntry(stored persistence.WaitingEntry) application.WaitingEntry {
	return application.WaitingEntry{
		ID:         stored.ID,
		SessionID:  stored.SessionID,
		Name:       stored.Name,
		Side:       stored.Side,
		Role:       stored.Role,
		Status:     application.EntryStatus(stored.Status),
		EnqueuedAt: stored.EnqueuedAt,
		ExpiresAt:  stored.ExpiresAt,
		AdmittedAt: stored.AdmittedAt,
	}
}

type tokenRepositoryAdapter struct {
	repo persistence.TokenRepository
}

func newTokenRepositoryAdapter(repo persistence.TokenRepository) *tokenRepositoryAdapter {
	return &tokenRepositoryAdapter{repo: repo}
}

func (a *tokenRepositoryAdapter) CreateToken(ctx context.Context, token application.RejoinToken) (application.RejoinToken, error) {
	if err := a.repo.CreateToken(ctx, persistence.RejoinToken(token)); err != nil {
		return application.RejoinToken{}, mapStorageError(err)
	}
	return token, nil
}

func (a *tokenRepositoryAdapter) ListTokensForName(ctx context.Context, sessionID, name string) ([]application.RejoinToken, error) {
	stored, err := a.repo.ListTokensForName(ctx, sessionID, name)
	if err != nil {
		return nil, mapStorageError(err)
	}
	tokens := make([]application.RejoinToken, 0, len(stored))
	for _, record := range stored {
		tokens = append(tokens, application.RejoinToken(record))
	}
	return tokens, nil
}

func (a *tokenRepositoryAdapter) DeleteExpiredTokens(ctx context.Context, reference time.Time) error {
	return mapStorageError(a.repo.DeleteExpiredTokens(ctx, reference))
}

type rosterAdapter struct {
	repo interface {
		persistence.AdminRepository
		persistence.ParticipantRepository
	}
}

func newRosterAdapter(repo interface {
	persistence.AdminRepository
	persistence.ParticipantRepository
}) *rosterAdapter {
	return &rosterAdapter{repo: repo}
}

func (a *rosterAdapter) CreateAdmin(ctx context.Context, admin application.MeetingAdmin) (application.MeetingAdmin, error) {
	permissions := make([]string, 0, len(admin.Permissions))
	for _, permission := range admin.Permissions {
		permissions = append(permissions, string(permission))
	}
	stored := persistence.MeetingAdmin{
		SessionID:   admin.SessionID,
		Name:        admin.Name,
		Email:       admin.Email,
		Designation: admin.Designation,
		Permissions: permissions,
		AddedBy:     admin.AddedBy,
		GrantedAt:   admin.GrantedAt,
	}
	if err := a.repo.CreateAdmin(ctx, stored); err != nil {
		return application.MeetingAdmin{}, mapStorageError(err)
	}
	return admin, nil
}

func (a *rosterAdapter) ListAdmins(ctx context.Context, sessionID string) ([]application.MeetingAdmin, error) {
	stored, err := a.repo.ListAdmins(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	admins := make([]application.MeetingAdmin, 0, len(stored))
	for _, record := range stored {
		permissions := make([]application.Permission, 0, len(record.Permissions))
		for _, permission := range record.Permissions {
			permissions = append(permissions, application.Permission(permission))
		}
		admins = append(admins, application.MeetingAdmin{
			SessionID:   record.SessionID,
			Name:        record.Name,
			Email:       record.Email,
			Designation: record.Designation,
			Permissions: permissions,
			AddedBy:     record.AddedBy,
			GrantedAt:   record.GrantedAt,
		})
	}
	return admins, nil
}

func (a *rosterAdapter) UpsertParticipant(ctx context.Context, participant application.Participant) (application.Participant, error) {
	if err := a.repo.UpsertParticipant(ctx, persistence.Participant(participant)); err != nil {
		return application.Participant{}, mapStorageError(err)
	}
	return participant, nil
}

func (a *rosterAdapter) ListParticipants(ctx context.Context, sessionID string) ([]application.Participant, error) {
	stored, err := a.repo.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	roster := make([]application.Participant, 0, len(stored))
	for _, record := range stored {
		roster = append(roster, application.Participant(record))
	}
	return roster, nil
}

type breakoutRepositoryAdapter struct {
	repo persistence.BreakoutRepository
}

func newBreakoutRepositoryAdapter(repo persistence.BreakoutRepository) *breakoutRepositoryAdapter {
	return &breakoutRepositoryAdapter{repo: repo}
}

func (a *breakoutRepositoryAdapter) CreateRoom(ctx context.Context, room application.BreakoutRoom) (application.BreakoutRoom, error) {
	if err := a.repo.CreateRoom(ctx, persistence.BreakoutRoom(room)); err != nil {
		err = mapStorageError(err)
		if errors.Is(err, persistence.ErrDuplicate) {
			err = application.ErrDuplicateRoomName
		}
		return application.BreakoutRoom{}, err
	}
	return room, nil
}

func (a *breakoutRepositoryAdapter) UpdateRoom(ctx context.Context, room application.BreakoutRoom) (application.BreakoutRoom, error) {
	if err := a.repo.UpdateRoom(ctx, persistence.BreakoutRoom(room)); err != nil {
		return application.BreakoutRoom{}, mapStorageError(err)
	}
	return room, nil
}

func (a *breakoutRepositoryAdapter) GetRoom(ctx context.Context, sessionID, roomID string) (application.BreakoutRoom, error) {
	stored, err := a.repo.GetRoom(ctx, sessionID, roomID)
	if err != nil {
		return application.BreakoutRoom{}, mapStorageError(err)
	}
	return application.BreakoutRoom(stored), nil
}

func (a *breakoutRepositoryAdapter) ListRooms(ctx context.Context, sessionID string) ([]application.BreakoutRoom, error) {
	stored, err := a.repo.ListRooms(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	rooms := make([]application.BreakoutRoom, 0, len(stored))
	for _, record := range stored {
		rooms = append(rooms, application.BreakoutRoom(record))
	}
	return rooms, nil
}

type messagingRepositoryAdapter struct {
	repo interface {
		persistence.MessageRepository
		persistence.SummonRepository
	}
}

func newMessagingRepositoryAdapter(repo interface {
	persistence.MessageRepository
	persistence.SummonRepository
}) *messagingRepositoryAdapter {
	return &messagingRepositoryAdapter{repo: repo}
}

func (a *messagingRepositoryAdapter) CreateMessage(ctx context.Context, message application.Message) (application.Message, error) {
	if err := a.repo.CreateMessage(ctx, persistence.Message(message)); err != nil {
		return application.Message{}, mapStorageError(err)
	}
	return message, nil
}

func (a *messagingRepositoryAdapter) ListMessages(ctx context.Context, sessionID string) ([]application.Message, error) {
	stored, err := a.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	messages := make([]application.Message, 0, len(stored))
	for _, record := range stored {
		messages = append(messages, application.Message(record))
	}
	return messages, nil
}

func (a *messagingRepositoryAdapter) CreateSummon(ctx context.Context, summon application.Summon) (application.Summon, error) {
	if err := a.repo.CreateSummon(ctx, toStoredSummon(summon)); err != nil {
		return application.Summon{}, mapStorageError(err)
	}
	return summon, nil
}

func (a *messagingRepositoryAdapter) UpdateSummon(ctx context.Context, summon application.Summon) (application.Summon, error) {
	if err := a.repo.UpdateSummon(ctx, toStoredSummon(summon)); err != nil {
		return application.Summon{}, mapStorageError(err)
	}
	return summon, nil
}

func (a *messagingRepositoryAdapter) GetSummon(ctx context.Context, sessionID, summonID string) (application.Summon, error) {
	stored, err := a.repo.GetSummon(ctx, sessionID, summonID)
	if err != nil {
		return application.Summon{}, mapStorageError(err)
	}
	return fromStoredSummon(stored), nil
}

func (a *messagingRepositoryAdapter) ListSummons(ctx context.Context, sessionID string) ([]application.Summon, error) {
	stored, err := a.repo.ListSummons(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	summons := make([]application.Summon, 0, len(stored))
	for _, record := range stored {
		summons = append(summons, fromStoredSummon(record))
	}
	return summons, nil
}

func toStoredSummon(summon application.Summon) persistence.Summon {
	return persistence.Summon{
		ID:          summon.ID,
		SessionID:   summon.SessionID,
		Side:        summon.Side,
		RequestedBy: summon.RequestedBy,
		Note:        summon.Note,
		Status:      string(summon.Status),
		RaisedAt:    summon.RaisedAt,
		UpdatedAt:   summon.UpdatedAt,
	}
}

func fromStoredSummon(stored persistence.Summon) application.Summon {
	return application.Summon{
		ID:          stored.ID,
		SessionID:   stored.SessionID,
		Side:        stored.Side,
		RequestedBy: stored.RequestedBy,
		Note:        stored.Note,
		Status:      application.SummonStatus(stored.Status),
		RaisedAt:    stored.RaisedAt,
		UpdatedAt:   stored.UpdatedAt,
	}
}

type inviteRepositoryAdapter struct {
	repo persistence.InviteRepository
}

func newInviteRepositoryAdapter(repo persistence.InviteRepository) *inviteRepositoryAdapter {
	return &inviteRepositoryAdapter{repo: repo}
}

func (a *inviteRepositoryAdapter) CreateInvite(ctx context.Context, invite application.Invite) (application.Invite, error) {
	if err := a.repo.CreateInvite(ctx, persistence.Invite(invite)); err != nil {
		return application.Invite{}, mapStorageError(err)
	}
	return invite, nil
}

func (a *inviteRepositoryAdapter) GetInviteByName(ctx context.Context, sessionID, name string) (application.Invite, error) {
	stored, err := a.repo.GetInviteByName(ctx, sessionID, name)
	if err != nil {
		return application.Invite{}, mapStorageError(err)
	}
	return application.Invite(stored), nil
}

func (a *inviteRepositoryAdapter) ListInvites(ctx context.Context, sessionID string) ([]application.Invite, error) {
	stored, err := a.repo.ListInvites(ctx, sessionID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	invites := make([]application.Invite, 0, len(stored))
	for _, record := range stored {
		invites = append(invites, application.Invite(record))
	}
	return invites, nil
}
