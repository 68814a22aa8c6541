package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/mediation-portal/internal/application"
)

type sessionService interface {
	CreateSession(ctx context.Context, input application.SessionInput) (application.Session, error)
	UpdateSettings(ctx context.Context, sessionID string, patch application.SettingsPatch) (application.Session, error)
	Start(ctx context.Context, sessionID string) (application.Session, error)
	Complete(ctx context.Context, sessionID string) (application.Session, error)
	GetSession(ctx context.Context, sessionID string) (application.Session, error)
	ListSessions(ctx context.Context) ([]application.Session, error)
	Invite(ctx context.Context, params application.InviteParams) (application.InviteResult, error)
	ListInvites(ctx context.Context, sessionID string) ([]application.Invite, error)
}

type authorityService interface {
	GrantAdmin(ctx context.Context, params application.GrantAdminParams) (application.MeetingAdmin, error)
	ListAuthorityHolders(ctx context.Context, sessionID string) ([]application.MeetingAdmin, error)
}

type SessionHandler struct {
	service   sessionService
	authority authorityService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, authority authorityService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, authority: authority, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	session, err := h.service.CreateSession(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "session creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session scheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "session list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, toSessionDTO(session))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionListResponse{Sessions: dtos})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "Get", "session_id", sessionID)
	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "session fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateSettings", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode settings request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateSettings", "session_id", sessionID)
	session, err := h.service.UpdateSettings(r.Context(), sessionID, req.toPatch())
	if err != nil {
		logger.ErrorContext(r.Context(), "settings update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "settings updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Start", h.serviceStart)
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Complete", h.serviceComplete)
}

func (h *SessionHandler) serviceStart(ctx context.Context, id string) (application.Session, error) {
	return h.service.Start(ctx, id)
}

func (h *SessionHandler) serviceComplete(ctx context.Context, id string) (application.Session, error) {
	return h.service.Complete(ctx, id)
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, string) (application.Session, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), operation, "session_id", sessionID)
	session, err := apply(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "transition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(session.Status)).InfoContext(r.Context(), "session transitioned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	actor, _ := ActorFromContext(r.Context())

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Invite", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode invite request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Invite", "session_id", sessionID, "actor", actor.Name)
	result, err := h.service.Invite(r.Context(), application.InviteParams{
		SessionID: sessionID,
		Actor:     actor,
		Email:     req.Email,
		Name:      req.Name,
		Side:      req.Side,
		Role:      req.Role,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "invite failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("invite_id", result.Invite.ID).InfoContext(r.Context(), "invite queued")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, inviteResponse{
		Invite:           toInviteDTO(result.Invite),
		VerificationCode: result.VerificationCode,
		MagicLink:        result.MagicLink,
	})
}

func (h *SessionHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "ListInvites", "session_id", sessionID)
	invites, err := h.service.ListInvites(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "invite list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]inviteDTO, 0, len(invites))
	for _, invite := range invites {
		dtos = append(dtos, toInviteDTO(invite))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, inviteListResponse{Invites: dtos})
}

func (h *SessionHandler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.authority == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "GrantAdmin", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode admin request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "GrantAdmin", "session_id", sessionID, "actor", actor.Name)
	admin, err := h.authority.GrantAdmin(r.Context(), application.GrantAdminParams{
		SessionID: sessionID,
		Actor:     actor,
		Input: application.AdminInput{
			Name:        req.Name,
			Email:       req.Email,
			Designation: req.Designation,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "admin grant failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("admin_email", admin.Email).InfoContext(r.Context(), "admin granted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, adminResponse{Admin: toAdminDTO(admin)})
}

func (h *SessionHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.authority == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "ListAdmins", "session_id", sessionID)
	admins, err := h.authority.ListAuthorityHolders(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "admin list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]adminDTO, 0, len(admins))
	for _, admin := range admins {
		dtos = append(dtos, toAdminDTO(admin))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, adminListResponse{Admins: dtos})
}

type sessionRequest struct {
	Title              string   `json:"title"`
	ScheduledFor       string   `json:"scheduled_for"`
	DurationMinutes    int      `json:"duration_minutes"`
	AccessPolicy       string   `json:"access_policy"`
	VerificationMethod string   `json:"verification_method"`
	CacheMinutes       int      `json:"cache_minutes"`
	Mediator           string   `json:"mediator"`
	Sides              []string `json:"sides"`
}

func (r sessionRequest) toInput() application.SessionInput {
	input := application.SessionInput{
		Title:              r.Title,
		DurationMinutes:    r.DurationMinutes,
		AccessPolicy:       application.AccessPolicy(r.AccessPolicy),
		VerificationMethod: application.VerificationMethod(r.VerificationMethod),
		CacheMinutes:       r.CacheMinutes,
		Mediator:           r.Mediator,
		Sides:              r.Sides,
	}
	if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(r.ScheduledFor)); err == nil {
		input.ScheduledFor = parsed
	}
	return input
}

type settingsRequest struct {
	AccessPolicy       *string `json:"access_policy"`
	VerificationMethod *string `json:"verification_method"`
	CacheMinutes       *int    `json:"cache_minutes"`
}

func (r settingsRequest) toPatch() application.SettingsPatch {
	patch := application.SettingsPatch{CacheMinutes: r.CacheMinutes}
	if r.AccessPolicy != nil {
		policy := application.AccessPolicy(*r.AccessPolicy)
		patch.AccessPolicy = &policy
	}
	if r.VerificationMethod != nil {
		method := application.VerificationMethod(*r.VerificationMethod)
		patch.VerificationMethod = &method
	}
	return patch
}

type inviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Side  string `json:"side"`
	Role  string `json:"role"`
}

type adminRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation"`
}

type sessionDTO struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	ScheduledFor       string   `json:"scheduled_for"`
	DurationMinutes    int      `json:"duration_minutes"`
	Status             string   `json:"status"`
	JoinLink           string   `json:"join_link,omitempty"`
	AccessPolicy       string   `json:"access_policy"`
	VerificationMethod string   `json:"verification_method"`
	CacheMinutes       int      `json:"cache_minutes"`
	Mediator           string   `json:"mediator"`
	StartedAt          string   `json:"started_at,omitempty"`
	CompletedAt        string   `json:"completed_at,omitempty"`
	Sides              []string `json:"sides"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:                 session.ID,
		Title:              session.Title,
		ScheduledFor:       session.ScheduledFor.Format(time.RFC3339),
		DurationMinutes:    session.DurationMinutes,
		Status:             string(session.Status),
		JoinLink:           session.JoinLink,
		AccessPolicy:       string(session.AccessPolicy),
		VerificationMethod: string(session.VerificationMethod),
		CacheMinutes:       session.CacheMinutes,
		Mediator:           session.Mediator,
		Sides:              session.Sides,
	}
	if session.StartedAt != nil {
		dto.StartedAt = session.StartedAt.Format(time.RFC3339)
	}
	if session.CompletedAt != nil {
		dto.CompletedAt = session.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

type inviteDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Side        string `json:"side,omitempty"`
	Role        string `json:"role,omitempty"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

func toInviteDTO(invite application.Invite) inviteDTO {
	return inviteDTO{
		ID:          invite.ID,
		Email:       invite.Email,
		Name:        invite.Name,
		Side:        invite.Side,
		Role:        invite.Role,
		Status:      invite.Status,
		RequestedAt: invite.RequestedAt.Format(time.RFC3339),
	}
}

type adminDTO struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Designation string   `json:"designation,omitempty"`
	Permissions []string `json:"permissions"`
	AddedBy     string   `json:"added_by,omitempty"`
	GrantedAt   string   `json:"granted_at"`
}

func toAdminDTO(admin application.MeetingAdmin) adminDTO {
	permissions := make([]string, 0, len(admin.Permissions))
	for _, permission := range admin.Permissions {
		permissions = append(permissions, string(permission))
	}
	return adminDTO{
		Name:        admin.Name,
		Email:       admin.Email,
		Designation: admin.Designation,
		Permissions: permissions,
		AddedBy:     admin.AddedBy,
		GrantedAt:   admin.GrantedAt.Format(time.RFC3339),
	}
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type sessionListResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type inviteResponse struct {
	Invite           inviteDTO `json:"invite"`
	VerificationCode string    `json:"verification_code,omitempty"`
	MagicLink        string    `json:"magic_link,omitempty"`
}

type inviteListResponse struct {
	Invites []inviteDTO `json:"invites"`
}

type adminResponse struct {
	Admin adminDTO `json:"admin"`
}

type adminListResponse struct {
	Admins []adminDTO `json:"admins"`
}
