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

type admissionService interface {
	AttemptJoin(ctx context.Context, params application.JoinParams) (application.JoinResult, error)
	AdmitWaitingEntry(ctx context.Context, params application.AdmitParams) (application.RejoinToken, error)
	RedeemMagicLink(ctx context.Context, assertion string) (application.JoinResult, error)
	RedeemVerificationCode(ctx context.Context, sessionID, name, code string) (application.JoinResult, error)
	ListWaitingRoom(ctx context.Context, sessionID string) ([]application.WaitingEntry, error)
	ListParticipants(ctx context.Context, sessionID string) ([]application.Participant, error)
}

type AdmissionHandler struct {
	service   admissionService
	responder responder
	logger    *slog.Logger
}

func NewAdmissionHandler(service admissionService, logger *slog.Logger) *AdmissionHandler {
	base := defaultLogger(logger)
	return &AdmissionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AdmissionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AdmissionHandler", operation, attrs...)
}

func (h *AdmissionHandler) Join(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Join", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode join request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Join", "session_id", sessionID, "name", req.Name)
	result, err := h.service.AttemptJoin(r.Context(), application.JoinParams{
		SessionID:    sessionID,
		Name:         req.Name,
		Side:         req.Side,
		Role:         req.Role,
		Token:        req.Token,
		RequestToken: req.RequestToken,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "join failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == application.JoinPending {
		status = http.StatusAccepted
	}
	logger.With("outcome", string(result.Outcome)).InfoContext(r.Context(), "join handled")
	h.responder.writeJSON(r.Context(), w, status, toJoinDTO(result))
}

func (h *AdmissionHandler) RedeemLink(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req redeemLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "RedeemLink", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode link request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RedeemLink")
	result, err := h.service.RedeemMagicLink(r.Context(), req.Assertion)
	if err != nil {
		logger.ErrorContext(r.Context(), "link redemption failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "magic link redeemed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJoinDTO(result))
}

func (h *AdmissionHandler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req redeemCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "RedeemCode", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode code request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RedeemCode", "session_id", sessionID, "name", req.Name)
	result, err := h.service.RedeemVerificationCode(r.Context(), sessionID, req.Name, req.Code)
	if err != nil {
		logger.ErrorContext(r.Context(), "code redemption failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "verification code redeemed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJoinDTO(result))
}

func (h *AdmissionHandler) Admit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
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

	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Admit", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode admit request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.EntryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	logger := h.log(r.Context(), "Admit", "session_id", sessionID, "entry_id", req.EntryID, "actor", actor.Name)
	token, err := h.service.AdmitWaitingEntry(r.Context(), application.AdmitParams{
		SessionID: sessionID,
		EntryID:   req.EntryID,
		Actor:     actor,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "admission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "guest admitted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, admitResponse{Token: toTokenDTO(&token)})
}

func (h *AdmissionHandler) ListWaiting(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "ListWaiting", "session_id", sessionID)
	entries, err := h.service.ListWaitingRoom(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "waiting list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]waitingEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toWaitingEntryDTO(entry))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, waitingListResponse{Entries: dtos})
}

func (h *AdmissionHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "ListParticipants", "session_id", sessionID)
	roster, err := h.service.ListParticipants(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "participant list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]participantDTO, 0, len(roster))
	for _, participant := range roster {
		dtos = append(dtos, toParticipantDTO(participant))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, participantListResponse{Participants: dtos})
}

type joinRequest struct {
	Name         string `json:"name"`
	Side         string `json:"side"`
	Role         string `json:"role"`
	Token        string `json:"token"`
	RequestToken bool   `json:"request_token"`
}

type redeemLinkRequest struct {
	Assertion string `json:"assertion"`
}

type redeemCodeRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type admitRequest struct {
	EntryID string `json:"entry_id"`
}

type joinResultDTO struct {
	Outcome     string           `json:"outcome"`
	Participant *participantDTO  `json:"participant,omitempty"`
	Entry       *waitingEntryDTO `json:"entry,omitempty"`
	Token       *tokenDTO        `json:"token,omitempty"`
}

func toJoinDTO(result application.JoinResult) joinResultDTO {
	dto := joinResultDTO{Outcome: string(result.Outcome), Token: toTokenDTO(result.Token)}
	switch result.Outcome {
	case application.JoinAdmitted:
		participant := toParticipantDTO(result.Participant)
		dto.Participant = &participant
	case application.JoinPending:
		entry := toWaitingEntryDTO(result.Entry)
		dto.Entry = &entry
	}
	return dto
}

type participantDTO struct {
	Name          string `json:"name"`
	Designation   string `json:"designation,omitempty"`
	Side          string `json:"side,omitempty"`
	Authenticated bool   `json:"authenticated"`
	JoinedAt      string `json:"joined_at"`
}

func toParticipantDTO(participant application.Participant) participantDTO {
	return participantDTO{
		Name:          participant.Name,
		Designation:   participant.Designation,
		Side:          participant.Side,
		Authenticated: participant.Authenticated,
		JoinedAt:      participant.JoinedAt.Format(time.RFC3339),
	}
}

type waitingEntryDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Side       string `json:"side"`
	Role       string `json:"role,omitempty"`
	Status     string `json:"status"`
	EnqueuedAt string `json:"enqueued_at"`
	ExpiresAt  string `json:"expires_at"`
	AdmittedAt string `json:"admitted_at,omitempty"`
}

func toWaitingEntryDTO(entry application.WaitingEntry) waitingEntryDTO {
	dto := waitingEntryDTO{
		ID:         entry.ID,
		Name:       entry.Name,
		Side:       entry.Side,
		Role:       entry.Role,
		Status:     string(entry.Status),
		EnqueuedAt: entry.EnqueuedAt.Format(time.RFC3339),
		ExpiresAt:  entry.ExpiresAt.Format(time.RFC3339),
	}
	if entry.AdmittedAt != nil {
		dto.AdmittedAt = entry.AdmittedAt.Format(time.RFC3339)
	}
	return dto
}

type tokenDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
	JoinURL   string `json:"join_url"`
}

func toTokenDTO(token *application.RejoinToken) *tokenDTO {
	if token == nil || token.ID == "" {
		return nil
	}
	return &tokenDTO{
		ID:        token.ID,
		Name:      token.Name,
		Role:      token.Role,
		IssuedAt:  token.IssuedAt.Format(time.RFC3339),
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
		JoinURL:   token.JoinURL,
	}
}

type admitResponse struct {
	Token *tokenDTO `json:"token,omitempty"`
}

type waitingListResponse struct {
	Entries []waitingEntryDTO `json:"entries"`
}

type participantListResponse struct {
	Participants []participantDTO `json:"participants"`
}
