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

type messagingService interface {
	SendMessage(ctx context.Context, params application.SendMessageParams) (application.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]application.Message, error)
	RaiseSummon(ctx context.Context, params application.RaiseSummonParams) (application.Summon, error)
	AdvanceSummon(ctx context.Context, params application.AdvanceSummonParams) (application.Summon, error)
	ListSummons(ctx context.Context, sessionID string) ([]application.Summon, error)
}

type MessagingHandler struct {
	service   messagingService
	responder responder
	logger    *slog.Logger
}

func NewMessagingHandler(service messagingService, logger *slog.Logger) *MessagingHandler {
	base := defaultLogger(logger)
	return &MessagingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MessagingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MessagingHandler", operation, attrs...)
}

func (h *MessagingHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Send", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode message request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Send", "session_id", sessionID, "actor", actor.Name)
	message, err := h.service.SendMessage(r.Context(), application.SendMessageParams{
		SessionID:  sessionID,
		Actor:      actor,
		Body:       req.Body,
		Recipients: req.Recipients,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "broadcast failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("message_id", message.ID).InfoContext(r.Context(), "message broadcast")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, messageResponse{Message: toMessageDTO(message)})
}

func (h *MessagingHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "ListMessages", "session_id", sessionID)
	messages, err := h.service.ListMessages(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "message list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]messageDTO, 0, len(messages))
	for _, message := range messages {
		dtos = append(dtos, toMessageDTO(message))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageListResponse{Messages: dtos})
}

func (h *MessagingHandler) RaiseSummon(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req summonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "RaiseSummon", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode summon request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RaiseSummon", "session_id", sessionID, "side", req.Side)
	summon, err := h.service.RaiseSummon(r.Context(), application.RaiseSummonParams{
		SessionID:   sessionID,
		Side:        req.Side,
		RequestedBy: req.RequestedBy,
		Note:        req.Note,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "summon failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("summon_id", summon.ID).InfoContext(r.Context(), "summon raised")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, summonResponse{Summon: toSummonDTO(summon)})
}

func (h *MessagingHandler) AdvanceSummon(w http.ResponseWriter, r *http.Request, summonID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	if strings.TrimSpace(summonID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSummonID)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	var req advanceSummonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AdvanceSummon", "session_id", sessionID, "summon_id", summonID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode advance request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AdvanceSummon", "session_id", sessionID, "summon_id", summonID, "actor", actor.Name)
	summon, err := h.service.AdvanceSummon(r.Context(), application.AdvanceSummonParams{
		SessionID: sessionID,
		SummonID:  summonID,
		Status:    application.SummonStatus(req.Status),
		Actor:     actor,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "summon advance failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(summon.Status)).InfoContext(r.Context(), "summon advanced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summonResponse{Summon: toSummonDTO(summon)})
}

func (h *MessagingHandler) ListSummons(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "ListSummons", "session_id", sessionID)
	summons, err := h.service.ListSummons(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "summon list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]summonDTO, 0, len(summons))
	for _, summon := range summons {
		dtos = append(dtos, toSummonDTO(summon))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summonListResponse{Summons: dtos})
}

type messageRequest struct {
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

type summonRequest struct {
	Side        string `json:"side"`
	RequestedBy string `json:"requested_by"`
	Note        string `json:"note"`
}

type advanceSummonRequest struct {
	Status string `json:"status"`
}

type messageDTO struct {
	ID         string   `json:"id"`
	Author     string   `json:"author"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
	SentAt     string   `json:"sent_at"`
}

func toMessageDTO(message application.Message) messageDTO {
	return messageDTO{
		ID:         message.ID,
		Author:     message.Author,
		Body:       message.Body,
		Recipients: message.Recipients,
		SentAt:     message.SentAt.Format(time.RFC3339),
	}
}

type summonDTO struct {
	ID          string `json:"id"`
	Side        string `json:"side"`
	RequestedBy string `json:"requested_by,omitempty"`
	Note        string `json:"note,omitempty"`
	Status      string `json:"status"`
	RaisedAt    string `json:"raised_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toSummonDTO(summon application.Summon) summonDTO {
	return summonDTO{
		ID:          summon.ID,
		Side:        summon.Side,
		RequestedBy: summon.RequestedBy,
		Note:        summon.Note,
		Status:      string(summon.Status),
		RaisedAt:    summon.RaisedAt.Format(time.RFC3339),
		UpdatedAt:   summon.UpdatedAt.Format(time.RFC3339),
	}
}

type messageResponse struct {
	Message messageDTO `json:"message"`
}

type messageListResponse struct {
	Messages []messageDTO `json:"messages"`
}

type summonResponse struct {
	Summon summonDTO `json:"summon"`
}

type summonListResponse struct {
	Summons []summonDTO `json:"summons"`
}
