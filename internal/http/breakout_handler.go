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

type breakoutService interface {
	CreateRoom(ctx context.Context, params application.CreateBreakoutParams) (application.BreakoutRoom, error)
	AddParticipant(ctx context.Context, sessionID, roomID, participant string) (application.BreakoutRoom, error)
	RemoveParticipant(ctx context.Context, sessionID, roomID, participant string) (application.BreakoutRoom, error)
	ListRooms(ctx context.Context, sessionID string) ([]application.BreakoutRoom, error)
	ListAvailable(ctx context.Context, sessionID, roomID string) ([]application.Participant, error)
}

type BreakoutHandler struct {
	service   breakoutService
	responder responder
	logger    *slog.Logger
}

func NewBreakoutHandler(service breakoutService, logger *slog.Logger) *BreakoutHandler {
	base := defaultLogger(logger)
	return &BreakoutHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BreakoutHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BreakoutHandler", operation, attrs...)
}

func (h *BreakoutHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req breakoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "session_id", sessionID, "actor", actor.Name)
	room, err := h.service.CreateRoom(r.Context(), application.CreateBreakoutParams{
		SessionID:      sessionID,
		Actor:          actor,
		Name:           req.Name,
		ParticipantIDs: req.Participants,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "caucus room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, breakoutResponse{Room: toBreakoutDTO(room)})
}

func (h *BreakoutHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "List", "session_id", sessionID)
	rooms, err := h.service.ListRooms(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "room list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]breakoutDTO, 0, len(rooms))
	for _, room := range rooms {
		dtos = append(dtos, toBreakoutDTO(room))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, breakoutListResponse{Rooms: dtos})
}

func (h *BreakoutHandler) UpdateMembers(w http.ResponseWriter, r *http.Request, roomID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	if strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateMembers", "session_id", sessionID, "room_id", roomID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode membership request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateMembers", "session_id", sessionID, "room_id", roomID, "action", req.Action)

	var (
		room application.BreakoutRoom
		err  error
	)
	switch req.Action {
	case "add", "":
		room, err = h.service.AddParticipant(r.Context(), sessionID, roomID, req.Participant)
	case "remove":
		room, err = h.service.RemoveParticipant(r.Context(), sessionID, roomID, req.Participant)
	default:
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "membership update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "membership updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, breakoutResponse{Room: toBreakoutDTO(room)})
}

func (h *BreakoutHandler) ListAvailable(w http.ResponseWriter, r *http.Request, roomID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	if strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	logger := h.log(r.Context(), "ListAvailable", "session_id", sessionID, "room_id", roomID)
	available, err := h.service.ListAvailable(r.Context(), sessionID, roomID)
	if err != nil {
		logger.ErrorContext(r.Context(), "available list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]participantDTO, 0, len(available))
	for _, participant := range available {
		dtos = append(dtos, toParticipantDTO(participant))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, participantListResponse{Participants: dtos})
}

type breakoutRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

type membershipRequest struct {
	Action      string `json:"action"`
	Participant string `json:"participant"`
}

type breakoutDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
	Baseline     bool     `json:"baseline"`
	CreatedAt    string   `json:"created_at"`
}

func toBreakoutDTO(room application.BreakoutRoom) breakoutDTO {
	participants := room.Participants
	if participants == nil {
		participants = []string{}
	}
	return breakoutDTO{
		ID:           room.ID,
		Name:         room.Name,
		Participants: participants,
		Baseline:     room.Baseline,
		CreatedAt:    room.CreatedAt.Format(time.RFC3339),
	}
}

type breakoutResponse struct {
	Room breakoutDTO `json:"room"`
}

type breakoutListResponse struct {
	Rooms []breakoutDTO `json:"rooms"`
}
