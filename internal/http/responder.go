package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/mediation-portal/internal/application"
)

var (
	errBadRequestBody   = errors.New("the request body could not be parsed")
	errInvalidSessionID = errors.New("a session identifier is required")
	errInvalidEntryID   = errors.New("a waiting entry identifier is required")
	errInvalidRoomID    = errors.New("a room identifier is required")
	errInvalidSummonID  = errors.New("a summon identifier is required")
	errMissingActor     = errors.New("actor identity headers are required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrAuthorityRequired):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTHORITY_REQUIRED",
			Message:   "This operation requires host authority.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "The requested resource was not found."})
	case errors.Is(err, application.ErrMaxAttemptsExceeded):
		r.writeJSON(ctx, w, http.StatusTooManyRequests, errorResponse{
			ErrorCode: "MAX_ATTEMPTS_EXCEEDED",
			Message:   "Too many join attempts. Ask the host to admit you.",
		})
	case errors.Is(err, application.ErrSettingsLocked):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "Session settings are locked once the session has started."})
	case errors.Is(err, application.ErrSessionLocked):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "The session has started and no longer accepts this change."})
	case errors.Is(err, application.ErrDuplicateRoomName):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "A room with this name already exists."})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "The summon cannot move to the requested status."})
	case errors.Is(err, application.ErrTokenExpired), errors.Is(err, application.ErrCodeMismatch):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{Message: "The presented credential is expired or invalid."})
	case errors.Is(err, application.ErrEmptySelection):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: "Select at least one participant."})
	case errors.Is(err, application.ErrEmptyBody):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: "A message body is required."})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "The request contains invalid fields.",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "An internal error occurred."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
