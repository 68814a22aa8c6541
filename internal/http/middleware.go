package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/mediation-portal/internal/application"
)

// Identity headers are injected by the fronting directory proxy after it
// authenticates the caller. The service trusts them as-is.
const (
	actorNameHeader  = "X-Actor-Name"
	actorEmailHeader = "X-Actor-Email"
)

// ResolveActor copies the caller's directory identity from request headers
// into the context. Requests without identity headers pass through; handlers
// that need an actor reject them individually.
func ResolveActor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := strings.TrimSpace(r.Header.Get(actorNameHeader))
			if name == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor := application.Actor{
				Name:  name,
				Email: strings.TrimSpace(r.Header.Get(actorEmailHeader)),
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequestLogger attaches a request-scoped logger to the context and records
// request start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
