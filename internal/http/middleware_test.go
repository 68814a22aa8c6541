package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/mediation-portal/internal/application"
)

func TestResolveActor(t *testing.T) {
	t.Run("injects the actor from identity headers", func(t *testing.T) {
		var got application.Actor
		var found bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, found = ActorFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("X-Actor-Name", "  Jordan Avery  ")
		req.Header.Set("X-Actor-Email", "jordan@example.com")
		ResolveActor()(next).ServeHTTP(httptest.NewRecorder(), req)

		if !found {
			t.Fatal("expected an actor in context")
		}
		if got.Name != "Jordan Avery" || got.Email != "jordan@example.com" {
			t.Fatalf("unexpected actor: %+v", got)
		}
	})

	t.Run("passes through without identity headers", func(t *testing.T) {
		var found bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, found = ActorFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		ResolveActor()(next).ServeHTTP(httptest.NewRecorder(), req)

		if found {
			t.Fatal("expected no actor in context")
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Run("attaches a request scoped logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buf, nil))

		var ctxLogger *slog.Logger
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxLogger = LoggerFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/sessions/session-001", nil)
		RequestLogger(base)(next).ServeHTTP(httptest.NewRecorder(), req)

		if ctxLogger == nil {
			t.Fatal("expected a logger in context")
		}
		output := buf.String()
		if !strings.Contains(output, "request started") || !strings.Contains(output, "request completed") {
			t.Fatalf("expected request lifecycle logs, got %q", output)
		}
		if !strings.Contains(output, "/sessions/session-001") {
			t.Fatalf("expected the request path in logs, got %q", output)
		}
	})

	t.Run("numbers requests sequentially", func(t *testing.T) {
		var buf bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buf, nil))
		handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		for i := 0; i < 2; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		}

		output := buf.String()
		if !strings.Contains(output, `"request_id":1`) || !strings.Contains(output, `"request_id":2`) {
			t.Fatalf("expected sequential request ids, got %q", output)
		}
	})
}
