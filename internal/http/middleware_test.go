package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	t.Run("attaches a logger and records the round trip", func(t *testing.T) {
		var buf bytes.Buffer
		base := slog.New(slog.NewTextHandler(&buf, nil))

		var sawLogger bool
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawLogger = LoggerFromContext(r.Context()) != nil
			w.WriteHeader(http.StatusOK)
		})

		handler := RequestLogger(base)(inner)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates", nil))

		if !sawLogger {
			t.Error("expected a logger in the request context")
		}
		output := buf.String()
		if !strings.Contains(output, "request started") || !strings.Contains(output, "request completed") {
			t.Errorf("expected start and completion entries, got %q", output)
		}
		if !strings.Contains(output, "request_id=1") {
			t.Errorf("expected a request id, got %q", output)
		}
	})

	t.Run("assigns distinct request ids", func(t *testing.T) {
		var buf bytes.Buffer
		base := slog.New(slog.NewTextHandler(&buf, nil))

		handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		for i := 0; i < 2; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/scheduler/status", nil))
		}

		output := buf.String()
		if !strings.Contains(output, "request_id=1") || !strings.Contains(output, "request_id=2") {
			t.Errorf("expected sequential request ids, got %q", output)
		}
	})
}
