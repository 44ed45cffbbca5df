package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Joseph-Rai/translationapis/internal/auth"
	"github.com/Joseph-Rai/translationapis/internal/config"
)

func TestRequestIDMiddleware(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

		if captured == "" {
			t.Fatal("expected request ID in context")
		}
		if got := rec.Header().Get(RequestIDHeader); got != captured {
			t.Errorf("header = %q, want %q", got, captured)
		}
	})

	t.Run("reuses incoming id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set(RequestIDHeader, "upstream-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if captured != "upstream-42" {
			t.Errorf("request ID = %q, want upstream-42", captured)
		}
	})

	t.Run("replaces malformed id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set(RequestIDHeader, "bad id\nwith newline")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if captured == "bad id\nwith newline" || captured == "" {
			t.Errorf("request ID = %q, want a generated ID", captured)
		}
	})
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("sets deadline", func(t *testing.T) {
		var hasDeadline bool
		handler := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasDeadline = r.Context().Deadline()
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		if !hasDeadline {
			t.Error("expected context deadline")
		}
	})

	t.Run("zero disables", func(t *testing.T) {
		var hasDeadline bool
		handler := TimeoutMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasDeadline = r.Context().Deadline()
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		if hasDeadline {
			t.Error("expected no deadline")
		}
	})

	t.Run("expires", func(t *testing.T) {
		var ctxErr error
		handler := TimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			ctxErr = r.Context().Err()
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		if !errors.Is(ctxErr, context.DeadlineExceeded) {
			t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctxErr)
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	authenticator := auth.NewAuthenticator([]config.APIKeyConfig{
		{KeyHash: auth.HashAPIKey("valid-key-123"), Description: "integration"},
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantClient string
	}{
		{name: "valid key", header: "Bearer valid-key-123", wantStatus: http.StatusOK, wantClient: "integration"},
		{name: "invalid key", header: "Bearer wrong", wantStatus: http.StatusUnauthorized},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic dmFsaWQ=", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotClient *auth.Client
			handler := AuthMiddleware(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClient = GetClient(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("POST", "/api/v1/translate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantClient == "" {
				if gotClient != nil {
					t.Errorf("expected no client, got %+v", gotClient)
				}
				return
			}
			if gotClient == nil || gotClient.Description != tt.wantClient {
				t.Errorf("client = %+v, want %s", gotClient, tt.wantClient)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	called := false
	handler := AuthMiddleware(auth.NewAuthenticator(nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/chatGPT", nil))
	if !called {
		t.Error("expected request to pass without keys configured")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "ok", status: http.StatusOK, wantLevel: "level=INFO"},
		{name: "client error", status: http.StatusBadRequest, wantLevel: "level=WARN"},
		{name: "server error", status: http.StatusBadGateway, wantLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				AddLogField(r.Context(), "tenant_id", "demo-project")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/chatGPT", nil))

			out := buf.String()
			for _, want := range []string{
				"request completed",
				tt.wantLevel,
				"path=/api/v1/chatGPT",
				"bytes=5",
				"tenant_id=demo-project",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("log output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestAddError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddError(r.Context(), nil)
		AddError(r.Context(), errors.New("vendor unavailable"))
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/translate", nil))

	if !strings.Contains(buf.String(), `error="vendor unavailable"`) {
		t.Errorf("log output missing error field:\n%s", buf.String())
	}
}

func TestAddLogField_OutsideMiddleware(t *testing.T) {
	// Must not panic without a fields map in the context.
	AddLogField(context.Background(), "k", "v")
	AddError(context.Background(), errors.New("boom"))
}

func TestServer_Routes(t *testing.T) {
	srv := New(Options{Port: 0, RequestTimeout: time.Second, Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	srv.Router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected request ID from server chain")
		}
		_, _ = w.Write([]byte("pong"))
	})
	srv.Router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /panic status = %d, want 500", rec.Code)
	}
}
