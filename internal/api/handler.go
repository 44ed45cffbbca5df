// Package api exposes the gateway operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Joseph-Rai/translationapis/internal/auth"
	"github.com/Joseph-Rai/translationapis/internal/domain"
	"github.com/Joseph-Rai/translationapis/internal/server"
	"github.com/Joseph-Rai/translationapis/internal/session"
	"github.com/Joseph-Rai/translationapis/internal/storage"
)

const (
	// TargetLanguageHeader names the language for /chatGPT in translate mode.
	TargetLanguageHeader = "target-language"

	// ProtobufContentType is the media type of /translate bodies.
	ProtobufContentType = "application/x-protobuf"

	// Korean status lines returned by /authenticate.
	AuthenticateSuccessMessage = "인증에 성공 했습니다."
	AuthenticateFailureMessage = "인증에 실패 했습니다."

	maxBodyBytes = 10 << 20
	maxListLimit = 200
)

// Sessions establishes and reports the authenticated session.
type Sessions interface {
	Authenticate(ctx context.Context, payload []byte) (string, error)
	Current() *session.Session
}

// Translator forwards a serialized translation request.
type Translator interface {
	Translate(ctx context.Context, requestBytes []byte) ([]byte, error)
}

// Refiner post-processes text through a chat model.
type Refiner interface {
	Refine(ctx context.Context, input, targetLanguage string) (string, error)
}

// Handler serves the gateway API.
type Handler struct {
	sessions   Sessions
	translator Translator
	refiner    Refiner
	store      storage.RefinementStore
	logger     *slog.Logger
}

// Options wires a Handler. Store may be nil when the audit log is disabled.
type Options struct {
	Sessions   Sessions
	Translator Translator
	Refiner    Refiner
	Store      storage.RefinementStore
	Logger     *slog.Logger
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:   opts.Sessions,
		translator: opts.Translator,
		refiner:    opts.Refiner,
		store:      opts.Store,
		logger:     logger,
	}
}

// Mount registers /healthz and the /api/v1 routes on r. The /api/v1 group is
// gated by authenticator when it has keys configured.
func (h *Handler) Mount(r chi.Router, authenticator *auth.Authenticator) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware(authenticator))

		r.Post("/authenticate", h.handleAuthenticate)
		r.Post("/translate", h.handleTranslate)
		r.Post("/chatGPT", h.handleChat)
		r.Get("/refinements", h.handleListRefinements)
	})
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tenantID, err := h.sessions.Authenticate(r.Context(), payload)
	if err != nil {
		server.AddError(r.Context(), err)
		writeText(w, http.StatusBadRequest, AuthenticateFailureMessage+"\n"+err.Error())
		return
	}

	server.AddLogField(r.Context(), "tenant_id", tenantID)
	attrs := []any{slog.String("tenant_id", tenantID)}
	if client := server.GetClient(r.Context()); client != nil {
		attrs = append(attrs, slog.String("api_client", client.Description))
	}
	h.logger.Info("session installed", attrs...)
	writeText(w, http.StatusOK, AuthenticateSuccessMessage)
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.translator.Translate(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", ProtobufContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	targetLanguage := r.Header.Get(TargetLanguageHeader)
	server.AddLogField(r.Context(), "target_language", targetLanguage)

	out, err := h.refiner.Refine(r.Context(), string(payload), targetLanguage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, out)
}

type RefinementListResponse struct {
	Refinements []*storage.Refinement `json:"refinements"`
}

func (h *Handler) handleListRefinements(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "refinement storage not configured", http.StatusServiceUnavailable)
		return
	}

	opts := storage.ListOptions{}
	if q := r.URL.Query().Get("limit"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 || v > maxListLimit {
			http.Error(w, "limit must be between 1 and "+strconv.Itoa(maxListLimit), http.StatusBadRequest)
			return
		}
		opts.Limit = v
	}
	if s := h.sessions.Current(); s != nil {
		opts.TenantID = s.TenantID
	}

	records, err := h.store.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*storage.Refinement{}
	}
	writeJSON(w, http.StatusOK, RefinementListResponse{Refinements: records})
}

type HealthResponse struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	TenantID      string `json:"tenant_id,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s := h.sessions.Current(); s != nil {
		resp.Authenticated = true
		resp.TenantID = s.TenantID
	}
	writeJSON(w, http.StatusOK, resp)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.Wrap(domain.ErrorTypeInvalidRequest, "request body too large", err)
		}
		return nil, domain.Wrap(domain.ErrorTypeInvalidRequest, "read request body", err)
	}
	return body, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	server.AddError(r.Context(), err)
	writeText(w, domain.HTTPStatus(err), err.Error())
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
