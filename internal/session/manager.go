package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Joseph-Rai/translationapis/internal/credential"
	"github.com/Joseph-Rai/translationapis/internal/domain"
	"github.com/Joseph-Rai/translationapis/internal/telemetry"
)

const defaultConnectTimeout = 30 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithConnectTimeout bounds client construction during Authenticate.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.connectTimeout = d
		}
	}
}

// Manager serializes authentication and hands out session snapshots.
type Manager struct {
	authMu  sync.Mutex
	current atomic.Pointer[Session]

	keyFile        *credential.KeyFile
	connector      Connector
	connectTimeout time.Duration
	logger         *slog.Logger
}

// NewManager creates a manager with no session.
func NewManager(keyFile *credential.KeyFile, connector Connector, opts ...Option) *Manager {
	m := &Manager{
		keyFile:        keyFile,
		connector:      connector,
		connectTimeout: defaultConnectTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authenticate persists payload, extracts its project_id and builds both
// vendor clients, then publishes the result as the current session. On any
// failure the previous session stays in place.
func (m *Manager) Authenticate(ctx context.Context, payload []byte) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "session.authenticate")
	tenantID, err := m.authenticate(ctx, payload)
	if tenantID != "" {
		span.SetAttributes(attribute.String("tenant_id", tenantID))
	}
	telemetry.EndSpan(span, err)
	return tenantID, err
}

func (m *Manager) authenticate(ctx context.Context, payload []byte) (string, error) {
	m.authMu.Lock()
	defer m.authMu.Unlock()

	if err := m.keyFile.Write(payload); err != nil {
		return "", domain.Wrap(domain.ErrorTypeConnectionFailed, "authenticate", err)
	}

	persisted, err := m.keyFile.Read()
	if err != nil {
		return "", domain.Wrap(domain.ErrorTypeConnectionFailed, "authenticate", err)
	}

	tenantID, err := credential.ProjectID(persisted)
	if err != nil {
		return "", err
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	clients, err := m.connector.Connect(connectCtx, persisted)
	if err != nil {
		return "", domain.Wrap(domain.ErrorTypeConnectionFailed, "authenticate", err)
	}
	if clients == nil || clients.Translation == nil || clients.Secrets == nil {
		if clients != nil {
			closeClients(clients)
		}
		return "", domain.Wrap(domain.ErrorTypeConnectionFailed, "authenticate: connector returned an incomplete client pair", nil)
	}

	next := newSession(tenantID, clients, func(err error) {
		if err != nil {
			m.logger.Warn("failed to close vendor clients",
				slog.String("tenant_id", tenantID),
				slog.String("error", err.Error()),
			)
		}
	})

	prev := m.current.Swap(next)
	if prev != nil {
		prev.retire()
	}

	m.logger.Info("session established", slog.String("tenant_id", tenantID))
	return tenantID, nil
}

// Current returns the published session without pinning it, or nil.
// Use Acquire when the session's clients will be called.
func (m *Manager) Current() *Session {
	return m.current.Load()
}

// Acquire pins the current session for the duration of a call. The returned
// release func must be called exactly once when the caller is done.
func (m *Manager) Acquire() (*Session, func(), error) {
	for {
		s := m.current.Load()
		if s == nil {
			return nil, nil, domain.ErrUnauthenticated
		}
		if s.acquire() {
			var once sync.Once
			return s, func() { once.Do(s.release) }, nil
		}
		// Retired between Load and acquire; a newer session (or nil) is
		// already published.
	}
}

// Close retires the current session and closes its clients once idle.
func (m *Manager) Close() error {
	m.authMu.Lock()
	defer m.authMu.Unlock()

	if prev := m.current.Swap(nil); prev != nil {
		prev.retire()
	}
	return nil
}

func closeClients(c *Clients) {
	if c.Translation != nil {
		c.Translation.Close()
	}
	if c.Secrets != nil {
		c.Secrets.Close()
	}
}
