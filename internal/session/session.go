// Package session owns the gateway's authenticated state: the tenant identity
// taken from the last accepted service-account key and the two vendor clients
// built from it.
//
// A Session is immutable once published. Authenticate builds a complete new
// Session under a mutex and publishes it with a single atomic pointer store,
// so readers always observe either no session or a fully built one. Readers
// pin the snapshot they loaded with Acquire; the clients of a replaced session
// are closed only after the last pinned reader releases it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"cloud.google.com/go/translate/apiv3/translatepb"
	"github.com/googleapis/gax-go/v2"
)

// NoRetry disables the client library's retry policy for one call. Vendor
// calls are attempted exactly once.
var NoRetry = gax.WithRetry(func() gax.Retryer { return nil })

// TranslationClient is the subset of the Cloud Translation v3 client the
// gateway calls. It is satisfied by *translate.TranslationClient.
type TranslationClient interface {
	TranslateText(ctx context.Context, req *translatepb.TranslateTextRequest, opts ...gax.CallOption) (*translatepb.TranslateTextResponse, error)
	Close() error
}

// SecretClient is the subset of the Secret Manager client the gateway calls.
// It is satisfied by *secretmanager.Client.
type SecretClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Clients is the pair of vendor connections built from one credential.
type Clients struct {
	Translation TranslationClient
	Secrets     SecretClient
}

// Connector builds authenticated vendor clients from a service-account key.
// Implementations either return both clients or none: a client that was
// built before a later failure must be closed by the connector.
type Connector interface {
	Connect(ctx context.Context, key []byte) (*Clients, error)
}

// Session is one authenticated state of the gateway.
type Session struct {
	TenantID    string
	Translation TranslationClient
	Secrets     SecretClient
	CreatedAt   time.Time

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
	onClose func(error)
}

func newSession(tenantID string, clients *Clients, onClose func(error)) *Session {
	return &Session{
		TenantID:    tenantID,
		Translation: clients.Translation,
		Secrets:     clients.Secrets,
		CreatedAt:   time.Now(),
		onClose:     onClose,
	}
}

// acquire pins the session. It fails once the session has been retired.
func (s *Session) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	s.refs++
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	s.refs--
	closeNow := s.retired && s.refs == 0 && !s.closed
	if closeNow {
		s.closed = true
	}
	s.mu.Unlock()

	if closeNow {
		s.closeClients()
	}
}

// retire prevents new readers and closes the clients once no reader remains.
func (s *Session) retire() {
	s.mu.Lock()
	s.retired = true
	closeNow := s.refs == 0 && !s.closed
	if closeNow {
		s.closed = true
	}
	s.mu.Unlock()

	if closeNow {
		s.closeClients()
	}
}

func (s *Session) closeClients() {
	err := errors.Join(s.Translation.Close(), s.Secrets.Close())
	if s.onClose != nil {
		s.onClose(err)
	}
}

// Closed reports whether the session's clients have been closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
