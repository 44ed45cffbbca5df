// Package sessiontest provides in-memory vendor clients for tests.
package sessiontest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"cloud.google.com/go/translate/apiv3/translatepb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Joseph-Rai/translationapis/internal/credential"
	"github.com/Joseph-Rai/translationapis/internal/session"
)

// Translation is a fake translation client. By default it echoes every input
// string back as the translated text. Calls after Close fail the way a closed
// gRPC connection does.
type Translation struct {
	Calls  atomic.Int64
	closed atomic.Bool

	mu   sync.Mutex
	opts [][]gax.CallOption

	// Func overrides the default echo behaviour when set.
	Func func(ctx context.Context, req *translatepb.TranslateTextRequest) (*translatepb.TranslateTextResponse, error)
}

func (t *Translation) TranslateText(ctx context.Context, req *translatepb.TranslateTextRequest, opts ...gax.CallOption) (*translatepb.TranslateTextResponse, error) {
	t.Calls.Add(1)
	t.mu.Lock()
	t.opts = append(t.opts, opts)
	t.mu.Unlock()
	if t.closed.Load() {
		return nil, status.Error(codes.Canceled, "grpc: the client connection is closing")
	}
	if t.Func != nil {
		return t.Func(ctx, req)
	}
	resp := &translatepb.TranslateTextResponse{}
	for _, c := range req.GetContents() {
		resp.Translations = append(resp.Translations, &translatepb.Translation{
			TranslatedText: c,
			Model:          req.GetModel(),
		})
	}
	return resp, nil
}

func (t *Translation) Close() error {
	t.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (t *Translation) Closed() bool { return t.closed.Load() }

// CallOptions returns the options passed to each TranslateText call.
func (t *Translation) CallOptions() [][]gax.CallOption {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]gax.CallOption(nil), t.opts...)
}

// Secrets is a fake Secret Manager client keyed by fully-qualified version
// name (projects/p/secrets/s/versions/v).
type Secrets struct {
	mu     sync.Mutex
	values map[string]string
	opts   [][]gax.CallOption
	Calls  atomic.Int64
	closed atomic.Bool

	// Err, when set, is returned for every lookup.
	Err error

	// Delay, when set, stalls every lookup until it elapses or ctx is done.
	Delay time.Duration
}

// NewSecrets returns a fake vault holding values.
func NewSecrets(values map[string]string) *Secrets {
	s := &Secrets{values: make(map[string]string)}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Set stores value under the fully-qualified version name.
func (s *Secrets) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *Secrets) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.Calls.Add(1)
	s.mu.Lock()
	s.opts = append(s.opts, opts)
	s.mu.Unlock()
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	value, ok := s.values[req.GetName()]
	s.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Secret Version [%s] not found.", req.GetName())
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *Secrets) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (s *Secrets) Closed() bool { return s.closed.Load() }

// CallOptions returns the options passed to each AccessSecretVersion call.
func (s *Secrets) CallOptions() [][]gax.CallOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]gax.CallOption(nil), s.opts...)
}

// RetryDisabled reports whether opts resolve to a retry policy that never
// retries. Options without any retry setting leave the library default in
// place and report false.
func RetryDisabled(opts []gax.CallOption) bool {
	var settings gax.CallSettings
	for _, o := range opts {
		o.Resolve(&settings)
	}
	return settings.Retry != nil && settings.Retry() == nil
}

// Connector hands out fresh fake clients on every Connect.
type Connector struct {
	mu      sync.Mutex
	Issued  []*session.Clients
	Secrets map[string]string

	// Err, when set, fails every Connect.
	Err error
}

// Connect validates that key carries a project_id and returns new fakes.
func (c *Connector) Connect(ctx context.Context, key []byte) (*session.Clients, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if _, err := credential.ProjectID(key); err != nil {
		return nil, fmt.Errorf("fake connector: %w", err)
	}
	clients := &session.Clients{
		Translation: &Translation{},
		Secrets:     NewSecrets(c.Secrets),
	}
	c.mu.Lock()
	c.Issued = append(c.Issued, clients)
	c.mu.Unlock()
	return clients, nil
}

// Last returns the most recently issued clients.
func (c *Connector) Last() *session.Clients {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Issued) == 0 {
		return nil
	}
	return c.Issued[len(c.Issued)-1]
}

// Key returns a minimal service-account key for projectID.
func Key(projectID string) []byte {
	return []byte(fmt.Sprintf(`{"type":"service_account","project_id":%q,"client_email":"gateway@%s.iam.gserviceaccount.com"}`, projectID, projectID))
}

// SecretName returns the fully-qualified version name for a secret.
func SecretName(projectID, secret, version string) string {
	return strings.Join([]string{"projects", projectID, "secrets", secret, "versions", version}, "/")
}

// ErrVendor is a generic vendor failure for tests.
var ErrVendor = errors.New("vendor unavailable")
