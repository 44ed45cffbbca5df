// Package secrets resolves named secrets from Secret Manager using the
// current session's tenant identity.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Joseph-Rai/translationapis/internal/domain"
	"github.com/Joseph-Rai/translationapis/internal/session"
	"github.com/Joseph-Rai/translationapis/internal/telemetry"
)

// LatestVersion selects the most recent enabled version of a secret.
const LatestVersion = "latest"

// Resolver looks up secrets through the session's vault connection. Every
// lookup is a fresh round trip; values are never cached or persisted.
type Resolver struct {
	sessions *session.Manager
	version  string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResolver creates a resolver. version is the fixed version selector for
// all lookups ("latest" when empty); timeout bounds each lookup.
func NewResolver(sessions *session.Manager, version string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if version == "" {
		version = LatestVersion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		sessions: sessions,
		version:  version,
		timeout:  timeout,
		logger:   logger,
	}
}

// Version returns the configured version selector.
func (r *Resolver) Version() string {
	return r.version
}

// VersionName formats the fully-qualified secret version identifier.
func VersionName(tenantID, name, version string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", tenantID, name, version)
}

// Resolve returns the value of secret name in tenantID's vault.
func (r *Resolver) Resolve(ctx context.Context, tenantID, name string) (string, error) {
	s, release, err := r.sessions.Acquire()
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", name, err)
	}
	defer release()

	return r.resolve(ctx, s, tenantID, name)
}

// ResolveAll resolves several secrets against one session snapshot, scoped
// to that session's tenant. It stops at the first failure.
func (r *Resolver) ResolveAll(ctx context.Context, names ...string) (string, map[string]string, error) {
	s, release, err := r.sessions.Acquire()
	if err != nil {
		return "", nil, fmt.Errorf("secrets: %w", err)
	}
	defer release()

	values := make(map[string]string, len(names))
	for _, name := range names {
		v, err := r.resolve(ctx, s, s.TenantID, name)
		if err != nil {
			return s.TenantID, nil, err
		}
		values[name] = v
	}
	return s.TenantID, values, nil
}

func (r *Resolver) resolve(ctx context.Context, s *session.Session, tenantID, name string) (string, error) {
	versionName := VersionName(tenantID, name, r.version)

	ctx, span := telemetry.StartSpan(ctx, "secrets.access",
		attribute.String("secret.name", name),
		attribute.String("secret.version", r.version),
	)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := s.Secrets.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: versionName,
	}, session.NoRetry)
	if err != nil {
		err = classify(name, err)
		telemetry.EndSpan(span, err)
		return "", err
	}
	telemetry.EndSpan(span, nil)

	r.logger.Debug("secret resolved",
		slog.String("tenant_id", tenantID),
		slog.String("secret", name),
		slog.String("version", r.version),
	)
	return string(resp.GetPayload().GetData()), nil
}

func classify(name string, err error) error {
	msg := fmt.Sprintf("secret %s", name)
	switch status.Code(err) {
	case codes.NotFound:
		return domain.Wrap(domain.ErrorTypeSecretNotFound, msg, err)
	case codes.Unauthenticated:
		return domain.Wrap(domain.ErrorTypeUnauthenticated, msg, err)
	}
	return domain.VendorError(msg, err)
}
