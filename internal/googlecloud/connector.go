// Package googlecloud builds Cloud Translation and Secret Manager clients from
// a service-account key.
package googlecloud

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	translate "cloud.google.com/go/translate/apiv3"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/Joseph-Rai/translationapis/internal/session"
)

// OAuth scopes requested for each client.
const (
	TranslationScope = "https://www.googleapis.com/auth/cloud-translation"
	PlatformScope    = "https://www.googleapis.com/auth/cloud-platform"
)

// Connector implements session.Connector against the real Google Cloud APIs.
type Connector struct {
	// ClientOptions are appended to both clients (e.g. custom endpoints in
	// tests).
	ClientOptions []option.ClientOption
}

var _ session.Connector = (*Connector)(nil)

// NewConnector creates a connector.
func NewConnector(opts ...option.ClientOption) *Connector {
	return &Connector{ClientOptions: opts}
}

// Connect builds a translation client scoped to cloud-translation and a
// secret manager client scoped to cloud-platform, each with its own
// credentials derived from key.
func (c *Connector) Connect(ctx context.Context, key []byte) (*session.Clients, error) {
	translationCreds, err := google.CredentialsFromJSON(ctx, key, TranslationScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load translation credentials: %w", err)
	}
	platformCreds, err := google.CredentialsFromJSON(ctx, key, PlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform credentials: %w", err)
	}

	translationClient, err := translate.NewTranslationClient(ctx, c.options(option.WithCredentials(translationCreds))...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}

	secretClient, err := secretmanager.NewClient(ctx, c.options(option.WithCredentials(platformCreds))...)
	if err != nil {
		translationClient.Close()
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &session.Clients{
		Translation: translationClient,
		Secrets:     secretClient,
	}, nil
}

func (c *Connector) options(creds option.ClientOption) []option.ClientOption {
	opts := make([]option.ClientOption, 0, len(c.ClientOptions)+1)
	opts = append(opts, creds)
	return append(opts, c.ClientOptions...)
}
