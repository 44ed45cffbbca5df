// Package chat refines text through a chat-completion provider. Providers are
// created per call from vault-resolved credentials via a factory registry.
package chat

import (
	"context"
	"errors"
)

// Request is one chat-completion call.
type Request struct {
	Model     string
	Prompt    Prompt
	TopP      float64
	MaxTokens int
}

// Provider performs a single chat completion and returns the reply text.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderConfig carries what a factory needs to build a provider.
type ProviderConfig struct {
	Type    string
	APIKey  string
	BaseURL string
}

// ErrEmptyResponse is returned when a provider replies without any text.
var ErrEmptyResponse = errors.New("chat: provider returned no text")

// ErrTruncated is returned when a reply stopped at the output token limit.
// A partial refinement is never returned as a result.
var ErrTruncated = errors.New("chat: reply truncated at the output token limit")

// ValidateAPIKey is a ValidateConfig helper for providers that need a key.
func ValidateAPIKey(cfg ProviderConfig) error {
	if cfg.APIKey == "" {
		return errors.New("api key is required")
	}
	return nil
}
