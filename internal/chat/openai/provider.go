// Package openai implements chat.Provider on the OpenAI Chat Completions API
// using github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Joseph-Rai/translationapis/internal/chat"
)

const (
	// ProviderType is the chat.provider value for api.openai.com.
	ProviderType = "openai"

	// ProviderTypeCompatible targets any server speaking the same API at
	// chat.base_url.
	ProviderTypeCompatible = "openai-compatible"
)

// ChatClient captures the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Provider is a chat.Provider backed by a ChatClient.
type Provider struct {
	client ChatClient
}

// New wraps an existing client.
func New(client ChatClient) *Provider {
	return &Provider{client: client}
}

// NewFromAPIKey builds a go-openai client. baseURL and httpClient are
// optional.
func NewFromAPIKey(apiKey, baseURL string, httpClient *http.Client) *Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return New(openai.NewClientWithConfig(cfg))
}

// Complete sends the prompt as a single chat completion and returns the first
// choice's content.
func (p *Provider) Complete(ctx context.Context, req chat.Request) (string, error) {
	msgs := req.Prompt.Messages()
	if len(msgs) == 0 {
		return "", errors.New("openai: messages are required")
	}

	messages := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		TopP:      float32(req.TopP),
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", chat.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return "", chat.ErrTruncated
	}
	return choice.Message.Content, nil
}

// RegisterProviderFactory registers the openai and openai-compatible types.
func RegisterProviderFactory() {
	if !chat.IsRegistered(ProviderType) {
		chat.RegisterFactory(chat.ProviderFactory{
			Type:           ProviderType,
			Description:    "OpenAI Chat Completions API",
			Create:         Create,
			ValidateConfig: chat.ValidateAPIKey,
		})
	}
	if !chat.IsRegistered(ProviderTypeCompatible) {
		chat.RegisterFactory(chat.ProviderFactory{
			Type:           ProviderTypeCompatible,
			Description:    "OpenAI-compatible Chat Completions API at chat.base_url",
			Create:         Create,
			ValidateConfig: ValidateCompatibleConfig,
		})
	}
}

// Create builds a provider from cfg.
func Create(cfg chat.ProviderConfig) (chat.Provider, error) {
	return NewFromAPIKey(cfg.APIKey, cfg.BaseURL, nil), nil
}

// ValidateCompatibleConfig requires a base URL; the key may be empty for local
// servers.
func ValidateCompatibleConfig(cfg chat.ProviderConfig) error {
	if cfg.BaseURL == "" {
		return errors.New("base_url is required for openai-compatible providers")
	}
	return nil
}
