// Package gemini implements chat.Provider on the Gemini API using
// google.golang.org/genai.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Joseph-Rai/translationapis/internal/chat"
)

// ProviderType is the chat.provider value for this backend.
const ProviderType = "gemini"

// ModelsClient captures the subset of the genai client used here. It is
// satisfied by *genai.Models.
type ModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Connect builds a ModelsClient for one call.
type Connect func(ctx context.Context) (ModelsClient, error)

// Provider is a chat.Provider on the Gemini API. The SDK client needs a
// context to construct, so it is created lazily on first use.
type Provider struct {
	connect Connect
}

// New wraps an existing client.
func New(models ModelsClient) *Provider {
	return &Provider{connect: func(context.Context) (ModelsClient, error) { return models, nil }}
}

// NewFromAPIKey returns a provider that builds a Gemini API client with
// apiKey. baseURL is optional.
func NewFromAPIKey(apiKey, baseURL string) *Provider {
	return &Provider{connect: func(ctx context.Context) (ModelsClient, error) {
		cfg := &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client.Models, nil
	}}
}

// Complete sends the prompt as one GenerateContent call. Assistant turns map
// to the "model" role; system messages become the system instruction.
func (p *Provider) Complete(ctx context.Context, req chat.Request) (string, error) {
	contents, err := encode(req.Prompt)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if system := req.Prompt.System(); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.TopP > 0 {
		config.TopP = genai.Ptr(float32(req.TopP))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	models, err := p.connect(ctx)
	if err != nil {
		return "", err
	}
	resp, err := models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return responseText(resp)
}

func encode(prompt chat.Prompt) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, m := range prompt.Conversation() {
		switch m.Role {
		case chat.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case chat.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			return nil, fmt.Errorf("gemini: unsupported message role %q", m.Role)
		}
	}
	if len(contents) == 0 {
		return nil, errors.New("gemini: at least one user/assistant message is required")
	}
	return contents, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", chat.ErrEmptyResponse
	}
	c := resp.Candidates[0]
	if c.FinishReason == genai.FinishReasonMaxTokens {
		return "", chat.ErrTruncated
	}
	if c.Content == nil {
		return "", chat.ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", chat.ErrEmptyResponse
	}
	return b.String(), nil
}

// RegisterProviderFactory registers the gemini type.
func RegisterProviderFactory() {
	if chat.IsRegistered(ProviderType) {
		return
	}
	chat.RegisterFactory(chat.ProviderFactory{
		Type:           ProviderType,
		Description:    "Google Gemini API",
		Create:         Create,
		ValidateConfig: chat.ValidateAPIKey,
	})
}

// Create builds a provider from cfg.
func Create(cfg chat.ProviderConfig) (chat.Provider, error) {
	return NewFromAPIKey(cfg.APIKey, cfg.BaseURL), nil
}
