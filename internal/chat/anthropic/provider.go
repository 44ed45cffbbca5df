// Package anthropic implements chat.Provider on the Anthropic Messages API
// using github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Joseph-Rai/translationapis/internal/chat"
)

// ProviderType is the chat.provider value for this backend.
const ProviderType = "anthropic"

// DefaultMaxTokens is used when the request sets none; the API requires one.
const DefaultMaxTokens = 4096

// MessagesClient captures the subset of the SDK used here. It is satisfied by
// *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Provider is a chat.Provider backed by a MessagesClient.
type Provider struct {
	msg MessagesClient
}

// New wraps an existing client.
func New(msg MessagesClient) *Provider {
	return &Provider{msg: msg}
}

// NewFromAPIKey builds an SDK client. baseURL and httpClient are optional.
func NewFromAPIKey(apiKey, baseURL string, httpClient *http.Client) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	c := sdk.NewClient(opts...)
	return New(&c.Messages)
}

// Complete sends the prompt as one Messages.New call. System messages become
// the system blocks; the rest keep their order.
func (p *Provider) Complete(ctx context.Context, req chat.Request) (string, error) {
	params, err := encode(req)
	if err != nil {
		return "", err
	}
	msg, err := p.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}
	if msg.StopReason == sdk.StopReasonMaxTokens {
		return "", chat.ErrTruncated
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", chat.ErrEmptyResponse
	}
	return b.String(), nil
}

func encode(req chat.Request) (sdk.MessageNewParams, error) {
	var conversation []sdk.MessageParam
	for _, m := range req.Prompt.Conversation() {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case chat.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(block))
		case chat.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(block))
		default:
			return sdk.MessageNewParams{}, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return sdk.MessageNewParams{}, errors.New("anthropic: at least one user/assistant message is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
	}
	if system := req.Prompt.System(); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if req.TopP > 0 {
		params.TopP = sdk.Float(req.TopP)
	}
	return params, nil
}

// RegisterProviderFactory registers the anthropic type.
func RegisterProviderFactory() {
	if chat.IsRegistered(ProviderType) {
		return
	}
	chat.RegisterFactory(chat.ProviderFactory{
		Type:           ProviderType,
		Description:    "Anthropic Messages API (Claude models)",
		Create:         Create,
		ValidateConfig: chat.ValidateAPIKey,
	})
}

// Create builds a provider from cfg.
func Create(cfg chat.ProviderConfig) (chat.Provider, error) {
	return NewFromAPIKey(cfg.APIKey, cfg.BaseURL, nil), nil
}
