package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Joseph-Rai/translationapis/internal/domain"
	"github.com/Joseph-Rai/translationapis/internal/storage"
	"github.com/Joseph-Rai/translationapis/internal/telemetry"
	"github.com/Joseph-Rai/translationapis/internal/tokens"
)

// Mode selects what a refinement does to the input text.
type Mode string

const (
	// ModeTranslate translates into the caller's target language using the
	// vault-held prompt template.
	ModeTranslate Mode = "translate"

	// ModeNormalize removes accidental repetition and fixes spacing.
	ModeNormalize Mode = "normalize"
)

// FailurePolicy decides what Refine returns when the chat call fails.
type FailurePolicy string

const (
	// KeepOriginal returns the input unchanged and logs a warning.
	KeepOriginal FailurePolicy = "keep_original"

	// PropagateError returns the failure to the caller.
	PropagateError FailurePolicy = "propagate"
)

// SecretSource resolves several secrets against one session snapshot and
// reports that session's tenant.
type SecretSource interface {
	ResolveAll(ctx context.Context, names ...string) (tenantID string, values map[string]string, err error)
}

// Options configures a Refiner.
type Options struct {
	Provider  string
	Mode      Mode
	OnFailure FailurePolicy

	TopP      float64
	MaxTokens int

	// MaxInputTokens rejects prompts above this size; 0 disables the check.
	MaxInputTokens int

	BaseURL string

	// Timeout bounds the chat-completion call.
	Timeout time.Duration

	ModelSecret  string
	APIKeySecret string
	PromptSecret string

	Registry *Registry
	Tokens   *tokens.Registry
	Store    storage.RefinementStore
	Logger   *slog.Logger
}

// Default secret names.
const (
	DefaultModelSecret  = "CHATGPT_MODEL"
	DefaultAPIKeySecret = "CHATGPT_API_KEY"
	DefaultPromptSecret = "CHATGPT_PROMPT_FOR_TRANSLATION"
)

// Refiner post-processes text through a chat-completion provider.
type Refiner struct {
	secrets SecretSource
	opts    Options
	logger  *slog.Logger
}

// NewRefiner validates opts and returns a refiner.
func NewRefiner(secrets SecretSource, opts Options) (*Refiner, error) {
	if secrets == nil {
		return nil, fmt.Errorf("chat: secret source is required")
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry
	}
	if opts.Provider == "" {
		opts.Provider = "openai"
	}
	if !opts.Registry.IsRegistered(opts.Provider) {
		return nil, fmt.Errorf("chat: unknown provider %q (registered: %v)", opts.Provider, opts.Registry.Types())
	}
	switch opts.Mode {
	case "":
		opts.Mode = ModeTranslate
	case ModeTranslate, ModeNormalize:
	default:
		return nil, fmt.Errorf("chat: unknown mode %q", opts.Mode)
	}
	switch opts.OnFailure {
	case "":
		opts.OnFailure = KeepOriginal
	case KeepOriginal, PropagateError:
	default:
		return nil, fmt.Errorf("chat: unknown failure policy %q", opts.OnFailure)
	}
	if opts.ModelSecret == "" {
		opts.ModelSecret = DefaultModelSecret
	}
	if opts.APIKeySecret == "" {
		opts.APIKeySecret = DefaultAPIKeySecret
	}
	if opts.PromptSecret == "" {
		opts.PromptSecret = DefaultPromptSecret
	}
	if opts.Tokens == nil && opts.MaxInputTokens > 0 {
		opts.Tokens = tokens.NewDefaultRegistry()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiner{secrets: secrets, opts: opts, logger: logger}, nil
}

// Mode returns the configured mode.
func (r *Refiner) Mode() Mode {
	return r.opts.Mode
}

// Refine runs input through the chat provider. In translate mode
// targetLanguage fills the template placeholders and may be empty; normalize
// mode ignores it.
//
// Secret resolution failures are always returned. Failures of the chat step
// itself follow the configured FailurePolicy.
func (r *Refiner) Refine(ctx context.Context, input, targetLanguage string) (string, error) {
	names := []string{r.opts.ModelSecret, r.opts.APIKeySecret}
	if r.opts.Mode == ModeTranslate {
		names = append(names, r.opts.PromptSecret)
	}
	tenantID, values, err := r.secrets.ResolveAll(ctx, names...)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	model := values[r.opts.ModelSecret]
	var prompt Prompt
	if r.opts.Mode == ModeTranslate {
		prompt = TranslationPrompt(values[r.opts.PromptSecret], targetLanguage, input)
	} else {
		prompt = NormalizationPrompt(input)
	}

	rec := &storage.Refinement{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Provider: r.opts.Provider,
		Model:    model,
		Mode:     string(r.opts.Mode),
		Input:    input,
	}
	if r.opts.Mode == ModeTranslate {
		rec.TargetLanguage = targetLanguage
	}

	start := time.Now()
	output, err := r.complete(ctx, model, values[r.opts.APIKeySecret], prompt)
	rec.Duration = time.Since(start)

	if err != nil {
		rec.Error = err.Error()
		if r.opts.OnFailure == KeepOriginal {
			r.logger.Warn("chat refinement failed, keeping original text",
				slog.String("tenant_id", tenantID),
				slog.String("provider", r.opts.Provider),
				slog.String("model", model),
				slog.String("error", err.Error()),
			)
			rec.Status = storage.StatusFallback
			rec.Output = input
			r.record(ctx, rec)
			return input, nil
		}
		rec.Status = storage.StatusFailed
		r.record(ctx, rec)
		return "", err
	}

	rec.Status = storage.StatusRefined
	rec.Output = output
	r.record(ctx, rec)

	r.logger.Debug("chat refinement",
		slog.String("tenant_id", tenantID),
		slog.String("before", input),
		slog.String("after", output),
		slog.Duration("duration", rec.Duration),
	)
	return output, nil
}

func (r *Refiner) complete(ctx context.Context, model, apiKey string, prompt Prompt) (string, error) {
	if err := r.checkInputSize(model, prompt); err != nil {
		return "", err
	}

	provider, err := r.opts.Registry.Create(ProviderConfig{
		Type:    r.opts.Provider,
		APIKey:  apiKey,
		BaseURL: r.opts.BaseURL,
	})
	if err != nil {
		return "", domain.Wrap(domain.ErrorTypeVendorFailure, "chat", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "chat.complete",
		attribute.String("chat.provider", r.opts.Provider),
		attribute.String("chat.model", model),
		attribute.String("chat.mode", string(r.opts.Mode)),
	)

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	text, err := provider.Complete(ctx, Request{
		Model:     model,
		Prompt:    prompt,
		TopP:      r.opts.TopP,
		MaxTokens: r.opts.MaxTokens,
	})
	if err == nil && text == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		err = domain.VendorError("chat", err)
		telemetry.EndSpan(span, err)
		return "", err
	}
	telemetry.EndSpan(span, nil)
	return text, nil
}

func (r *Refiner) checkInputSize(model string, prompt Prompt) error {
	if r.opts.MaxInputTokens <= 0 {
		return nil
	}
	msgs := prompt.Messages()
	tm := make([]tokens.Message, len(msgs))
	for i, m := range msgs {
		tm[i] = tokens.Message{Role: string(m.Role), Content: m.Content}
	}
	count, err := r.opts.Tokens.Count(model, tm)
	if err != nil {
		r.logger.Warn("token count failed, skipping input size check",
			slog.String("model", model),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if count.Tokens > r.opts.MaxInputTokens {
		return domain.Wrap(domain.ErrorTypeInvalidRequest,
			fmt.Sprintf("chat: prompt is %d tokens, limit is %d", count.Tokens, r.opts.MaxInputTokens), nil)
	}
	return nil
}

func (r *Refiner) record(ctx context.Context, rec *storage.Refinement) {
	if r.opts.Store == nil {
		return
	}
	if err := r.opts.Store.Save(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Error("failed to record refinement",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}
