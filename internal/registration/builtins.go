package registration

import (
	"github.com/Joseph-Rai/translationapis/internal/chat/anthropic"
	"github.com/Joseph-Rai/translationapis/internal/chat/gemini"
	"github.com/Joseph-Rai/translationapis/internal/chat/openai"
)

// RegisterBuiltins registers the built-in chat providers with
// chat.DefaultRegistry. It is safe to call more than once.
func RegisterBuiltins() {
	openai.RegisterProviderFactory()
	anthropic.RegisterProviderFactory()
	gemini.RegisterProviderFactory()
}
