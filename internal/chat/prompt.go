package chat

import "strings"

// Role tags a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged prompt entry.
type Message struct {
	Role    Role
	Content string
}

// Prompt is an ordered, immutable sequence of messages. The zero value is an
// empty prompt.
type Prompt struct {
	messages []Message
}

// Messages returns a copy of the prompt's messages in order.
func (p Prompt) Messages() []Message {
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Len returns the number of messages.
func (p Prompt) Len() int {
	return len(p.messages)
}

// System returns the concatenated system instructions.
func (p Prompt) System() string {
	var parts []string
	for _, m := range p.messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Conversation returns the non-system messages in order.
func (p Prompt) Conversation() []Message {
	out := make([]Message, 0, len(p.messages))
	for _, m := range p.messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// PromptBuilder accumulates messages for a Prompt.
type PromptBuilder struct {
	messages []Message
}

// NewPromptBuilder returns an empty builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

func (b *PromptBuilder) System(text string) *PromptBuilder {
	return b.add(RoleSystem, text)
}

func (b *PromptBuilder) User(text string) *PromptBuilder {
	return b.add(RoleUser, text)
}

func (b *PromptBuilder) Assistant(text string) *PromptBuilder {
	return b.add(RoleAssistant, text)
}

func (b *PromptBuilder) add(role Role, text string) *PromptBuilder {
	b.messages = append(b.messages, Message{Role: role, Content: text})
	return b
}

// Build returns a Prompt detached from the builder; later builder calls do not
// affect it.
func (b *PromptBuilder) Build() Prompt {
	msgs := make([]Message, len(b.messages))
	copy(msgs, b.messages)
	return Prompt{messages: msgs}
}

// Fixed instruction for normalize mode, with one worked example.
const (
	normalizeInstruction = "Clean up the user's text. Remove words or phrases that are repeated " +
		"by mistake and fix spacing between words. Do not translate, summarize or add anything. " +
		"Reply with the corrected text only."
	normalizeExampleInput  = "안녕하세요 안녕하세요  오늘   날씨가 좋네요 좋네요"
	normalizeExampleOutput = "안녕하세요 오늘 날씨가 좋네요"
)

// TranslationPrompt builds the translate-mode prompt from a vault template.
// See ExpandTemplate for the placeholder syntax. An empty targetLanguage is
// substituted as is.
func TranslationPrompt(template, targetLanguage, input string) Prompt {
	instruction := ExpandTemplate(template, targetLanguage)
	return NewPromptBuilder().
		System(instruction).
		User(input).
		Build()
}

// NormalizationPrompt builds the normalize-mode prompt.
func NormalizationPrompt(input string) Prompt {
	return NewPromptBuilder().
		System(normalizeInstruction).
		User(normalizeExampleInput).
		Assistant(normalizeExampleOutput).
		User(input).
		Build()
}

// ExpandTemplate renders a printf-style template with a single string
// argument. Supported directives:
//
//	%s, %1$s, %<s   the argument
//	%S, %1$S, %<S   the argument upper-cased
//	%%              a literal percent sign
//	%n              a newline
//
// Any other directive, including indexes other than 1, is copied verbatim.
func ExpandTemplate(template, arg string) string {
	var b strings.Builder
	b.Grow(len(template) + len(arg))

	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' || i+1 == len(template) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		switch template[j] {
		case '%':
			b.WriteByte('%')
			i = j
			continue
		case 'n':
			b.WriteByte('\n')
			i = j
			continue
		case '<':
			j++
		default:
			k := j
			for k < len(template) && template[k] >= '0' && template[k] <= '9' {
				k++
			}
			if k > j {
				if k >= len(template) || template[k] != '$' || template[j:k] != "1" {
					b.WriteByte(c)
					continue
				}
				j = k + 1
			}
		}

		if j < len(template) && (template[j] == 's' || template[j] == 'S') {
			if template[j] == 'S' {
				b.WriteString(strings.ToUpper(arg))
			} else {
				b.WriteString(arg)
			}
			i = j
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
