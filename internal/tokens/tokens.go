// Package tokens counts prompt tokens so oversized refinement inputs can be
// rejected before a chat-completion call is made.
package tokens

import (
	"fmt"
	"strings"
)

// Message is one role-tagged prompt message.
type Message struct {
	Role    string
	Content string
}

// Count is the result of counting a prompt.
type Count struct {
	Tokens int
	Model  string

	// Estimated is true when the count came from a heuristic rather than the
	// model's tokenizer.
	Estimated bool
}

// Counter counts tokens for a family of models.
type Counter interface {
	Count(model string, messages []Message) (Count, error)
	SupportsModel(model string) bool
}

// Registry picks the first registered counter that supports a model and falls
// back to an estimator otherwise.
type Registry struct {
	counters []Counter
	fallback Counter
}

// NewRegistry creates a registry with the estimator as fallback.
func NewRegistry() *Registry {
	return &Registry{fallback: NewEstimator()}
}

// NewDefaultRegistry creates a registry with the tiktoken counter registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTiktokenCounter())
	return r
}

// Register adds a counter.
func (r *Registry) Register(c Counter) {
	r.counters = append(r.counters, c)
}

// SetFallback replaces the fallback counter.
func (r *Registry) SetFallback(c Counter) {
	r.fallback = c
}

// Count counts messages using the counter for model.
func (r *Registry) Count(model string, messages []Message) (Count, error) {
	c := r.CounterFor(model)
	if c == nil {
		return Count{}, fmt.Errorf("no token counter available for model: %s", model)
	}
	return c.Count(model, messages)
}

// CounterFor returns the counter that would be used for model.
func (r *Registry) CounterFor(model string) Counter {
	for _, c := range r.counters {
		if c.SupportsModel(model) {
			return c
		}
	}
	return r.fallback
}

// Estimator approximates token counts from character length.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64
}

// NewEstimator creates an estimator.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Count estimates the token count.
func (e *Estimator) Count(model string, messages []Message) (Count, error) {
	chars := 0
	for _, m := range messages {
		chars += len(m.Role) + len(m.Content)
		chars += 4 // role and separators
	}
	return Count{
		Tokens:    int(float64(chars) / e.CharsPerToken),
		Model:     model,
		Estimated: true,
	}, nil
}

// SupportsModel returns true for every model.
func (e *Estimator) SupportsModel(string) bool {
	return true
}

// ModelMatcher matches model names by prefix or exact name.
type ModelMatcher struct {
	prefixes []string
	exact    []string
}

// NewModelMatcher creates a matcher.
func NewModelMatcher(prefixes, exact []string) *ModelMatcher {
	return &ModelMatcher{prefixes: prefixes, exact: exact}
}

// Matches reports whether model matches any pattern.
func (m *ModelMatcher) Matches(model string) bool {
	for _, e := range m.exact {
		if model == e {
			return true
		}
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
