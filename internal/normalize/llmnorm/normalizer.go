// Package llmnorm implements the utterance normalizer on top of an
// [llm.Provider]. One short completion per attempt turns a spoken-form value
// into its canonical shape: dates become YYYY-MM-DD, emails become lowercase
// addresses with "at"/"dot" resolved to symbols, phone numbers become bare
// digits.
//
// The normalizer is deliberately conservative about its own output. An empty
// or whitespace-only model reply falls back to the raw transcript, and kinds
// outside the normalizable set pass through untouched without an LLM call.
package llmnorm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openseva/vaani/internal/catalog"
	"github.com/openseva/vaani/internal/normalize"
	"github.com/openseva/vaani/pkg/provider/llm"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 64
)

// basePrompt opens every normalization request; the kind-specific
// instruction is appended after it.
const basePrompt = `Extract the core information from this spoken transcript: "%s". `

const (
	datePrompt  = `Format it STRICTLY as YYYY-MM-DD. For example, "18th September 2004" becomes "2004-09-18". Return NOTHING ELSE but the formatted date.`
	emailPrompt = `Format it as a standard email address with no spaces. Convert words like 'at' or 'dot' to standard symbols. Make it fully lowercase. Return NOTHING ELSE but the formatted email.`
	phonePrompt = `Extract just the numbers. Remove all spaces and letters. Return NOTHING ELSE but the digits.`
)

// Compile-time assertion that Normalizer implements normalize.Normalizer.
var _ normalize.Normalizer = (*Normalizer)(nil)

// Option is a functional option for configuring a [Normalizer].
type Option func(*Normalizer)

// WithTemperature sets the LLM sampling temperature. Lower values produce
// more deterministic output. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(n *Normalizer) {
		n.temperature = temp
	}
}

// WithMaxTokens caps the completion length. The expected outputs are a date,
// an email address, or a digit string, so the default of 64 is generous.
func WithMaxTokens(max int) Option {
	return func(n *Normalizer) {
		n.maxTokens = max
	}
}

// Normalizer canonicalizes spoken-form transcripts via an LLM.
// It is safe for concurrent use.
type Normalizer struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

// New returns a new [Normalizer] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Normalizer {
	n := &Normalizer{
		llm:         provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize implements normalize.Normalizer.
//
// Kinds outside the normalizable set return raw unchanged without an LLM
// call. For normalizable kinds the model output replaces the raw transcript;
// an empty model reply keeps the raw value. Backend errors are returned as-is
// so the caller can log them and fall back.
func (n *Normalizer) Normalize(ctx context.Context, raw string, kind catalog.FieldKind, _ string) (string, error) {
	if !kind.Normalizable() || strings.TrimSpace(raw) == "" {
		return raw, nil
	}

	req := llm.CompletionRequest{
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
		Messages: []llm.Message{
			{Role: "user", Content: buildPrompt(raw, kind)},
		},
	}

	resp, err := n.llm.Complete(ctx, req)
	if err != nil {
		return raw, fmt.Errorf("llmnorm: complete: %w", err)
	}
	if resp == nil {
		return raw, fmt.Errorf("llmnorm: nil response from provider")
	}

	// Lowercasing is safe across all normalizable kinds and required for
	// email addresses.
	formatted := strings.ToLower(strings.TrimSpace(stripMarkdown(resp.Content)))
	if formatted == "" {
		return raw, nil
	}
	return formatted, nil
}

// buildPrompt assembles the kind-specific normalization prompt.
func buildPrompt(raw string, kind catalog.FieldKind) string {
	p := fmt.Sprintf(basePrompt, raw)
	switch kind {
	case catalog.KindDateOfBirth:
		return p + datePrompt
	case catalog.KindEmail:
		return p + emailPrompt
	case catalog.KindPhone:
		return p + phonePrompt
	}
	return p
}

// stripMarkdown removes a surrounding markdown code fence, which some models
// add despite the instructions.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language hint on the opening fence line.
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
