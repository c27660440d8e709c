// Package engine implements the per-field conversational validation
// protocol: given a transcript for a named field in a chosen language, decide
// whether the value is acceptable, produce a localized confirmation or error
// message, and signal whether the caller should retry the field or proceed.
//
// The engine is stateless per call. Field wording comes from an injected
// [catalog.Catalog]; spoken-form canonicalization is delegated to an optional
// [normalize.Normalizer] whose failures are logged and swallowed, never
// surfaced to the user.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openseva/vaani/internal/catalog"
	"github.com/openseva/vaani/internal/normalize"
	"github.com/openseva/vaani/internal/observe"
)

// Action tells the caller what to do after a field attempt.
type Action string

const (
	// ActionRetry means the value was rejected and the same field should be
	// asked again.
	ActionRetry Action = "retry"

	// ActionProceed means the value was accepted and the caller may advance
	// to the next field.
	ActionProceed Action = "proceed"
)

// Verdict is the outcome of one field attempt. Every code path yields a
// displayable Message and a retry-or-proceed Action; there is no fatal
// outcome.
type Verdict struct {
	// Message is the localized confirmation or error text to present.
	Message string

	// IsConfirmed reports whether the transcript passed validation.
	IsConfirmed bool

	// Action is ActionProceed iff IsConfirmed.
	Action Action

	// Transcript is the value that was validated: the normalized form when
	// normalization ran and succeeded, otherwise the raw input.
	Transcript string
}

// genderTokens is the fixed multilingual set of accepted gender words and
// abbreviations. Matching is substring containment over the lower-cased
// transcript, not exact match, so "i am male" passes.
var genderTokens = []string{
	"male", "female", "other", "man", "woman", "m", "f",
	"masculino", "femenino",
	"पुरुष", "महिला", "अन्य",
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithNormalizer sets the utterance normalizer invoked before validation for
// normalizable field kinds. Without it, raw transcripts are validated as-is.
func WithNormalizer(n normalize.Normalizer) Option {
	return func(e *Engine) {
		e.normalizer = n
	}
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine is the field response decision core. It is safe for concurrent use;
// all state is read-only after construction.
type Engine struct {
	catalog    *catalog.Catalog
	normalizer normalize.Normalizer
	metrics    *observe.Metrics
}

// New returns an [Engine] reading prompts and messages from cat.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:    cat,
		normalizer: normalize.Noop{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// ResolvePrompt returns the localized question to ask for fieldID. It
// delegates to the catalog and always returns a non-empty string.
func (e *Engine) ResolvePrompt(fieldID, language string) string {
	return e.catalog.ResolvePrompt(fieldID, language)
}

// Respond runs the validation protocol for one field attempt.
//
// File-upload fields short-circuit: they are never voice-validated, so the
// verdict is always confirmed with the fixed upload instruction. For
// normalizable kinds the transcript first passes through the normalizer;
// a normalizer failure is logged and the raw transcript is used instead.
// Unknown field identifiers never block progress: they validate as generic
// values and borrow the fallback message table, with a warning logged so the
// catalog gap stays visible operationally.
func (e *Engine) Respond(ctx context.Context, transcript, language, fieldID string, kind catalog.FieldKind) Verdict {
	start := time.Now()
	defer func() {
		e.metrics.RespondDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if kind == catalog.KindFileUpload {
		e.metrics.RecordVerdict(ctx, string(kind), string(ActionProceed))
		return Verdict{
			Message:     e.catalog.FileUploadMessage(),
			IsConfirmed: true,
			Action:      ActionProceed,
			Transcript:  transcript,
		}
	}

	transcript = e.normalizeTranscript(ctx, transcript, kind, language)

	trimmed := strings.TrimSpace(transcript)
	valid := validate(kind, trimmed)

	set, known := e.catalog.MessagesFor(fieldID, language)
	if !known {
		observe.Logger(ctx).Warn("no message table for field, using fallback wording",
			"field_id", fieldID,
			"language", language,
		)
		e.metrics.RecordUnknownField(ctx, fieldID)
	}

	v := Verdict{
		IsConfirmed: valid,
		Transcript:  trimmed,
	}
	if valid {
		v.Message = fmt.Sprintf(set.Confirm, trimmed)
		v.Action = ActionProceed
	} else {
		v.Message = set.Error
		v.Action = ActionRetry
	}

	e.metrics.RecordVerdict(ctx, string(kind), string(v.Action))
	return v
}

// normalizeTranscript runs the transcript through the normalizer for
// normalizable kinds. Failures are logged and swallowed; the raw transcript
// flows on.
func (e *Engine) normalizeTranscript(ctx context.Context, transcript string, kind catalog.FieldKind, language string) string {
	if !kind.Normalizable() || e.normalizer == nil {
		return transcript
	}

	start := time.Now()
	normalized, err := e.normalizer.Normalize(ctx, transcript, kind, language)
	e.metrics.NormalizeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		observe.Logger(ctx).Warn("normalization failed, using raw transcript",
			"field_kind", string(kind),
			"error", err,
		)
		e.metrics.RecordNormalizeFallback(ctx, string(kind))
		return transcript
	}
	return normalized
}

// validate applies the kind-specific rule to a trimmed transcript. Empty
// input is invalid for every kind; beyond that the rules are deliberately
// permissive conversational pre-checks, not strict data-integrity gates.
func validate(kind catalog.FieldKind, trimmed string) bool {
	if trimmed == "" {
		return false
	}
	switch kind {
	case catalog.KindName:
		return utf8.RuneCountInString(trimmed) >= 2
	case catalog.KindEmail:
		return strings.Contains(trimmed, "@")
	case catalog.KindPhone:
		return len(digitsOnly(trimmed)) == 10
	case catalog.KindAddress:
		return utf8.RuneCountInString(trimmed) >= 10
	case catalog.KindDateOfBirth:
		return utf8.RuneCountInString(trimmed) >= 4
	case catalog.KindGender:
		lower := strings.ToLower(trimmed)
		for _, tok := range genderTokens {
			if strings.Contains(lower, tok) {
				return true
			}
		}
		return false
	}
	// Generic and unrecognized kinds have no dedicated rule and never fail.
	return true
}

// digitsOnly strips every non-ASCII-digit character.
func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
