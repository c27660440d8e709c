// Package normalize defines the utterance normalizer contract: a best-effort
// canonicalization step for transcript values of ambiguity-prone field kinds
// (dates, emails, phone numbers) that runs before validation.
//
// Normalization is never load-bearing. The response engine calls the
// normalizer, and on any failure logs it and continues with the raw
// transcript; a transient normalizer outage must not block form completion.
package normalize

import (
	"context"

	"github.com/openseva/vaani/internal/catalog"
)

// Normalizer turns a raw transcript into a canonical string for the given
// field kind. For kinds where normalization does not apply, implementations
// must return raw unchanged with a nil error.
//
// A returned error means the normalization attempt failed entirely (backend
// unreachable, context cancelled). Callers treat that as "no normalization
// occurred" and keep the raw transcript.
type Normalizer interface {
	Normalize(ctx context.Context, raw string, kind catalog.FieldKind, language string) (string, error)
}

// Noop is a Normalizer that always returns the input unchanged. Used when no
// LLM backend is configured.
type Noop struct{}

var _ Normalizer = Noop{}

// Normalize implements Normalizer.
func (Noop) Normalize(_ context.Context, raw string, _ catalog.FieldKind, _ string) (string, error) {
	return raw, nil
}
