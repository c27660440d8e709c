// Package observe provides application-wide observability primitives for
// Vaani: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Vaani metrics.
const meterName = "github.com/openseva/vaani"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// NormalizeDuration tracks LLM utterance-normalization latency.
	NormalizeDuration metric.Float64Histogram

	// RespondDuration tracks field response engine latency, including
	// normalization when it runs.
	RespondDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// Verdicts counts field response verdicts. Use with attributes:
	//   attribute.String("field_kind", ...), attribute.String("action", ...)
	Verdicts metric.Int64Counter

	// UnknownFields counts responses served for field identifiers without a
	// dedicated message table. Use with attribute:
	//   attribute.String("field_id", ...)
	UnknownFields metric.Int64Counter

	// NormalizeFallbacks counts normalization attempts that failed and fell
	// back to the raw transcript. Use with attribute:
	//   attribute.String("field_kind", ...)
	NormalizeFallbacks metric.Int64Counter

	// Submissions counts submission status transitions. Use with attribute:
	//   attribute.String("status", ...)
	Submissions metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("vaani.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NormalizeDuration, err = m.Float64Histogram("vaani.normalize.duration",
		metric.WithDescription("Latency of LLM utterance normalization."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RespondDuration, err = m.Float64Histogram("vaani.respond.duration",
		metric.WithDescription("Latency of field response processing."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("vaani.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.Verdicts, err = m.Int64Counter("vaani.verdicts",
		metric.WithDescription("Total field response verdicts by field kind and action."),
	); err != nil {
		return nil, err
	}
	if met.UnknownFields, err = m.Int64Counter("vaani.unknown_fields",
		metric.WithDescription("Total responses served for field identifiers without a dedicated message table."),
	); err != nil {
		return nil, err
	}
	if met.NormalizeFallbacks, err = m.Int64Counter("vaani.normalize.fallbacks",
		metric.WithDescription("Total normalization attempts that fell back to the raw transcript."),
	); err != nil {
		return nil, err
	}
	if met.Submissions, err = m.Int64Counter("vaani.submissions",
		metric.WithDescription("Total submission status transitions by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("vaani.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("vaani.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordVerdict is a convenience method that records a field response verdict
// counter increment.
func (m *Metrics) RecordVerdict(ctx context.Context, fieldKind, action string) {
	m.Verdicts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("field_kind", fieldKind),
			attribute.String("action", action),
		),
	)
}

// RecordUnknownField is a convenience method that records a response served
// for a field identifier with no dedicated message table.
func (m *Metrics) RecordUnknownField(ctx context.Context, fieldID string) {
	m.UnknownFields.Add(ctx, 1,
		metric.WithAttributes(attribute.String("field_id", fieldID)),
	)
}

// RecordNormalizeFallback is a convenience method that records a failed
// normalization attempt that fell back to the raw transcript.
func (m *Metrics) RecordNormalizeFallback(ctx context.Context, fieldKind string) {
	m.NormalizeFallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("field_kind", fieldKind)),
	)
}

// RecordSubmission is a convenience method that records a submission status
// transition.
func (m *Metrics) RecordSubmission(ctx context.Context, status string) {
	m.Submissions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
