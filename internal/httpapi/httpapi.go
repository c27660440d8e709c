// Package httpapi exposes the Vaani field-collection engine over HTTP.
//
// The handlers are thin plumbing: request decoding, content-type dispatch,
// and error mapping. All decision logic lives in the core packages (engine,
// formcheck, submission, ticket); the API layer never re-validates what they
// already decide.
//
// Routes are registered on a stdlib ServeMux with method patterns. Use
// [NewMux] to get the full handler tree including health probes, the
// Prometheus scrape endpoint, and the observability middleware.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openseva/vaani/internal/engine"
	"github.com/openseva/vaani/internal/formcheck"
	"github.com/openseva/vaani/internal/health"
	"github.com/openseva/vaani/internal/observe"
	"github.com/openseva/vaani/internal/submission"
	"github.com/openseva/vaani/internal/ticket"
	"github.com/openseva/vaani/pkg/provider/stt"
)

// Handler implements the /api/v1 endpoints. Construct it with [New]. It is
// safe for concurrent use; the engine and form checker can be replaced at
// runtime with [Handler.SwapCore] during config reloads.
type Handler struct {
	engine  atomic.Pointer[engine.Engine]
	checker atomic.Pointer[formcheck.Checker]
	store   submission.Store
	tickets *ticket.Registry

	// stt is nil when no transcription provider is configured; audio
	// uploads are then rejected with 503 and only typed answers work.
	stt stt.Provider

	metrics *observe.Metrics
	baseURL string
	timeout time.Duration
}

// Option is a functional option for [New].
type Option func(*Handler)

// WithSTT sets the transcription provider behind the multipart audio path of
// POST /api/v1/respond. Without it, audio uploads return 503.
func WithSTT(p stt.Provider) Option {
	return func(h *Handler) { h.stt = p }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithBaseURL sets the externally reachable address used when building
// ticket image links.
func WithBaseURL(u string) Option {
	return func(h *Handler) { h.baseURL = u }
}

// WithRequestTimeout bounds the processing of one answer, including
// transcription and normalization. Zero means no timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// New returns a [Handler] serving the given core components.
func New(eng *engine.Engine, checker *formcheck.Checker, store submission.Store, tickets *ticket.Registry, opts ...Option) *Handler {
	h := &Handler{
		store:   store,
		tickets: tickets,
	}
	h.engine.Store(eng)
	h.checker.Store(checker)
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

// SwapCore atomically replaces the engine and form checker, typically after a
// config reload rebuilt them from new catalog files. Requests in flight keep
// the components they started with.
func (h *Handler) SwapCore(eng *engine.Engine, checker *formcheck.Checker) {
	h.engine.Store(eng)
	h.checker.Store(checker)
}

// Routes adds all /api/v1 endpoints to mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/prompt", h.Prompt)
	mux.HandleFunc("POST /api/v1/respond", h.Respond)
	mux.HandleFunc("POST /api/v1/form/validate", h.ValidateForm)

	mux.HandleFunc("POST /api/v1/submissions", h.CreateSubmission)
	mux.HandleFunc("GET /api/v1/submissions", h.ListSubmissions)
	mux.HandleFunc("GET /api/v1/submissions/stats", h.SubmissionStats)
	mux.HandleFunc("GET /api/v1/submissions/{id}", h.GetSubmission)
	mux.HandleFunc("PATCH /api/v1/submissions/{id}/status", h.UpdateSubmissionStatus)

	mux.HandleFunc("GET /api/v1/ticket/{id}", h.GetTicket)
}

// NewMux assembles the complete handler tree: API routes, health probes,
// the Prometheus scrape endpoint, and the tracing/metrics middleware.
func NewMux(h *Handler, hc *health.Handler) http.Handler {
	mux := http.NewServeMux()
	h.Routes(mux)
	hc.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(h.metrics)(mux)
}

// defaultLanguage is assumed when a request carries no language tag.
const defaultLanguage = "en-IN"

// language returns tag, or the default when empty.
func language(tag string) string {
	if tag == "" {
		return defaultLanguage
	}
	return tag
}

// writeJSON encodes v with the given status code. On encoding failure it
// falls back to a plain 500; headers are already sent at that point, so the
// body may be truncated.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError sends a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
