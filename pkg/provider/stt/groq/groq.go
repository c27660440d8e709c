// Package groq provides an STT provider backed by Groq's hosted Whisper
// models. Groq exposes an OpenAI-compatible audio API, so this package drives
// it through the official openai-go client pointed at the Groq base URL.
//
// Usage:
//
//	p, err := groq.New(groq.WithAPIKey(os.Getenv("GROQ_API_KEY")))
//	res, err := p.Transcribe(ctx, stt.Request{Audio: wavBytes, MIMEType: "audio/wav"})
package groq

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/openseva/vaani/pkg/provider/stt"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "whisper-large-v3"
	defaultTimeout = 60 * time.Second
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithAPIKey sets the Groq API key. Without it the openai-go client falls
// back to the OPENAI_API_KEY environment variable, which is almost never what
// you want against Groq, so set this explicitly.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithModel overrides the transcription model. Defaults to whisper-large-v3.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the API endpoint, e.g. for a proxy.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// Provider implements stt.Provider using Groq's Whisper transcription API.
// It is safe for concurrent use.
type Provider struct {
	client  openai.Client
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

// New creates a new Groq transcription provider.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("groq: API key must not be empty")
	}

	p.client = openai.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: p.timeout}),
	)
	return p, nil
}

// Transcribe sends the utterance to Groq's transcription endpoint.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	if len(req.Audio) == 0 {
		return stt.Result{}, fmt.Errorf("groq: empty audio")
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	lang := primarySubtag(req.Language)

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(req.Audio), "audio"+extensionFor(mimeType), mimeType),
		Model: openai.AudioModel(p.model),
	}
	if lang != "" {
		params.Language = openai.String(lang)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Result{}, fmt.Errorf("groq: transcription request: %w", err)
	}

	return stt.Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: lang,
	}, nil
}

// primarySubtag reduces a BCP-47 tag to its leading subtag ("hi-IN" to "hi").
func primarySubtag(tag string) string {
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	default:
		return ".wav"
	}
}
