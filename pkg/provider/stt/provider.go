// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., a local whisper-server
// or Groq's hosted whisper-large-v3) and exposes a uniform batch interface:
// one captured utterance in, one transcript out. Vaani records a complete
// answer per form field before transcribing, so there is no streaming path;
// only the final transcript feeds the field response engine.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Request describes one utterance to transcribe.
type Request struct {
	// Audio is the complete encoded audio of the utterance.
	Audio []byte

	// MIMEType describes the audio container (e.g., "audio/wav", "audio/webm").
	// An empty value lets the provider assume its preferred default.
	MIMEType string

	// Language is the BCP-47 language tag hint for recognition (e.g., "hi-IN").
	// Providers that only accept a primary subtag should truncate it themselves.
	// An empty string lets the provider auto-detect the language, if supported.
	Language string
}

// Result is the transcription outcome for one Request.
type Result struct {
	// Text is the transcribed speech content.
	Text string

	// Language is the language the provider detected or assumed. May be empty
	// when the provider does not report it.
	Language string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report confidence.
	Confidence float64
}

// Provider is the abstraction over any batch STT backend.
//
// Transcribe must respect context cancellation and return promptly when ctx
// is done. An empty utterance (silence, unintelligible audio) is not an
// error: providers should return a Result with an empty Text.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}
