package groq_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openseva/vaani/pkg/provider/stt"
	"github.com/openseva/vaani/pkg/provider/stt/groq"
)

func TestNew_MissingAPIKey_ReturnsError(t *testing.T) {
	t.Parallel()
	_, err := groq.New()
	if err == nil {
		t.Fatal("expected error without API key, got nil")
	}
}

func TestNew_WithOptions_ReturnsProvider(t *testing.T) {
	t.Parallel()
	p, err := groq.New(
		groq.WithAPIKey("gsk_test"),
		groq.WithModel("whisper-large-v3-turbo"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  నా పేరు రాము  "})
	}))
	defer srv.Close()

	p, err := groq.New(groq.WithAPIKey("gsk_test"), groq.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Transcribe(context.Background(), stt.Request{
		Audio:    []byte("fake-ogg"),
		MIMEType: "audio/ogg",
		Language: "te-IN",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if res.Text != "నా పేరు రాము" {
		t.Errorf("text: got %q, want trimmed transcript", res.Text)
	}
	if res.Language != "te" {
		t.Errorf("language: got %q, want %q", res.Language, "te")
	}
	if gotPath != "/audio/transcriptions" {
		t.Errorf("request path: got %q, want %q", gotPath, "/audio/transcriptions")
	}
	if gotAuth != "Bearer gsk_test" {
		t.Errorf("authorization: got %q, want bearer token", gotAuth)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	t.Parallel()
	p, err := groq.New(groq.WithAPIKey("gsk_test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), stt.Request{}); err == nil {
		t.Fatal("expected error for empty audio, got nil")
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "unsupported audio format"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := groq.New(groq.WithAPIKey("gsk_test"), groq.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte("x")}); err == nil {
		t.Fatal("expected error for HTTP 400, got nil")
	}
}
