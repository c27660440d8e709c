package whisper_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openseva/vaani/pkg/provider/stt"
	"github.com/openseva/vaani/pkg/provider/stt/whisper"
)

// ---- helpers ----------------------------------------------------------------

// inferenceRequest captures what the mock whisper-server received.
type inferenceRequest struct {
	filename string
	language string
	model    string
	audio    []byte
}

// newMockServer creates a test server that responds to POST /inference with a
// JSON body containing responseText and records each parsed request into got.
func newMockServer(t *testing.T, responseText string, got *inferenceRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if got != nil {
			got.language = r.FormValue("language")
			got.model = r.FormValue("model")
			if file, header, err := r.FormFile("file"); err == nil {
				got.filename = header.Filename
				buf := make([]byte, header.Size)
				n, _ := file.Read(buf)
				got.audio = buf[:n]
				file.Close()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestNew_ValidServerURL_ReturnsProvider(t *testing.T) {
	t.Parallel()
	p, err := whisper.New("http://localhost:8080",
		whisper.WithModel("small"),
		whisper.WithLanguage("hi"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

// ---- transcription ----------------------------------------------------------

func TestTranscribe(t *testing.T) {
	t.Parallel()
	var got inferenceRequest
	srv := newMockServer(t, "  मेरा नाम आशा है  ", &got)
	defer srv.Close()

	p, err := whisper.New(srv.URL, whisper.WithModel("small"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Transcribe(context.Background(), stt.Request{
		Audio:    []byte("fake-webm"),
		MIMEType: "audio/webm",
		Language: "hi-IN",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if res.Text != "मेरा नाम आशा है" {
		t.Errorf("text: got %q, want trimmed transcript", res.Text)
	}
	if res.Language != "hi" {
		t.Errorf("language: got %q, want %q", res.Language, "hi")
	}

	// The server should have seen the primary subtag, the model hint, and a
	// filename extension matching the MIME type.
	if got.language != "hi" {
		t.Errorf("sent language: got %q, want %q", got.language, "hi")
	}
	if got.model != "small" {
		t.Errorf("sent model: got %q, want %q", got.model, "small")
	}
	if got.filename != "audio.webm" {
		t.Errorf("sent filename: got %q, want %q", got.filename, "audio.webm")
	}
	if string(got.audio) != "fake-webm" {
		t.Errorf("sent audio: got %q", got.audio)
	}
}

func TestTranscribe_DefaultLanguageOption(t *testing.T) {
	t.Parallel()
	var got inferenceRequest
	srv := newMockServer(t, "hello", &got)
	defer srv.Close()

	p, err := whisper.New(srv.URL, whisper.WithLanguage("te"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// No per-request language: the option value applies.
	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte("x")}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.language != "te" {
		t.Errorf("sent language: got %q, want %q", got.language, "te")
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	t.Parallel()
	p, err := whisper.New("http://localhost:8080")
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
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte("x")}); err == nil {
		t.Fatal("expected error for HTTP 500, got nil")
	}
}

func TestTranscribe_ErrorBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no model loaded"})
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Transcribe(context.Background(), stt.Request{Audio: []byte("x")})
	if err == nil {
		t.Fatal("expected error from server error body, got nil")
	}
}
