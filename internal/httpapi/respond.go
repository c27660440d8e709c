package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openseva/vaani/internal/catalog"
	"github.com/openseva/vaani/internal/formcheck"
	"github.com/openseva/vaani/internal/observe"
	"github.com/openseva/vaani/pkg/provider/stt"
)

// maxAudioBytes caps the size of an uploaded utterance. A complete spoken
// answer is a few seconds of compressed audio, far below this.
const maxAudioBytes = 20 << 20

// promptResponse is the body of GET /api/v1/prompt.
type promptResponse struct {
	FieldID     string `json:"fieldId"`
	Language    string `json:"language"`
	VoicePrompt string `json:"voicePrompt"`
}

// Prompt resolves the localized question to ask for a field.
//
//	GET /api/v1/prompt?field=name&language=hi-IN
func (h *Handler) Prompt(w http.ResponseWriter, r *http.Request) {
	fieldID := r.URL.Query().Get("field")
	if fieldID == "" {
		writeError(w, http.StatusBadRequest, "field query parameter is required")
		return
	}
	lang := language(r.URL.Query().Get("language"))

	writeJSON(w, http.StatusOK, promptResponse{
		FieldID:     fieldID,
		Language:    lang,
		VoicePrompt: h.engine.Load().ResolvePrompt(fieldID, lang),
	})
}

// respondRequest is the JSON body of POST /api/v1/respond.
type respondRequest struct {
	Transcript string `json:"transcript"`
	FieldID    string `json:"fieldId"`
	Language   string `json:"language"`
}

// respondResponse is the body of POST /api/v1/respond.
type respondResponse struct {
	Response    string `json:"response"`
	Transcript  string `json:"transcript"`
	IsConfirmed bool   `json:"isConfirmed"`
	Action      string `json:"action"`
	VoicePrompt string `json:"voicePrompt"`
}

// Respond runs one field attempt. The endpoint accepts either a JSON body
// with a typed transcript or a multipart form with an "audio" part that is
// transcribed first. Both paths converge on the same engine verdict.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var transcript, fieldID, lang string
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		transcript, fieldID, lang, err = h.transcribeUpload(ctx, w, r)
		if err != nil {
			return // transcribeUpload already wrote the error response
		}
	} else {
		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if req.Transcript == "" || req.FieldID == "" {
			writeError(w, http.StatusBadRequest, "transcript and fieldId are required")
			return
		}
		transcript, fieldID, lang = req.Transcript, req.FieldID, language(req.Language)
	}

	eng := h.engine.Load()
	kind := catalog.KindForField(fieldID)
	verdict := eng.Respond(ctx, transcript, lang, fieldID, kind)

	writeJSON(w, http.StatusOK, respondResponse{
		Response:    verdict.Message,
		Transcript:  verdict.Transcript,
		IsConfirmed: verdict.IsConfirmed,
		Action:      string(verdict.Action),
		VoicePrompt: eng.ResolvePrompt(fieldID, lang),
	})
}

// transcribeUpload handles the multipart branch of Respond: it extracts the
// audio part and runs it through the STT provider. An empty transcription is
// not an error; the engine turns it into a retry verdict. On failure it
// writes the HTTP error itself and returns a non-nil error.
func (h *Handler) transcribeUpload(ctx context.Context, w http.ResponseWriter, r *http.Request) (transcript, fieldID, lang string, err error) {
	if h.stt == nil {
		writeError(w, http.StatusServiceUnavailable, "no transcription provider configured; send a typed transcript instead")
		return "", "", "", errors.New("httpapi: stt unavailable")
	}

	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return "", "", "", err
	}

	fieldID = r.FormValue("fieldId")
	if fieldID == "" {
		writeError(w, http.StatusBadRequest, "fieldId form value is required")
		return "", "", "", errors.New("httpapi: missing fieldId")
	}
	lang = language(r.FormValue("language"))

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return "", "", "", err
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading audio: "+err.Error())
		return "", "", "", err
	}

	result, err := h.stt.Transcribe(ctx, stt.Request{
		Audio:    audio,
		MIMEType: header.Header.Get("Content-Type"),
		Language: lang,
	})
	if err != nil {
		observe.Logger(ctx).Error("transcription failed",
			"field_id", fieldID,
			"audio_bytes", len(audio),
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return "", "", "", fmt.Errorf("httpapi: transcribe: %w", err)
	}

	return result.Text, fieldID, lang, nil
}

// validateRequest is the body of POST /api/v1/form/validate.
type validateRequest struct {
	Fields    []formcheck.Field `json:"fields"`
	Values    map[string]string `json:"values"`
	Language  string            `json:"language"`
	ServiceID int               `json:"serviceId"`
}

// ValidateForm runs the whole-form check over a completed submission draft.
func (h *Handler) ValidateForm(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Fields) == 0 || req.Values == nil {
		writeError(w, http.StatusBadRequest, "fields and values are required")
		return
	}

	result := h.checker.Load().Validate(req.Fields, req.Values, language(req.Language), req.ServiceID)
	writeJSON(w, http.StatusOK, result)
}
