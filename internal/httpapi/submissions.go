package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/openseva/vaani/internal/observe"
	"github.com/openseva/vaani/internal/submission"
	"github.com/openseva/vaani/internal/ticket"
)

// submissionView is a [submission.Submission] enriched with the localized
// status label the caller displays.
type submissionView struct {
	submission.Submission
	StatusLabel string `json:"statusLabel"`
}

func view(sub submission.Submission, lang string) submissionView {
	return submissionView{
		Submission:  sub,
		StatusLabel: sub.Status.Label(lang),
	}
}

// createSubmissionRequest is the body of POST /api/v1/submissions.
type createSubmissionRequest struct {
	ServiceID   int               `json:"serviceId"`
	ServiceName string            `json:"serviceName"`
	Values      map[string]string `json:"values"`
	Language    string            `json:"language"`
}

// createSubmissionResponse is returned with status 201.
type createSubmissionResponse struct {
	Submission submissionView `json:"submission"`
	Ticket     ticket.Ticket  `json:"ticket"`
	ImageURL   string         `json:"ticketImageUrl"`
}

// CreateSubmission stores a completed form and mints its collection ticket.
func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.ServiceName == "" || req.Values == nil {
		writeError(w, http.StatusBadRequest, "serviceName and values are required")
		return
	}

	sub, err := submission.New(req.ServiceID, req.ServiceName, req.Values)
	if err != nil {
		observe.Logger(ctx).Error("creating submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create submission")
		return
	}
	if err := h.store.Create(ctx, sub); err != nil {
		observe.Logger(ctx).Error("storing submission failed", "submission_id", sub.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store submission")
		return
	}

	tk, err := ticket.New(sub.ID, sub.ServiceID, sub.ServiceName, sub.Values)
	if err != nil {
		observe.Logger(ctx).Error("minting ticket failed", "submission_id", sub.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mint collection ticket")
		return
	}
	h.tickets.Put(tk)

	h.metrics.RecordSubmission(ctx, string(sub.Status))
	observe.Logger(ctx).Info("submission created",
		"submission_id", sub.ID,
		"service_id", sub.ServiceID,
		"service", sub.ServiceName,
	)

	writeJSON(w, http.StatusCreated, createSubmissionResponse{
		Submission: view(sub, language(req.Language)),
		Ticket:     tk,
		ImageURL:   ticket.ImageURL(h.baseURL, sub.ID),
	})
}

// ListSubmissions lists stored submissions, newest first. The phone filter
// lets applicants look up their own submissions without an account; any
// formatting in the query value is stripped before matching.
//
//	GET /api/v1/submissions?serviceId=20&includeFinal=true&phone=9876543210
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := submission.ListOptions{
		IncludeFinal: q.Get("includeFinal") == "true",
		Phone:        digitsOnly(q.Get("phone")),
	}
	if raw := q.Get("serviceId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "serviceId must be an integer")
			return
		}
		opts.ServiceID = id
	}

	subs, err := h.store.List(r.Context(), opts)
	if err != nil {
		observe.Logger(r.Context()).Error("listing submissions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}

	lang := language(q.Get("language"))
	views := make([]submissionView, len(subs))
	for i, sub := range subs {
		views[i] = view(sub, lang)
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": views})
}

// digitsOnly strips everything but ASCII digits, so "98765 43210" and
// "9876543210" match the same stored value.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GetSubmission returns one submission by id.
func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sub, err := h.store.Get(r.Context(), id)
	if errors.Is(err, submission.ErrNotFound) {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		observe.Logger(r.Context()).Error("fetching submission failed", "submission_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch submission")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"submission": view(sub, language(r.URL.Query().Get("language"))),
	})
}

// updateStatusRequest is the body of PATCH /api/v1/submissions/{id}/status.
type updateStatusRequest struct {
	Status    submission.Status `json:"status"`
	ChangedBy string            `json:"changedBy"`
	Notes     string            `json:"notes"`
	Language  string            `json:"language"`
}

// UpdateSubmissionStatus advances a submission through its workflow and
// appends the history entry.
func (h *Handler) UpdateSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	sub, err := h.store.UpdateStatus(r.Context(), id, req.Status, req.ChangedBy, req.Notes)
	switch {
	case errors.Is(err, submission.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(string(req.Status)))
		return
	case errors.Is(err, submission.ErrNotFound):
		writeError(w, http.StatusNotFound, "submission not found")
		return
	case errors.Is(err, submission.ErrFinal):
		writeError(w, http.StatusConflict, "submission is already collected or rejected")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("status update failed", "submission_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	h.metrics.RecordSubmission(r.Context(), string(sub.Status))
	writeJSON(w, http.StatusOK, map[string]any{
		"submission": view(sub, language(req.Language)),
	})
}

// SubmissionStats summarises the stored submissions by status.
func (h *Handler) SubmissionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("collecting stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ticketResponse is the body of GET /api/v1/ticket/{id}.
type ticketResponse struct {
	Ticket   ticket.Ticket `json:"ticket"`
	ImageURL string        `json:"imageUrl"`
}

// GetTicket returns a live collection ticket. Expired tickets report 404.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tk, err := h.tickets.Get(id)
	if errors.Is(err, ticket.ErrNotFound) {
		writeError(w, http.StatusNotFound, "ticket not found or expired")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch ticket")
		return
	}

	writeJSON(w, http.StatusOK, ticketResponse{
		Ticket:   tk,
		ImageURL: ticket.ImageURL(h.baseURL, tk.ID),
	})
}
