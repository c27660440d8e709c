// Package submission holds completed form applications and their status
// workflow. A submission is created when an applicant finishes a form and
// moves through review states until it is collected or rejected.
package submission

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the review state of a submission.
type Status string

const (
	// StatusSubmitted is the initial state after the applicant submits.
	StatusSubmitted Status = "submitted"

	// StatusUnderReview means an official has opened the application.
	StatusUnderReview Status = "under_review"

	// StatusProcessing means the application is being processed.
	StatusProcessing Status = "processing"

	// StatusCompleted means processing finished and the document is ready.
	StatusCompleted Status = "completed"

	// StatusReadyForCollection means the applicant was notified to collect.
	StatusReadyForCollection Status = "ready_for_collection"

	// StatusCollected is a final state: the applicant picked up the document.
	StatusCollected Status = "collected"

	// StatusRejected is a final state: the application was declined.
	StatusRejected Status = "rejected"
)

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusProcessing, StatusCompleted,
		StatusReadyForCollection, StatusCollected, StatusRejected:
		return true
	}
	return false
}

// Final reports whether s is a terminal state that allows no further changes.
func (s Status) Final() bool {
	return s == StatusCollected || s == StatusRejected
}

// statusLabels holds the display wording for each status per language.
// English is the fallback.
var statusLabels = map[Status]map[string]string{
	StatusSubmitted:          {"en": "Submitted", "hi": "जमा किया गया", "te": "సమర్పించబడింది"},
	StatusUnderReview:        {"en": "Under Review", "hi": "समीक्षाधीन", "te": "సమీక్షలో ఉంది"},
	StatusProcessing:         {"en": "Processing", "hi": "प्रक्रिया में", "te": "ప్రాసెసింగ్"},
	StatusCompleted:          {"en": "Completed", "hi": "पूर्ण", "te": "పూర్తయింది"},
	StatusReadyForCollection: {"en": "Ready for Collection", "hi": "संग्रह के लिए तैयार", "te": "సేకరణకు సిద్ధంగా ఉంది"},
	StatusCollected:          {"en": "Collected", "hi": "एकत्र किया गया", "te": "సేకరించబడింది"},
	StatusRejected:           {"en": "Rejected", "hi": "अस्वीकृत", "te": "తిరస్కరించబడింది"},
}

// Label returns the display wording for s in the requested language,
// falling back to English. The language may be a full BCP-47 tag; only the
// primary subtag is used for the lookup ("hi-IN" resolves as "hi").
// Unknown statuses return the raw value.
func (s Status) Label(language string) string {
	byLang, ok := statusLabels[s]
	if !ok {
		return string(s)
	}
	if i := strings.IndexByte(language, '-'); i >= 0 {
		language = language[:i]
	}
	if l, ok := byLang[language]; ok {
		return l
	}
	return byLang["en"]
}

// StatusChange records one transition in a submission's history.
type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	ChangedBy string    `json:"changedBy,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Submission is one completed form application.
type Submission struct {
	ID          string `json:"id"`
	ServiceID   int    `json:"serviceId"`
	ServiceName string `json:"serviceName"`

	// Values holds the collected field values keyed by field id.
	Values map[string]string `json:"values"`

	Status        Status         `json:"status"`
	StatusHistory []StatusChange `json:"statusHistory"`
	AdminNotes    string         `json:"adminNotes,omitempty"`

	// ViewedBy lists the identifiers of everyone who opened the submission.
	ViewedBy []string `json:"viewedBy,omitempty"`

	SubmittedAt time.Time `json:"submittedAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired reports whether the submission is past its collection window or
// already in a final state.
func (s Submission) Expired(now time.Time) bool {
	return s.Status.Final() || now.After(s.ExpiresAt)
}

// TTL is how long a submission stays collectable after it is created.
const TTL = 24 * time.Hour

// New builds a submission in the initial state with a fresh id, timestamps,
// and the opening history entry.
func New(serviceID int, serviceName string, values map[string]string) (Submission, error) {
	id, err := generateID()
	if err != nil {
		return Submission{}, fmt.Errorf("submission: generate id: %w", err)
	}
	now := time.Now()
	if values == nil {
		values = map[string]string{}
	}
	return Submission{
		ID:          id,
		ServiceID:   serviceID,
		ServiceName: serviceName,
		Values:      values,
		Status:      StatusSubmitted,
		StatusHistory: []StatusChange{{
			Status:    StatusSubmitted,
			ChangedAt: now,
			Notes:     "Application submitted by user",
		}},
		SubmittedAt: now,
		ModifiedAt:  now,
		ExpiresAt:   now.Add(TTL),
	}, nil
}

// generateID produces an identifier of the form SUB_<unix-ms>_<10 hex chars>.
// The timestamp keeps ids roughly sortable; the random suffix makes them
// statistically unique.
func generateID() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("SUB_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf)), nil
}

// Store errors shared by all implementations.
var (
	ErrNotFound      = errors.New("submission: not found")
	ErrDuplicateID   = errors.New("submission: duplicate id")
	ErrInvalidStatus = errors.New("submission: invalid status")

	// ErrFinal is returned when changing a submission that is already
	// collected or rejected.
	ErrFinal = errors.New("submission: submission is in a final state")
)

// ListOptions filters a Store listing.
type ListOptions struct {
	// ServiceID keeps only submissions for one service; zero means all.
	ServiceID int

	// IncludeFinal keeps collected and rejected submissions in the result.
	IncludeFinal bool

	// Phone keeps only submissions whose collected "phone" value equals this
	// digits-only string. Empty means all. This is how applicants look up
	// their own submissions without an account.
	Phone string
}

// Stats summarises the stored submissions.
type Stats struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Final    int            `json:"final"`
	ByStatus map[Status]int `json:"byStatus"`
}

// Store persists submissions. Implementations must be safe for concurrent use.
type Store interface {
	// Create stores a new submission. Returns ErrDuplicateID when the id
	// already exists.
	Create(ctx context.Context, sub Submission) error

	// Get returns the submission with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Submission, error)

	// List returns submissions matching opts, newest first.
	List(ctx context.Context, opts ListOptions) ([]Submission, error)

	// UpdateStatus transitions the submission and appends a history entry.
	// Returns ErrInvalidStatus for unknown statuses and ErrFinal when the
	// submission is already collected or rejected.
	UpdateStatus(ctx context.Context, id string, status Status, changedBy, notes string) (Submission, error)

	// UpdateValues merges updates into the stored field values without
	// touching the status.
	UpdateValues(ctx context.Context, id string, updates map[string]string, changedBy string) (Submission, error)

	// Delete removes the submission, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Stats returns counts of stored submissions grouped by status.
	Stats(ctx context.Context) (Stats, error)
}
