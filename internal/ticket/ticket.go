// Package ticket mints collection tickets for completed submissions. A ticket
// carries a scannable code (base64-encoded JSON payload) the applicant
// presents at the service counter, and expires 24 hours after issue.
package ticket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// TTL is how long a ticket stays valid after it is minted.
const TTL = 24 * time.Hour

// UserInfo is the minimal applicant identity embedded in the scannable code.
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Payload is the data encoded into the scannable code.
type Payload struct {
	SubmissionID string    `json:"submissionId"`
	ServiceName  string    `json:"serviceName"`
	SubmittedAt  time.Time `json:"submittedAt"`
	UserInfo     UserInfo  `json:"userInfo"`
}

// Ticket is one issued collection ticket.
type Ticket struct {
	ID          string `json:"id"`
	ServiceID   int    `json:"serviceId"`
	ServiceName string `json:"serviceName"`

	// Code is the base64 payload rendered into a QR image by the client.
	Code string `json:"code"`

	SubmittedAt time.Time `json:"submittedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Valid reports whether the ticket can still be presented at now.
func (t Ticket) Valid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// Remaining returns the time left before expiry, floored at zero.
func (t Ticket) Remaining(now time.Time) time.Duration {
	if r := t.ExpiresAt.Sub(now); r > 0 {
		return r
	}
	return 0
}

// New mints a ticket for a submission. The applicant identity is taken from
// the collected field values; a missing name becomes "Anonymous" so the
// counter display never shows an empty ticket.
func New(submissionID string, serviceID int, serviceName string, values map[string]string) (Ticket, error) {
	now := time.Now()
	payload := Payload{
		SubmissionID: submissionID,
		ServiceName:  serviceName,
		SubmittedAt:  now,
		UserInfo: UserInfo{
			Name:  values["name"],
			Email: values["email"],
			Phone: values["phone"],
		},
	}
	if payload.UserInfo.Name == "" {
		payload.UserInfo.Name = "Anonymous"
	}

	code, err := Encode(payload)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{
		ID:          submissionID,
		ServiceID:   serviceID,
		ServiceName: serviceName,
		Code:        code,
		SubmittedAt: now,
		ExpiresAt:   now.Add(TTL),
	}, nil
}

// Encode serialises a payload into the base64 form embedded in QR images.
func Encode(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("ticket: encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a scanned code back into its payload.
func Decode(code string) (Payload, error) {
	data, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return Payload{}, fmt.Errorf("ticket: decode code: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("ticket: decode payload: %w", err)
	}
	return p, nil
}

// ImageURL returns the address of the submission detail page encoded as a
// QR image, rendered by the qrserver.com API.
func ImageURL(baseURL, submissionID string) string {
	details := baseURL + "/submission/" + submissionID
	return "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data=" + url.QueryEscape(details)
}
