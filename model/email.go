package model

import (
	"time"
)

// Email is a raw inbound email delivered to a user's forwarding address,
// stored alongside the heuristic parser's output.
type Email struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	MessageID    string            `json:"message_id,omitempty"`
	FromEmail    string            `json:"from_email"`
	FromName     string            `json:"from_name,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	BodyText     string            `json:"body_text,omitempty"`
	BodyHTML     string            `json:"body_html,omitempty"`
	Attachments  []EmailAttachment `json:"attachments"`
	Parsed       EmailCandidate    `json:"parsed"`
	Processed    bool              `json:"processed"`
	LinkedToDeal bool              `json:"linked_to_deal"`
	ReceivedAt   time.Time         `json:"received_at"`
	CreatedAt    time.Time         `json:"created_at"`
}

// EmailAttachment is an attachment persisted to object storage.
type EmailAttachment struct {
	FileName string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// EmailCandidate is the heuristic email parser's output: a strict subset of
// the contract schema. Nil / empty means the signal was absent; every key is
// always present in the serialized form.
type EmailCandidate struct {
	BrandName    *string            `json:"brand_name"`
	ContactName  *string            `json:"contact_name"`
	Budget       *float64           `json:"budget"`
	Deliverables []EmailDeliverable `json:"deliverables"`
	Dates        []EmailDate        `json:"dates"`
	Confidence   Confidence         `json:"confidence"`
}

// EmailDeliverable is a platform mention detected in an email, with an
// optional content type.
type EmailDeliverable struct {
	Platform string `json:"platform"`
	Type     string `json:"type,omitempty"`
}

// EmailDate is a labeled date detected in an email, ISO formatted.
type EmailDate struct {
	Label string `json:"label"`
	Date  string `json:"date"`
}
