package model

import (
	"strings"
	"time"
)

// Deal is a brand deal in the pipeline. Date fields hold ISO dates
// (YYYY-MM-DD); an empty string means unset.
type Deal struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Title            string    `json:"title"`
	BrandName        string    `json:"brand_name,omitempty"`
	ContactName      string    `json:"contact_name,omitempty"`
	Status           string    `json:"status"`
	Value            float64   `json:"value"`
	Currency         string    `json:"currency"`
	SignedDate       string    `json:"signed_date,omitempty"`
	DeliveryDeadline string    `json:"delivery_deadline,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Deal status constants
const (
	DealLead        = "lead"
	DealNegotiating = "negotiating"
	DealContracted  = "contracted"
	DealInProgress  = "in_progress"
	DealCompleted   = "completed"
)

// Deliverable is a single piece of committed content on a deal
type Deliverable struct {
	ID          string    `json:"id"`
	DealID      string    `json:"deal_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Platform    string    `json:"platform"`
	ContentType string    `json:"content_type"`
	DueDate     string    `json:"due_date,omitempty"`
	Status      string    `json:"status"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Deliverable status constants
const (
	DeliverableNotStarted = "not_started"
	DeliverableInProgress = "in_progress"
	DeliverableDelivered  = "delivered"
	DeliverablePublished  = "published"
)

// Platform and content-type enums. Model output is normalized against these
// before persistence; anything outside the set degrades to other / custom.
const (
	PlatformOther     = "other"
	ContentTypeCustom = "custom"
)

var validPlatforms = map[string]bool{
	"tiktok":     true,
	"youtube":    true,
	"instagram":  true,
	"twitter":    true,
	"blog":       true,
	"newsletter": true,
	"podcast":    true,
	"snapchat":   true,
	"other":      true,
}

var validContentTypes = map[string]bool{
	"video":               true,
	"post":                true,
	"story":               true,
	"reel":                true,
	"short":               true,
	"blog_post":           true,
	"newsletter_mention":  true,
	"podcast_integration": true,
	"event_appearance":    true,
	"custom":              true,
}

// NormalizePlatform maps an arbitrary platform string onto the platform enum.
func NormalizePlatform(platform string) string {
	lower := lowerTrim(platform)
	if validPlatforms[lower] {
		return lower
	}
	return PlatformOther
}

// NormalizeContentType maps an arbitrary content-type string onto the
// content-type enum. The literal "other" is not part of the enum and maps
// to custom, as does anything unrecognized.
func NormalizeContentType(contentType string) string {
	lower := lowerTrim(contentType)
	if validContentTypes[lower] {
		return lower
	}
	return ContentTypeCustom
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
