package model

import (
	"time"
)

// Contract represents an uploaded contract document tied to a deal
type Contract struct {
	ID         string     `json:"id"`
	DealID     string     `json:"deal_id,omitempty"`
	UserID     string     `json:"user_id"`
	FileName   string     `json:"file_name"`
	ObjectName string     `json:"object_name"`
	FileSize   int64      `json:"file_size"`
	Status     string     `json:"extraction_status"`
	Extracted  *Candidate `json:"extracted_data"`
	Confidence Confidence `json:"extraction_confidence"`
	Reviewed   bool       `json:"reviewed"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Extraction status constants. A contract moves none -> extracting ->
// extracted -> reviewed; re-extraction is allowed any time before review.
const (
	ExtractionNone       = "none"
	ExtractionExtracting = "extracting"
	ExtractionExtracted  = "extracted"
	ExtractionReviewed   = "reviewed"
)

// Subscription tiers
const (
	TierFree  = "free"
	TierPro   = "pro"
	TierElite = "elite"
)
