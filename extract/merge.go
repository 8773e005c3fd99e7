package extract

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealdeskapp/dealdesk/backend/model"
)

// MergeIntoDeal auto-populates a small fixed set of deal fields from an
// approved candidate. A field is written only when the deal's current value
// is empty or zero: automated writes never overwrite a value a human has
// already entered. Returns the names of the fields that changed.
func MergeIntoDeal(deal *model.Deal, f *model.ContractFields) []string {
	var changed []string

	if f.Payment.TotalAmount != nil && *f.Payment.TotalAmount > 0 && deal.Value == 0 {
		deal.Value = *f.Payment.TotalAmount
		changed = append(changed, "value")
	}

	if f.Dates.ContractStart != nil && *f.Dates.ContractStart != "" && deal.SignedDate == "" {
		deal.SignedDate = *f.Dates.ContractStart
		changed = append(changed, "signed_date")
	}

	if deal.DeliveryDeadline == "" {
		if latest := LatestDueDate(f.Deliverables); latest != "" {
			deal.DeliveryDeadline = latest
			changed = append(changed, "delivery_deadline")
		}
	}

	return changed
}

// MergeEmailIntoDeal seeds deal fields from a parsed inbound email under the
// same no-clobber rule as MergeIntoDeal. Returns the names of the fields
// that changed.
func MergeEmailIntoDeal(deal *model.Deal, parsed *model.EmailCandidate) []string {
	var changed []string

	if parsed.BrandName != nil && *parsed.BrandName != "" && deal.BrandName == "" {
		deal.BrandName = *parsed.BrandName
		changed = append(changed, "brand_name")
	}

	if parsed.ContactName != nil && *parsed.ContactName != "" && deal.ContactName == "" {
		deal.ContactName = *parsed.ContactName
		changed = append(changed, "contact_name")
	}

	if parsed.Budget != nil && *parsed.Budget > 0 && deal.Value == 0 {
		deal.Value = *parsed.Budget
		changed = append(changed, "value")
	}

	if deal.DeliveryDeadline == "" {
		latest := ""
		for _, d := range parsed.Dates {
			if isoDatePattern.MatchString(d.Date) && d.Date > latest {
				latest = d.Date
			}
		}
		if latest != "" {
			deal.DeliveryDeadline = latest
			changed = append(changed, "delivery_deadline")
		}
	}

	return changed
}

// LatestDueDate returns the latest valid due date among the candidate's
// deliverables, empty when none carries one. ISO dates compare
// lexicographically, so max is the latest.
func LatestDueDate(deliverables []model.ExtractedDeliverable) string {
	latest := ""
	for _, d := range deliverables {
		if d.DueDate == nil || !isoDatePattern.MatchString(*d.DueDate) {
			continue
		}
		if *d.DueDate > latest {
			latest = *d.DueDate
		}
	}
	return latest
}

// MaterializeDeliverables converts the candidate's deliverables into
// persistable records. Platform and content type are normalized against the
// application enums because the model may emit values outside them.
func MaterializeDeliverables(dealID, userID string, f *model.ContractFields) []*model.Deliverable {
	now := time.Now()
	out := make([]*model.Deliverable, 0, len(f.Deliverables))

	for i, d := range f.Deliverables {
		platform := model.NormalizePlatform(deref(d.Platform))
		contentType := model.NormalizeContentType(deref(d.ContentType))

		title := deref(d.Description)
		if title == "" {
			title = fmt.Sprintf("%s %s", platform, contentType)
		}

		dueDate := ""
		if d.DueDate != nil && isoDatePattern.MatchString(*d.DueDate) {
			dueDate = *d.DueDate
		}

		out = append(out, &model.Deliverable{
			ID:          uuid.New().String(),
			DealID:      dealID,
			UserID:      userID,
			Title:       title,
			Platform:    platform,
			ContentType: contentType,
			DueDate:     dueDate,
			Status:      model.DeliverableNotStarted,
			SortOrder:   i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
