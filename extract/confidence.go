// Package extract turns model responses into reviewed deal data: defensive
// response parsing, rule-based confidence scoring, typed field edits, and
// the merge step that commits an approved candidate into deal records.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dealdeskapp/dealdesk/backend/model"
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FieldConfidence grades a single extracted value by its shape. The rules,
// in precedence order: missing or blank is none; numbers, booleans, ISO
// dates, short strings and non-empty arrays are high; long free text,
// empty arrays and anything else is medium.
func FieldConfidence(value any) model.Confidence {
	switch v := value.(type) {
	case nil:
		return model.ConfidenceNone
	case *string:
		if v == nil {
			return model.ConfidenceNone
		}
		return stringConfidence(*v)
	case *float64:
		if v == nil {
			return model.ConfidenceNone
		}
		return model.ConfidenceHigh
	case *int:
		if v == nil {
			return model.ConfidenceNone
		}
		return model.ConfidenceHigh
	case *bool:
		if v == nil {
			return model.ConfidenceNone
		}
		return model.ConfidenceHigh
	case float64, int, int64, bool:
		return model.ConfidenceHigh
	case string:
		return stringConfidence(v)
	// Empty arrays are not "missing": only null and blank strings grade
	// none, so an empty list falls through to the medium default.
	case []string:
		if len(v) > 0 {
			return model.ConfidenceHigh
		}
		return model.ConfidenceMedium
	case []any:
		if len(v) > 0 {
			return model.ConfidenceHigh
		}
		return model.ConfidenceMedium
	case []model.ExtractedDeliverable:
		if len(v) > 0 {
			return model.ConfidenceHigh
		}
		return model.ConfidenceMedium
	default:
		return model.ConfidenceMedium
	}
}

func stringConfidence(s string) model.Confidence {
	if strings.TrimSpace(s) == "" {
		return model.ConfidenceNone
	}
	if isoDatePattern.MatchString(s) {
		return model.ConfidenceHigh
	}
	if len(s) < 50 {
		return model.ConfidenceHigh
	}
	return model.ConfidenceMedium
}

// keyFields lists the representative fields the overall grade is computed
// from. Deliberately coarse: a filled-fraction proxy, not a statistical
// confidence score.
func keyFields(f *model.ContractFields) []bool {
	return []bool{
		f.Payment.TotalAmount != nil,
		f.Payment.Schedule != nil,
		len(f.Deliverables) > 0,
		f.UsageRights.Duration != nil,
		f.UsageRights.Exclusivity != nil,
		f.Dates.ContractStart != nil,
		f.Dates.ContractEnd != nil,
		f.Approval.Process != nil,
		f.Termination.NoticePeriod != nil,
		f.Exclusivity.Duration != nil,
	}
}

// OverallConfidence grades a whole structured candidate: fraction of key
// fields filled, > 0.7 high, >= 0.4 medium, else low.
func OverallConfidence(f *model.ContractFields) model.Confidence {
	fields := keyFields(f)
	filled := 0
	for _, ok := range fields {
		if ok {
			filled++
		}
	}

	ratio := float64(filled) / float64(len(fields))
	switch {
	case ratio > 0.7:
		return model.ConfidenceHigh
	case ratio >= 0.4:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Annotations returns the per-field confidence map shown alongside a
// candidate in review, keyed by field path.
func Annotations(f *model.ContractFields) map[string]model.Confidence {
	ann := map[string]model.Confidence{
		"payment.total_amount":              FieldConfidence(f.Payment.TotalAmount),
		"payment.currency":                  FieldConfidence(f.Payment.Currency),
		"payment.schedule":                  FieldConfidence(f.Payment.Schedule),
		"payment.method":                    FieldConfidence(f.Payment.Method),
		"usage_rights.duration":             FieldConfidence(f.UsageRights.Duration),
		"usage_rights.exclusivity":          FieldConfidence(f.UsageRights.Exclusivity),
		"usage_rights.platforms":            FieldConfidence(f.UsageRights.Platforms),
		"usage_rights.paid_ads_allowed":     FieldConfidence(f.UsageRights.PaidAdsAllowed),
		"usage_rights.whitelisting_allowed": FieldConfidence(f.UsageRights.WhitelistingAllowed),
		"approval.process":                  FieldConfidence(f.Approval.Process),
		"approval.timeline":                 FieldConfidence(f.Approval.Timeline),
		"exclusivity.restricted_brands":     FieldConfidence(f.Exclusivity.RestrictedBrands),
		"exclusivity.duration":              FieldConfidence(f.Exclusivity.Duration),
		"termination.notice_period":         FieldConfidence(f.Termination.NoticePeriod),
		"termination.kill_fee":              FieldConfidence(f.Termination.KillFee),
		"special_terms.performance_bonus":   FieldConfidence(f.SpecialTerms.PerformanceBonus),
		"special_terms.affiliate_code":      FieldConfidence(f.SpecialTerms.AffiliateCode),
		"special_terms.discount_code":       FieldConfidence(f.SpecialTerms.DiscountCode),
		"special_terms.notes":               FieldConfidence(f.SpecialTerms.Notes),
		"dates.contract_start":              FieldConfidence(f.Dates.ContractStart),
		"dates.contract_end":                FieldConfidence(f.Dates.ContractEnd),
		"dates.signing_deadline":            FieldConfidence(f.Dates.SigningDeadline),
	}

	for i, d := range f.Deliverables {
		prefix := fmt.Sprintf("deliverables.%d.", i)
		ann[prefix+"platform"] = FieldConfidence(d.Platform)
		ann[prefix+"content_type"] = FieldConfidence(d.ContentType)
		ann[prefix+"quantity"] = FieldConfidence(d.Quantity)
		ann[prefix+"description"] = FieldConfidence(d.Description)
		ann[prefix+"due_date"] = FieldConfidence(d.DueDate)
	}

	return ann
}
