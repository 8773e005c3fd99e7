package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dealdeskapp/dealdesk/backend/model"
)

// Edit is one reviewer correction to a candidate field. Paths use the
// schema's dotted form, e.g. "payment.total_amount" or
// "deliverables.1.due_date"; a JSON null value clears the field.
type Edit struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// ApplyEdits applies reviewer corrections in order. The path and value type
// are validated against the schema; an unknown path or a value of the wrong
// type fails the whole batch without partial application.
func ApplyEdits(f *model.ContractFields, edits []Edit) error {
	// Work on a copy so a bad edit mid-batch leaves the candidate untouched.
	updated := *f
	updated.Deliverables = append([]model.ExtractedDeliverable(nil), f.Deliverables...)

	for _, e := range edits {
		if err := applyEdit(&updated, e); err != nil {
			return err
		}
	}

	*f = updated
	return nil
}

func applyEdit(f *model.ContractFields, e Edit) error {
	if rest, ok := strings.CutPrefix(e.Path, "deliverables."); ok {
		return applyDeliverableEdit(f, rest, e)
	}

	switch e.Path {
	case "payment.total_amount":
		return setNumber(&f.Payment.TotalAmount, e)
	case "payment.currency":
		return setString(&f.Payment.Currency, e)
	case "payment.schedule":
		return setString(&f.Payment.Schedule, e)
	case "payment.method":
		return setString(&f.Payment.Method, e)
	case "usage_rights.duration":
		return setString(&f.UsageRights.Duration, e)
	case "usage_rights.exclusivity":
		return setBool(&f.UsageRights.Exclusivity, e)
	case "usage_rights.platforms":
		return setStringList(&f.UsageRights.Platforms, e)
	case "usage_rights.paid_ads_allowed":
		return setBool(&f.UsageRights.PaidAdsAllowed, e)
	case "usage_rights.whitelisting_allowed":
		return setBool(&f.UsageRights.WhitelistingAllowed, e)
	case "approval.process":
		return setString(&f.Approval.Process, e)
	case "approval.timeline":
		return setString(&f.Approval.Timeline, e)
	case "exclusivity.restricted_brands":
		return setString(&f.Exclusivity.RestrictedBrands, e)
	case "exclusivity.duration":
		return setString(&f.Exclusivity.Duration, e)
	case "termination.notice_period":
		return setString(&f.Termination.NoticePeriod, e)
	case "termination.kill_fee":
		return setNumber(&f.Termination.KillFee, e)
	case "special_terms.performance_bonus":
		return setString(&f.SpecialTerms.PerformanceBonus, e)
	case "special_terms.affiliate_code":
		return setString(&f.SpecialTerms.AffiliateCode, e)
	case "special_terms.discount_code":
		return setString(&f.SpecialTerms.DiscountCode, e)
	case "special_terms.notes":
		return setString(&f.SpecialTerms.Notes, e)
	case "dates.contract_start":
		return setString(&f.Dates.ContractStart, e)
	case "dates.contract_end":
		return setString(&f.Dates.ContractEnd, e)
	case "dates.signing_deadline":
		return setString(&f.Dates.SigningDeadline, e)
	default:
		return fmt.Errorf("unknown field path %q", e.Path)
	}
}

func applyDeliverableEdit(f *model.ContractFields, rest string, e Edit) error {
	idxStr, field, ok := strings.Cut(rest, ".")
	if !ok {
		return fmt.Errorf("unknown field path %q", e.Path)
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= len(f.Deliverables) {
		return fmt.Errorf("no deliverable at index %q", idxStr)
	}

	d := &f.Deliverables[idx]
	switch field {
	case "platform":
		return setString(&d.Platform, e)
	case "content_type":
		return setString(&d.ContentType, e)
	case "quantity":
		return setInt(&d.Quantity, e)
	case "description":
		return setString(&d.Description, e)
	case "due_date":
		return setString(&d.DueDate, e)
	default:
		return fmt.Errorf("unknown field path %q", e.Path)
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func setString(dst **string, e Edit) error  { return setLeaf(dst, e) }
func setNumber(dst **float64, e Edit) error { return setLeaf(dst, e) }
func setInt(dst **int, e Edit) error        { return setLeaf(dst, e) }
func setBool(dst **bool, e Edit) error      { return setLeaf(dst, e) }

func setLeaf[T any](dst **T, e Edit) error {
	if isNull(e.Value) {
		*dst = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return fmt.Errorf("invalid value for %q: %w", e.Path, err)
	}
	*dst = &v
	return nil
}

func setStringList(dst *[]string, e Edit) error {
	if isNull(e.Value) {
		*dst = nil
		return nil
	}
	var v []string
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return fmt.Errorf("invalid value for %q: %w", e.Path, err)
	}
	*dst = v
	return nil
}
