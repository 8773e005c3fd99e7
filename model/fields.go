package model

import (
	"encoding/json"
)

// Confidence is a coarse, rule-based quality tier attached to an extracted
// field or to a whole candidate. Ordinal: none < low < medium < high.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ContractFields is the full structured schema extracted from a contract.
// Leaves are pointers so an absent value serializes as null rather than
// being omitted; consumers can always rely on key presence.
type ContractFields struct {
	Payment      Payment                `json:"payment"`
	Deliverables []ExtractedDeliverable `json:"deliverables"`
	UsageRights  UsageRights            `json:"usage_rights"`
	Approval     Approval               `json:"approval"`
	Exclusivity  Exclusivity            `json:"exclusivity"`
	Termination  Termination            `json:"termination"`
	SpecialTerms SpecialTerms           `json:"special_terms"`
	Dates        KeyDates               `json:"dates"`
}

type Payment struct {
	TotalAmount *float64 `json:"total_amount"`
	Currency    *string  `json:"currency"`
	Schedule    *string  `json:"schedule"`
	Method      *string  `json:"method"`
}

type ExtractedDeliverable struct {
	Platform    *string `json:"platform"`
	ContentType *string `json:"content_type"`
	Quantity    *int    `json:"quantity"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
}

type UsageRights struct {
	Duration            *string  `json:"duration"`
	Exclusivity         *bool    `json:"exclusivity"`
	Platforms           []string `json:"platforms"`
	PaidAdsAllowed      *bool    `json:"paid_ads_allowed"`
	WhitelistingAllowed *bool    `json:"whitelisting_allowed"`
}

type Approval struct {
	Process  *string `json:"process"`
	Timeline *string `json:"timeline"`
}

type Exclusivity struct {
	RestrictedBrands *string `json:"restricted_brands"`
	Duration         *string `json:"duration"`
}

type Termination struct {
	NoticePeriod *string  `json:"notice_period"`
	KillFee      *float64 `json:"kill_fee"`
}

type SpecialTerms struct {
	PerformanceBonus *string `json:"performance_bonus"`
	AffiliateCode    *string `json:"affiliate_code"`
	DiscountCode     *string `json:"discount_code"`
	Notes            *string `json:"notes"`
}

type KeyDates struct {
	ContractStart   *string `json:"contract_start"`
	ContractEnd     *string `json:"contract_end"`
	SigningDeadline *string `json:"signing_deadline"`
}

// Candidate is a not-yet-committed extraction result awaiting human review.
// It is a tagged union: either the model response parsed into the structured
// schema, or the verbatim response text when parsing failed. The raw variant
// is preserved so a human can still salvage value from a malformed response.
type Candidate struct {
	Fields *ContractFields
	Raw    string
}

// IsStructured reports whether the candidate carries parsed fields.
func (c *Candidate) IsStructured() bool { return c.Fields != nil }

// rawEnvelope is the persisted shape of an unparsed candidate.
type rawEnvelope struct {
	Raw string `json:"_raw"`
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	if c.Fields != nil {
		return json.Marshal(c.Fields)
	}
	return json.Marshal(rawEnvelope{Raw: c.Raw})
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	var probe struct {
		Raw *string `json:"_raw"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Raw != nil {
		c.Raw = *probe.Raw
		c.Fields = nil
		return nil
	}
	var f ContractFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.Fields = &f
	c.Raw = ""
	return nil
}
