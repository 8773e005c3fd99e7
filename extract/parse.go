package extract

import (
	"encoding/json"
	"strings"

	"github.com/dealdeskapp/dealdesk/backend/model"
)

// StripFences removes a markdown code fence wrapping a model response: a
// leading fence marker (optionally tagged json) and a trailing one. Text
// without fences passes through unchanged apart from surrounding space.
func StripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimLeft(s, " \t\r\n")
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
		s = strings.TrimRight(s, " \t\r\n")
	}

	return s
}

// ParseResponse defensively parses a model response into a candidate. A
// malformed response is never an error: the verbatim text is preserved as
// an unparsed candidate with low confidence so a human can still salvage
// it during review.
func ParseResponse(responseText string) (model.Candidate, model.Confidence) {
	clean := StripFences(responseText)

	var fields model.ContractFields
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return model.Candidate{Raw: responseText}, model.ConfidenceLow
	}

	return model.Candidate{Fields: &fields}, OverallConfidence(&fields)
}
