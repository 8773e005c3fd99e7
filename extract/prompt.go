package extract

import (
	"strings"
)

// extractionPrompt instructs the model to emit exactly the candidate JSON
// schema, null for anything it cannot find. One substitution point.
const extractionPrompt = `You are an expert at reading influencer/creator brand deal contracts. Extract the following information from this contract and return ONLY valid JSON with no other text.

Contract text:
---
{CONTRACT_TEXT}
---

Return this exact JSON structure (use null for any field you cannot find):
{
  "payment": {
    "total_amount": null,
    "currency": "USD",
    "schedule": null,
    "method": null
  },
  "deliverables": [
    {
      "platform": "<tiktok|youtube|instagram|twitter|blog|podcast|other>",
      "content_type": "<video|post|story|reel|short|blog_post|other>",
      "quantity": 1,
      "description": "",
      "due_date": null
    }
  ],
  "usage_rights": {
    "duration": null,
    "exclusivity": false,
    "platforms": [],
    "paid_ads_allowed": false,
    "whitelisting_allowed": false
  },
  "approval": {
    "process": null,
    "timeline": null
  },
  "exclusivity": {
    "restricted_brands": null,
    "duration": null
  },
  "termination": {
    "notice_period": null,
    "kill_fee": null
  },
  "special_terms": {
    "performance_bonus": null,
    "affiliate_code": null,
    "discount_code": null,
    "notes": null
  },
  "dates": {
    "contract_start": null,
    "contract_end": null,
    "signing_deadline": null
  }
}`

// BuildPrompt embeds the (possibly truncated) contract text into the fixed
// extraction prompt.
func BuildPrompt(contractText string) string {
	return strings.Replace(extractionPrompt, "{CONTRACT_TEXT}", contractText, 1)
}
