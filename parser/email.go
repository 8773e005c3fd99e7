// Package parser implements the heuristic email extractor: pure regex and
// keyword rules that turn an inbound pitch email into a partial deal
// candidate. It performs no I/O and never fails; a signal that does not
// match simply yields a nil or empty field.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dealdeskapp/dealdesk/backend/model"
)

// consumerDomains are mail providers that never identify a brand.
var consumerDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"aol.com":        true,
	"icloud.com":     true,
	"mail.com":       true,
	"protonmail.com": true,
	"live.com":       true,
	"msn.com":        true,
}

// platformKeywords maps each platform to the phrases that imply it. Order
// matters: platforms are scanned in this order and the first matching
// keyword is the one used for content-type detection.
var platformKeywords = []struct {
	Platform string
	Keywords []string
}{
	{"youtube", []string{"youtube", "yt", "youtube video", "youtube short"}},
	{"instagram", []string{"instagram", "ig", "insta", "instagram reel", "instagram story", "instagram post"}},
	{"tiktok", []string{"tiktok", "tik tok", "tiktok video"}},
	{"twitter", []string{"twitter", "x.com", "tweet"}},
	{"blog", []string{"blog", "blog post", "article", "written content"}},
	{"newsletter", []string{"newsletter", "email blast", "email newsletter"}},
	{"podcast", []string{"podcast", "podcast episode", "podcast mention"}},
	{"snapchat", []string{"snapchat", "snap"}},
}

// contentTypeKeywords maps type phrases to canonical content types, tried
// in order; first match wins.
var contentTypeKeywords = []struct {
	Keyword string
	Type    string
}{
	{"video", "video"},
	{"reel", "reel"},
	{"reels", "reel"},
	{"story", "story"},
	{"stories", "story"},
	{"post", "post"},
	{"short", "short"},
	{"shorts", "short"},
	{"blog post", "blog_post"},
	{"article", "blog_post"},
	{"mention", "newsletter_mention"},
	{"integration", "podcast_integration"},
}

var (
	behalfPattern        = regexp.MustCompile(`(?:on behalf of|representing|from)\s+([A-Z][A-Za-z0-9\s&]+?)(?:\.|,|\n|$)`)
	companyMarkerPattern = regexp.MustCompile(`(?i)\b(team|inc|llc|ltd|co|corp|media|agency|group|studio|labs?)\b`)
	markerStripPattern   = regexp.MustCompile(`(?i)\b(team|inc\.?|llc|ltd\.?|co\.?|corp\.?)\b`)
	signaturePattern     = regexp.MustCompile(`(?i:best|thanks|regards|cheers|sincerely),?\s*\n\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
)

// budgetPatterns match money mentions: symbol amounts, k-shorthand, amounts
// following a compensation keyword, and "USD 5,000" style.
var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s?([\d,]+(?:\.\d{2})?)\s*(?:USD)?`),
	regexp.MustCompile(`\$\s?(\d+(?:\.\d{1,2})?)\s*[kK]`),
	regexp.MustCompile(`(?i)(?:budget|rate|fee|compensation|payment|pay|offer(?:ing)?)\s*(?:of|is|:)?\s*\$?\s*([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`USD\s*([\d,]+(?:\.\d{2})?)`),
}

const (
	longDateGroup    = `(\w+\s+\d{1,2}(?:st|nd|rd|th)?,?\s*\d{4})`
	numericDateGroup = `(\d{1,2}/\d{1,2}/\d{2,4})`
)

var datePatterns = []struct {
	Pattern *regexp.Regexp
	Label   string
}{
	{regexp.MustCompile(`(?i)(?:deadline|due(?:\s+date)?|by|before|no later than)\s*:?\s*` + longDateGroup), "deadline"},
	{regexp.MustCompile(`(?i)(?:deadline|due(?:\s+date)?|by|before|no later than)\s*:?\s*` + numericDateGroup), "deadline"},
	{regexp.MustCompile(`(?i)(?:launch|go(?:\s+live)?|publish|post)\s*(?:date|on)?\s*:?\s*` + longDateGroup), "launch"},
	{regexp.MustCompile(`(?i)(?:launch|go(?:\s+live)?|publish|post)\s*(?:date|on)?\s*:?\s*` + numericDateGroup), "launch"},
}

// ParseEmail converts an inbound email into a partial deal candidate. It is
// a pure function: identical inputs always produce identical output.
func ParseEmail(fromEmail, fromName, subject, bodyText string) model.EmailCandidate {
	var parts []string
	for _, p := range []string{subject, bodyText} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	text := strings.Join(parts, "\n")
	textLower := strings.ToLower(text)

	cand := model.EmailCandidate{
		BrandName:    extractBrandName(fromEmail, fromName, text),
		ContactName:  extractContactName(fromName, text),
		Budget:       extractBudget(text),
		Deliverables: extractDeliverables(textLower),
		Dates:        extractDates(text),
	}
	cand.Confidence = overallConfidence(cand)
	return cand
}

func extractBrandName(fromEmail, fromName, text string) *string {
	// Sender domain, unless it is a consumer mail provider.
	if at := strings.Index(fromEmail, "@"); at >= 0 {
		domain := strings.ToLower(fromEmail[at+1:])
		if domain != "" && !consumerDomains[domain] {
			label := domain
			if dot := strings.Index(domain, "."); dot >= 0 {
				label = domain[:dot]
			}
			if label != "" {
				brand := capitalize(label)
				return &brand
			}
		}
	}

	// "on behalf of X" / "representing X" / "from X"
	if m := behalfPattern.FindStringSubmatch(text); m != nil {
		brand := strings.TrimSpace(m[1])
		return &brand
	}

	// Display name that reads like a company: strip the marker words.
	if fromName != "" && companyMarkerPattern.MatchString(fromName) {
		brand := strings.TrimSpace(markerStripPattern.ReplaceAllString(fromName, ""))
		return &brand
	}

	return nil
}

func extractContactName(fromName, text string) *string {
	// A display name without company markers is probably a person.
	if fromName != "" && !companyMarkerPattern.MatchString(fromName) {
		return &fromName
	}

	// Fall back to a signature line: closing salutation, then a capitalized
	// one-or-two-word name.
	if m := signaturePattern.FindStringSubmatch(text); m != nil {
		return &m[1]
	}

	return nil
}

func extractBudget(text string) *float64 {
	var amounts []float64

	for _, pattern := range budgetPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil {
				continue
			}
			// $5k means $5,000; values already >= 1000 keep their k as-is
			// so "$1200k" is not re-multiplied.
			if strings.ContainsAny(m[0], "kK") && amount < 1000 {
				amount *= 1000
			}
			if amount > 0 && amount < 10_000_000 {
				amounts = append(amounts, amount)
			}
		}
	}

	if len(amounts) == 0 {
		return nil
	}

	// Largest amount wins: the headline budget is usually the biggest number
	// mentioned. A heuristic, not a guarantee.
	max := amounts[0]
	for _, a := range amounts[1:] {
		if a > max {
			max = a
		}
	}
	return &max
}

func extractDeliverables(textLower string) []model.EmailDeliverable {
	var found []model.EmailDeliverable

	for _, entry := range platformKeywords {
		for _, keyword := range entry.Keywords {
			if !strings.Contains(textLower, keyword) {
				continue
			}
			found = append(found, model.EmailDeliverable{
				Platform: entry.Platform,
				Type:     detectContentType(textLower, keyword),
			})
			break // report each platform at most once
		}
	}

	return found
}

// detectContentType looks for "<platform keyword> <type>" or
// "<type> on <platform keyword>" near the matched platform keyword.
func detectContentType(textLower, platformKeyword string) string {
	quoted := regexp.QuoteMeta(platformKeyword)
	for _, entry := range contentTypeKeywords {
		typeQuoted := regexp.QuoteMeta(entry.Keyword)
		pattern, err := regexp.Compile(`(?:` + quoted + `\s+` + typeQuoted + `|` + typeQuoted + `\s+(?:on\s+)?` + quoted + `)`)
		if err != nil {
			continue
		}
		if pattern.MatchString(textLower) {
			return entry.Type
		}
	}
	return ""
}

func extractDates(text string) []model.EmailDate {
	var dates []model.EmailDate

	for _, entry := range datePatterns {
		for _, m := range entry.Pattern.FindAllStringSubmatch(text, -1) {
			if iso, ok := parseLooseDate(m[1]); ok {
				dates = append(dates, model.EmailDate{Label: entry.Label, Date: iso})
			}
		}
	}

	return dates
}

var ordinalPattern = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)`)

var looseDateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"1/2/2006",
	"1/2/06",
}

// parseLooseDate turns human date text ("March 5th, 2025", "3/15/25") into
// an ISO date. Returns false when the text is not a valid calendar date.
func parseLooseDate(s string) (string, bool) {
	s = strings.TrimSpace(ordinalPattern.ReplaceAllString(s, "$1"))
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// overallConfidence grades the whole email candidate by filled fraction over
// its five fields: nothing found is none, most found is high.
func overallConfidence(c model.EmailCandidate) model.Confidence {
	filled := 0
	total := 5
	if c.BrandName != nil {
		filled++
	}
	if c.ContactName != nil {
		filled++
	}
	if c.Budget != nil {
		filled++
	}
	if len(c.Deliverables) > 0 {
		filled++
	}
	if len(c.Dates) > 0 {
		filled++
	}

	ratio := float64(filled) / float64(total)
	switch {
	case filled == 0:
		return model.ConfidenceNone
	case ratio > 0.7:
		return model.ConfidenceHigh
	case ratio >= 0.4:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
