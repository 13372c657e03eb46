// Package pii reports personal data found in chat messages. Extraction is
// read-only: it never changes the text it scans.
package pii

import (
	"regexp"

	"github.com/bimmerbailey/chatsift/internal/chat"
)

// Category names a kind of personal data.
type Category string

const (
	Numbers               Category = "numbers"
	Emails                Category = "emails"
	URLs                  Category = "urls"
	Dates                 Category = "dates"
	Times                 Category = "times"
	PhoneNumbers          Category = "phone_numbers"
	Addresses             Category = "addresses"
	CreditCardNumbers     Category = "credit_card_numbers"
	IPAddresses           Category = "ip_addresses"
	SocialSecurityNumbers Category = "social_security_numbers"
	LicensePlates         Category = "license_plates"
)

// The phone and license plate patterns are loose and match ordinary numbers
// and short upper-case words.
var patterns = map[Category]*regexp.Regexp{
	Numbers:               regexp.MustCompile(`\d+`),
	Emails:                regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	URLs:                  regexp.MustCompile(`https?://\S+`),
	Dates:                 regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	Times:                 regexp.MustCompile(`\b\d{1,2}:\d{2}(?:\s?[APMapm]{2})?\b`),
	PhoneNumbers:          regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)?\d{3}[-.\s]?\d{4}\b`),
	Addresses:             regexp.MustCompile(`\d+\s+[A-Za-z]+\s+(?:Street|St|Avenue|Ave|Boulevard|Blvd|Road|Rd|Lane|Ln|Drive|Dr)\b`),
	CreditCardNumbers:     regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),
	IPAddresses:           regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	SocialSecurityNumbers: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	LicensePlates:         regexp.MustCompile(`\b[A-Z0-9]{1,7}\b`),
}

// Categories returns every category in report order.
func Categories() []Category {
	return []Category{
		Numbers,
		Emails,
		URLs,
		Dates,
		Times,
		PhoneNumbers,
		Addresses,
		CreditCardNumbers,
		IPAddresses,
		SocialSecurityNumbers,
		LicensePlates,
	}
}

// Result maps each category to its matches in text order.
type Result map[Category][]string

// Total returns the number of matches across all categories.
func (r Result) Total() int {
	n := 0
	for _, v := range r {
		n += len(v)
	}
	return n
}

// Extract returns the matches of a single category. Unknown categories
// yield an empty slice.
func Extract(text string, c Category) []string {
	re, ok := patterns[c]
	if !ok {
		return []string{}
	}
	matches := re.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// ExtractAll runs every category against text. Every category is present
// in the result, with an empty slice when nothing matched.
func ExtractAll(text string) Result {
	out := make(Result, len(patterns))
	for _, c := range Categories() {
		out[c] = Extract(text, c)
	}
	return out
}

// ExtractStore extracts from every message and merges the results per
// author key, keeping message order.
func ExtractStore(store *chat.Store) map[chat.AuthorKey]Result {
	out := make(map[chat.AuthorKey]Result, len(store.Keys()))
	for _, key := range store.Keys() {
		merged := ExtractAll("")
		for _, msg := range store.Messages(key) {
			for c, found := range ExtractAll(msg) {
				merged[c] = append(merged[c], found...)
			}
		}
		out[key] = merged
	}
	return out
}
