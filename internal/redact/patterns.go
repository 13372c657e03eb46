package redact

import (
	"regexp"
)

// Pattern is a built-in masking rule applied by the redactor.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Placeholder string
	Description string
}

// Placeholders written in place of masked values. None of them can be
// matched again by its own pattern.
const (
	IBANPlaceholder  = "**** **** **** ****"
	EmailPlaceholder = "***@***.***"
	PhonePlaceholder = "***-***-****"

	// DefaultMediaMarker is the line an export writes for omitted attachments.
	DefaultMediaMarker = "<Medya dahil edilmedi>"

	// termMask replaces every rune of a matched deny-list term.
	termMask = '*'
)

var (
	// IBAN: two-letter country code, two check digits, then up to seven
	// groups of up to four digits with optional single spaces. The checksum
	// is not validated.
	ibanRegex = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?\d{1,4}){4,7}\b`)

	// Email addresses: user@example.com
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Phone numbers with optional country and area code. Loose: any run of
	// 7 to 10 digits in these groupings matches.
	phoneRegex = regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)?\d{3}[-.\s]?\d{4}\b`)
)

// Step names, in the order Sanitize applies them.
const (
	StepIBAN  = "iban"
	StepMedia = "media"
	StepEmail = "email"
	StepPhone = "phone"
	StepTerms = "terms"
)

// BuiltInPatterns holds the regex-based steps keyed by step name.
var BuiltInPatterns = map[string]Pattern{
	StepIBAN: {
		Name:        StepIBAN,
		Regex:       ibanRegex,
		Placeholder: IBANPlaceholder,
		Description: "International bank account numbers",
	},
	StepEmail: {
		Name:        StepEmail,
		Regex:       emailRegex,
		Placeholder: EmailPlaceholder,
		Description: "Email addresses",
	},
	StepPhone: {
		Name:        StepPhone,
		Regex:       phoneRegex,
		Placeholder: PhonePlaceholder,
		Description: "Phone numbers",
	},
}

// Steps returns every step name in application order.
func Steps() []string {
	return []string{StepIBAN, StepMedia, StepEmail, StepPhone, StepTerms}
}
