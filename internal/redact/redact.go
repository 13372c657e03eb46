// Package redact masks personal data in chat messages.
//
// Masking is a fixed sequence of pure text transforms: IBANs, the media
// omission marker, then optionally e-mail addresses, phone numbers and a
// caller-supplied deny-list of terms. Inputs are never modified; stores are
// copied.
package redact

import (
	"fmt"
	"strings"

	"github.com/bimmerbailey/chatsift/internal/chat"
)

// Options selects which masking steps run.
type Options struct {
	MaskIBAN    bool     `mapstructure:"mask_iban" yaml:"mask_iban"`
	MaskMedia   bool     `mapstructure:"mask_media" yaml:"mask_media"`
	MaskEmails  bool     `mapstructure:"mask_emails" yaml:"mask_emails"`
	MaskPhones  bool     `mapstructure:"mask_phones" yaml:"mask_phones"`
	MediaMarker string   `mapstructure:"media_marker" yaml:"media_marker"`
	Terms       []string `mapstructure:"terms" yaml:"terms"`
}

// DefaultOptions masks IBANs and media markers only.
func DefaultOptions() Options {
	return Options{
		MaskIBAN:    true,
		MaskMedia:   true,
		MediaMarker: DefaultMediaMarker,
	}
}

// Redactor is a compiled set of Options. It holds no mutable state and is
// safe for concurrent use.
type Redactor struct {
	opts  Options
	terms *termMatcher
}

// New compiles opts into a Redactor.
func New(opts Options) (*Redactor, error) {
	if opts.MediaMarker == "" {
		opts.MediaMarker = DefaultMediaMarker
	}

	terms, err := newTermMatcher(opts.Terms)
	if err != nil {
		return nil, fmt.Errorf("building term matcher: %w", err)
	}

	return &Redactor{opts: opts, terms: terms}, nil
}

// Options returns the options the Redactor was built with.
func (r *Redactor) Options() Options {
	return r.opts
}

// Sanitize returns text with every enabled step applied, in order.
func (r *Redactor) Sanitize(text string) string {
	out, _ := r.apply(text)
	return out
}

// Count reports how many values each enabled step replaced in text.
// Disabled steps are absent from the result.
func (r *Redactor) Count(text string) map[string]int {
	_, counts := r.apply(text)
	return counts
}

// SanitizeStore returns a new store holding the sanitized form of every
// message. Keys and message order are preserved.
func (r *Redactor) SanitizeStore(store *chat.Store) *chat.Store {
	return store.Transform(r.Sanitize)
}

func (r *Redactor) apply(text string) (string, map[string]int) {
	counts := make(map[string]int, 5)
	result := text

	if r.opts.MaskIBAN {
		result, counts[StepIBAN] = replacePattern(result, BuiltInPatterns[StepIBAN])
	}

	if r.opts.MaskMedia {
		counts[StepMedia] = strings.Count(result, r.opts.MediaMarker)
		result = strings.TrimSpace(strings.ReplaceAll(result, r.opts.MediaMarker, ""))
	}

	if r.opts.MaskEmails {
		result, counts[StepEmail] = replacePattern(result, BuiltInPatterns[StepEmail])
	}

	if r.opts.MaskPhones {
		result, counts[StepPhone] = replacePattern(result, BuiltInPatterns[StepPhone])
	}

	if r.terms != nil {
		result, counts[StepTerms] = r.terms.mask(result)
	}

	return result, counts
}

func replacePattern(text string, p Pattern) (string, int) {
	n := 0
	out := p.Regex.ReplaceAllStringFunc(text, func(string) string {
		n++
		return p.Placeholder
	})
	return out, n
}

// Sanitize applies opts to text. It compiles a Redactor per call; build one
// with New when sanitizing many messages.
func Sanitize(text string, opts Options) string {
	return compile(opts).Sanitize(text)
}

// SanitizeStore applies opts to every message of store.
func SanitizeStore(store *chat.Store, opts Options) *chat.Store {
	return compile(opts).SanitizeStore(store)
}

// Count applies opts to text and reports replacements per step.
func Count(text string, opts Options) map[string]int {
	return compile(opts).Count(text)
}

// compile builds a Redactor for the package-level helpers. Terms that fail to
// compile are dropped; the regex steps cannot fail.
func compile(opts Options) *Redactor {
	r, err := New(opts)
	if err != nil {
		opts.Terms = nil
		r, _ = New(opts)
	}
	return r
}
