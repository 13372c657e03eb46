package redact

import (
	"slices"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// termMatcher masks caller-supplied words (nicknames, street names) wherever
// they occur, ignoring case. Matching runs on Turkish-folded runes so that
// "İrem" and "irem" are the same term.
type termMatcher struct {
	machine *goahocorasick.Machine
}

func newTermMatcher(terms []string) (*termMatcher, error) {
	patterns := make([][]rune, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		folded := foldRunes([]rune(strings.TrimSpace(term)))
		if len(folded) == 0 || seen[string(folded)] {
			continue
		}
		seen[string(folded)] = true
		patterns = append(patterns, folded)
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	slices.SortFunc(patterns, func(a, b []rune) int {
		return slices.Compare(a, b)
	})

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &termMatcher{machine: m}, nil
}

// mask replaces every rune of each matched term with termMask and reports
// how many matches were found.
func (t *termMatcher) mask(text string) (string, int) {
	if t == nil || text == "" {
		return text, 0
	}

	runes := []rune(text)
	hits := t.machine.MultiPatternSearch(foldRunes(runes), false)
	if len(hits) == 0 {
		return text, 0
	}

	for _, hit := range hits {
		start := hit.Pos
		end := start + len(hit.Word)
		if start < 0 || end > len(runes) {
			continue
		}
		for i := start; i < end; i++ {
			runes[i] = termMask
		}
	}
	return string(runes), len(hits)
}

// foldRunes lower-cases rune by rune so indexes line up with the input.
// Every form of I folds to 'i', so a term matches whichever I the text uses.
func foldRunes(in []rune) []rune {
	out := make([]rune, 0, len(in))
	for _, r := range in {
		switch r {
		case 'I', 'ı', 'İ', 'i':
			out = append(out, 'i')
		default:
			out = append(out, unicode.TurkishCase.ToLower(r))
		}
	}
	return out
}
