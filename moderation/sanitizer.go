// Package moderation masks blocked terms in user-visible notification text.
// Mentions carry free text from other users, so titles and messages pass
// through the sanitizer before they reach a buffer.
package moderation

import (
	goahocorasick "github.com/anknown/ahocorasick"
	"unicode"
)

// Sanitizer holds an Aho-Corasick automaton over the normalized blocked
// terms. Matching is case-insensitive and ignores punctuation between
// letters, so "s.p.a.m" still matches "spam".
type Sanitizer struct {
	matcher *goahocorasick.Machine
	mask    rune
}

func NewSanitizer(blocked []string, mask rune) (*Sanitizer, error) {
	patterns := make([][]rune, 0, len(blocked))
	for _, term := range blocked {
		norm, _ := normalize([]rune(term))
		if len(norm) == 0 {
			continue
		}
		patterns = append(patterns, norm)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Sanitizer{matcher: m, mask: mask}, nil
}

// Mask replaces every character of a matched term with the mask rune while
// leaving the rest of the text untouched.
func (s *Sanitizer) Mask(text string) string {
	orig := []rune(text)
	norm, idx := normalize(orig)
	if len(norm) == 0 {
		return text
	}

	spans := s.matcher.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return text
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(idx) {
			continue
		}
		for i := idx[start]; i <= idx[end-1]; i++ {
			orig[i] = s.mask
		}
	}
	return string(orig)
}

// normalize lowercases the input and strips separator runes, returning the
// normalized runes plus a mapping back to original positions.
func normalize(input []rune) ([]rune, []int) {
	norm := make([]rune, 0, len(input))
	idx := make([]int, 0, len(input))
	for i, r := range input {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		idx = append(idx, i)
	}
	return norm, idx
}
