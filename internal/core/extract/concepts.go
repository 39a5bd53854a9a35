package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minConceptLineLen   = 5
	maxConceptHeadWords = 6
	definitionPrefix    = "definition"
)

// Concepts finds concept names on a page: short all-caps lines and
// "Definition: ..." lines. Both are title-cased. Duplicates are dropped,
// keeping the first occurrence.
func Concepts(text string) []string {
	out := newOrderedSet()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < minConceptLineLen {
			continue
		}

		if isUpper(line) && len(strings.Fields(line)) <= maxConceptHeadWords {
			out.add(titleCase(line))
		}

		if strings.HasPrefix(strings.ToLower(line), definitionPrefix) {
			if _, rest, found := strings.Cut(line, ":"); found {
				if name := strings.TrimSpace(rest); name != "" {
					out.add(titleCase(name))
				}
			}
		}
	}
	return out.values()
}

// isUpper reports whether s has at least one cased letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
