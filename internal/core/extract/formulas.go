package extract

import (
	"regexp"
	"strings"
)

// An element-like token (Fe, O2, H) chained by +, -, → or = at least once.
var formulaPattern = regexp.MustCompile(`[A-Z][a-z]?\d*(?:\s*[+\-→=]\s*[A-Z][a-z]?\d*)+`)

// Formulas returns the distinct formula substrings of text in encounter order.
func Formulas(text string) []string {
	out := newOrderedSet()
	for _, m := range formulaPattern.FindAllString(text, -1) {
		out.add(strings.TrimSpace(m))
	}
	return out.values()
}

// Reactions returns every line containing → or =, trimmed, in encounter
// order. Identical lines are kept.
func Reactions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "→") || strings.Contains(line, "=") {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}
