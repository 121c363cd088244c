package naming

import "strings"

// patternTokens maps the date-pattern tokens accepted in naming options
// (the yyyy-MM-dd family) to Go reference-time layout fragments. Longest
// tokens come first so "yyyy" wins over "yy".
var patternTokens = []struct {
	token  string
	layout string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"HH", "15"},
	{"hh", "03"},
	{"mm", "04"},
	{"ss", "05"},
}

// toGoLayout translates a yyyy-MM-dd style pattern into a Go time layout.
// Unrecognised characters pass through as literals.
func toGoLayout(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, t := range patternTokens {
			if strings.HasPrefix(pattern[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}
