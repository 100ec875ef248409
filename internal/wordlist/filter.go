package wordlist

import (
	"strings"

	"github.com/verte-zerg/tuikoch/internal/morse"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// SendableWord reports whether every rune of word has a Morse pattern.
func SendableWord(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if _, ok := morse.Lookup(r); !ok {
			return false
		}
	}
	return true
}

// Filter keeps words accepted by keep, upper-cased and de-duplicated.
func Filter(words []string, keep FilterFunc) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if !keep(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
