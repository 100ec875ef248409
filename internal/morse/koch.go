// Package morse holds the Koch character table and Morse timing.
package morse

import (
	"strings"
	"unicode"
)

// Symbol is a single Morse element.
type Symbol int

const (
	// Dit is the short element.
	Dit Symbol = iota
	// Dah is the long element, three dits long.
	Dah
)

// String renders the symbol as "." or "-".
func (s Symbol) String() string {
	if s == Dah {
		return "-"
	}
	return "."
}

// Character is a glyph and its ordered Morse symbols.
type Character struct {
	Glyph   rune
	Symbols []Symbol
}

// Pattern renders the symbols as dots and dashes.
func (c Character) Pattern() string {
	var b strings.Builder
	for _, s := range c.Symbols {
		b.WriteString(s.String())
	}
	return b.String()
}

// CharacterCount is the size of the teachable character set.
const CharacterCount = 40

// kochOrder lists glyphs in teaching order, most distinctive first.
var kochOrder = [CharacterCount]rune{
	'K', 'M', 'U', 'R', 'E', 'S', 'N', 'A', 'P', 'T',
	'L', 'W', 'I', '.', 'J', 'Z', 'F', 'O', 'Y', ',',
	'V', 'G', '5', '/', 'Q', '9', '2', 'H', '3', '8',
	'B', '?', '4', '7', 'C', '1', 'D', '6', '0', 'X',
}

var patterns = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '?': "..--..", '/': "-..-.",
}

var (
	characters = buildCharacters()
	kochIndex  = buildKochIndex()
)

func buildCharacters() map[rune]Character {
	out := make(map[rune]Character, len(patterns))
	for glyph, pattern := range patterns {
		symbols := make([]Symbol, 0, len(pattern))
		for _, p := range pattern {
			if p == '-' {
				symbols = append(symbols, Dah)
			} else {
				symbols = append(symbols, Dit)
			}
		}
		out[glyph] = Character{Glyph: glyph, Symbols: symbols}
	}
	return out
}

func buildKochIndex() map[rune]int {
	out := make(map[rune]int, CharacterCount)
	for i, glyph := range kochOrder {
		out[glyph] = i
	}
	return out
}

// KochOrder returns a copy of the teaching order.
func KochOrder() []rune {
	out := make([]rune, CharacterCount)
	copy(out, kochOrder[:])
	return out
}

// KochGlyph returns the glyph taught at index i.
func KochGlyph(i int) (rune, bool) {
	if i < 0 || i >= CharacterCount {
		return 0, false
	}
	return kochOrder[i], true
}

// KochIndex returns the teaching position of a glyph.
func KochIndex(glyph rune) (int, bool) {
	idx, ok := kochIndex[Normalize(glyph)]
	return idx, ok
}

// Lookup returns the Morse character for a glyph, case-insensitive. The
// returned Symbols slice is a copy.
func Lookup(glyph rune) (Character, bool) {
	c, ok := characters[Normalize(glyph)]
	if !ok {
		return Character{}, false
	}
	c.Symbols = append([]Symbol(nil), c.Symbols...)
	return c, true
}

// Normalize upper-cases letters so input can be compared with the table.
func Normalize(glyph rune) rune {
	return unicode.ToUpper(glyph)
}

// SpokenName returns how a glyph should be announced by speech output.
func SpokenName(glyph rune) string {
	switch glyph {
	case '.':
		return "period"
	case ',':
		return "comma"
	case '?':
		return "question mark"
	case '/':
		return "slash"
	}
	return string(Normalize(glyph))
}
