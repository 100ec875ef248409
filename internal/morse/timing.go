package morse

import (
	"math"
	"time"
)

// ParisSeconds is the dit length in seconds at 1 WPM ("PARIS" = 50 dits).
const ParisSeconds = 1.2

// Timing holds element durations for one speed setting.
type Timing struct {
	Dit            time.Duration
	Dah            time.Duration
	IntraCharSpace time.Duration
	InterCharSpace time.Duration
	WordSpace      time.Duration
}

// NewTiming derives durations from the character speed and the Farnsworth
// speed. Inter-character and word gaps never shrink below the character
// speed's own spacing. Speeds are not validated; any positive value works.
func NewTiming(characterWPM, farnsworthWPM float64) Timing {
	dit := ParisSeconds / characterWPM
	spacingDit := dit
	if farnsworthWPM > 0 {
		spacingDit = math.Max(dit, ParisSeconds/farnsworthWPM)
	}
	return Timing{
		Dit:            seconds(dit),
		Dah:            seconds(3 * dit),
		IntraCharSpace: seconds(dit),
		InterCharSpace: seconds(3 * spacingDit),
		WordSpace:      seconds(7 * spacingDit),
	}
}

// SymbolDuration returns the tone length of a symbol.
func (t Timing) SymbolDuration(s Symbol) time.Duration {
	if s == Dah {
		return t.Dah
	}
	return t.Dit
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}

// Element is one step of a playback timeline.
type Element struct {
	Tone     bool
	Symbol   Symbol
	Glyph    rune
	Duration time.Duration
}

// Timeline expands glyphs into tone and silence elements. There is no
// trailing silence after the last symbol of a character or after the last
// character. A space glyph becomes a word gap; unknown glyphs are skipped.
func Timeline(glyphs []rune, t Timing) []Element {
	var out []Element
	pendingGap := time.Duration(0)
	for _, g := range glyphs {
		if g == ' ' {
			if len(out) > 0 {
				pendingGap = t.WordSpace
			}
			continue
		}
		c, ok := Lookup(g)
		if !ok || len(c.Symbols) == 0 {
			continue
		}
		if len(out) > 0 {
			gap := pendingGap
			if gap == 0 {
				gap = t.InterCharSpace
			}
			out = append(out, Element{Glyph: c.Glyph, Duration: gap})
		}
		pendingGap = 0
		for i, s := range c.Symbols {
			if i > 0 {
				out = append(out, Element{Glyph: c.Glyph, Duration: t.IntraCharSpace})
			}
			out = append(out, Element{Tone: true, Symbol: s, Glyph: c.Glyph, Duration: t.SymbolDuration(s)})
		}
	}
	return out
}

// TotalDuration sums the elements of a timeline.
func TotalDuration(elements []Element) time.Duration {
	var total time.Duration
	for _, e := range elements {
		total += e.Duration
	}
	return total
}
