// Package generator draws practice characters weighted toward weak glyphs.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/tuikoch/internal/morse"
	"github.com/verte-zerg/tuikoch/internal/progress"
)

const (
	// NewGlyphWeight is used for glyphs that have never been attempted.
	NewGlyphWeight = 1.5
	// MinWeight is the weight of a glyph at 100% accuracy.
	MinWeight = 0.2
	// MaxWeight is the weight of a glyph at 0% accuracy.
	MaxWeight = 2.0

	// HeadCopyMinLength is the shortest head-copy sequence.
	HeadCopyMinLength = 3
	// HeadCopyBaseMaxLength is the longest head-copy sequence for a fresh pool.
	HeadCopyBaseMaxLength = 5
	// MaxSequenceLength caps every sequence.
	MaxSequenceLength = 20
)

// Generator produces weighted practice material.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// SelectionWeight maps recent accuracy to a sampling weight.
func SelectionWeight(stats progress.CharacterStats) float64 {
	if stats.Attempts() == 0 {
		return NewGlyphWeight
	}
	w := MinWeight + (MaxWeight-MinWeight)*(1-stats.Accuracy()/100)
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// WeightedCharacter samples a candidate with probability proportional to its
// selection weight. It returns false for an empty candidate list.
func (g *Generator) WeightedCharacter(candidates []rune, state *progress.State) (rune, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	weights := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		w := SelectionWeight(state.Stats(c))
		weights[i] = w
		total += w
	}
	r := g.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return candidates[i], true
		}
	}
	// Floating point rounding can leave r == total.
	return candidates[len(candidates)-1], true
}

// Character draws one glyph from the unlocked pool.
func (g *Generator) Character(state *progress.State) (rune, bool) {
	return g.WeightedCharacter(state.AvailableCharacters(), state)
}

// Sequence draws length glyphs from the unlocked pool.
func (g *Generator) Sequence(state *progress.State, length int) []rune {
	if length <= 0 {
		return nil
	}
	if length > MaxSequenceLength {
		length = MaxSequenceLength
	}
	pool := state.AvailableCharacters()
	out := make([]rune, 0, length)
	for i := 0; i < length; i++ {
		c, ok := g.WeightedCharacter(pool, state)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

// HeadCopyMaxLength grows by one per unlocked glyph beyond the starting pair.
func HeadCopyMaxLength(available int) int {
	grown := HeadCopyBaseMaxLength + available - progress.InitialUnlocked
	if grown < HeadCopyBaseMaxLength {
		grown = HeadCopyBaseMaxLength
	}
	if grown > MaxSequenceLength {
		grown = MaxSequenceLength
	}
	return grown
}

// HeadCopyLength draws a head-copy length for the given pool size.
func (g *Generator) HeadCopyLength(available int) int {
	maxLen := HeadCopyMaxLength(available)
	return HeadCopyMinLength + g.rnd.Intn(maxLen-HeadCopyMinLength+1)
}

// Word picks a word made only of unlocked glyphs, weighting words by the
// selection weight of their glyphs. Words shorter than HeadCopyMinLength are
// skipped. It returns false when no word fits.
func (g *Generator) Word(words []string, state *progress.State, maxLen int) ([]rune, bool) {
	var fits [][]rune
	var weights []float64
	total := 0.0
	for _, word := range words {
		runes := []rune(word)
		if len(runes) < HeadCopyMinLength || (maxLen > 0 && len(runes) > maxLen) {
			continue
		}
		w := 0.0
		ok := true
		for i, r := range runes {
			r = morse.Normalize(r)
			if !state.IsAvailable(r) {
				ok = false
				break
			}
			runes[i] = r
			w += SelectionWeight(state.Stats(r))
		}
		if !ok {
			continue
		}
		fits = append(fits, runes)
		weights = append(weights, w/float64(len(runes)))
		total += w / float64(len(runes))
	}
	if len(fits) == 0 {
		return nil, false
	}
	r := g.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return fits[i], true
		}
	}
	return fits[len(fits)-1], true
}
