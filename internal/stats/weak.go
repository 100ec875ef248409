package stats

import (
	"sort"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/progress"
)

// SelectWeakChars selects the lowest-accuracy characters from aggregates.
func SelectWeakChars(aggs []model.CharAggregate, top int) map[rune]struct{} {
	weakSet := map[rune]struct{}{}
	if len(aggs) == 0 {
		return weakSet
	}
	candidates := make([]model.CharAggregate, len(aggs))
	copy(candidates, aggs)
	sort.Slice(candidates, func(i, j int) bool {
		ai := accuracy(candidates[i])
		aj := accuracy(candidates[j])
		if ai == aj {
			return candidates[i].Char < candidates[j].Char
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		runes := []rune(candidates[i].Char)
		if len(runes) > 0 {
			weakSet[runes[0]] = struct{}{}
		}
	}
	return weakSet
}

// WeakGlyph is an unlocked glyph with its recent accuracy.
type WeakGlyph struct {
	Glyph    rune
	Accuracy float64
	Attempts int
}

// WeakestGlyphs ranks unlocked glyphs with history by their recent accuracy,
// lowest first. Ties keep Koch order.
func WeakestGlyphs(state *progress.State, top int) []WeakGlyph {
	var out []WeakGlyph
	for _, g := range state.AvailableCharacters() {
		cs := state.Stats(g)
		if cs.Attempts() == 0 {
			continue
		}
		out = append(out, WeakGlyph{Glyph: g, Accuracy: cs.Accuracy(), Attempts: cs.Attempts()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Accuracy < out[j].Accuracy
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

func accuracy(agg model.CharAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}
