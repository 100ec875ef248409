package stats

import (
	"sort"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
)

// MostSentGlyphs returns up to n glyphs ordered by attempt count. Ties go to
// the glyph taught first.
func MostSentGlyphs(aggs []model.CharAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := make([]model.CharAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Correct+agg.Incorrect > 0 {
			sorted = append(sorted, agg)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := sorted[i].Correct + sorted[i].Incorrect
		tj := sorted[j].Correct + sorted[j].Incorrect
		if ti != tj {
			return ti > tj
		}
		return kochRank(sorted[i].Char) < kochRank(sorted[j].Char)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = sorted[i].Char
	}
	return out
}

// kochRank places glyphs outside the alphabet after every known one.
func kochRank(ch string) int {
	for _, r := range ch {
		if idx, ok := morse.KochIndex(r); ok {
			return idx
		}
		break
	}
	return morse.CharacterCount
}
