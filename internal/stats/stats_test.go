package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/progress"
)

func TestRoundAccuracy(t *testing.T) {
	if got := RoundAccuracy(3, 1); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
	if got := RoundAccuracy(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty round, got %v", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSummarize(t *testing.T) {
	rounds := []model.RoundAggregate{
		{RoundID: 1, SessionID: "a", Correct: 1, Incorrect: 1, EditDistance: 1, UnlockedCount: 2},
		{RoundID: 2, SessionID: "a", Correct: 4, Incorrect: 0, EditDistance: 0, UnlockedCount: 3},
		{RoundID: 3, SessionID: "b", Correct: 3, Incorrect: 1, EditDistance: 2, UnlockedCount: 3},
	}
	sum := Summarize(rounds)
	if sum.Rounds != 3 || sum.Sessions != 2 || sum.Attempts != 10 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.BestAccuracy != 100 {
		t.Fatalf("expected best 100, got %v", sum.BestAccuracy)
	}
	if math.Abs(sum.AvgAccuracy-75) > 1e-9 {
		t.Fatalf("expected avg 75, got %v", sum.AvgAccuracy)
	}
	if sum.AvgEditDistance != 1 || sum.UnlockedCount != 3 {
		t.Fatalf("unexpected distance or unlocked: %+v", sum)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No rounds found.") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRenderCharTableSortsByAccuracy(t *testing.T) {
	var buf bytes.Buffer
	err := RenderCharTable(&buf, []model.CharAggregate{
		{Char: "K", Correct: 9, Incorrect: 1},
		{Char: "M", Correct: 1, Incorrect: 1},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 4 {
		t.Fatalf("expected table lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[2], "M") || !strings.HasPrefix(lines[3], "K") {
		t.Fatalf("expected M before K, got %q", buf.String())
	}
}

func TestCharAccuracySeriesCarriesForward(t *testing.T) {
	rounds := []model.RoundAggregate{{RoundID: 1}, {RoundID: 2}, {RoundID: 3}}
	perRound := map[int64]map[string]model.CharAggregate{
		1: {"K": {Char: "K", Correct: 1, Incorrect: 1}},
		3: {"K": {Char: "K", Correct: 1}},
	}
	got := CharAccuracySeries(rounds, perRound, "K", 1)
	want := []float64{50, 50, 100}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestWeakestGlyphs(t *testing.T) {
	state := progress.NewState()
	state.UnlockedCount = 4
	state.CharacterStats["K"] = progress.CharacterStats{History: []bool{true, true}}
	state.CharacterStats["M"] = progress.CharacterStats{History: []bool{true, false}}
	state.CharacterStats["R"] = progress.CharacterStats{History: []bool{false}}
	state.CharacterStats["S"] = progress.CharacterStats{History: []bool{false}}

	weak := WeakestGlyphs(state, 2)
	if len(weak) != 2 {
		t.Fatalf("expected 2 glyphs, got %+v", weak)
	}
	if weak[0].Glyph != 'R' || weak[1].Glyph != 'M' {
		t.Fatalf("unexpected order: %+v", weak)
	}
}
