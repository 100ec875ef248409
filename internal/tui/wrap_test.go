package tui

import (
	"testing"

	"github.com/verte-zerg/tuikoch/internal/drill"
)

func TestBuildAnswerCellsCursor(t *testing.T) {
	cells := buildAnswerCells([]rune("K"), 3, nil, false)
	if len(cells) != 5 {
		t.Fatalf("expected 5 cells, got %d", len(cells))
	}
	if cells[0].s != answerStyle.Render("K") {
		t.Fatalf("expected answer style for typed glyph")
	}
	if !cells[1].isSpace {
		t.Fatalf("expected gap between cells")
	}
	if cells[2].s != cursorStyle.Render("_") {
		t.Fatalf("expected cursor on first empty slot")
	}
	if cells[4].s != pendingStyle.Render("_") {
		t.Fatalf("expected pending style for later slots")
	}
}

func TestBuildAnswerCellsScored(t *testing.T) {
	results := []drill.Result{drill.Correct, drill.Incorrect, drill.Incorrect}
	cells := buildAnswerCells([]rune("KK"), 3, results, true)
	if cells[0].s != correctStyle.Render("K") {
		t.Fatalf("expected correct style for first answer")
	}
	if cells[2].s != incorrectStyle.Render("K") {
		t.Fatalf("expected incorrect style for second answer")
	}
	if cells[4].s != pendingStyle.Render("_") {
		t.Fatalf("expected no cursor once scored")
	}
}

func TestBuildTargetCells(t *testing.T) {
	cells := buildTargetCells([]rune("KM"), []drill.Result{drill.Correct, drill.Incorrect})
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	if cells[0].s != correctStyle.Render("K") || cells[2].s != incorrectStyle.Render("M") {
		t.Fatalf("unexpected target styling")
	}
}

func TestWrapStyledRunesBreaksAtGaps(t *testing.T) {
	plain := func(s string) []styledRune {
		var out []styledRune
		for _, r := range s {
			out = appendCell(out, string(r), 1)
		}
		return out
	}
	got := wrapStyledRunes(plain("KMURE"), 5)
	want := "K M\nU R E"
	if got != want {
		t.Fatalf("wrap = %q, want %q", got, want)
	}
	if got := wrapStyledRunes(plain("KM"), 0); got != "K M" {
		t.Fatalf("unwrapped = %q", got)
	}
}
