package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuikoch/internal/drill"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

var cellGap = styledRune{s: " ", width: 1, isSpace: true}

// buildTargetCells renders the revealed target, each glyph marked by its
// result.
func buildTargetCells(target []rune, results []drill.Result) []styledRune {
	out := make([]styledRune, 0, 2*len(target))
	for i, r := range target {
		style := pendingStyle
		if i < len(results) {
			switch results[i] {
			case drill.Correct:
				style = correctStyle
			case drill.Incorrect:
				style = incorrectStyle
			}
		}
		out = appendCell(out, style.Render(string(r)), runewidth.RuneWidth(r))
	}
	return out
}

// buildAnswerCells renders the typed answers followed by empty slots. The
// first empty slot carries the cursor until the round is scored.
func buildAnswerCells(answers []rune, length int, results []drill.Result, scored bool) []styledRune {
	if length < len(answers) {
		length = len(answers)
	}
	out := make([]styledRune, 0, 2*length)
	for i := 0; i < length; i++ {
		if i >= len(answers) {
			style := pendingStyle
			if i == len(answers) && !scored {
				style = cursorStyle
			}
			out = appendCell(out, style.Render("_"), 1)
			continue
		}
		r := answers[i]
		style := answerStyle
		if scored && i < len(results) {
			style = correctStyle
			if results[i] != drill.Correct {
				style = incorrectStyle
			}
		}
		out = appendCell(out, style.Render(string(r)), runewidth.RuneWidth(r))
	}
	return out
}

func appendCell(out []styledRune, s string, width int) []styledRune {
	if len(out) > 0 {
		out = append(out, cellGap)
	}
	return append(out, styledRune{s: s, width: width})
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
