// Package report renders a printable PDF progress report.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
	"github.com/verte-zerg/tuikoch/internal/progress"
	"github.com/verte-zerg/tuikoch/internal/stats"
)

const (
	barWidth  = 80.0
	rowHeight = 6.0
)

// Data is everything the report prints.
type Data struct {
	GeneratedAt time.Time
	Progress    progress.State
	Rounds      []model.RoundAggregate
	Chars       []model.CharAggregate
}

// Render writes the report as PDF to w.
func Render(w io.Writer, data Data) error {
	pdf := build(data)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteFile writes the report to path.
func WriteFile(path string, data Data) error {
	pdf := build(data)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func build(data Data) *fpdf.Fpdf {
	state := data.Progress.Clone()
	state.Normalize()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Koch progress report", false)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Koch Progress Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Generated "+data.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	section(pdf, "Progress")
	newest := state.NewestGlyph()
	lines := []string{
		fmt.Sprintf("Unlocked: %d of %d (newest %s)", state.UnlockedCount, morse.CharacterCount, string(newest)),
		fmt.Sprintf("Pool accuracy: %.1f%%", state.PoolAccuracy()),
		fmt.Sprintf("Lifetime accuracy: %.1f%% over %d attempts", state.TotalAccuracy(), state.TotalAttempts),
		fmt.Sprintf("Best streak: %d", state.BestStreak),
	}
	if next, ok := morse.KochGlyph(state.UnlockedCount); ok {
		lines = append(lines, fmt.Sprintf("Next glyph: %s", string(next)))
	}
	for _, line := range lines {
		pdf.Cell(0, rowHeight, line)
		pdf.Ln(rowHeight)
	}
	pdf.Ln(4)

	section(pdf, "Rounds")
	if len(data.Rounds) == 0 {
		pdf.Cell(0, rowHeight, "No rounds recorded.")
		pdf.Ln(rowHeight)
	} else {
		sum := stats.Summarize(data.Rounds)
		for _, line := range []string{
			fmt.Sprintf("Rounds: %d in %d sessions", sum.Rounds, sum.Sessions),
			fmt.Sprintf("Average accuracy: %.1f%% (best %.1f%%)", sum.AvgAccuracy, sum.BestAccuracy),
			fmt.Sprintf("Average edit distance: %.2f", sum.AvgEditDistance),
		} {
			pdf.Cell(0, rowHeight, line)
			pdf.Ln(rowHeight)
		}
	}
	pdf.Ln(4)

	section(pdf, "Glyphs")
	if len(data.Chars) == 0 {
		pdf.Cell(0, rowHeight, "No glyph attempts recorded.")
		pdf.Ln(rowHeight)
		return pdf
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(16, rowHeight, "Glyph", "", 0, "L", false, 0, "")
	pdf.CellFormat(24, rowHeight, "Code", "", 0, "L", false, 0, "")
	pdf.CellFormat(24, rowHeight, "Accuracy", "", 0, "R", false, 0, "")
	pdf.CellFormat(24, rowHeight, "Attempts", "", 1, "R", false, 0, "")
	pdf.SetFont("Courier", "", 10)
	for _, row := range stats.CharRows(data.Chars) {
		pattern := ""
		if r := []rune(row.Char); len(r) > 0 {
			if ch, ok := morse.Lookup(r[0]); ok {
				pattern = ch.Pattern()
			}
		}
		pdf.CellFormat(16, rowHeight, row.Char, "", 0, "L", false, 0, "")
		pdf.CellFormat(24, rowHeight, pattern, "", 0, "L", false, 0, "")
		pdf.CellFormat(24, rowHeight, fmt.Sprintf("%.1f%%", row.Accuracy), "", 0, "R", false, 0, "")
		pdf.CellFormat(24, rowHeight, fmt.Sprintf("%d", row.Correct+row.Incorrect), "", 0, "R", false, 0, "")
		accuracyBar(pdf, row.Accuracy)
		pdf.Ln(rowHeight)
	}
	return pdf
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
}

func accuracyBar(pdf *fpdf.Fpdf, acc float64) {
	x, y := pdf.GetXY()
	x += 4
	pdf.SetDrawColor(140, 140, 140)
	pdf.Rect(x, y+1, barWidth, rowHeight-2, "D")
	switch {
	case acc >= 90:
		pdf.SetFillColor(82, 196, 26)
	case acc >= 70:
		pdf.SetFillColor(200, 154, 58)
	default:
		pdf.SetFillColor(255, 77, 79)
	}
	if acc > 0 {
		pdf.Rect(x, y+1, barWidth*acc/100, rowHeight-2, "F")
	}
}
