// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
)

const sparkChars = " .:-=+*#%@"

// RoundAccuracy returns the share of correctly copied positions in percent.
func RoundAccuracy(correct, incorrect int) float64 {
	den := correct + incorrect
	if den <= 0 {
		return 0
	}
	return float64(correct) / float64(den) * 100
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Summary holds headline numbers for a set of rounds.
type Summary struct {
	Rounds          int
	Sessions        int
	Attempts        int
	AvgAccuracy     float64
	BestAccuracy    float64
	AvgEditDistance float64
	UnlockedCount   int
}

// Summarize computes headline numbers for rounds ordered oldest first.
func Summarize(rounds []model.RoundAggregate) Summary {
	if len(rounds) == 0 {
		return Summary{}
	}
	sessions := map[string]struct{}{}
	var sum Summary
	var totalAcc, totalDist float64
	for _, r := range rounds {
		sessions[r.SessionID] = struct{}{}
		acc := RoundAccuracy(r.Correct, r.Incorrect)
		totalAcc += acc
		totalDist += float64(r.EditDistance)
		if acc > sum.BestAccuracy {
			sum.BestAccuracy = acc
		}
		sum.Attempts += r.Correct + r.Incorrect
	}
	count := float64(len(rounds))
	sum.Rounds = len(rounds)
	sum.Sessions = len(sessions)
	sum.AvgAccuracy = totalAcc / count
	sum.AvgEditDistance = totalDist / count
	sum.UnlockedCount = rounds[len(rounds)-1].UnlockedCount
	return sum
}

// RenderSummary prints a summary table for rounds.
func RenderSummary(w io.Writer, rounds []model.RoundAggregate) error {
	if len(rounds) == 0 {
		_, err := fmt.Fprintln(w, "No rounds found.")
		return err
	}
	sum := Summarize(rounds)
	lines := []string{
		"Summary",
		fmt.Sprintf("Rounds: %d", sum.Rounds),
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Attempts: %d", sum.Attempts),
		fmt.Sprintf("Avg Accuracy: %.2f%%", sum.AvgAccuracy),
		fmt.Sprintf("Best Accuracy: %.2f%%", sum.BestAccuracy),
		fmt.Sprintf("Avg Edit Distance: %.2f", sum.AvgEditDistance),
		fmt.Sprintf("Unlocked: %d", sum.UnlockedCount),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// AccuracySeries returns per-round accuracy smoothed over window.
func AccuracySeries(rounds []model.RoundAggregate, window int) []float64 {
	accs := make([]float64, len(rounds))
	for i, r := range rounds {
		accs[i] = RoundAccuracy(r.Correct, r.Incorrect)
	}
	return MovingAverage(accs, window)
}

// UnlockSeries returns the unlocked count after each round.
func UnlockSeries(rounds []model.RoundAggregate) []float64 {
	out := make([]float64, len(rounds))
	for i, r := range rounds {
		out[i] = float64(r.UnlockedCount)
	}
	return out
}

// RenderCurves prints learning curves for accuracy and unlock progress.
func RenderCurves(w io.Writer, rounds []model.RoundAggregate, window int) error {
	return RenderCurvesWithSize(w, rounds, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, rounds []model.RoundAggregate, window, totalWidth, height int, useColor bool) error {
	if len(rounds) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: AccuracySeries(rounds, window), Fixed: true, Min: 0, Max: 100},
		{Name: "Unlocked", Values: UnlockSeries(rounds), Fixed: true, Min: 0, Max: morse.CharacterCount},
	}, width, height, useColor)
}

// CharRow is one line of the per-glyph table.
type CharRow struct {
	Char      string
	Accuracy  float64
	Correct   int
	Incorrect int
}

// CharRows converts aggregates into rows sorted by lowest accuracy.
func CharRows(aggs []model.CharAggregate) []CharRow {
	rows := make([]CharRow, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, CharRow{
			Char:      agg.Char,
			Accuracy:  accuracy(agg) * 100,
			Correct:   agg.Correct,
			Incorrect: agg.Incorrect,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Accuracy == rows[j].Accuracy {
			return rows[i].Char < rows[j].Char
		}
		return rows[i].Accuracy < rows[j].Accuracy
	})
	return rows
}

// RenderCharTable prints per-character aggregates.
func RenderCharTable(w io.Writer, aggs []model.CharAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No character stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Character (Windowed)"); err != nil {
		return err
	}

	tbl := newTextTable(
		column{title: "Char"},
		column{title: "Accuracy", align: alignRight},
		column{title: "Correct", align: alignRight},
		column{title: "Incorrect", align: alignRight},
	)
	for _, r := range CharRows(aggs) {
		tbl.add(
			r.Char,
			fmt.Sprintf("%.2f%%", r.Accuracy),
			fmt.Sprintf("%d", r.Correct),
			fmt.Sprintf("%d", r.Incorrect),
		)
	}
	lines := tbl.lines()
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// CharAccuracySeries returns the smoothed accuracy of one glyph per round.
// Rounds where the glyph was not sent carry the previous value forward.
func CharAccuracySeries(rounds []model.RoundAggregate, perRound map[int64]map[string]model.CharAggregate, ch string, window int) []float64 {
	series := make([]float64, len(rounds))
	last := 0.0
	for i, r := range rounds {
		if data, ok := perRound[r.RoundID]; ok {
			if agg, ok := data[ch]; ok && agg.Correct+agg.Incorrect > 0 {
				last = accuracy(agg) * 100
			}
		}
		series[i] = last
	}
	return MovingAverage(series, window)
}

// RenderCharCurves prints per-character learning curves.
func RenderCharCurves(w io.Writer, rounds []model.RoundAggregate, perRound map[int64]map[string]model.CharAggregate, chars []string, window int) error {
	return RenderCharCurvesWithSize(w, rounds, perRound, chars, window, 0, 10, false)
}

// RenderCharCurvesWithSize prints per-character learning curves sized to a given total width.
func RenderCharCurvesWithSize(w io.Writer, rounds []model.RoundAggregate, perRound map[int64]map[string]model.CharAggregate, chars []string, window, totalWidth, height int, useColor bool) error {
	if len(chars) == 0 || len(rounds) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Character Curves"); err != nil {
		return err
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, ch := range chars {
		if err := PlotSeriesWithColor(w, fmt.Sprintf("Char %s", ch), []Series{
			{Name: "Accuracy", Values: CharAccuracySeries(rounds, perRound, ch, window), Fixed: true, Min: 0, Max: 100},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}
