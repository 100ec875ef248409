package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, 5, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesFixedRange(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "", []Series{
		{Name: "Accuracy", Values: []float64{100, 100}, Fixed: true, Min: 0, Max: 100},
	}, 10, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Fixed scale") {
		t.Fatalf("expected fixed scale note, got %q", out)
	}
	if !strings.Contains(out, "Accuracy: min=0.00 max=100.00") {
		t.Fatalf("expected fixed range, got %q", out)
	}
	lines := strings.Split(out, "\n")
	// A flat 100% series sits on the top row only.
	if strings.Trim(strings.SplitN(lines[2], axisSeparator, 2)[1], "⠀") == "" {
		t.Fatalf("expected dots on the top row, got %q", lines[2])
	}
	if strings.Trim(strings.SplitN(lines[5], axisSeparator, 2)[1], "⠀") != "" {
		t.Fatalf("expected empty bottom row, got %q", lines[5])
	}
}
