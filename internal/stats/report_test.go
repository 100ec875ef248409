package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tuikoch.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		round := model.RoundRecord{
			SessionID:     "s1",
			Mode:          model.ModeHeadCopy,
			StartedAt:     start,
			EndedAt:       start.Add(5 * time.Second),
			Sent:          "KM",
			Received:      "KK",
			Correct:       1,
			Incorrect:     1,
			EditDistance:  1,
			UnlockedCount: 2,
			Attempts: []model.AttemptRecord{
				{Position: 0, Expected: "K", Answered: "K", Correct: true},
				{Position: 1, Expected: "M", Answered: "K", Correct: false},
			},
		}
		id, err := st.RecordRound(ctx, round)
		if err != nil {
			t.Fatalf("record round: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{
		Last:        2,
		CurveWindow: 2,
	}
	report, err := BuildReport(ctx, st, cfg, 2)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(report.Rounds))
	}
	if report.Rounds[0].RoundID != ids[1] || report.Rounds[1].RoundID != ids[2] {
		t.Fatalf("unexpected round ids: %+v", report.Rounds)
	}
	if len(report.WindowRoundIDs) != 2 {
		t.Fatalf("expected 2 window round ids, got %d", len(report.WindowRoundIDs))
	}
	if len(report.CharAggsAll) != 2 {
		t.Fatalf("expected aggregates for K and M, got %+v", report.CharAggsAll)
	}
	if len(report.CharAggsWindow) == 0 {
		t.Fatalf("expected char aggregates for window rounds")
	}
	if len(report.CurveChars) != 2 {
		t.Fatalf("expected 2 curve chars, got %v", report.CurveChars)
	}
	if agg := report.PerRound[ids[2]]["M"]; agg.Incorrect != 1 {
		t.Fatalf("expected per-round miss on M, got %+v", agg)
	}
}
