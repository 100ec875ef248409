package stats

import (
	"context"

	"github.com/verte-zerg/tuikoch/internal/model"
)

// RoundSource is the part of the store a report reads.
type RoundSource interface {
	ListRounds(ctx context.Context, cfg model.StatsConfig) ([]model.RoundAggregate, error)
	ListCharAggregatesForRounds(ctx context.Context, roundIDs []int64) ([]model.CharAggregate, error)
	ListCharStatsForRounds(ctx context.Context, roundIDs []int64, chars []string) (map[int64]map[string]model.CharAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Rounds         []model.RoundAggregate
	WindowRoundIDs []int64
	CharAggsAll    []model.CharAggregate
	CharAggsWindow []model.CharAggregate
	CurveChars     []string
	PerRound       map[int64]map[string]model.CharAggregate
}

// BuildReport loads and prepares data for stats rendering. curveChars limits
// the per-round glyph curves to the most practiced glyphs.
func BuildReport(ctx context.Context, st RoundSource, cfg model.StatsConfig, curveChars int) (Report, error) {
	rounds, err := st.ListRounds(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(rounds) > cfg.Last {
		rounds = rounds[len(rounds)-cfg.Last:]
	}

	allIDs := roundIDs(rounds)
	windowIDs := lastRoundIDs(rounds, cfg.CurveWindow)
	charAggsAll, err := st.ListCharAggregatesForRounds(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	charAggsWindow, err := st.ListCharAggregatesForRounds(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	chars := MostSentGlyphs(charAggsAll, curveChars)
	perRound := map[int64]map[string]model.CharAggregate{}
	if len(chars) > 0 {
		perRound, err = st.ListCharStatsForRounds(ctx, allIDs, chars)
		if err != nil {
			return Report{}, err
		}
	}

	return Report{
		Rounds:         rounds,
		WindowRoundIDs: windowIDs,
		CharAggsAll:    charAggsAll,
		CharAggsWindow: charAggsWindow,
		CurveChars:     chars,
		PerRound:       perRound,
	}, nil
}

func roundIDs(rounds []model.RoundAggregate) []int64 {
	ids := make([]int64, len(rounds))
	for i, r := range rounds {
		ids[i] = r.RoundID
	}
	return ids
}

func lastRoundIDs(rounds []model.RoundAggregate, window int) []int64 {
	if window <= 0 || len(rounds) <= window {
		return roundIDs(rounds)
	}
	return roundIDs(rounds[len(rounds)-window:])
}
