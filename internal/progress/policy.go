package progress

import "github.com/verte-zerg/tuikoch/internal/morse"

// Policy holds the unlock thresholds. Accuracies are percentages.
type Policy struct {
	// MomentumStreak is the streak length that enables the relaxed path.
	MomentumStreak int
	// MomentumMinAttempts is the newest glyph's minimum history on the relaxed path.
	MomentumMinAttempts int
	// MomentumNewestAccuracy is the newest glyph's accuracy bar on the relaxed path.
	MomentumNewestAccuracy float64
	// MinAttempts is the newest glyph's minimum history on the standard path.
	MinAttempts int
	// NewestAccuracy is the newest glyph's accuracy bar on the standard path.
	NewestAccuracy float64
	// PoolAccuracy is the pool health bar shared by both paths.
	PoolAccuracy float64
	// MultiPoolAccuracy and MultiNewestAccuracy gate unlocking two at once.
	MultiPoolAccuracy   float64
	MultiNewestAccuracy float64
}

// DefaultPolicy returns the tuned thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MomentumStreak:         5,
		MomentumMinAttempts:    5,
		MomentumNewestAccuracy: 70,
		MinAttempts:            8,
		NewestAccuracy:         80,
		PoolAccuracy:           75,
		MultiPoolAccuracy:      95,
		MultiNewestAccuracy:    90,
	}
}

// CharactersToUnlock decides how many glyphs (0, 1 or 2) to unlock next.
// The first matching rule wins.
func (p Policy) CharactersToUnlock(s *State) int {
	unlocked := clampUnlocked(s.UnlockedCount)
	if unlocked >= morse.CharacterCount {
		return 0
	}
	newest := s.Stats(s.NewestGlyph())
	newestAcc := newest.Accuracy()
	poolAcc := s.PoolAccuracy()

	momentum := s.CurrentStreak >= p.MomentumStreak
	if momentum &&
		newest.Attempts() >= p.MomentumMinAttempts &&
		newestAcc >= p.MomentumNewestAccuracy &&
		poolAcc >= p.PoolAccuracy {
		return 1
	}
	if newest.Attempts() < p.MinAttempts || newestAcc < p.NewestAccuracy {
		return 0
	}
	if poolAcc < p.PoolAccuracy {
		return 0
	}
	if poolAcc >= p.MultiPoolAccuracy &&
		newestAcc >= p.MultiNewestAccuracy &&
		unlocked+2 <= morse.CharacterCount {
		return 2
	}
	return 1
}

// CharactersToUnlock applies the default policy.
func CharactersToUnlock(s *State) int {
	return DefaultPolicy().CharactersToUnlock(s)
}
