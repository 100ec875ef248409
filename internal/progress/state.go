// Package progress tracks per-character accuracy and Koch unlock progress.
package progress

import (
	"time"

	"github.com/verte-zerg/tuikoch/internal/morse"
)

const (
	// HistorySize is the number of recent attempts kept per glyph.
	HistorySize = 10
	// InitialUnlocked is the size of the starting pool.
	InitialUnlocked = 2
	// StaleSessionAfter is the idle time after which session counters reset.
	StaleSessionAfter = 4 * time.Hour
)

// CharacterStats is a bounded history of attempt outcomes, oldest first.
type CharacterStats struct {
	History []bool `json:"history"`
}

// Record appends an outcome and evicts the oldest beyond HistorySize.
func (c *CharacterStats) Record(correct bool) {
	c.History = append(c.History, correct)
	if over := len(c.History) - HistorySize; over > 0 {
		trimmed := make([]bool, HistorySize)
		copy(trimmed, c.History[over:])
		c.History = trimmed
	}
}

// Attempts returns the number of outcomes in the history.
func (c CharacterStats) Attempts() int {
	return len(c.History)
}

// Accuracy returns the percentage of correct outcomes, 0 for no history.
func (c CharacterStats) Accuracy() float64 {
	if len(c.History) == 0 {
		return 0
	}
	correct := 0
	for _, ok := range c.History {
		if ok {
			correct++
		}
	}
	return 100 * float64(correct) / float64(len(c.History))
}

// State is the learner's persisted progress.
type State struct {
	UnlockedCount        int                       `json:"unlockedCount" yaml:"unlocked_count"`
	CharacterStats       map[string]CharacterStats `json:"characterStats" yaml:"character_stats"`
	TotalCorrect         int                       `json:"totalCorrect" yaml:"total_correct"`
	TotalAttempts        int                       `json:"totalAttempts" yaml:"total_attempts"`
	CurrentStreak        int                       `json:"currentStreak" yaml:"current_streak"`
	BestStreak           int                       `json:"bestStreak" yaml:"best_streak"`
	SessionCorrect       int                       `json:"sessionCorrect" yaml:"session_correct"`
	SessionTotal         int                       `json:"sessionTotal" yaml:"session_total"`
	LastSessionTimestamp time.Time                 `json:"lastSessionTimestamp" yaml:"last_session_timestamp"`
}

// UnlockDelta reports glyphs unlocked by one attempt.
type UnlockDelta struct {
	Count  int
	Glyphs []rune
}

// NewState returns fresh progress with the first two glyphs unlocked.
func NewState() *State {
	return &State{
		UnlockedCount:  InitialUnlocked,
		CharacterStats: map[string]CharacterStats{},
	}
}

// Normalize repairs a decoded state so the invariants hold.
func (s *State) Normalize() {
	if s.CharacterStats == nil {
		s.CharacterStats = map[string]CharacterStats{}
	}
	s.UnlockedCount = clampUnlocked(s.UnlockedCount)
	for glyph, cs := range s.CharacterStats {
		if len(cs.History) > HistorySize {
			cs.History = append([]bool(nil), cs.History[len(cs.History)-HistorySize:]...)
			s.CharacterStats[glyph] = cs
		}
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *State) Clone() State {
	out := *s
	out.CharacterStats = make(map[string]CharacterStats, len(s.CharacterStats))
	for glyph, cs := range s.CharacterStats {
		out.CharacterStats[glyph] = CharacterStats{History: append([]bool(nil), cs.History...)}
	}
	return out
}

// Stats returns the history for a glyph.
func (s *State) Stats(glyph rune) CharacterStats {
	return s.CharacterStats[string(morse.Normalize(glyph))]
}

// AvailableCharacters returns the first UnlockedCount glyphs of the Koch order.
func (s *State) AvailableCharacters() []rune {
	return morse.KochOrder()[:clampUnlocked(s.UnlockedCount)]
}

// IsAvailable reports whether a glyph is unlocked, case-insensitive.
func (s *State) IsAvailable(glyph rune) bool {
	idx, ok := morse.KochIndex(glyph)
	return ok && idx < clampUnlocked(s.UnlockedCount)
}

// NewestGlyph returns the most recently unlocked glyph.
func (s *State) NewestGlyph() rune {
	g, _ := morse.KochGlyph(clampUnlocked(s.UnlockedCount) - 1)
	return g
}

// PoolAccuracy averages accuracy over unlocked glyphs with at least one
// recorded attempt. Glyphs without history do not count as zero.
func (s *State) PoolAccuracy() float64 {
	var sum float64
	n := 0
	for _, g := range s.AvailableCharacters() {
		cs := s.Stats(g)
		if cs.Attempts() == 0 {
			continue
		}
		sum += cs.Accuracy()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SessionAccuracy returns the current session's percentage correct.
func (s *State) SessionAccuracy() float64 {
	if s.SessionTotal == 0 {
		return 0
	}
	return 100 * float64(s.SessionCorrect) / float64(s.SessionTotal)
}

// TotalAccuracy returns the all-time percentage correct.
func (s *State) TotalAccuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return 100 * float64(s.TotalCorrect) / float64(s.TotalAttempts)
}

// RecordAttempt scores one answer and applies the default unlock policy.
func (s *State) RecordAttempt(glyph rune, correct bool, now time.Time) UnlockDelta {
	return s.RecordAttemptWithPolicy(glyph, correct, now, DefaultPolicy())
}

// RecordAttemptWithPolicy scores one answer and applies the given policy.
func (s *State) RecordAttemptWithPolicy(glyph rune, correct bool, now time.Time, policy Policy) UnlockDelta {
	if s.CharacterStats == nil {
		s.CharacterStats = map[string]CharacterStats{}
	}
	key := string(morse.Normalize(glyph))
	cs := s.CharacterStats[key]
	cs.Record(correct)
	s.CharacterStats[key] = cs

	s.TotalAttempts++
	if correct {
		s.TotalCorrect++
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
	} else {
		s.CurrentStreak = 0
	}

	s.SessionTotal++
	if correct {
		s.SessionCorrect++
	}
	if s.LastSessionTimestamp.IsZero() {
		s.LastSessionTimestamp = now
	}

	n := policy.CharactersToUnlock(s)
	if n <= 0 {
		return UnlockDelta{}
	}
	glyphs := s.UnlockNextCharacters(n)
	return UnlockDelta{Count: len(glyphs), Glyphs: glyphs}
}

// UnlockNextCharacters unlocks up to n more glyphs, never beyond the full set,
// and returns the glyphs that became available.
func (s *State) UnlockNextCharacters(n int) []rune {
	if n <= 0 {
		return nil
	}
	before := clampUnlocked(s.UnlockedCount)
	after := clampUnlocked(before + n)
	s.UnlockedCount = after
	if after == before {
		return nil
	}
	return morse.KochOrder()[before:after]
}

// StartSession resets session counters when the last session went stale.
// It reports whether a reset happened.
func (s *State) StartSession(now time.Time) bool {
	if s.LastSessionTimestamp.IsZero() {
		return false
	}
	if now.Sub(s.LastSessionTimestamp) < StaleSessionAfter {
		return false
	}
	s.ResetSession()
	return true
}

// ResetSession clears the session counters.
func (s *State) ResetSession() {
	s.SessionCorrect = 0
	s.SessionTotal = 0
	s.LastSessionTimestamp = time.Time{}
}

// ResetProgress returns the state to a fresh learner.
func (s *State) ResetProgress() {
	*s = *NewState()
}

func clampUnlocked(n int) int {
	if n < InitialUnlocked {
		return InitialUnlocked
	}
	if n > morse.CharacterCount {
		return morse.CharacterCount
	}
	return n
}
