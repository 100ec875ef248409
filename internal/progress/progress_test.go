package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func correctHistory(n int) CharacterStats {
	cs := CharacterStats{}
	for i := 0; i < n; i++ {
		cs.Record(true)
	}
	return cs
}

func TestAccuracyBounds(t *testing.T) {
	for n := 0; n <= HistorySize; n++ {
		for correct := 0; correct <= n; correct++ {
			cs := CharacterStats{}
			for i := 0; i < n; i++ {
				cs.Record(i < correct)
			}
			acc := cs.Accuracy()
			require.GreaterOrEqual(t, acc, 0.0)
			require.LessOrEqual(t, acc, 100.0)
			if n == 0 {
				require.Zero(t, acc)
				continue
			}
			require.InDelta(t, 100*float64(correct)/float64(n), acc, 1e-9)
		}
	}
}

func TestRecordEvictsOldest(t *testing.T) {
	cs := CharacterStats{}
	cs.Record(false)
	for i := 0; i < HistorySize; i++ {
		cs.Record(true)
	}
	require.Len(t, cs.History, HistorySize)
	assert.Equal(t, 100.0, cs.Accuracy(), "the incorrect first attempt should have been dropped")
}

func TestRecordAttemptCounters(t *testing.T) {
	s := NewState()
	s.RecordAttempt('k', true, t0)
	s.RecordAttempt('K', true, t0.Add(time.Minute))
	s.RecordAttempt('M', false, t0.Add(2*time.Minute))

	assert.Equal(t, 3, s.TotalAttempts)
	assert.Equal(t, 2, s.TotalCorrect)
	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 2, s.BestStreak)
	assert.Equal(t, 3, s.SessionTotal)
	assert.Equal(t, 2, s.SessionCorrect)
	assert.Equal(t, t0, s.LastSessionTimestamp)
	assert.Equal(t, []bool{true, true}, s.Stats('K').History)
}

func TestRecordAttemptMomentumUnlock(t *testing.T) {
	s := NewState()
	for i := 0; i < 5; i++ {
		delta := s.RecordAttempt('K', true, t0)
		require.Zero(t, delta.Count)
	}
	for i := 0; i < 4; i++ {
		delta := s.RecordAttempt('M', true, t0)
		require.Zero(t, delta.Count)
	}
	delta := s.RecordAttempt('M', true, t0)
	require.Equal(t, 1, delta.Count)
	assert.Equal(t, []rune{'U'}, delta.Glyphs)
	assert.Equal(t, 3, s.UnlockedCount)
	assert.Equal(t, []rune{'K', 'M', 'U'}, s.AvailableCharacters())
}

func TestScenarioEightCorrectEach(t *testing.T) {
	s := NewState()
	s.CharacterStats["K"] = correctHistory(8)
	s.CharacterStats["M"] = correctHistory(8)
	s.CurrentStreak = 16
	s.BestStreak = 16
	assert.Equal(t, 1, CharactersToUnlock(s))
}

func TestScenarioTenCorrectEachWithoutStreak(t *testing.T) {
	s := NewState()
	s.CharacterStats["K"] = correctHistory(10)
	s.CharacterStats["M"] = correctHistory(10)
	s.CurrentStreak = 0
	assert.Equal(t, 2, CharactersToUnlock(s))
}

func TestPolicyRules(t *testing.T) {
	mixed := func(correct, total int) CharacterStats {
		cs := CharacterStats{}
		for i := 0; i < total; i++ {
			cs.Record(i < correct)
		}
		return cs
	}
	tests := []struct {
		name   string
		setup  func(s *State)
		expect int
	}{
		{
			name:   "fresh state",
			setup:  func(*State) {},
			expect: 0,
		},
		{
			name: "all unlocked",
			setup: func(s *State) {
				s.UnlockedCount = 40
				s.CharacterStats["X"] = correctHistory(10)
			},
			expect: 0,
		},
		{
			name: "momentum relaxes bar",
			setup: func(s *State) {
				s.CharacterStats["K"] = correctHistory(10)
				s.CharacterStats["M"] = mixed(4, 5)
				s.CurrentStreak = 5
			},
			expect: 1,
		},
		{
			name: "without momentum too few attempts",
			setup: func(s *State) {
				s.CharacterStats["K"] = correctHistory(10)
				s.CharacterStats["M"] = mixed(7, 7)
			},
			expect: 0,
		},
		{
			name: "newest below bar",
			setup: func(s *State) {
				s.CharacterStats["K"] = correctHistory(10)
				s.CharacterStats["M"] = mixed(7, 10)
			},
			expect: 0,
		},
		{
			name: "pool unhealthy",
			setup: func(s *State) {
				s.UnlockedCount = 3
				s.CharacterStats["K"] = mixed(5, 10)
				s.CharacterStats["M"] = mixed(5, 10)
				s.CharacterStats["U"] = correctHistory(10)
			},
			expect: 0,
		},
		{
			name: "single unlock",
			setup: func(s *State) {
				s.CharacterStats["K"] = mixed(8, 10)
				s.CharacterStats["M"] = mixed(9, 10)
			},
			expect: 1,
		},
		{
			name: "no room for two",
			setup: func(s *State) {
				s.UnlockedCount = 39
				s.CharacterStats["X"] = correctHistory(10)
				s.CharacterStats["0"] = correctHistory(10)
			},
			expect: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState()
			tc.setup(s)
			assert.Equal(t, tc.expect, CharactersToUnlock(s))
		})
	}
}

func TestPolicyIsPure(t *testing.T) {
	s := NewState()
	s.CharacterStats["K"] = correctHistory(10)
	s.CharacterStats["M"] = correctHistory(9)
	before := s.Clone()
	first := CharactersToUnlock(s)
	second := CharactersToUnlock(s)
	assert.Equal(t, first, second)
	assert.Equal(t, before, s.Clone())
}

func TestPoolAccuracyExcludesEmptyHistory(t *testing.T) {
	s := NewState()
	s.UnlockedCount = 3
	s.CharacterStats["K"] = correctHistory(4)
	assert.Equal(t, 100.0, s.PoolAccuracy())
}

func TestUnlockNextCharactersClamps(t *testing.T) {
	s := NewState()
	glyphs := s.UnlockNextCharacters(100)
	assert.Equal(t, 40, s.UnlockedCount)
	assert.Len(t, glyphs, 38)
	assert.Nil(t, s.UnlockNextCharacters(1))
}

func TestStartSessionResetsStaleCounters(t *testing.T) {
	s := NewState()
	s.RecordAttempt('K', true, t0)
	require.False(t, s.StartSession(t0.Add(3*time.Hour)))
	assert.Equal(t, 1, s.SessionTotal)

	require.True(t, s.StartSession(t0.Add(StaleSessionAfter)))
	assert.Zero(t, s.SessionTotal)
	assert.Zero(t, s.SessionCorrect)
	assert.Equal(t, 1, s.TotalAttempts)
	assert.True(t, s.LastSessionTimestamp.IsZero())
}

func TestResetProgress(t *testing.T) {
	s := NewState()
	s.UnlockNextCharacters(5)
	s.RecordAttempt('K', true, t0)
	s.ResetProgress()
	assert.Equal(t, InitialUnlocked, s.UnlockedCount)
	assert.Zero(t, s.TotalAttempts)
	assert.Empty(t, s.CharacterStats)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewState()
	s.RecordAttempt('K', true, t0)
	c := s.Clone()
	s.RecordAttempt('K', false, t0)
	assert.Len(t, c.CharacterStats["K"].History, 1)
}

func TestNormalizeRepairsDecodedState(t *testing.T) {
	s := &State{UnlockedCount: 99, CharacterStats: map[string]CharacterStats{
		"K": {History: make([]bool, 15)},
	}}
	s.Normalize()
	assert.Equal(t, 40, s.UnlockedCount)
	assert.Len(t, s.CharacterStats["K"].History, HistorySize)
}
