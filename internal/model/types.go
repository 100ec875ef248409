// Package model defines shared data structures.
package model

import "time"

// Settings is the host-owned practice configuration. The core reads a copy
// per playback call and never validates it.
type Settings struct {
	CharacterWPM         float64 `json:"characterWPM" yaml:"character_wpm" validate:"gte=15,lte=35"`
	FarnsworthWPM        float64 `json:"farnsworthWPM" yaml:"farnsworth_wpm" validate:"gte=3,lte=20"`
	ToneFrequencyHz      float64 `json:"toneFrequencyHz" yaml:"tone_frequency_hz" validate:"gte=400,lte=1000"`
	HapticEnabled        bool    `json:"hapticEnabled" yaml:"haptic_enabled"`
	AudioFeedbackEnabled bool    `json:"audioFeedbackEnabled" yaml:"audio_feedback_enabled"`
	SpeakAnswerEnabled   bool    `json:"speakAnswerEnabled" yaml:"speak_answer_enabled"`
	EyesClosedMode       bool    `json:"eyesClosedMode" yaml:"eyes_closed_mode"`
	LiveCopyLength       int     `json:"liveCopyLength" yaml:"live_copy_length" validate:"gte=5,lte=20"`
}

// DefaultSettings returns the out-of-the-box practice settings.
func DefaultSettings() Settings {
	return Settings{
		CharacterWPM:         20,
		FarnsworthWPM:        10,
		ToneFrequencyHz:      600,
		HapticEnabled:        true,
		AudioFeedbackEnabled: true,
		SpeakAnswerEnabled:   false,
		EyesClosedMode:       false,
		LiveCopyLength:       10,
	}
}

// Mode identifies a drill variant.
type Mode string

const (
	// ModeSingle drills one character at a time.
	ModeSingle Mode = "single"
	// ModeHeadCopy plays a sequence and takes input afterwards.
	ModeHeadCopy Mode = "head"
	// ModeLiveCopy takes input while the sequence plays.
	ModeLiveCopy Mode = "live"
)

// RoundRecord is one scored drill round, written to the rounds log.
type RoundRecord struct {
	SessionID     string
	Mode          Mode
	StartedAt     time.Time
	EndedAt       time.Time
	Sent          string
	Received      string
	Correct       int
	Incorrect     int
	EditDistance  int
	UnlockedCount int
	Attempts      []AttemptRecord
}

// AttemptRecord is one scored position of a round.
type AttemptRecord struct {
	Position int
	Expected string
	Answered string
	Correct  bool
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Mode        Mode
	Since       *time.Time
	Last        int
	CurveWindow int
}

// CharAggregate aggregates attempts on one glyph across rounds.
type CharAggregate struct {
	Char      string
	Correct   int
	Incorrect int
}

// RoundAggregate summarizes a round for reporting.
type RoundAggregate struct {
	RoundID       int64
	SessionID     string
	Mode          Mode
	EndedAt       time.Time
	Correct       int
	Incorrect     int
	EditDistance  int
	UnlockedCount int
}
