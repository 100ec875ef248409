// Package config provides configuration helpers and TOML parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/tuikoch/internal/model"
)

// ErrInvalidSettings wraps every range violation reported by ValidateSettings.
var ErrInvalidSettings = errors.New("invalid settings")

var validate = validator.New()

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
}

// PracticeConfig maps practice-related settings. Nil fields are unset.
type PracticeConfig struct {
	CharacterWPM   *float64 `toml:"wpm"`
	FarnsworthWPM  *float64 `toml:"farnsworth"`
	ToneHz         *float64 `toml:"tone"`
	Haptics        *bool    `toml:"haptics"`
	AudioFeedback  *bool    `toml:"audio-feedback"`
	SpeakAnswer    *bool    `toml:"speak"`
	EyesClosed     *bool    `toml:"eyes-closed"`
	LiveCopyLength *int     `toml:"live-length"`
	Words          *string  `toml:"words"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the set fields onto settings.
func (p PracticeConfig) Apply(settings model.Settings) model.Settings {
	if p.CharacterWPM != nil {
		settings.CharacterWPM = *p.CharacterWPM
	}
	if p.FarnsworthWPM != nil {
		settings.FarnsworthWPM = *p.FarnsworthWPM
	}
	if p.ToneHz != nil {
		settings.ToneFrequencyHz = *p.ToneHz
	}
	if p.Haptics != nil {
		settings.HapticEnabled = *p.Haptics
	}
	if p.AudioFeedback != nil {
		settings.AudioFeedbackEnabled = *p.AudioFeedback
	}
	if p.SpeakAnswer != nil {
		settings.SpeakAnswerEnabled = *p.SpeakAnswer
	}
	if p.EyesClosed != nil {
		settings.EyesClosedMode = *p.EyesClosed
	}
	if p.LiveCopyLength != nil {
		settings.LiveCopyLength = *p.LiveCopyLength
	}
	return settings
}

// ValidateSettings checks the host-facing ranges of settings.
func ValidateSettings(settings model.Settings) error {
	err := validate.Struct(settings)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), describeTag(fe.Tag()), fe.Param()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
}

func describeTag(tag string) string {
	switch tag {
	case "gte":
		return ">="
	case "lte":
		return "<="
	default:
		return tag
	}
}

// Template is written by `tuikoch config` when no file exists yet.
const Template = `# tuikoch configuration. Unset keys fall back to saved settings.
[practice]
# Character speed in WPM (15-35).
# wpm = 20
# Effective (Farnsworth) speed in WPM (3-20).
# farnsworth = 10
# Tone pitch in Hz (400-1000).
# tone = 600
# haptics = true
# audio-feedback = true
# speak = false
# eyes-closed = false
# Live copy group length (5-20).
# live-length = 10
# Word list for word-mode head copy.
# words = "~/.config/tuikoch/words.txt"
`
