package audio

import (
	"fmt"
	"os/exec"
)

// Intensity is the strength of a haptic pulse.
type Intensity int

const (
	// Light marks a dit or a correct answer.
	Light Intensity = iota
	// Medium marks a dah or a wrong answer.
	Medium
)

func (i Intensity) String() string {
	if i == Medium {
		return "medium"
	}
	return "light"
}

// Haptics fires short pulses. Implementations must not block.
//
//go:generate mockgen -source=feedback.go -destination=mock_feedback_test.go -package=audio
type Haptics interface {
	Pulse(intensity Intensity)
}

// Speaker says short text aloud. Implementations must not block on speech.
type Speaker interface {
	Speak(text string) error
}

// NopHaptics ignores pulses.
type NopHaptics struct{}

// Pulse implements Haptics.
func (NopHaptics) Pulse(Intensity) {}

// HapticsFunc adapts a function to Haptics.
type HapticsFunc func(Intensity)

// Pulse implements Haptics.
func (f HapticsFunc) Pulse(i Intensity) { f(i) }

// NopSpeaker ignores speech.
type NopSpeaker struct{}

// Speak implements Speaker.
func (NopSpeaker) Speak(string) error { return nil }

// speechCommands are tried in order by NewCommandSpeaker.
var speechCommands = [][]string{
	{"espeak-ng", "-s", "170"},
	{"espeak", "-s", "170"},
	{"spd-say", "-w"},
	{"say"},
}

// CommandSpeaker speaks through a text-to-speech binary.
type CommandSpeaker struct {
	argv []string
}

// NewCommandSpeaker finds an installed TTS command. It returns false when
// none is available.
func NewCommandSpeaker() (*CommandSpeaker, bool) {
	for _, argv := range speechCommands {
		if path, err := exec.LookPath(argv[0]); err == nil {
			full := append([]string{path}, argv[1:]...)
			return &CommandSpeaker{argv: full}, true
		}
	}
	return nil, false
}

// Speak implements Speaker. The process is reaped in the background.
func (s *CommandSpeaker) Speak(text string) error {
	args := append(append([]string(nil), s.argv[1:]...), text)
	cmd := exec.Command(s.argv[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start speech: %w", err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
