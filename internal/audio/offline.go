package audio

import (
	"math"
	"time"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
)

// RenderOffline synthesizes glyphs into a mono buffer. Element edges are
// placed on sample boundaries computed from cumulative time, so rounding
// never accumulates drift over long sequences.
func RenderOffline(glyphs []rune, settings model.Settings, sampleRate int) []float32 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	timing := morse.NewTiming(settings.CharacterWPM, settings.FarnsworthWPM)
	elements := morse.Timeline(glyphs, timing)

	total := samplesAt(morse.TotalDuration(elements), sampleRate)
	out := make([]float32, total)

	gen := NewToneGenerator(sampleRate, defaultAmplitude)
	gen.SetFrequency(settings.ToneFrequencyHz)

	var elapsed time.Duration
	start := 0
	for _, e := range elements {
		elapsed += e.Duration
		end := samplesAt(elapsed, sampleRate)
		if end > total {
			end = total
		}
		gen.SetTone(e.Tone)
		gen.Render(out[start:end])
		start = end
	}
	return out
}

func samplesAt(d time.Duration, sampleRate int) int {
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}
