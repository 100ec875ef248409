// Package audio synthesizes Morse tones and schedules playback with haptic
// and speech side channels.
package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// DefaultSampleRate is used when the host does not pick one.
const DefaultSampleRate = 44100

const twoPi = 2 * math.Pi

// ToneGenerator is a continuous-phase sine oscillator. The control side only
// stores into the atomic fields; the phase belongs to the render context.
// Render and Read never lock, allocate or block.
type ToneGenerator struct {
	sampleRate float64
	amplitude  float64

	on   atomic.Bool
	freq atomic.Uint64

	phase float64
}

// NewToneGenerator returns a silent generator.
func NewToneGenerator(sampleRate int, amplitude float64) *ToneGenerator {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	g := &ToneGenerator{sampleRate: float64(sampleRate), amplitude: amplitude}
	g.SetFrequency(600)
	return g
}

// SampleRate returns the render rate in Hz.
func (g *ToneGenerator) SampleRate() int {
	return int(g.sampleRate)
}

// SetFrequency changes the pitch; the phase carries over.
func (g *ToneGenerator) SetFrequency(hz float64) {
	g.freq.Store(math.Float64bits(hz))
}

// Frequency returns the current pitch.
func (g *ToneGenerator) Frequency() float64 {
	return math.Float64frombits(g.freq.Load())
}

// SetTone keys the tone on or off.
func (g *ToneGenerator) SetTone(on bool) {
	g.on.Store(on)
}

// ToneOn reports whether the tone is keyed.
func (g *ToneGenerator) ToneOn() bool {
	return g.on.Load()
}

// Render fills out with mono samples. While the tone is off the output is
// zero and the phase does not advance.
func (g *ToneGenerator) Render(out []float32) {
	if !g.on.Load() {
		for i := range out {
			out[i] = 0
		}
		return
	}
	step := twoPi * g.Frequency() / g.sampleRate
	for i := range out {
		out[i] = float32(g.amplitude * math.Sin(g.phase))
		g.phase += step
		if g.phase >= twoPi {
			g.phase -= twoPi
		}
	}
}

// Read streams float32 little-endian samples for device players. It never
// returns EOF; silence is streamed while the tone is off.
func (g *ToneGenerator) Read(p []byte) (int, error) {
	n := len(p) / 4
	on := g.on.Load()
	step := twoPi * g.Frequency() / g.sampleRate
	for i := 0; i < n; i++ {
		var v float32
		if on {
			v = float32(g.amplitude * math.Sin(g.phase))
			g.phase += step
			if g.phase >= twoPi {
				g.phase -= twoPi
			}
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}
