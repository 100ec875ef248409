package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/tuikoch/internal/clock"
	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
)

// State is the playback state machine.
type State int

const (
	// StateIdle means nothing is scheduled.
	StateIdle State = iota
	// StateArmed means a playback has been accepted and the device is ready.
	StateArmed
	// StatePlaying means elements are being keyed.
	StatePlaying
	// StateCancelled is left by an interrupted playback until the next one arms.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StatePlaying:
		return "playing"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Feedback tone shapes.
const (
	CorrectToneHz     = 880
	CorrectToneLength = 150 * time.Millisecond
	WrongToneHz       = 330
	WrongToneLength   = 300 * time.Millisecond
	WrongToneGap      = 100 * time.Millisecond
	WrongLowToneHz    = 220
	WrongLowLength    = 200 * time.Millisecond
	// SpeechDelay separates speech from the preceding feedback tone.
	SpeechDelay = 200 * time.Millisecond
)

const defaultAmplitude = 0.5

// Options configures a Player.
type Options struct {
	SampleRate int
	Clock      clock.Clock
	Haptics    Haptics
	Speaker    Speaker
	Logger     *slog.Logger
	// OnPlaying observes the isPlaying flag of sequence playback.
	OnPlaying func(playing bool)
	// OnDeviceError is told when the output device could not be opened.
	// Playback continues silently.
	OnDeviceError func(err error)
}

// Player schedules tones in lockstep with the Morse timing model.
type Player struct {
	gen     *ToneGenerator
	sink    Sink
	clock   clock.Clock
	haptics Haptics
	speaker Speaker
	logger  *slog.Logger

	onPlaying     func(bool)
	onDeviceError func(error)

	// playMu serializes runs; mu guards the fields below.
	playMu     sync.Mutex
	mu         sync.Mutex
	state      State
	playing    bool
	cancel     context.CancelFunc
	deviceOpen bool
	degraded   bool
	// stops counts Stop calls. A run armed across a Stop must not reopen
	// the device.
	stops uint64
}

type step struct {
	tone     bool
	freq     float64
	duration time.Duration
	symbol   morse.Symbol
}

// NewPlayer wires a tone generator to sink. Nil options fall back to no-op
// collaborators and the wall clock.
func NewPlayer(sink Sink, opts Options) *Player {
	if sink == nil {
		sink = NullSink{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Haptics == nil {
		opts.Haptics = NopHaptics{}
	}
	if opts.Speaker == nil {
		opts.Speaker = NopSpeaker{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Player{
		gen:           NewToneGenerator(opts.SampleRate, defaultAmplitude),
		sink:          sink,
		clock:         opts.Clock,
		haptics:       opts.Haptics,
		speaker:       opts.Speaker,
		logger:        opts.Logger.With("component", "player"),
		onPlaying:     opts.OnPlaying,
		onDeviceError: opts.OnDeviceError,
	}
}

// Generator exposes the oscillator shared with the render context.
func (p *Player) Generator() *ToneGenerator {
	return p.gen
}

// State returns the current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsPlaying reports whether a character sequence is being keyed.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Degraded reports whether the device failed to open.
func (p *Player) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// PlaySequence keys glyphs with the settings' speeds and pitch, pulsing
// haptics at every tone onset. It interrupts any playback in flight and
// blocks until done or cancelled.
func (p *Player) PlaySequence(ctx context.Context, glyphs []rune, settings model.Settings) error {
	timing := morse.NewTiming(settings.CharacterWPM, settings.FarnsworthWPM)
	elements := morse.Timeline(glyphs, timing)
	steps := make([]step, 0, len(elements))
	for _, e := range elements {
		steps = append(steps, step{
			tone:     e.Tone,
			freq:     settings.ToneFrequencyHz,
			duration: e.Duration,
			symbol:   e.Symbol,
		})
	}
	return p.run(ctx, steps, settings.HapticEnabled, true)
}

// PlayFeedbackTone plays the correct or wrong signature.
func (p *Player) PlayFeedbackTone(ctx context.Context, correct bool, settings model.Settings) error {
	if settings.HapticEnabled {
		if correct {
			p.haptics.Pulse(Light)
		} else {
			p.haptics.Pulse(Medium)
		}
	}
	return p.run(ctx, feedbackSteps(correct), false, false)
}

// feedbackSteps returns the tone shape for an answer.
func feedbackSteps(correct bool) []step {
	if correct {
		return []step{{tone: true, freq: CorrectToneHz, duration: CorrectToneLength}}
	}
	return []step{
		{tone: true, freq: WrongToneHz, duration: WrongToneLength},
		{tone: false, freq: WrongToneHz, duration: WrongToneGap},
		{tone: true, freq: WrongLowToneHz, duration: WrongLowLength},
	}
}

// SpeakAnswer announces a glyph after SpeechDelay. Punctuation is spoken by name.
func (p *Player) SpeakAnswer(ctx context.Context, glyph rune) error {
	return p.Speak(ctx, morse.SpokenName(glyph))
}

// Speak says text after SpeechDelay unless ctx is cancelled first.
func (p *Player) Speak(ctx context.Context, text string) error {
	if err := p.clock.Sleep(ctx, SpeechDelay); err != nil {
		return err
	}
	if err := p.speaker.Speak(text); err != nil {
		p.logger.Warn("speech failed", "error", err)
		return err
	}
	return nil
}

// Cancel interrupts the playback in flight. Output goes silent at once.
func (p *Player) Cancel() {
	p.gen.SetTone(false)
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop cancels playback and releases the output device. Repeated calls are
// no-ops.
func (p *Player) Stop() error {
	p.Cancel()
	p.mu.Lock()
	open := p.deviceOpen
	p.deviceOpen = false
	p.degraded = false
	p.stops++
	p.mu.Unlock()
	if !open {
		return nil
	}
	if err := p.sink.Close(); err != nil {
		p.logger.Warn("failed to release audio device", "error", err)
		return err
	}
	return nil
}

func (p *Player) run(ctx context.Context, steps []step, haptic, track bool) error {
	p.mu.Lock()
	stops := p.stops
	p.mu.Unlock()
	p.Cancel()
	p.playMu.Lock()
	defer p.playMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.arm(runCtx, cancel, stops); err != nil {
		p.logger.Debug("playback dropped before start", "error", err)
		return err
	}

	if track {
		p.setPlaying(true)
	}
	err := p.key(runCtx, steps, haptic)
	p.gen.SetTone(false)

	p.mu.Lock()
	p.cancel = nil
	if err != nil {
		p.state = StateCancelled
	} else {
		p.state = StateIdle
	}
	p.mu.Unlock()
	if track {
		p.setPlaying(false)
	}
	if errors.Is(err, context.Canceled) {
		p.logger.Debug("playback cancelled")
	}
	return err
}

func (p *Player) arm(ctx context.Context, cancel context.CancelFunc, stops uint64) error {
	p.mu.Lock()
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.stops != stops {
		p.mu.Unlock()
		return context.Canceled
	}
	p.cancel = cancel
	p.state = StateArmed
	var deviceErr error
	if !p.deviceOpen && !p.degraded {
		if err := p.sink.Open(p.gen, p.gen.SampleRate()); err != nil {
			p.degraded = true
			deviceErr = err
		} else {
			p.deviceOpen = true
		}
	}
	p.mu.Unlock()
	if deviceErr != nil {
		p.logger.Error("audio output unavailable, continuing silently", "error", deviceErr)
		if p.onDeviceError != nil {
			p.onDeviceError(deviceErr)
		}
	}
	return nil
}

func (p *Player) key(ctx context.Context, steps []step, haptic bool) error {
	p.mu.Lock()
	p.state = StatePlaying
	p.mu.Unlock()
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.tone {
			p.gen.SetFrequency(s.freq)
			p.gen.SetTone(true)
			if haptic {
				p.haptics.Pulse(symbolIntensity(s.symbol))
			}
		}
		err := p.clock.Sleep(ctx, s.duration)
		p.gen.SetTone(false)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) setPlaying(playing bool) {
	p.mu.Lock()
	changed := p.playing != playing
	p.playing = playing
	p.mu.Unlock()
	if changed && p.onPlaying != nil {
		p.onPlaying(playing)
	}
}

func symbolIntensity(s morse.Symbol) Intensity {
	if s == morse.Dah {
		return Medium
	}
	return Light
}
