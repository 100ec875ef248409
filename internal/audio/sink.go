package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink streams mono float samples from src to an output device.
type Sink interface {
	// Open starts pulling samples. Opening an open sink is a no-op.
	Open(src io.Reader, sampleRate int) error
	// Close stops pulling and releases the device. It is idempotent.
	Close() error
}

// NullSink discards audio. It backs the degraded mode and headless tests.
type NullSink struct{}

// Open implements Sink.
func (NullSink) Open(io.Reader, int) error { return nil }

// Close implements Sink.
func (NullSink) Close() error { return nil }

// OtoSink plays through the system audio device.
type OtoSink struct {
	// BufferSize is the device buffer; zero lets the driver decide.
	BufferSize time.Duration

	mu     sync.Mutex
	ctx    *oto.Context
	rate   int
	player *oto.Player
}

// NewOtoSink returns a sink with a short buffer so keying stays tight.
func NewOtoSink() *OtoSink {
	return &OtoSink{BufferSize: 20 * time.Millisecond}
}

// Open implements Sink. The process-wide device context is created once and
// resumed on later opens.
func (s *OtoSink) Open(src io.Reader, sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		return nil
	}
	if s.ctx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   s.BufferSize,
		})
		if err != nil {
			return fmt.Errorf("failed to open audio device: %w", err)
		}
		<-ready
		s.ctx = ctx
		s.rate = sampleRate
	} else {
		if s.rate != sampleRate {
			return fmt.Errorf("audio device already opened at %d Hz", s.rate)
		}
		if err := s.ctx.Resume(); err != nil {
			return fmt.Errorf("failed to resume audio device: %w", err)
		}
	}
	player := s.ctx.NewPlayer(src)
	player.Play()
	s.player = player
	return nil
}

// Close implements Sink.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	s.player.Pause()
	err := s.player.Close()
	s.player = nil
	if serr := s.ctx.Suspend(); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		return fmt.Errorf("failed to release audio device: %w", err)
	}
	return nil
}
