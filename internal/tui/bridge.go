package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuikoch/internal/audio"
	"github.com/verte-zerg/tuikoch/internal/drill"
)

// EventBridge queues controller events for the UI loop. Observe never
// blocks, so the controller is never held up by rendering.
type EventBridge struct {
	mu      sync.Mutex
	pending []drill.Event
	notify  chan struct{}
}

// NewEventBridge returns an empty bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{notify: make(chan struct{}, 1)}
}

// Observe is the controller observer.
func (b *EventBridge) Observe(ev drill.Event) {
	b.mu.Lock()
	b.pending = append(b.pending, ev)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// ReportError surfaces an error outside the controller, such as a failed
// audio device.
func (b *EventBridge) ReportError(err error) {
	b.Observe(drill.Event{Kind: drill.EventError, Err: err})
}

func (b *EventBridge) drain() []drill.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

// Wait returns a command that delivers the queued events.
func (b *EventBridge) Wait() tea.Cmd {
	return func() tea.Msg {
		for {
			<-b.notify
			if events := b.drain(); len(events) > 0 {
				return eventsMsg(events)
			}
		}
	}
}

// PulseBridge shows haptic pulses in the terminal. Pulses arriving faster
// than the UI drains them are dropped.
type PulseBridge struct {
	ch chan audio.Intensity
}

// NewPulseBridge returns a bridge with a small buffer.
func NewPulseBridge() *PulseBridge {
	return &PulseBridge{ch: make(chan audio.Intensity, 8)}
}

// Pulse implements audio.Haptics.
func (b *PulseBridge) Pulse(i audio.Intensity) {
	select {
	case b.ch <- i:
	default:
	}
}

// Wait returns a command that delivers the next pulse.
func (b *PulseBridge) Wait() tea.Cmd {
	return func() tea.Msg {
		return pulseMsg(<-b.ch)
	}
}
