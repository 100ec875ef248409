// Package tui provides the Bubble Tea drill interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuikoch/internal/audio"
	"github.com/verte-zerg/tuikoch/internal/drill"
	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
)

const pulseVisible = 90 * time.Millisecond

// Drill is the controller surface the UI drives.
type Drill interface {
	Answer(glyph rune) bool
	Replay() bool
	Skip() bool
	DeleteLast() bool
	Stop() error
	View() drill.View
}

type eventsMsg []drill.Event

type pulseMsg audio.Intensity

type pulseDoneMsg struct{ seq int }

// Model implements the Bubble Tea drill UI.
type Model struct {
	drill  Drill
	mode   model.Mode
	events *EventBridge
	pulses *PulseBridge

	width  int
	height int

	view     drill.View
	notice   string
	errText  string
	pulse    string
	pulseSeq int
	quitting bool
}

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle    = pendingStyle.Copy().Underline(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	pulseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

// NewModel constructs a drill TUI model. The controller must already be
// started with events wired to the bridge.
func NewModel(d Drill, mode model.Mode, events *EventBridge, pulses *PulseBridge) *Model {
	return &Model{
		drill:  d,
		mode:   mode,
		events: events,
		pulses: pulses,
		view:   d.View(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.events.Wait(), m.pulses.Wait())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case eventsMsg:
		for _, ev := range msg {
			m.applyEvent(ev)
		}
		if m.quitting {
			return m, nil
		}
		return m, m.events.Wait()
	case pulseMsg:
		m.pulseSeq++
		seq := m.pulseSeq
		m.pulse = "•"
		if audio.Intensity(msg) == audio.Medium {
			m.pulse = "━"
		}
		return m, tea.Batch(
			m.pulses.Wait(),
			tea.Tick(pulseVisible, func(time.Time) tea.Msg { return pulseDoneMsg{seq: seq} }),
		)
	case pulseDoneMsg:
		if msg.seq == m.pulseSeq {
			m.pulse = ""
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		if err := m.drill.Stop(); err != nil {
			m.errText = err.Error()
		}
		return tea.Quit
	case tea.KeyTab:
		m.drill.Replay()
	case tea.KeyEnter:
		m.notice = ""
		m.drill.Skip()
	case tea.KeyBackspace, tea.KeyDelete:
		m.drill.DeleteLast()
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.drill.Answer(r)
		}
	}
	return nil
}

func (m *Model) applyEvent(ev drill.Event) {
	// Host-reported errors carry no snapshot.
	if ev.Kind != drill.EventError || ev.View.Active {
		m.view = ev.View
	}
	switch ev.Kind {
	case drill.EventRoundStarted:
		m.errText = ""
	case drill.EventUnlocked:
		m.notice = unlockNotice(ev.View.JustUnlocked)
	case drill.EventError:
		if ev.Err != nil {
			m.errText = ev.Err.Error()
		}
	case drill.EventStopped:
		m.quitting = true
	}
}

func unlockNotice(glyph rune) string {
	if glyph == 0 {
		return ""
	}
	notice := fmt.Sprintf("New character: %s", morse.SpokenName(glyph))
	if ch, ok := morse.Lookup(glyph); ok {
		notice += "  " + ch.Pattern()
	}
	return notice
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return m.renderBody() + "\n" + footer
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	content := lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(m.renderBodyWidth(contentWidth))
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderBody() string {
	return m.renderBodyWidth(0)
}

func (m *Model) renderBodyWidth(width int) string {
	v := m.view
	lines := []string{m.statusLine()}
	if v.Scored && !v.EyesClosed {
		lines = append(lines, wrapStyledRunes(buildTargetCells(v.Target, v.Results), width))
	}
	if !v.EyesClosed || !v.Scored {
		lines = append(lines, wrapStyledRunes(buildAnswerCells(v.Answers, v.Length, v.Results, v.Scored), width))
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	if m.errText != "" {
		lines = append(lines, incorrectStyle.Render(m.errText))
	}
	return strings.Join(lines, "\n\n")
}

func (m *Model) statusLine() string {
	v := m.view
	pulse := m.pulse
	if pulse == "" {
		pulse = " "
	}
	var status string
	switch {
	case v.Scored:
		status = fmt.Sprintf("%d/%d correct · enter to continue", v.CorrectCount(), v.Length)
	case v.Playing && !v.AcceptingInput:
		status = "listening…"
	case v.Playing:
		status = "copy as you hear"
	default:
		status = "type what you heard · tab replays"
	}
	return pulseStyle.Render(pulse) + " " + footerStyle.Render(modeLabel(m.mode)+" · "+status)
}

func modeLabel(mode model.Mode) string {
	switch mode {
	case model.ModeHeadCopy:
		return "Head copy"
	case model.ModeLiveCopy:
		return "Live copy"
	default:
		return "Single"
	}
}

func (m *Model) renderFooter() string {
	v := m.view
	newest := ""
	if v.NewestGlyph != 0 {
		newest = " · newest " + string(v.NewestGlyph)
	}
	segments := []string{
		fmt.Sprintf("Session %d/%d · %.1f%%", v.SessionCorrect, v.SessionTotal, v.SessionAccuracy),
		fmt.Sprintf("Streak %d (best %d)", v.CurrentStreak, v.BestStreak),
		fmt.Sprintf("Unlocked %d/%d%s", v.UnlockedCount, morse.CharacterCount, newest),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
