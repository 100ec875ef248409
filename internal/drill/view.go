package drill

import "github.com/verte-zerg/tuikoch/internal/model"

// EventKind classifies controller events.
type EventKind int

const (
	// EventRoundStarted announces a new target.
	EventRoundStarted EventKind = iota
	// EventPlayback reports a change of the playing flag.
	EventPlayback
	// EventInput reports a changed answer buffer.
	EventInput
	// EventScored reports a graded round.
	EventScored
	// EventUnlocked reports newly unlocked glyphs; View.JustUnlocked is set.
	EventUnlocked
	// EventError reports a persistence failure. The session goes on.
	EventError
	// EventStopped is the last event of a session.
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventRoundStarted:
		return "round-started"
	case EventPlayback:
		return "playback"
	case EventInput:
		return "input"
	case EventScored:
		return "scored"
	case EventUnlocked:
		return "unlocked"
	case EventError:
		return "error"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Result grades one position.
type Result int

const (
	// Pending means not yet scored.
	Pending Result = iota
	// Correct means the answer matched.
	Correct
	// Incorrect means a wrong or missing answer.
	Incorrect
)

// Event is delivered to the observer with a snapshot of the view.
type Event struct {
	Kind EventKind
	View View
	Err  error
}

// View is a read-only snapshot of the drill.
type View struct {
	Active bool
	Mode   model.Mode
	// Length is the number of positions in the round.
	Length int
	// Target is revealed once the round is scored.
	Target  []rune
	Word    bool
	Answers []rune
	// Results is nil until the round is scored.
	Results        []Result
	Scored         bool
	Playing        bool
	AcceptingInput bool
	EyesClosed     bool
	JustUnlocked   rune

	Available       []rune
	NewestGlyph     rune
	UnlockedCount   int
	SessionCorrect  int
	SessionTotal    int
	SessionAccuracy float64
	CurrentStreak   int
	BestStreak      int
}

// CorrectCount returns how many positions scored correct.
func (v View) CorrectCount() int {
	n := 0
	for _, r := range v.Results {
		if r == Correct {
			n++
		}
	}
	return n
}

func (c *Controller) event(kind EventKind) Event {
	return Event{Kind: kind, View: c.view()}
}

func (c *Controller) view() View {
	v := View{
		Active:          c.active,
		Mode:            c.mode,
		Length:          len(c.round.target),
		Word:            c.round.word,
		Answers:         append([]rune(nil), c.round.answers...),
		Scored:          c.round.scored,
		Playing:         c.round.playing,
		AcceptingInput:  c.acceptsInput(),
		EyesClosed:      c.settings.EyesClosedMode,
		JustUnlocked:    c.round.justUnlocked,
		Available:       c.state.AvailableCharacters(),
		NewestGlyph:     c.state.NewestGlyph(),
		UnlockedCount:   c.state.UnlockedCount,
		SessionCorrect:  c.state.SessionCorrect,
		SessionTotal:    c.state.SessionTotal,
		SessionAccuracy: c.state.SessionAccuracy(),
		CurrentStreak:   c.state.CurrentStreak,
		BestStreak:      c.state.BestStreak,
	}
	if c.round.scored {
		v.Target = append([]rune(nil), c.round.target...)
		v.Results = append([]Result(nil), c.round.results...)
	}
	return v
}

