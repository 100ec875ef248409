// Package drill runs practice rounds: select, play, collect input, score,
// unlock and advance.
package drill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/verte-zerg/tuikoch/internal/clock"
	"github.com/verte-zerg/tuikoch/internal/generator"
	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
	"github.com/verte-zerg/tuikoch/internal/progress"
)

// ErrSessionActive is returned by Start while a drill is running.
var ErrSessionActive = errors.New("drill: session already active")

// Delays between scoring and the next round.
const (
	SingleAdvanceDelay       = 800 * time.Millisecond
	SingleSpeechAdvanceDelay = 1600 * time.Millisecond
	SequenceAdvanceDelay     = 2500 * time.Millisecond
	// GracePeriod is how long a sequence round waits for input after playback.
	GracePeriod = 1500 * time.Millisecond
)

// Player is the playback side the controller drives.
type Player interface {
	PlaySequence(ctx context.Context, glyphs []rune, settings model.Settings) error
	PlayFeedbackTone(ctx context.Context, correct bool, settings model.Settings) error
	SpeakAnswer(ctx context.Context, glyph rune) error
	Speak(ctx context.Context, text string) error
	Stop() error
}

// Store persists progress and the rounds log.
type Store interface {
	SaveProgress(ctx context.Context, state progress.State) error
	RecordRound(ctx context.Context, round model.RoundRecord) (int64, error)
}

// Options configures a Controller.
type Options struct {
	Player    Player
	Store     Store
	Generator *generator.Generator
	Clock     clock.Clock
	Logger    *slog.Logger
	Policy    *progress.Policy
	// Words enables word-mode head copy when non-empty.
	Words []string
	// Observer receives every event in order. It must not call back into
	// the controller synchronously.
	Observer func(Event)
}

// Controller owns one drill session at a time.
type Controller struct {
	player   Player
	store    Store
	gen      *generator.Generator
	clock    clock.Clock
	logger   *slog.Logger
	policy   progress.Policy
	words    []string
	observer func(Event)

	// mu guards everything below; dispatchMu keeps observer delivery in
	// mutation order.
	mu         sync.Mutex
	dispatchMu sync.Mutex
	persistMu  sync.Mutex

	state     *progress.State
	settings  model.Settings
	active    bool
	mode      model.Mode
	sessionID string

	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	roundCtx      context.Context
	roundCancel   context.CancelFunc
	playCancel    context.CancelFunc
	advanceTimer  clock.Timer
	graceTimer    clock.Timer

	roundToken uint64
	playToken  uint64
	round      round
}

type round struct {
	target       []rune
	answers      []rune
	results      []Result
	playing      bool
	played       bool
	scored       bool
	word         bool
	justUnlocked rune
	startedAt    time.Time
}

type persistJob struct {
	state progress.State
	round model.RoundRecord
}

// New returns an idle controller over state. The controller mutates state;
// callers read it back through Progress.
func New(state *progress.State, settings model.Settings, opts Options) *Controller {
	if state == nil {
		state = progress.NewState()
	}
	if opts.Generator == nil {
		opts.Generator = generator.New()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	policy := progress.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	return &Controller{
		player:   opts.Player,
		store:    opts.Store,
		gen:      opts.Generator,
		clock:    opts.Clock,
		logger:   opts.Logger.With("component", "drill"),
		policy:   policy,
		words:    opts.Words,
		observer: opts.Observer,
		state:    state,
		settings: settings,
	}
}

// Start begins a session in mode and plays the first round.
func (c *Controller) Start(mode model.Mode) error {
	switch mode {
	case model.ModeSingle, model.ModeHeadCopy, model.ModeLiveCopy:
	default:
		return fmt.Errorf("unknown drill mode %q", mode)
	}
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrSessionActive
	}
	now := c.clock.Now()
	if c.state.StartSession(now) {
		c.logger.Info("session counters reset after idle period")
	}
	c.active = true
	c.mode = mode
	c.sessionID = uuid.NewString()
	c.sessionCtx, c.sessionCancel = context.WithCancel(context.Background())
	c.logger.Info("drill started", "mode", mode, "session", c.sessionID, "unlocked", c.state.UnlockedCount)
	events := c.nextRound()
	c.unlockAndDispatch(events)
	return nil
}

// Stop cancels all outstanding work, silences output and releases the
// device. Calling Stop on an idle controller is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = false
	c.cancelRound()
	c.roundToken++
	c.sessionCancel()
	c.round.playing = false
	c.logger.Info("drill stopped", "session", c.sessionID)
	events := []Event{c.event(EventStopped)}
	c.unlockAndDispatch(events)

	if c.player != nil {
		if err := c.player.Stop(); err != nil {
			return fmt.Errorf("failed to stop playback: %w", err)
		}
	}
	return nil
}

// Answer feeds one typed glyph. It reports whether the input was accepted.
func (c *Controller) Answer(glyph rune) bool {
	c.mu.Lock()
	if !c.acceptsInput() {
		c.mu.Unlock()
		return false
	}
	g := morse.Normalize(glyph)
	if !c.state.IsAvailable(g) {
		c.mu.Unlock()
		return false
	}
	c.round.answers = append(c.round.answers, g)
	events := []Event{c.event(EventInput)}
	var job *persistJob
	if len(c.round.answers) == len(c.round.target) {
		var scored []Event
		scored, job = c.score()
		events = append(events, scored...)
	}
	c.unlockAndDispatch(events)
	c.persist(job)
	return true
}

// DeleteLast removes the most recent answer of an unscored round.
func (c *Controller) DeleteLast() bool {
	c.mu.Lock()
	if !c.active || c.round.scored || len(c.round.answers) == 0 {
		c.mu.Unlock()
		return false
	}
	c.round.answers = c.round.answers[:len(c.round.answers)-1]
	c.unlockAndDispatch([]Event{c.event(EventInput)})
	return true
}

// Replay plays the current target again. Scored rounds are not replayed.
func (c *Controller) Replay() bool {
	c.mu.Lock()
	if !c.active || c.round.scored {
		c.mu.Unlock()
		return false
	}
	events := c.startPlayback()
	c.unlockAndDispatch(events)
	return true
}

// Skip abandons the current round without scoring it, or cuts the
// post-score delay short.
func (c *Controller) Skip() bool {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return false
	}
	events := c.nextRound()
	c.unlockAndDispatch(events)
	return true
}

// SetSettings replaces the settings used from the next playback on.
func (c *Controller) SetSettings(settings model.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// IsPlaying reports whether the current target is being keyed.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round.playing
}

// Progress returns a copy of the learner's progress.
func (c *Controller) Progress() progress.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// View returns the current observable state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

func (c *Controller) acceptsInput() bool {
	if !c.active || c.round.scored || len(c.round.answers) >= len(c.round.target) {
		return false
	}
	switch c.mode {
	case model.ModeSingle:
		return !c.round.playing
	case model.ModeHeadCopy:
		return c.round.played && !c.round.playing
	default:
		return true
	}
}

func (c *Controller) nextRound() []Event {
	c.cancelRound()
	c.roundToken++
	c.roundCtx, c.roundCancel = context.WithCancel(c.sessionCtx)
	target, word := c.pickTarget()
	c.round = round{
		target:    target,
		word:      word,
		startedAt: c.clock.Now(),
	}
	c.logger.Debug("round started", "mode", c.mode, "length", len(target), "word", word)
	events := []Event{c.event(EventRoundStarted)}
	return append(events, c.startPlayback()...)
}

func (c *Controller) pickTarget() ([]rune, bool) {
	switch c.mode {
	case model.ModeHeadCopy:
		available := len(c.state.AvailableCharacters())
		if len(c.words) > 0 {
			if word, ok := c.gen.Word(c.words, c.state, generator.HeadCopyMaxLength(available)); ok {
				return word, true
			}
		}
		return c.gen.Sequence(c.state, c.gen.HeadCopyLength(available)), false
	case model.ModeLiveCopy:
		length := c.settings.LiveCopyLength
		if length < 1 {
			length = model.DefaultSettings().LiveCopyLength
		}
		if length > generator.MaxSequenceLength {
			length = generator.MaxSequenceLength
		}
		return c.gen.Sequence(c.state, length), false
	default:
		r, ok := c.gen.Character(c.state)
		if !ok {
			return nil, false
		}
		return []rune{r}, false
	}
}

func (c *Controller) startPlayback() []Event {
	if c.playCancel != nil {
		c.playCancel()
	}
	stopTimer(&c.graceTimer)
	c.playToken++
	ctx, cancel := context.WithCancel(c.roundCtx)
	c.playCancel = cancel
	c.round.playing = true
	if c.player == nil {
		c.round.playing = false
		c.round.played = true
		c.armGrace()
		return []Event{c.event(EventPlayback)}
	}
	go c.play(ctx, c.roundToken, c.playToken, append([]rune(nil), c.round.target...), c.settings)
	return []Event{c.event(EventPlayback)}
}

func (c *Controller) play(ctx context.Context, roundToken, playToken uint64, glyphs []rune, settings model.Settings) {
	err := c.player.PlaySequence(ctx, glyphs, settings)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("playback failed", "error", err)
	}
	c.mu.Lock()
	if !c.active || roundToken != c.roundToken || playToken != c.playToken {
		c.mu.Unlock()
		return
	}
	c.round.playing = false
	c.round.played = true
	c.playCancel = nil
	if !c.round.scored {
		c.armGrace()
	}
	c.unlockAndDispatch([]Event{c.event(EventPlayback)})
}

func (c *Controller) armGrace() {
	if c.mode == model.ModeSingle {
		return
	}
	stopTimer(&c.graceTimer)
	token := c.roundToken
	c.graceTimer = c.clock.AfterFunc(GracePeriod, func() { c.graceElapsed(token) })
}

func (c *Controller) graceElapsed(token uint64) {
	c.mu.Lock()
	if !c.active || token != c.roundToken || c.round.scored || c.round.playing {
		c.mu.Unlock()
		return
	}
	c.graceTimer = nil
	events, job := c.score()
	c.unlockAndDispatch(events)
	c.persist(job)
}

// score grades every position, unfilled ones as incorrect, and schedules
// feedback and the next round.
func (c *Controller) score() ([]Event, *persistJob) {
	stopTimer(&c.graceTimer)
	if c.playCancel != nil {
		c.playCancel()
		c.playCancel = nil
	}
	c.round.playing = false

	now := c.clock.Now()
	before := c.state.UnlockedCount
	target := c.round.target
	results := make([]Result, len(target))
	attempts := make([]model.AttemptRecord, len(target))
	var unlocked []rune
	correct := 0
	for i, want := range target {
		var got rune
		if i < len(c.round.answers) {
			got = c.round.answers[i]
		}
		ok := got == want
		delta := c.state.RecordAttemptWithPolicy(want, ok, now, c.policy)
		unlocked = append(unlocked, delta.Glyphs...)
		results[i] = Incorrect
		if ok {
			results[i] = Correct
			correct++
		}
		answered := ""
		if got != 0 {
			answered = string(got)
		}
		attempts[i] = model.AttemptRecord{Position: i, Expected: string(want), Answered: answered, Correct: ok}
	}
	c.round.results = results
	c.round.scored = true
	if c.state.UnlockedCount > before && len(unlocked) > 0 {
		c.round.justUnlocked = unlocked[len(unlocked)-1]
	}

	sent := string(target)
	received := string(c.round.answers)
	record := model.RoundRecord{
		SessionID:     c.sessionID,
		Mode:          c.mode,
		StartedAt:     c.round.startedAt,
		EndedAt:       now,
		Sent:          sent,
		Received:      received,
		Correct:       correct,
		Incorrect:     len(target) - correct,
		EditDistance:  levenshtein.ComputeDistance(sent, received),
		UnlockedCount: c.state.UnlockedCount,
		Attempts:      attempts,
	}
	c.logger.Info("round scored",
		"mode", c.mode,
		"sent", sent,
		"received", received,
		"correct", correct,
		"total", len(target),
		"unlocked", c.state.UnlockedCount)

	events := []Event{c.event(EventScored)}
	if c.round.justUnlocked != 0 {
		c.logger.Info("glyph unlocked", "glyph", string(c.round.justUnlocked), "unlocked", c.state.UnlockedCount)
		events = append(events, c.event(EventUnlocked))
	}

	allCorrect := correct == len(target)
	speak := c.settings.SpeakAnswerEnabled || c.settings.EyesClosedMode
	if c.player != nil {
		go c.feedback(c.roundCtx, allCorrect, speak, correct, append([]rune(nil), target...), c.settings)
	}
	c.scheduleAdvance(speak)

	return events, &persistJob{state: c.state.Clone(), round: record}
}

func (c *Controller) feedback(ctx context.Context, correct, speak bool, correctCount int, target []rune, settings model.Settings) {
	if settings.AudioFeedbackEnabled {
		if err := c.player.PlayFeedbackTone(ctx, correct, settings); err != nil {
			return
		}
	}
	if !speak {
		return
	}
	var err error
	if len(target) == 1 {
		err = c.player.SpeakAnswer(ctx, target[0])
	} else {
		err = c.player.Speak(ctx, fmt.Sprintf("%d of %d", correctCount, len(target)))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("speech feedback failed", "error", err)
	}
}

func (c *Controller) scheduleAdvance(speak bool) {
	delay := SequenceAdvanceDelay
	if c.mode == model.ModeSingle {
		delay = SingleAdvanceDelay
		if speak {
			delay = SingleSpeechAdvanceDelay
		}
	}
	stopTimer(&c.advanceTimer)
	token := c.roundToken
	c.advanceTimer = c.clock.AfterFunc(delay, func() { c.advance(token) })
}

func (c *Controller) advance(token uint64) {
	c.mu.Lock()
	if !c.active || token != c.roundToken {
		c.mu.Unlock()
		return
	}
	c.advanceTimer = nil
	events := c.nextRound()
	c.unlockAndDispatch(events)
}

func (c *Controller) cancelRound() {
	stopTimer(&c.graceTimer)
	stopTimer(&c.advanceTimer)
	if c.playCancel != nil {
		c.playCancel()
		c.playCancel = nil
	}
	if c.roundCancel != nil {
		c.roundCancel()
		c.roundCancel = nil
	}
}

func (c *Controller) persist(job *persistJob) {
	if job == nil || c.store == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	ctx := context.Background()
	if err := c.store.SaveProgress(ctx, job.state); err != nil {
		c.logger.Error("failed to save progress", "error", err)
		c.reportError(err)
	}
	if _, err := c.store.RecordRound(ctx, job.round); err != nil {
		c.logger.Error("failed to record round", "error", err)
		c.reportError(err)
	}
}

func (c *Controller) reportError(err error) {
	c.mu.Lock()
	ev := c.event(EventError)
	ev.Err = err
	c.unlockAndDispatch([]Event{ev})
}

// unlockAndDispatch releases mu and delivers events in order.
func (c *Controller) unlockAndDispatch(events []Event) {
	if c.observer == nil || len(events) == 0 {
		c.mu.Unlock()
		return
	}
	c.dispatchMu.Lock()
	c.mu.Unlock()
	defer c.dispatchMu.Unlock()
	for _, ev := range events {
		c.observer(ev)
	}
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
