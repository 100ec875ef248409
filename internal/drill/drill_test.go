package drill

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuikoch/internal/clock"
	"github.com/verte-zerg/tuikoch/internal/generator"
	"github.com/verte-zerg/tuikoch/internal/logging"
	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
	"github.com/verte-zerg/tuikoch/internal/progress"
)

var epoch = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

type fakePlayer struct {
	mu       sync.Mutex
	plays    [][]rune
	results  []error
	feedback []bool
	spoken   []string
	stops    int
	release  chan struct{}
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{release: make(chan struct{})}
}

func (p *fakePlayer) PlaySequence(ctx context.Context, glyphs []rune, _ model.Settings) error {
	p.mu.Lock()
	p.plays = append(p.plays, append([]rune(nil), glyphs...))
	p.mu.Unlock()
	var err error
	select {
	case <-p.release:
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.mu.Lock()
	p.results = append(p.results, err)
	p.mu.Unlock()
	return err
}

func (p *fakePlayer) PlayFeedbackTone(_ context.Context, correct bool, _ model.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, correct)
	return nil
}

func (p *fakePlayer) SpeakAnswer(ctx context.Context, glyph rune) error {
	return p.Speak(ctx, morse.SpokenName(glyph))
}

func (p *fakePlayer) Speak(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spoken = append(p.spoken, text)
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plays)
}

func (p *fakePlayer) lastPlay() []rune {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays[len(p.plays)-1]
}

func (p *fakePlayer) resultCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

func (p *fakePlayer) snapshot() (feedback []bool, spoken []string, stops int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.feedback...), append([]string(nil), p.spoken...), p.stops
}

type fakeStore struct {
	mu       sync.Mutex
	saved    []progress.State
	rounds   []model.RoundRecord
	failSave error
}

func (s *fakeStore) SaveProgress(_ context.Context, state progress.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.saved = append(s.saved, state)
	return nil
}

func (s *fakeStore) RecordRound(_ context.Context, round model.RoundRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, round)
	return int64(len(s.rounds)), nil
}

func (s *fakeStore) lastRound() model.RoundRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds[len(s.rounds)-1]
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

type harness struct {
	ctrl   *Controller
	player *fakePlayer
	store  *fakeStore
	clock  *clock.Fake
	events *eventLog
}

func newHarness(t *testing.T, state *progress.State, settings model.Settings) *harness {
	t.Helper()
	h := &harness{
		player: newFakePlayer(),
		store:  &fakeStore{},
		clock:  clock.NewFake(epoch),
		events: &eventLog{},
	}
	h.ctrl = New(state, settings, Options{
		Player:    h.player,
		Store:     h.store,
		Generator: generator.NewWithSeed(7),
		Clock:     h.clock,
		Logger:    logging.Discard(),
		Observer:  h.events.observe,
	})
	t.Cleanup(func() { _ = h.ctrl.Stop() })
	return h
}

// finishPlayback completes the playback in flight and waits until the
// controller has processed it.
func (h *harness) finishPlayback(t *testing.T) {
	t.Helper()
	h.player.release <- struct{}{}
	require.True(t, eventually(func() bool { return !h.ctrl.IsPlaying() }), "playback did not finish")
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func quietSettings() model.Settings {
	s := model.DefaultSettings()
	s.HapticEnabled = false
	return s
}

func TestSingleModeRound(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))

	target := h.player.lastPlay()
	require.Len(t, target, 1)
	view := h.ctrl.View()
	assert.True(t, view.Playing)
	assert.Nil(t, view.Target, "target stays hidden until scored")
	assert.Equal(t, 1, view.Length)

	assert.False(t, h.ctrl.Answer(target[0]), "answers are ignored while playing")
	h.finishPlayback(t)

	assert.False(t, h.ctrl.Answer('X'), "glyphs outside the pool are rejected")
	require.True(t, h.ctrl.Answer(unicode.ToLower(target[0])))
	assert.False(t, h.ctrl.Answer(target[0]), "second answer is ignored")

	view = h.ctrl.View()
	assert.True(t, view.Scored)
	assert.Equal(t, target, view.Target)
	assert.Equal(t, []Result{Correct}, view.Results)
	assert.Equal(t, 1, view.SessionTotal)
	assert.Equal(t, 1, view.SessionCorrect)

	round := h.store.lastRound()
	assert.Equal(t, model.ModeSingle, round.Mode)
	assert.Equal(t, 1, round.Correct)
	assert.NotEmpty(t, round.SessionID)
	require.True(t, eventually(func() bool {
		fb, _, _ := h.player.snapshot()
		return len(fb) == 1
	}))

	require.True(t, h.clock.WaitForTimers(1, time.Second))
	h.clock.Advance(SingleAdvanceDelay - time.Millisecond)
	assert.Equal(t, 1, h.player.playCount())
	h.clock.Advance(time.Millisecond)
	require.True(t, eventually(func() bool { return h.player.playCount() == 2 }))
	assert.False(t, h.ctrl.View().Scored)
}

func TestSingleModeSpeechLengthensAdvance(t *testing.T) {
	settings := quietSettings()
	settings.SpeakAnswerEnabled = true
	h := newHarness(t, progress.NewState(), settings)
	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	target := h.player.lastPlay()
	h.finishPlayback(t)

	wrong := 'K'
	if target[0] == 'K' {
		wrong = 'M'
	}
	require.True(t, h.ctrl.Answer(wrong))
	assert.Equal(t, []Result{Incorrect}, h.ctrl.View().Results)
	require.True(t, eventually(func() bool {
		_, spoken, _ := h.player.snapshot()
		return len(spoken) == 1
	}))
	fb, spoken, _ := h.player.snapshot()
	assert.Equal(t, []bool{false}, fb)
	assert.Equal(t, []string{string(target)}, spoken)

	h.clock.Advance(SingleAdvanceDelay)
	assert.Equal(t, 1, h.player.playCount())
	h.clock.Advance(SingleSpeechAdvanceDelay - SingleAdvanceDelay)
	require.True(t, eventually(func() bool { return h.player.playCount() == 2 }))
}

func TestHeadCopyWaitsForPlaybackAndGrace(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeHeadCopy))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))

	target := h.player.lastPlay()
	require.GreaterOrEqual(t, len(target), generator.HeadCopyMinLength)
	require.LessOrEqual(t, len(target), generator.HeadCopyMaxLength(2))

	assert.False(t, h.ctrl.Answer(target[0]), "no input during head-copy playback")
	h.finishPlayback(t)
	assert.True(t, h.ctrl.View().AcceptingInput)

	require.True(t, h.ctrl.Answer(target[0]))
	require.True(t, h.ctrl.Answer('K'))
	require.True(t, h.ctrl.DeleteLast())
	assert.Equal(t, []rune{target[0]}, h.ctrl.View().Answers)

	h.clock.Advance(GracePeriod - time.Millisecond)
	assert.False(t, h.ctrl.View().Scored)
	h.clock.Advance(time.Millisecond)

	view := h.ctrl.View()
	require.True(t, view.Scored)
	assert.Equal(t, Correct, view.Results[0])
	for i := 1; i < len(target); i++ {
		assert.Equal(t, Incorrect, view.Results[i], "position %d", i)
	}
	assert.Equal(t, len(target), view.SessionTotal)
	assert.False(t, h.ctrl.DeleteLast(), "scored rounds are frozen")

	round := h.store.lastRound()
	assert.Equal(t, len(target)-1, round.EditDistance)
	assert.Equal(t, string(target[0]), round.Received)
}

func TestHeadCopySubmitsWhenFull(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeHeadCopy))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	target := h.player.lastPlay()
	h.finishPlayback(t)

	for _, r := range target {
		require.True(t, h.ctrl.Answer(r))
	}
	view := h.ctrl.View()
	require.True(t, view.Scored)
	assert.Equal(t, len(target), view.CorrectCount())
	assert.Zero(t, h.store.lastRound().EditDistance)
	assert.Equal(t, 1, h.clock.PendingTimers(), "only the advance timer remains")
}

func TestHeadCopyWordMode(t *testing.T) {
	h := &harness{player: newFakePlayer(), clock: clock.NewFake(epoch), events: &eventLog{}}
	h.ctrl = New(progress.NewState(), quietSettings(), Options{
		Player:    h.player,
		Generator: generator.NewWithSeed(3),
		Clock:     h.clock,
		Logger:    logging.Discard(),
		Words:     []string{"mk", "kmk", "mkkm", "hello"},
	})
	t.Cleanup(func() { _ = h.ctrl.Stop() })

	require.NoError(t, h.ctrl.Start(model.ModeHeadCopy))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	target := string(h.player.lastPlay())
	assert.Contains(t, []string{"KMK", "MKKM"}, target)
	assert.True(t, h.ctrl.View().Word)
}

func TestLiveCopyScenarioPartialAnswers(t *testing.T) {
	settings := quietSettings()
	settings.LiveCopyLength = 6
	h := newHarness(t, progress.NewState(), settings)
	require.NoError(t, h.ctrl.Start(model.ModeLiveCopy))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))

	target := h.player.lastPlay()
	require.Len(t, target, 6)
	for _, r := range target[:3] {
		require.True(t, h.ctrl.Answer(r), "live copy takes input during playback")
	}
	assert.True(t, h.ctrl.IsPlaying())
	h.finishPlayback(t)
	require.True(t, h.clock.WaitForTimers(1, time.Second))
	h.clock.Advance(GracePeriod)

	view := h.ctrl.View()
	require.True(t, view.Scored)
	assert.Equal(t, []Result{Correct, Correct, Correct, Incorrect, Incorrect, Incorrect}, view.Results)
	assert.Equal(t, 6, view.SessionTotal)
	assert.Equal(t, 3, view.SessionCorrect)

	round := h.store.lastRound()
	assert.Equal(t, 3, round.Correct)
	assert.Equal(t, 3, round.Incorrect)
	assert.Equal(t, 3, round.EditDistance)
	require.Len(t, round.Attempts, 6)
	assert.Equal(t, "", round.Attempts[5].Answered)
}

func TestLiveCopySubmitsInstantlyAndCutsPlayback(t *testing.T) {
	settings := quietSettings()
	settings.LiveCopyLength = 5
	h := newHarness(t, progress.NewState(), settings)
	require.NoError(t, h.ctrl.Start(model.ModeLiveCopy))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))

	target := h.player.lastPlay()
	for _, r := range target {
		require.True(t, h.ctrl.Answer(r))
	}
	view := h.ctrl.View()
	assert.True(t, view.Scored)
	assert.False(t, view.Playing)
	assert.Equal(t, 5, view.CorrectCount())
	require.True(t, eventually(func() bool { return h.player.resultCount() == 1 }))
}

func TestUnlockIsReported(t *testing.T) {
	state := progress.NewState()
	full := make([]bool, progress.HistorySize)
	for i := range full {
		full[i] = true
	}
	state.CharacterStats["K"] = progress.CharacterStats{History: append([]bool(nil), full...)}
	state.CharacterStats["M"] = progress.CharacterStats{History: append([]bool(nil), full...)}
	state.CurrentStreak = 10

	h := newHarness(t, state, quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	target := h.player.lastPlay()
	h.finishPlayback(t)
	require.True(t, h.ctrl.Answer(target[0]))

	view := h.ctrl.View()
	assert.Equal(t, 3, view.UnlockedCount)
	assert.Equal(t, 'U', view.JustUnlocked)
	assert.Contains(t, h.events.kinds(), EventUnlocked)
	assert.Equal(t, 3, h.ctrl.Progress().UnlockedCount)
	assert.Equal(t, 3, h.store.lastRound().UnlockedCount)
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.NoError(t, h.ctrl.Stop())
	require.NoError(t, h.ctrl.Stop())

	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	assert.True(t, errors.Is(h.ctrl.Start(model.ModeHeadCopy), ErrSessionActive))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))

	require.NoError(t, h.ctrl.Stop())
	require.NoError(t, h.ctrl.Stop())
	assert.False(t, h.ctrl.IsPlaying())
	assert.False(t, h.ctrl.Active())
	assert.Equal(t, EventStopped, h.events.last().Kind)
	_, _, stops := h.player.snapshot()
	assert.Equal(t, 1, stops)
	require.True(t, eventually(func() bool { return h.player.resultCount() == 1 }))
	assert.Zero(t, h.clock.PendingTimers())

	assert.False(t, h.ctrl.Answer('K'))
	assert.False(t, h.ctrl.Skip())
	assert.False(t, h.ctrl.Replay())

	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	require.True(t, eventually(func() bool { return h.player.playCount() == 2 }))
}

func TestStopCancelsPendingAdvance(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	target := h.player.lastPlay()
	h.finishPlayback(t)
	require.True(t, h.ctrl.Answer(target[0]))
	require.Equal(t, 1, h.clock.PendingTimers())

	require.NoError(t, h.ctrl.Stop())
	h.clock.Advance(time.Minute)
	assert.Equal(t, 1, h.player.playCount())
}

func TestSkipDiscardsRoundUnscored(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))

	require.True(t, h.ctrl.Skip())
	require.True(t, eventually(func() bool { return h.player.playCount() == 2 }))
	assert.Zero(t, h.ctrl.View().SessionTotal)
	require.True(t, eventually(func() bool { return h.player.resultCount() == 1 }))
	assert.True(t, h.ctrl.IsPlaying(), "stale completion must not clear the new round")
}

func TestReplayRestartsPlayback(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeHeadCopy))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	first := h.player.lastPlay()

	require.True(t, h.ctrl.Replay())
	require.True(t, eventually(func() bool { return h.player.playCount() == 2 }))
	assert.Equal(t, first, h.player.lastPlay())
	require.True(t, eventually(func() bool { return h.player.resultCount() == 1 }))
	assert.True(t, h.ctrl.IsPlaying())

	h.finishPlayback(t)
	assert.True(t, h.ctrl.View().AcceptingInput)
}

func TestEyesClosedSpeaksSequenceScore(t *testing.T) {
	settings := quietSettings()
	settings.EyesClosedMode = true
	settings.AudioFeedbackEnabled = false
	settings.LiveCopyLength = 5
	h := newHarness(t, progress.NewState(), settings)
	require.NoError(t, h.ctrl.Start(model.ModeLiveCopy))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	target := h.player.lastPlay()
	for _, r := range target[:4] {
		require.True(t, h.ctrl.Answer(r))
	}
	wrong := 'K'
	if target[4] == 'K' {
		wrong = 'M'
	}
	require.True(t, h.ctrl.Answer(wrong))
	assert.True(t, h.ctrl.View().EyesClosed)

	require.True(t, eventually(func() bool {
		_, spoken, _ := h.player.snapshot()
		return len(spoken) == 1
	}))
	fb, spoken, _ := h.player.snapshot()
	assert.Empty(t, fb)
	assert.Equal(t, []string{"4 of 5"}, spoken)
}

func TestPersistenceFailureKeepsSession(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	h.store.failSave = errors.New("disk full")
	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	require.True(t, eventually(func() bool { return h.player.playCount() == 1 }))
	target := h.player.lastPlay()
	h.finishPlayback(t)
	require.True(t, h.ctrl.Answer(target[0]))

	assert.Contains(t, h.events.kinds(), EventError)
	assert.True(t, h.ctrl.Active())
	h.clock.Advance(SingleAdvanceDelay)
	require.True(t, eventually(func() bool { return h.player.playCount() == 2 }))
}

func TestStartResetsStaleSession(t *testing.T) {
	state := progress.NewState()
	state.SessionTotal = 12
	state.SessionCorrect = 9
	state.LastSessionTimestamp = epoch.Add(-5 * time.Hour)

	h := newHarness(t, state, quietSettings())
	require.NoError(t, h.ctrl.Start(model.ModeSingle))
	assert.Zero(t, h.ctrl.View().SessionTotal)
}

func TestStartRejectsUnknownMode(t *testing.T) {
	h := newHarness(t, progress.NewState(), quietSettings())
	require.Error(t, h.ctrl.Start(model.Mode("morse-golf")))
	assert.False(t, h.ctrl.Active())
}
