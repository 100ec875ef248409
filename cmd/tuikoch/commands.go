package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tuikoch/internal/audio"
	"github.com/verte-zerg/tuikoch/internal/config"
	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
	"github.com/verte-zerg/tuikoch/internal/progress"
	"github.com/verte-zerg/tuikoch/internal/report"
	"github.com/verte-zerg/tuikoch/internal/stats"
	"github.com/verte-zerg/tuikoch/internal/statsui"
	"github.com/verte-zerg/tuikoch/internal/store"
)

const (
	defaultCurveWindow = 20
	defaultWeakTop     = 5
	curveCharsText     = 3
)

var (
	statsMode        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsChars       string
	statsText        bool

	resetSession    bool
	resetKeepRounds bool
	unlockCount     int
	exportFormat    string
	exportOut       string
	wavText         string
	wavOut          string
	wavSampleRate   int
	reportOut       string
	reportLast      int
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse round statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsMode, "mode", "", "mode filter: single, head or live")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N rounds")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsChars, "char", "", "glyphs for per-glyph curves")
	cmd.Flags().BoolVar(&statsText, "text", false, "print a text report instead of the browser")
	return cmd
}

func buildStatsConfig() (model.StatsConfig, error) {
	cfg := model.StatsConfig{
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}
	if statsMode != "" {
		mode, err := parseMode(statsMode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig()
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if statsText {
		return renderStatsText(context.Background(), cmd.OutOrStdout(), st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(st, cfg, statsChars), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func renderStatsText(ctx context.Context, w io.Writer, st stats.RoundSource, cfg model.StatsConfig) error {
	rep, err := stats.BuildReport(ctx, st, cfg, curveCharsText)
	if err != nil {
		return fmt.Errorf("failed to build stats: %w", err)
	}
	if err := stats.RenderSummary(w, rep.Rounds); err != nil {
		return err
	}
	if err := stats.RenderCurves(w, rep.Rounds, cfg.CurveWindow); err != nil {
		return err
	}
	if len(rep.Rounds) == 0 {
		return nil
	}
	if err := stats.RenderCharTable(w, rep.CharAggsWindow); err != nil {
		return err
	}
	return stats.RenderCharCurves(w, rep.Rounds, rep.PerRound, rep.CurveChars, cfg.CurveWindow)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize Koch progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			ctx := context.Background()
			state, err := loadProgress(ctx, st)
			if err != nil {
				return err
			}
			last, err := st.LastRoundAt(ctx)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("failed to read rounds log: %w", err)
			}
			return renderStatus(cmd.OutOrStdout(), state, last, time.Now())
		},
	}
}

func renderStatus(w io.Writer, state *progress.State, lastRound, now time.Time) error {
	available := state.AvailableCharacters()
	lines := []string{
		fmt.Sprintf("Unlocked: %d/%d  %s", len(available), morse.CharacterCount, string(available)),
	}
	if next, ok := morse.KochGlyph(state.UnlockedCount); ok {
		lines = append(lines, fmt.Sprintf("Next: %s", string(next)))
	} else {
		lines = append(lines, "Next: all glyphs unlocked")
	}
	lines = append(lines,
		fmt.Sprintf("Pool accuracy: %.1f%%", state.PoolAccuracy()),
		fmt.Sprintf("Lifetime: %s attempts, %.1f%% correct", humanize.Comma(int64(state.TotalAttempts)), state.TotalAccuracy()),
		fmt.Sprintf("Session: %d/%d correct", state.SessionCorrect, state.SessionTotal),
		fmt.Sprintf("Streak: %d (best %d)", state.CurrentStreak, state.BestStreak),
	)
	if lastRound.IsZero() {
		lines = append(lines, "Last practice: never")
	} else {
		lines = append(lines, "Last practice: "+humanize.RelTime(lastRound, now, "ago", "from now"))
	}
	weak := stats.WeakestGlyphs(state, defaultWeakTop)
	if len(weak) > 0 {
		parts := make([]string, 0, len(weak))
		for _, g := range weak {
			parts = append(parts, fmt.Sprintf("%s %.0f%%", string(g.Glyph), g.Accuracy))
		}
		lines = append(lines, "Weakest: "+strings.Join(parts, ", "))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// loadProgress is the strict variant for commands that write progress back.
func loadProgress(ctx context.Context, st *store.Store) (*progress.State, error) {
	state, err := st.LoadProgress(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return progress.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return state, nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset progress or only the current session",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetSession, "session", false, "only clear session counters")
	cmd.Flags().BoolVar(&resetKeepRounds, "keep-rounds", false, "keep the rounds log on a full reset")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	ctx := context.Background()

	state, err := st.LoadProgress(ctx)
	if err != nil {
		// A corrupt blob is replaced by the reset.
		state = progress.NewState()
	}
	if resetSession {
		state.ResetSession()
	} else {
		state.ResetProgress()
		if !resetKeepRounds {
			if err := st.DeleteRounds(ctx); err != nil {
				return fmt.Errorf("failed to clear rounds log: %w", err)
			}
		}
	}
	if err := st.SaveProgress(ctx, *state); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	if resetSession {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Session counters cleared.")
	} else {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Progress reset to K and M.")
	}
	return err
}

func newUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the next glyphs manually",
		Args:  cobra.NoArgs,
		RunE:  runUnlockCmd,
	}
	cmd.Flags().IntVar(&unlockCount, "count", 1, "number of glyphs to unlock")
	return cmd
}

func runUnlockCmd(cmd *cobra.Command, _ []string) error {
	if unlockCount <= 0 {
		return fmt.Errorf("--count must be > 0")
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	ctx := context.Background()

	state, err := loadProgress(ctx, st)
	if err != nil {
		return err
	}
	glyphs := state.UnlockNextCharacters(unlockCount)
	if len(glyphs) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "All glyphs are already unlocked.")
		return err
	}
	if err := st.SaveProgress(ctx, *state); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Unlocked %s (%d/%d)\n", string(glyphs), state.UnlockedCount, morse.CharacterCount)
	return err
}

type exportDoc struct {
	ExportedAt time.Time       `json:"exportedAt" yaml:"exported_at"`
	Settings   model.Settings  `json:"settings" yaml:"settings"`
	Progress   progress.State  `json:"progress" yaml:"progress"`
	Rounds     []exportedRound `json:"rounds" yaml:"rounds"`
}

type exportedRound struct {
	ID            int64      `json:"id" yaml:"id"`
	SessionID     string     `json:"sessionId" yaml:"session_id"`
	Mode          model.Mode `json:"mode" yaml:"mode"`
	EndedAt       time.Time  `json:"endedAt" yaml:"ended_at"`
	Correct       int        `json:"correct" yaml:"correct"`
	Incorrect     int        `json:"incorrect" yaml:"incorrect"`
	EditDistance  int        `json:"editDistance" yaml:"edit_distance"`
	UnlockedCount int        `json:"unlockedCount" yaml:"unlocked_count"`
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export progress, settings and the rounds log",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	ctx := context.Background()

	state, err := loadProgress(ctx, st)
	if err != nil {
		return err
	}
	settings, err := st.LoadSettings(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	rounds, err := st.ListRounds(ctx, model.StatsConfig{})
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}
	doc := exportDoc{
		ExportedAt: time.Now().UTC(),
		Settings:   settings,
		Progress:   *state,
		Rounds:     make([]exportedRound, 0, len(rounds)),
	}
	for _, r := range rounds {
		doc.Rounds = append(doc.Rounds, exportedRound{
			ID:            r.RoundID,
			SessionID:     r.SessionID,
			Mode:          r.Mode,
			EndedAt:       r.EndedAt,
			Correct:       r.Correct,
			Incorrect:     r.Incorrect,
			EditDistance:  r.EditDistance,
			UnlockedCount: r.UnlockedCount,
		})
	}

	w := cmd.OutOrStdout()
	if exportOut != "" {
		file, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil {
				logErrf("failed to close %s: %v\n", exportOut, cerr)
			}
		}()
		w = file
	}
	return encodeExport(w, doc, exportFormat)
}

func encodeExport(w io.Writer, doc exportDoc, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("--format must be json or yaml")
	}
}

func newWavCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wav",
		Short: "Render text as Morse audio to a WAV file",
		Args:  cobra.NoArgs,
		RunE:  runWavCmd,
	}
	cmd.Flags().StringVar(&wavText, "text", "", "text to render")
	cmd.Flags().StringVar(&wavOut, "out", "morse.wav", "output WAV file")
	cmd.Flags().IntVar(&wavSampleRate, "rate", audio.DefaultSampleRate, "sample rate in Hz")
	addSettingsFlags(cmd)
	return cmd
}

func runWavCmd(cmd *cobra.Command, _ []string) error {
	text := strings.TrimSpace(wavText)
	if text == "" {
		return fmt.Errorf("--text must not be empty")
	}
	if wavSampleRate < 8000 {
		return fmt.Errorf("--rate must be >= 8000")
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	settings, err := resolveSettings(context.Background(), cmd, st, fileCfg)
	if err != nil {
		return err
	}

	glyphs := []rune(strings.ToUpper(text))
	for _, g := range glyphs {
		if _, ok := morse.Lookup(g); !ok && g != ' ' {
			logErrf("skipping %q: no Morse pattern\n", g)
		}
	}
	samples := audio.RenderOffline(glyphs, settings, wavSampleRate)
	if len(samples) == 0 {
		return fmt.Errorf("nothing to render")
	}
	if err := audio.WriteWAVFile(wavOut, samples, wavSampleRate); err != nil {
		return err
	}
	seconds := float64(len(samples)) / float64(wavSampleRate)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.1fs)\n", wavOut, seconds)
	return err
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a PDF progress report",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportOut, "out", "tuikoch-report.pdf", "output PDF file")
	cmd.Flags().IntVar(&reportLast, "last", 0, "limit to last N rounds")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	ctx := context.Background()

	state, err := loadProgress(ctx, st)
	if err != nil {
		return err
	}
	rep, err := stats.BuildReport(ctx, st, model.StatsConfig{Last: reportLast}, 0)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	data := report.Data{
		GeneratedAt: time.Now(),
		Progress:    *state,
		Rounds:      rep.Rounds,
		Chars:       rep.CharAggsAll,
	}
	if err := report.WriteFile(reportOut, data); err != nil {
		return err
	}
	absPath, err := filepath.Abs(reportOut)
	if err != nil {
		absPath = reportOut
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "PDF report written: %s\n", absPath)
	return err
}
