// Package main provides the CLI entrypoint for tuikoch.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuikoch/internal/audio"
	"github.com/verte-zerg/tuikoch/internal/config"
	"github.com/verte-zerg/tuikoch/internal/drill"
	"github.com/verte-zerg/tuikoch/internal/logging"
	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
	"github.com/verte-zerg/tuikoch/internal/progress"
	"github.com/verte-zerg/tuikoch/internal/store"
	"github.com/verte-zerg/tuikoch/internal/tui"
	"github.com/verte-zerg/tuikoch/internal/wordlist"
)

const builtinWords = "builtin"

var (
	practiceMode     string
	practiceWords    string
	practiceMute     bool
	practiceSave     bool
	practiceLogLevel string

	settingWPM           float64
	settingFarnsworth    float64
	settingTone          float64
	settingHaptics       bool
	settingAudioFeedback bool
	settingSpeak         bool
	settingEyesClosed    bool
	settingLiveLength    int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuikoch",
		Short:         "Koch method Morse code trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceMode, "mode", string(model.ModeSingle), "drill mode: single, head or live")
	rootCmd.Flags().StringVar(&practiceWords, "words", "", "word list for head copy (path or \"builtin\")")
	rootCmd.Flags().BoolVar(&practiceMute, "mute", false, "do not open the audio device")
	rootCmd.Flags().BoolVar(&practiceSave, "save", false, "store the resolved settings as the new defaults")
	rootCmd.Flags().StringVar(&practiceLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	addSettingsFlags(rootCmd)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newUnlockCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newWavCmd())
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}

func addSettingsFlags(cmd *cobra.Command) {
	def := model.DefaultSettings()
	cmd.Flags().Float64Var(&settingWPM, "wpm", def.CharacterWPM, "character speed in WPM (15-35)")
	cmd.Flags().Float64Var(&settingFarnsworth, "farnsworth", def.FarnsworthWPM, "effective speed in WPM (3-20)")
	cmd.Flags().Float64Var(&settingTone, "tone", def.ToneFrequencyHz, "tone frequency in Hz (400-1000)")
	cmd.Flags().BoolVar(&settingHaptics, "haptics", def.HapticEnabled, "flash the keying indicator")
	cmd.Flags().BoolVar(&settingAudioFeedback, "audio-feedback", def.AudioFeedbackEnabled, "play correct/wrong tones")
	cmd.Flags().BoolVar(&settingSpeak, "speak", def.SpeakAnswerEnabled, "speak the answer after scoring")
	cmd.Flags().BoolVar(&settingEyesClosed, "eyes-closed", def.EyesClosedMode, "hide the target and speak results")
	cmd.Flags().IntVar(&settingLiveLength, "live-length", def.LiveCopyLength, "live copy group length (5-20)")
}

// resolveSettings layers stored settings, the config file and changed flags.
func resolveSettings(ctx context.Context, cmd *cobra.Command, st *store.Store, fileCfg config.FileConfig) (model.Settings, error) {
	settings, err := st.LoadSettings(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("stored settings unreadable, using defaults", "error", err)
	}
	settings = fileCfg.Practice.Apply(settings)
	applyFloatFlag(cmd, "wpm", &settings.CharacterWPM, settingWPM)
	applyFloatFlag(cmd, "farnsworth", &settings.FarnsworthWPM, settingFarnsworth)
	applyFloatFlag(cmd, "tone", &settings.ToneFrequencyHz, settingTone)
	applyBoolFlag(cmd, "haptics", &settings.HapticEnabled, settingHaptics)
	applyBoolFlag(cmd, "audio-feedback", &settings.AudioFeedbackEnabled, settingAudioFeedback)
	applyBoolFlag(cmd, "speak", &settings.SpeakAnswerEnabled, settingSpeak)
	applyBoolFlag(cmd, "eyes-closed", &settings.EyesClosedMode, settingEyesClosed)
	applyIntFlag(cmd, "live-length", &settings.LiveCopyLength, settingLiveLength)
	if err := config.ValidateSettings(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	mode, err := parseMode(practiceMode)
	if err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := logging.Setup(config.DefaultLogPath(), practiceLogLevel)
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		logger = logging.Discard()
	} else {
		defer func() {
			if cerr := logCloser.Close(); cerr != nil {
				logErrf("failed to close log: %v\n", cerr)
			}
		}()
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	settings, err := resolveSettings(ctx, cmd, st, fileCfg)
	if err != nil {
		return err
	}
	if practiceSave {
		if err := st.SaveSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	wordsPath := practiceWords
	if !cmd.Flags().Changed("words") && fileCfg.Practice.Words != nil {
		wordsPath = *fileCfg.Practice.Words
	}
	words, err := loadPracticeWords(wordsPath)
	if err != nil {
		return err
	}
	if len(words) > 0 && mode != model.ModeHeadCopy {
		logErrln("word list is only used in head copy mode; ignoring")
		words = nil
	}

	state := loadProgressOrFresh(ctx, st, logger)

	events := tui.NewEventBridge()
	pulses := tui.NewPulseBridge()

	var sink audio.Sink = audio.NullSink{}
	if !practiceMute {
		sink = audio.NewOtoSink()
	}
	var speaker audio.Speaker = audio.NopSpeaker{}
	if cs, ok := audio.NewCommandSpeaker(); ok {
		speaker = cs
	} else if settings.SpeakAnswerEnabled || settings.EyesClosedMode {
		logger.Warn("no speech command found; spoken answers are disabled")
	}
	player := audio.NewPlayer(sink, audio.Options{
		Haptics: pulses,
		Speaker: speaker,
		Logger:  logger,
		OnDeviceError: func(err error) {
			events.ReportError(fmt.Errorf("audio unavailable, continuing silently: %w", err))
		},
	})

	ctrl := drill.New(state, settings, drill.Options{
		Player:   player,
		Store:    st,
		Logger:   logger,
		Words:    words,
		Observer: events.Observe,
	})
	if err := ctrl.Start(mode); err != nil {
		return fmt.Errorf("failed to start drill: %w", err)
	}

	program := tea.NewProgram(tui.NewModel(ctrl, mode, events, pulses), tea.WithAltScreen())
	_, runErr := program.Run()
	if err := ctrl.Stop(); err != nil {
		logger.Warn("stop drill", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}

	final := ctrl.Progress()
	logErrf("Session %d/%d correct · unlocked %d/%d\n",
		final.SessionCorrect, final.SessionTotal, final.UnlockedCount, morse.CharacterCount)
	return nil
}

func parseMode(value string) (model.Mode, error) {
	switch mode := model.Mode(strings.ToLower(strings.TrimSpace(value))); mode {
	case model.ModeSingle, model.ModeHeadCopy, model.ModeLiveCopy:
		return mode, nil
	default:
		return "", fmt.Errorf("--mode must be single, head or live")
	}
}

func loadPracticeWords(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	switch path {
	case "":
		return nil, nil
	case builtinWords:
		return wordlist.Default(), nil
	}
	path = config.ExpandHome(path)
	words, err := wordlist.LoadWords(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load word list: %w", err)
	}
	return words, nil
}

// loadProgressOrFresh never fails: missing or corrupt progress starts a
// fresh learner.
func loadProgressOrFresh(ctx context.Context, st *store.Store, logger *slog.Logger) *progress.State {
	state, err := st.LoadProgress(ctx)
	switch {
	case err == nil:
		return state
	case errors.Is(err, store.ErrNotFound):
		logger.Info("no saved progress, starting fresh")
	default:
		logger.Error("saved progress unreadable, starting fresh", "error", err)
		logErrf("saved progress unreadable, starting fresh: %v\n", err)
	}
	return progress.NewState()
}

func openStore() (*store.Store, func(), error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyFloatFlag(cmd *cobra.Command, name string, target *float64, value float64) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyBoolFlag(cmd *cobra.Command, name string, target *bool, value bool) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
