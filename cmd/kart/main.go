// kart is a deterministic kart racer for the terminal.
//
// Usage:
//
//	kart race [track]        - Race locally (menu when no track is given)
//	kart sim <track>         - Run a headless race and print the results
//	kart tracks              - List built-in tracks
//	kart times [track]       - Show best laps and recent races
//	kart serve               - Start the SSH and websocket race server
//	kart host <track>        - Host an online race from this terminal
//	kart join <url>          - Join an online race over a websocket
//
// Global flags:
//
//	--tps <rate>        - Override the simulation tick rate
//	--seed <value>      - Override the race seed
//	--db <path>         - Database path (default: ~/.kart/kart.db)
//	--log-level <lvl>   - debug, info, warn or error
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
	"github.com/vovakirdan/tui-kart/internal/race"
	"github.com/vovakirdan/tui-kart/internal/storage"
	"github.com/vovakirdan/tui-kart/internal/track"
	_ "github.com/vovakirdan/tui-kart/internal/track/builtin"
)

var (
	// Global flags
	flagTPS          int
	flagSeed         uint64
	flagDBPath       string
	flagLogLevel     string
	flagLogFile      string
	flagRaceConfig   string
	flagKartsConfig  string
	flagTuningConfig string
	flagDifficulty   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kart",
	Short: "TUI Kart - race karts in your terminal",
	Long: `TUI Kart is a deterministic kart racer for the terminal.

Available commands:
  race     - Race locally against automated karts or your best ghost
  sim      - Run a headless race and print the classification
  tracks   - List built-in tracks
  times    - Show best laps and recent races
  serve    - Start the SSH and websocket race server
  host     - Host an online race from this terminal
  join     - Join an online race

Examples:
  kart race
  kart race oval --time-trial
  kart sim speedway --karts 8
  kart serve --ssh :23234 --ws :8080
  kart join ws://localhost:8080/race`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagTPS, "tps", 0, "Simulation ticks per second (0 = from race config)")
	pf.Uint64Var(&flagSeed, "seed", 0, "Race seed (0 = from race config)")
	pf.StringVar(&flagDBPath, "db", "~/.kart/kart.db", "Path to the lap times database")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFile, "log-file", "", "Write logs to a file (terminal screens log nowhere otherwise)")
	pf.StringVar(&flagRaceConfig, "race-config", "", "Path to a custom race.yaml")
	pf.StringVar(&flagKartsConfig, "karts-config", "", "Path to a custom karts.yaml")
	pf.StringVar(&flagTuningConfig, "tuning-config", "", "Path to a custom tuning.yaml")
	pf.StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard")

	rootCmd.AddCommand(raceCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(tracksCmd)
	rootCmd.AddCommand(timesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(joinCmd)
}

// newLogger builds the command's logger. Full-screen commands pass
// toTerminal=false so log lines never land on the race screen.
func newLogger(toTerminal bool) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("bad --log-level: %w", err)
	}

	var w io.Writer = os.Stderr
	closer := func() {}
	switch {
	case flagLogFile != "":
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		w = f
		closer = func() { f.Close() }
	case !toTerminal:
		w = io.Discard
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "kart",
		Level:           level,
	})
	return logger, closer, nil
}

// loadBundle reads the configuration files and applies flag overrides.
func loadBundle() (config.Bundle, error) {
	b, err := config.Load(config.Paths{
		Race:   flagRaceConfig,
		Karts:  flagKartsConfig,
		Tuning: flagTuningConfig,
	})
	if err != nil {
		return config.Bundle{}, err
	}
	if flagTPS > 0 {
		b.Race.TickRate = flagTPS
	}
	if flagSeed != 0 {
		b.Race.Seed = flagSeed
	}
	if flagDifficulty != "" {
		preset := config.DifficultyPreset(flagDifficulty)
		b.Race.Difficulty = preset
		if err := b.Race.Validate(); err != nil {
			return config.Bundle{}, err
		}
	}
	return b, nil
}

// openStore opens the database, or returns nil with a warning: racing
// works without persistence.
func openStore(logger *log.Logger) *storage.Store {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		logger.Warn("could not open lap times database", "path", flagDBPath, "err", err)
		return nil
	}
	return store
}

// runtimeConfig sizes the race screen to the terminal.
func runtimeConfig(b config.Bundle) core.RuntimeConfig {
	cfg := core.DefaultConfig()
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		cfg.ScreenW, cfg.ScreenH = w, h
	}
	cfg.TickRate = b.Race.TickRate
	cfg.Seed = int64(b.Race.Seed)
	return cfg
}

// loadTrack resolves a built-in track id or a track file path.
func loadTrack(ref string, logger *log.Logger) (*track.Track, error) {
	return track.NewLoader(logger).Load(ref)
}

// directorFactory builds the host director of an online race: the first
// humans karts are seated players, the rest of the grid is automated.
func directorFactory(b config.Bundle, logger *log.Logger) multiplayer.DirectorFactory {
	return func(trackID string, humans int) (*race.Director, error) {
		tr, err := loadTrack(trackID, logger)
		if err != nil {
			return nil, err
		}
		d := race.NewDirector(b.Race, b.Karts, b.Tuning, logger)
		s := d.QuickSetup(tr, humans)
		if len(s.Karts) < humans {
			return nil, fmt.Errorf("track %q has %d grid slots for %d players", trackID, len(s.Karts), humans)
		}
		if err := d.Init(s); err != nil {
			return nil, err
		}
		return d, nil
	}
}
