package main

import (
	"fmt"
	"os/user"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/platform/tui"
	"github.com/vovakirdan/tui-kart/internal/storage"
)

var (
	flagTimeTrial bool
	flagPlayer    string
)

var raceCmd = &cobra.Command{
	Use:   "race [track]",
	Short: "Race locally",
	Long: `Race against the automated field, or alone against your best ghost.

Without a track the interactive menu is shown. A track is a built-in id
(see 'kart tracks') or the path of a track file.

Controls:
  W/Up      - Throttle
  S/Down    - Brake
  A/D       - Steer
  P         - Pause
  R         - Race again (after the flag)
  B/Esc     - Back to the menu (paused or finished)
  Q/Ctrl+C  - Quit

Examples:
  kart race
  kart race oval
  kart race speedway --time-trial
  kart race ./tracks/figure8.yaml --difficulty hard`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRace,
}

func init() {
	raceCmd.Flags().BoolVar(&flagTimeTrial, "time-trial", false, "Race alone against the best ghost and record a new one")
	raceCmd.Flags().StringVar(&flagPlayer, "player", "", "Name stored with lap times (default: login name)")
}

func playerName() string {
	if flagPlayer != "" {
		return flagPlayer
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "player"
}

func runRace(_ *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	b, err := loadBundle()
	if err != nil {
		return err
	}
	store := openStore(logger)
	if store != nil {
		defer store.Close()
	}

	if len(args) == 1 {
		_, err := raceTrack(args[0], b, store, logger)
		return err
	}
	return runMenuLoop(b, store, logger)
}

// raceTrack races a track given on the command line.
func raceTrack(ref string, b config.Bundle, store *storage.Store, logger *log.Logger) (bool, error) {
	tr, err := loadTrack(ref, logger)
	if err != nil {
		return false, err
	}
	rt := runtimeConfig(b)
	opts := tui.RaceOptions{
		Track:     tr,
		Config:    b,
		Store:     store,
		Player:    playerName(),
		Logger:    logger,
		TimeTrial: flagTimeTrial,
		Width:     rt.ScreenW,
		Height:    rt.ScreenH,
	}
	if flagTimeTrial && store != nil {
		if opts.Ghost, err = store.BestGhost(tr.ID, b.Race.Laps); err != nil {
			logger.Warn("cannot load ghost", "track", tr.ID, "err", err)
		}
	}
	return tui.RunRace(opts)
}

// runMenuLoop shows the menu until the player quits.
func runMenuLoop(b config.Bundle, store *storage.Store, logger *log.Logger) error {
	difficulty := b.Race.Difficulty
	for {
		res, err := tui.RunMenu(runtimeConfig(b), difficulty)
		if err != nil {
			return fmt.Errorf("menu: %w", err)
		}
		if res.Quit {
			return nil
		}
		difficulty = res.Difficulty

		if res.WantsTimes {
			back, err := tui.RunTimes(store, b.Race.TickRate, res.Config.ScreenW, res.Config.ScreenH)
			if err != nil {
				return err
			}
			if !back {
				return nil
			}
			continue
		}

		opts, err := tui.PrepareRace(res, b, store, playerName(), logger)
		if err != nil {
			return err
		}
		back, err := tui.RunRace(opts)
		if err != nil {
			return err
		}
		if !back {
			return nil
		}
	}
}
