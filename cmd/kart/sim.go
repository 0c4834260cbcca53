package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/ghost"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
	"github.com/vovakirdan/tui-kart/internal/platform/tui"
	"github.com/vovakirdan/tui-kart/internal/race"
	"github.com/vovakirdan/tui-kart/internal/snapshot"
	"github.com/vovakirdan/tui-kart/internal/storage"
	"github.com/vovakirdan/tui-kart/internal/track"
)

var (
	flagSimTicks  int
	flagSimKarts  int
	flagSimLaps   int
	flagSimSave   string
	flagSimResume string
	flagSimGhost  bool
	flagSimRecord bool
)

var simCmd = &cobra.Command{
	Use:   "sim <track>",
	Short: "Run a headless race and print the results",
	Long: `Run a race with every kart driven by the automated driver, as fast as
the machine allows, and print the classification. Karts still racing when
the tick limit is reached get an estimated finish.

With --ghost the best stored ghost for the track is replayed alone instead,
and the run is checked against the ghost's recorded finish.

Examples:
  kart sim oval
  kart sim speedway --karts 8 --laps 5 --seed 42
  kart sim oval --ticks 500 --save race.sav
  kart sim oval --resume race.sav
  kart sim oval --ghost`,
	Args: cobra.ExactArgs(1),
	RunE: runSim,
}

func init() {
	simCmd.Flags().IntVar(&flagSimTicks, "ticks", 0, "Stop after this many ticks (0 = 10 simulated minutes)")
	simCmd.Flags().IntVar(&flagSimKarts, "karts", 0, "Number of karts (0 = from race config)")
	simCmd.Flags().IntVar(&flagSimLaps, "laps", 0, "Number of laps (0 = from race config)")
	simCmd.Flags().StringVar(&flagSimSave, "save", "", "Write a save state to this file when the run stops")
	simCmd.Flags().StringVar(&flagSimResume, "resume", "", "Resume from a save state file")
	simCmd.Flags().BoolVar(&flagSimGhost, "ghost", false, "Replay the best stored ghost for the track")
	simCmd.Flags().BoolVar(&flagSimRecord, "record", false, "Store the result with the race history")
}

func runSim(_ *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(true)
	if err != nil {
		return err
	}
	defer closeLog()

	b, err := loadBundle()
	if err != nil {
		return err
	}
	if flagSimKarts > 0 {
		b.Race.Karts = min(flagSimKarts, config.MaxKarts)
	}
	if flagSimLaps > 0 {
		b.Race.Laps = flagSimLaps
	}
	tr, err := loadTrack(args[0], logger)
	if err != nil {
		return err
	}

	var store *storage.Store
	if flagSimGhost || flagSimRecord {
		if store = openStore(logger); store == nil {
			return fmt.Errorf("the database is needed for --ghost and --record")
		}
		defer store.Close()
	}

	d := race.NewDirector(b.Race, b.Karts, b.Tuning, logger)
	codec := snapshot.NewCodec()
	var g *ghost.Ghost
	switch {
	case flagSimResume != "":
		data, err := os.ReadFile(flagSimResume)
		if err != nil {
			return err
		}
		s, err := codec.DecodeSave(data)
		if err != nil {
			return err
		}
		if err := d.Restore(tr, s); err != nil {
			return err
		}
	case flagSimGhost:
		if g, err = store.BestGhost(tr.ID, b.Race.Laps); err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("no ghost stored for %s over %d laps", tr.ID, b.Race.Laps)
		}
		err = d.Init(race.Setup{
			Track: tr,
			Karts: []race.Entrant{{Type: g.KartType, Ghost: true, Slot: g.Slot}},
			Laps:  g.Laps,
			Seed:  b.Race.Seed,
		})
		if err != nil {
			return err
		}
	default:
		if err := d.Init(d.QuickSetup(tr, 0)); err != nil {
			return err
		}
	}

	limit := flagSimTicks
	if limit <= 0 {
		limit = b.Race.TickRate * 60 * 10
	}
	inputs := make([]core.Controls, d.KartCount())
	var replay *ghost.Player
	if g != nil {
		replay = ghost.NewPlayer(g)
	}
	for ran := 0; ran < limit && !d.Done(); ran++ {
		if replay != nil {
			inputs[0] = replay.Next()
		}
		d.Loop(inputs, g == nil)
	}

	if flagSimSave != "" {
		s := d.Save()
		data, err := codec.EncodeSave(&s)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagSimSave, data, 0o644); err != nil {
			return err
		}
		logger.Info("saved race", "path", flagSimSave, "tick", d.Tick())
	}

	done := d.Done()
	stats := d.Estimate()
	printStats(tr, stats, b.Race.TickRate, done)

	if g != nil {
		got := d.Kart(0).FinishTick
		if !done || got != g.Ticks {
			return fmt.Errorf("ghost finished in %s, recorded %s", tui.FormatTicks(got, b.Race.TickRate), tui.FormatTicks(g.Ticks, b.Race.TickRate))
		}
		fmt.Println("\nGhost replay matches its recorded finish.")
	}
	if flagSimRecord {
		return recordSim(store, d, stats, done, b.Race.TickRate, logger)
	}
	return nil
}

func printStats(tr *track.Track, stats []race.KartStats, tickRate int, done bool) {
	fmt.Printf("%s - %d karts\n", tr.Name, len(stats))
	if !done {
		fmt.Println("(tick limit reached, unfinished karts are estimated)")
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  Pos\tKart\tTime\tBest lap\tPickups\t")
	fmt.Fprintln(w, "  ---\t----\t----\t--------\t-------\t")
	for _, s := range stats {
		name := s.Name
		if s.JumpedGun {
			name += " (jumped)"
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%d\t\n", s.FinishOrder+1, name,
			tui.FormatTicks(s.FinishTick, tickRate), tui.FormatTicks(s.BestLap, tickRate), s.Pickups)
	}
	w.Flush()
}

func recordSim(store *storage.Store, d *race.Director, stats []race.KartStats, done bool, tickRate int, logger *log.Logger) error {
	reason := multiplayer.EndCompleted
	if !done {
		reason = multiplayer.EndTimeout
	}
	rec := storage.RaceRecord{
		RaceID:       string(multiplayer.NewRaceID()),
		Track:        d.Track().ID,
		Laps:         d.Laps(),
		EndReason:    reason.String(),
		DurationSecs: d.RaceTicks() / max(tickRate, 1),
		Standings:    make([]multiplayer.Standing, len(stats)),
	}
	for i, s := range stats {
		rec.Standings[i] = multiplayer.Standing{Seat: s.Index, Place: s.FinishOrder, Ticks: s.FinishTick, BestLap: s.BestLap}
	}
	if _, err := store.SaveRace(rec); err != nil {
		return err
	}
	logger.Info("race recorded", "race", rec.RaceID)
	return nil
}
