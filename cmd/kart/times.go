package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-kart/internal/platform/tui"
	"github.com/vovakirdan/tui-kart/internal/storage"
)

var (
	flagTimesLimit int
	flagTimesClear bool
)

var timesCmd = &cobra.Command{
	Use:   "times [track]",
	Short: "Show best laps and recent races",
	Long: `Without a track the interactive times board is shown. With a track the
best laps, the track summary and the recent races are printed.

Examples:
  kart times
  kart times oval
  kart times oval --limit 20
  kart times oval --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTimes,
}

func init() {
	timesCmd.Flags().IntVar(&flagTimesLimit, "limit", 10, "Number of laps and races to print")
	timesCmd.Flags().BoolVar(&flagTimesClear, "clear", false, "Delete the lap times of the track")
}

func runTimes(_ *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(len(args) == 1)
	if err != nil {
		return err
	}
	defer closeLog()

	b, err := loadBundle()
	if err != nil {
		return err
	}
	store, err := storage.Open(flagDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		rt := runtimeConfig(b)
		_, err := tui.RunTimes(store, b.Race.TickRate, rt.ScreenW, rt.ScreenH)
		return err
	}

	trackID := args[0]
	if flagTimesClear {
		if err := store.ClearLaps(trackID); err != nil {
			return err
		}
		logger.Info("lap times cleared", "track", trackID)
		return nil
	}
	return printTimes(store, trackID, b.Race.TickRate)
}

func printTimes(store *storage.Store, trackID string, tickRate int) error {
	laps, err := store.BestLaps(trackID, flagTimesLimit)
	if err != nil {
		return err
	}

	fmt.Printf("Best laps - %s\n", trackID)
	fmt.Println()
	if len(laps) == 0 {
		fmt.Println("No laps recorded yet.")
		fmt.Println()
		fmt.Printf("Run 'kart race %s' to set the first time!\n", trackID)
		return nil
	}

	fmt.Printf("  %-4s  %-8s  %-10s  %-12s  %s\n", "Rank", "Lap", "Kart", "Player", "Date")
	fmt.Printf("  %-4s  %-8s  %-10s  %-12s  %s\n", "----", "---", "----", "------", "----")
	for i, l := range laps {
		fmt.Printf("  %-4d  %-8s  %-10s  %-12s  %s\n", i+1, tui.FormatTicks(l.Ticks, tickRate),
			l.Kart, l.Player, l.CreatedAt.Format("2006-01-02 15:04"))
	}

	if stats, err := store.GetTrackStats(trackID); err == nil {
		fmt.Println()
		fmt.Printf("Laps: %d  Best: %s  Average: %s  Races: %d\n", stats.Laps,
			tui.FormatTicks(stats.BestLap, tickRate), tui.FormatTicks(int(stats.AvgLap), tickRate), stats.Races)
		if stats.GhostTicks > 0 {
			fmt.Printf("Ghost to beat: %s\n", tui.FormatTicks(stats.GhostTicks, tickRate))
		}
	}

	races, err := store.RecentRaces(flagTimesLimit)
	if err != nil {
		return err
	}
	printed := false
	for _, r := range races {
		if r.Track != trackID {
			continue
		}
		if !printed {
			fmt.Println()
			fmt.Println("Recent races:")
			printed = true
		}
		winner := r.Winner
		if winner == "" {
			winner = "-"
		}
		fmt.Printf("  %s  %d laps  %-10s  winner %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Laps, r.EndReason, winner)
	}
	return nil
}
