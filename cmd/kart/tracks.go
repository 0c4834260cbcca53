package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-kart/internal/registry"
	"github.com/vovakirdan/tui-kart/internal/track"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List built-in tracks",
	Long:  `Shows every built-in track with its size and starting grid.`,
	Run:   runTracks,
}

func runTracks(_ *cobra.Command, _ []string) {
	tracks := registry.List()
	if len(tracks) == 0 {
		fmt.Println("No tracks available.")
		return
	}

	fmt.Println("Available tracks:")
	fmt.Println()

	maxIDLen := 2 // "ID" header
	for _, t := range tracks {
		maxIDLen = max(maxIDLen, len(t.ID))
	}

	fmt.Printf("  %-*s  %-5s  %-4s  %s\n", maxIDLen, "ID", "Grid", "Segs", "Title")
	fmt.Printf("  %-*s  %-5s  %-4s  %s\n", maxIDLen, "--", "----", "----", "-----")

	loader := track.NewLoader(log.New(io.Discard))
	for _, t := range tracks {
		grid, segs := "?", "?"
		if tr, err := loader.LoadBuiltin(t.ID); err == nil {
			grid = fmt.Sprint(len(tr.Grid))
			segs = fmt.Sprint(tr.SegmentCount())
		}
		fmt.Printf("  %-*s  %-5s  %-4s  %s\n", maxIDLen, t.ID, grid, segs, t.Title)
	}

	fmt.Println()
	fmt.Println("Run 'kart race <id>' to race a track.")
}
