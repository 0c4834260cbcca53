package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-kart/internal/multiplayer"
	"github.com/vovakirdan/tui-kart/internal/platform/tui"
	"github.com/vovakirdan/tui-kart/internal/track"
)

var (
	flagListen    string
	flagJoinTrack string
)

var hostCmd = &cobra.Command{
	Use:   "host <track>",
	Short: "Host an online race from this terminal",
	Long: `Open a lobby on a track and race in it from this terminal, while
serving the websocket endpoint other players join through.

Examples:
  kart host oval
  kart host speedway --listen :9000

Other players join with:
  kart join ws://<your-address>:8080/race`,
	Args: cobra.ExactArgs(1),
	RunE: runHost,
}

var joinCmd = &cobra.Command{
	Use:   "join <url>",
	Short: "Join an online race over a websocket",
	Long: `Connect to a race server started with 'kart serve' or 'kart host' and
join a lobby with its code, or host a new lobby on the server.

Examples:
  kart join ws://localhost:8080/race
  kart join ws://race.example.com:8080/race --track speedway`,
	Args: cobra.ExactArgs(1),
	RunE: runJoin,
}

func init() {
	hostCmd.Flags().StringVar(&flagListen, "listen", ":8080", "Websocket server address")
	joinCmd.Flags().StringVar(&flagJoinTrack, "track", "oval", "Track offered when hosting on the server")
}

func runHost(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	b, err := loadBundle()
	if err != nil {
		return err
	}
	tr, err := loadTrack(args[0], logger)
	if err != nil {
		return err
	}
	store := openStore(logger)
	if store != nil {
		defer store.Close()
	}

	// Listen before the screen takes over so a busy port is reported.
	ln, err := net.Listen("tcp", flagListen)
	if err != nil {
		return err
	}
	ln.Close()

	rs := startRaceServer(b, store, logger)
	defer rs.coord.Stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		if err := rs.serveWebsocket(ctx, flagListen, logger); err != nil {
			logger.Error("websocket server stopped", "err", err)
		}
	}()

	session := multiplayer.NewChannelSession(multiplayer.NewSessionID(), 0)
	rs.sessions.Register(session)
	defer func() {
		session.Close()
		rs.sessions.Unregister(session.ID())
	}()

	rt := runtimeConfig(b)
	_, err = tui.RunOnline(tui.OnlineOptions{
		Link:   tui.NewLocalLink(rs.coord, session),
		Track:  tr.ID,
		Config: b,
		Logger: logger,
		LoadTrack: func(id string) (*track.Track, error) {
			return loadTrack(id, logger)
		},
		Note:   fmt.Sprintf("Peers join with: kart join ws://<this-host>%s%s", flagListen, racePath),
		Width:  rt.ScreenW,
		Height: rt.ScreenH,
	})
	return err
}

func runJoin(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	b, err := loadBundle()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	client, err := multiplayer.Dial(ctx, args[0], logger)
	cancel()
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", args[0], err)
	}
	defer client.Close()

	rt := runtimeConfig(b)
	_, err = tui.RunOnline(tui.OnlineOptions{
		Link:   client,
		Track:  flagJoinTrack,
		Config: b,
		Logger: logger,
		Width:  rt.ScreenW,
		Height: rt.ScreenH,
	})
	return err
}
