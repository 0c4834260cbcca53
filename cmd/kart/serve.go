package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
	"github.com/vovakirdan/tui-kart/internal/platform/tui"
	"github.com/vovakirdan/tui-kart/internal/storage"
)

// racePath is where the websocket endpoint is mounted.
const racePath = "/race"

var (
	flagSSHAddr     string
	flagWSAddr      string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSH and websocket race server",
	Long: `Start a server that lets people race over SSH and over websockets.

Each SSH connection gets its own session with the track menu, local races,
the times board and online lobbies. Websocket peers ('kart join') share the
same lobbies, so both kinds of player can race each other. Lap times and
online results are stored per server.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.kart/host_key

Examples:
  kart serve                           # SSH on :23234, websocket on :8080
  kart serve --ssh :2222 --ws ""       # SSH only
  kart serve --host-key ./my_host_key  # Use a specific host key

Users can connect with:
  ssh localhost -p 23234
  kart join ws://localhost:8080/race`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", ":23234", "SSH server address (empty disables)")
	serveCmd.Flags().StringVar(&flagWSAddr, "ws", ":8080", "Websocket server address (empty disables)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

// raceServer is the coordinator shared by every transport of a process.
type raceServer struct {
	coord    *multiplayer.Coordinator
	sessions *multiplayer.SessionRegistry
}

func startRaceServer(b config.Bundle, store *storage.Store, logger *log.Logger) *raceServer {
	cfg := multiplayer.DefaultCoordinatorConfig()
	cfg.TickRate = b.Race.TickRate
	cfg.MaxRaceTicks = b.Race.TickRate * 60 * 10

	sessions := multiplayer.NewSessionRegistry()
	coord := multiplayer.NewCoordinator(cfg, directorFactory(b, logger), sessions, logger)
	if store != nil {
		coord.SetResultSaver(store)
	}
	coord.Start()
	return &raceServer{coord: coord, sessions: sessions}
}

// serveWebsocket serves the websocket endpoint until ctx is cancelled.
func (rs *raceServer) serveWebsocket(ctx context.Context, addr string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(racePath, multiplayer.NewHandler(rs.coord, rs.sessions, logger))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.Info("starting websocket server", "address", addr, "path", racePath)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if flagSSHAddr == "" && flagWSAddr == "" {
		return fmt.Errorf("nothing to serve: both --ssh and --ws are empty")
	}
	logger, closeLog, err := newLogger(true)
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

	rs := startRaceServer(b, store, logger)
	defer rs.coord.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 2)
	running := 0
	if flagSSHAddr != "" {
		cfg := tui.SSHServerConfig{
			Address:     flagSSHAddr,
			HostKeyPath: flagHostKey,
			IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
			Bundle:      b,
		}
		server, err := tui.NewSSHServer(cfg, store, rs.coord, rs.sessions, logger)
		if err != nil {
			return err
		}
		running++
		go func() { errc <- server.Run(ctx) }()
	}
	if flagWSAddr != "" {
		running++
		go func() { errc <- rs.serveWebsocket(ctx, flagWSAddr, logger) }()
	}

	fmt.Println("Press Ctrl+C to stop")

	// The first server to fail takes the other down with it.
	var firstErr error
	for range running {
		if err := <-errc; err != nil && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	return firstErr
}
