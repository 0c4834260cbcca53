package multiplayer

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
)

func dialTest(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// await returns the first non-packet event from a client.
func await(t *testing.T, c *Client) SessionEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-c.Events():
			if !ok {
				t.Fatalf("connection closed: %v", c.Err())
			}
			if _, isPacket := evt.(PacketEvent); !isPacket {
				return evt
			}
		case <-timeout:
			t.Fatal("timed out waiting for an event")
			return nil
		}
	}
}

func TestWebsocketRace(t *testing.T) {
	reg := NewSessionRegistry()
	coord := NewCoordinator(fastConfig(), testFactory(t), reg, nil)
	coord.Start()
	t.Cleanup(coord.Stop)

	srv := httptest.NewServer(NewHandler(coord, reg, nil))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	host := dialTest(t, url)
	guest := dialTest(t, url)

	if err := host.Create("oval"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	created, ok := await(t, host).(LobbyCreatedEvent)
	if !ok {
		t.Fatalf("expected LobbyCreatedEvent, got %+v", created)
	}

	if err := guest.Join(strings.ToLower(created.Code)); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	await(t, host)
	if up, ok := await(t, guest).(LobbyUpdatedEvent); !ok || up.Seat != 1 {
		t.Fatalf("guest lobby update %+v", up)
	}

	if err := host.Start(created.Code); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	await(t, host)
	started, ok := await(t, guest).(RaceStartedEvent)
	if !ok || started.Seat != 1 {
		t.Fatalf("guest start event %+v", started)
	}

	mirror, err := NewMirror(started, loadTrack(t, started.Track), testConfig(), config.DefaultKartTable(), config.DefaultTuning(), nil)
	if err != nil {
		t.Fatalf("NewMirror failed: %v", err)
	}
	if err := guest.SendInput(core.ControlUp); err != nil {
		t.Fatalf("SendInput failed: %v", err)
	}

	applied := 0
	deadline := time.After(2 * time.Second)
	for applied < 10 {
		select {
		case evt := <-guest.Events():
			p, ok := evt.(PacketEvent)
			if !ok {
				continue
			}
			if _, err := mirror.Apply(p.Data); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			applied++
		case <-deadline:
			t.Fatalf("only %d packets applied", applied)
		}
	}
	if mirror.Director().Tick() < 10 {
		t.Errorf("mirror tick %d after %d packets", mirror.Director().Tick(), applied)
	}

	host.Quit()
	guest.Quit()
	if ended, ok := await(t, guest).(RaceEndedEvent); !ok || ended.Reason != EndAbandoned {
		t.Fatalf("expected abandoned race, got %+v", ended)
	}
}

func TestWebsocketDisconnectUnregisters(t *testing.T) {
	reg := NewSessionRegistry()
	coord := NewCoordinator(fastConfig(), testFactory(t), reg, nil)
	coord.Start()
	t.Cleanup(coord.Stop)

	srv := httptest.NewServer(NewHandler(coord, reg, nil))
	t.Cleanup(srv.Close)

	c := dialTest(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	c.Create("oval")
	await(t, c)
	if reg.Count() != 1 {
		t.Fatalf("registry holds %d sessions", reg.Count())
	}

	c.Close()
	deadline := time.Now().Add(2 * time.Second)
	for reg.Count() != 0 || coord.LobbyCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session %d, lobbies %d after disconnect", reg.Count(), coord.LobbyCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
