package multiplayer

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/kart"
	"github.com/vovakirdan/tui-kart/internal/race"
	"github.com/vovakirdan/tui-kart/internal/snapshot"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// Mirror is a peer's copy of a networked race. Every kart is remote; the
// state only moves when a host packet is applied.
type Mirror struct {
	director *race.Director
	codec    *snapshot.Codec
	seat     int
}

// NewMirror builds the mirror described by a start event. The track must
// be the one named by the event.
func NewMirror(evt RaceStartedEvent, tr *track.Track, cfg config.Race, props []kart.Properties, tune config.Tuning, logger *log.Logger) (*Mirror, error) {
	if tr == nil || tr.ID != evt.Track {
		return nil, fmt.Errorf("mirror: race is on track %q", evt.Track)
	}
	entrants := make([]race.Entrant, len(evt.KartTypes))
	for i, typ := range evt.KartTypes {
		if typ < 0 || typ >= len(props) {
			return nil, fmt.Errorf("mirror: unknown kart type %d", typ)
		}
		entrants[i] = race.Entrant{Type: typ, Remote: true}
	}

	d := race.NewDirector(cfg, props, tune, logger)
	err := d.Init(race.Setup{
		Track:  tr,
		Karts:  entrants,
		Player: evt.Seat,
		Laps:   evt.Laps,
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	return &Mirror{director: d, codec: snapshot.NewCodec(), seat: evt.Seat}, nil
}

// Apply decodes one packet and mirrors it. It reports whether the packet
// moved the race forward.
func (m *Mirror) Apply(data []byte) (bool, error) {
	p, err := m.codec.DecodePacket(data, m.director.KartCount())
	if err != nil {
		return false, err
	}
	return m.director.ApplyPacket(p), nil
}

// Director exposes the mirrored race to renderers.
func (m *Mirror) Director() *race.Director { return m.director }

// Seat returns the local player's kart index.
func (m *Mirror) Seat() int { return m.seat }
