package race

import (
	"fmt"
	"slices"

	"github.com/vovakirdan/tui-kart/internal/collision"
	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
	"github.com/vovakirdan/tui-kart/internal/navigation"
	"github.com/vovakirdan/tui-kart/internal/rng"
	"github.com/vovakirdan/tui-kart/internal/snapshot"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// packetWindow is how far ahead of the last applied packet a tick may be.
// Anything else is treated as stale.
const packetWindow = 256

// NextPacket builds the per-tick packet for the current state. At most one
// pending lap time rides along, chosen round-robin across karts; each lap
// is repeated LapRetransmits times to survive packet loss.
func (d *Director) NextPacket() snapshot.Packet {
	p := snapshot.Packet{
		Tick:         uint16(d.tick),
		Karts:        make([]snapshot.KartRecord, len(d.karts)),
		FinishCursor: uint8(d.finishCursor),
		PowerState:   uint8(min(d.power.state, 0xFF)),
		PowerOwner:   uint8(d.power.owner),
		PowerPayout:  uint8(d.power.payout),
	}
	for i, k := range d.karts {
		p.Karts[i] = snapshot.KartRecord{
			X:       uint16(k.Position.X >> 8),
			Y:       uint16(k.Position.Y >> 8),
			Heading: uint8(k.Heading >> 8),
			Rank:    uint8(k.RaceRank),
			Lap:     uint8(min(k.LapCount, 15)),
			Bump:    uint8(min(k.BumpTimer, 15)),
			Effect:  uint8(k.Effect) & 0x0F,
			Speed:   uint8(min(k.Speed.Abs()>>15, 15)),
			Events:  uint8(k.Events) & 0x0F,
		}
	}

	n := len(d.karts)
	for step := range n {
		i := (d.lapCursor + step) % n
		if d.lapPending[i] == 0 {
			continue
		}
		d.lapPending[i]--
		p.Lap = &snapshot.LapRecord{Kart: uint8(i), Ticks: uint16(min(d.karts[i].LastLapTicks, 0xFFFF))}
		d.lapCursor = (i + 1) % n
		break
	}
	return p
}

// ApplyPacket mirrors a host packet onto the remote karts. A tick that is
// not strictly newer than the last applied one, or too far ahead of it,
// means no update this frame and is reported as false.
func (d *Director) ApplyPacket(p snapshot.Packet) bool {
	if d.lastPacket >= 0 {
		delta := int(p.Tick - uint16(d.lastPacket))
		if delta == 0 || delta > packetWindow {
			return false
		}
		d.tick += delta
	} else {
		d.tick = int(p.Tick)
	}
	d.lastPacket = int(p.Tick)

	var finished []*kart.Kart
	for i := range min(len(p.Karts), len(d.karts)) {
		k := d.karts[i]
		if !k.Remote {
			continue
		}
		r := p.Karts[i]
		k.PreviousPosition = k.Position
		k.Position = fixed.Vec{X: fixed.Fixed(r.X) << 8, Y: fixed.Fixed(r.Y) << 8}
		k.Heading = fixed.Angle(r.Heading) << 8
		k.Speed = fixed.Fixed(r.Speed) << 15
		k.RaceRank = int(r.Rank)
		k.BumpTimer = int(r.Bump)
		k.Effect = kart.Effect(r.Effect)
		k.Events = kart.Events(r.Events)
		if int(r.Lap) > k.LapCount {
			k.LapCount = int(r.Lap)
		}
		if k.LapCount >= d.laps && !k.Finished() {
			finished = append(finished, k)
		}
	}
	// Karts that finished between two received packets are ordered by the
	// host's ranking. The host's finish cursor caps how many may be placed,
	// so a lap nibble never gets ahead of the host's own bookkeeping; the
	// rest are placed by a later packet.
	for len(finished) > 0 && d.finishCursor < int(p.FinishCursor) {
		best := 0
		for j, k := range finished {
			if k.RaceRank < finished[best].RaceRank {
				best = j
			}
		}
		k := finished[best]
		k.FinishOrder = d.finishCursor
		k.FinishTick = d.RaceTicks()
		d.finishCursor++
		finished = append(finished[:best], finished[best+1:]...)
	}

	if p.Lap != nil && int(p.Lap.Kart) < len(d.karts) {
		k := d.karts[p.Lap.Kart]
		k.LastLapTicks = int(p.Lap.Ticks)
		if k.BestLapTicks == 0 || k.LastLapTicks < k.BestLapTicks {
			k.BestLapTicks = k.LastLapTicks
		}
	}

	d.power.state = int(p.PowerState)
	d.power.owner = int(p.PowerOwner)
	d.power.payout = kart.Powerup(p.PowerPayout)

	d.pushCamera()
	return true
}

// Save captures the race at full precision.
func (d *Director) Save() snapshot.SaveState {
	s := snapshot.SaveState{
		Version:        snapshot.SaveVersion,
		Track:          d.track.ID,
		Tick:           d.tick,
		CountdownTicks: d.cfg.CountdownTicks,
		Laps:           d.laps,
		Pickups:        d.pickups,
		Powerups:       d.powerups,
		Player:         d.player,
		FinishCursor:   d.finishCursor,
		RNG:            d.rng.State,
		Difficulty:     string(d.preset),
		Power: snapshot.PowerState{
			State:  d.power.state,
			Owner:  d.power.owner,
			Payout: uint8(d.power.payout),
		},
		LapPending:  append([]int(nil), d.lapPending[:len(d.karts)]...),
		LapCursor:   d.lapCursor,
		Camera:      make([][2]int32, cameraFrames),
		CameraIndex: d.cameraIndex,
		Collected:   snapshot.PackBits(d.world.Collected),
		Karts:       make([]kart.State, len(d.karts)),
	}
	for i, r := range d.power.reels {
		s.Power.Reels[i] = uint8(r)
	}
	for i, p := range d.camera {
		s.Camera[i] = [2]int32{int32(p.X), int32(p.Y)}
	}
	for i, k := range d.karts {
		s.Karts[i] = k.State()
	}
	return s
}

// Restore resumes a saved race on tr. The save must have been taken on the
// same track with the current kart table.
func (d *Director) Restore(tr *track.Track, s snapshot.SaveState) error {
	switch {
	case s.Version != snapshot.SaveVersion:
		return fmt.Errorf("race: save version %d, want %d", s.Version, snapshot.SaveVersion)
	case tr == nil || tr.ID != s.Track:
		return fmt.Errorf("race: save is for track %q", s.Track)
	case len(s.Karts) == 0 || len(s.Karts) > MaxKarts:
		return fmt.Errorf("race: save holds %d karts", len(s.Karts))
	case s.Player < 0 || s.Player >= len(s.Karts):
		return fmt.Errorf("race: save player %d outside roster", s.Player)
	case len(s.Camera) != cameraFrames:
		return fmt.Errorf("race: save camera ring has %d frames", len(s.Camera))
	case s.Difficulty != "" && !slices.Contains(config.Presets(), config.DifficultyPreset(s.Difficulty)):
		return fmt.Errorf("race: save has unknown difficulty %q", s.Difficulty)
	}
	for i, ks := range s.Karts {
		if ks.Type < 0 || ks.Type >= len(d.props) {
			return fmt.Errorf("race: save kart %d has unknown type %d", i, ks.Type)
		}
	}

	d.track = tr
	d.nav = navigation.New(tr)
	d.tick = s.Tick
	d.cfg.CountdownTicks = s.CountdownTicks
	d.laps = s.Laps
	d.pickups = s.Pickups
	d.powerups = s.Powerups
	d.player = s.Player
	d.finishCursor = s.FinishCursor
	d.finishedNow = false
	d.rng = rng.Source{State: s.RNG}
	if s.Difficulty != "" {
		d.SetDifficulty(config.DifficultyPreset(s.Difficulty))
	}
	d.power = powerUp{
		state:  s.Power.State,
		owner:  s.Power.Owner,
		payout: kart.Powerup(s.Power.Payout),
	}
	for i, r := range s.Power.Reels {
		d.power.reels[i] = kart.Powerup(r)
	}
	d.lapPending = [MaxKarts]int{}
	copy(d.lapPending[:], s.LapPending)
	d.lapCursor = s.LapCursor
	d.lastPacket = -1
	for i, c := range s.Camera {
		d.camera[i] = fixed.Vec{X: fixed.Fixed(c[0]), Y: fixed.Fixed(c[1])}
	}
	d.cameraIndex = s.CameraIndex

	d.karts = d.roster[:len(s.Karts)]
	d.order = make([]*kart.Kart, len(d.karts))
	for i, ks := range s.Karts {
		d.karts[i].Restore(ks, d.props[ks.Type])
		d.order[i] = d.karts[i]
	}
	d.world = collision.World{
		Karts:          d.karts,
		Track:          tr,
		Collected:      snapshot.UnpackBits(s.Collected, len(tr.Objects())),
		PickupsEnabled: s.Pickups,
		TriggerPowerup: d.triggerPowerup,
	}

	d.logger.Info("race restored", "track", tr.ID, "tick", s.Tick, "karts", len(s.Karts))
	return nil
}
