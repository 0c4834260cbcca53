package race

import (
	"cmp"
	"slices"

	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

// Loop advances the race by one tick. inputs is indexed by kart; missing
// entries read as no input. Kart-to-kart contacts are skipped when
// allowKartCollisions is false, which is how a ghost is replayed next to
// the live player.
func (d *Director) Loop(inputs []core.Controls, allowKartCollisions bool) {
	countdown := d.tick < d.cfg.CountdownTicks
	d.finishedNow = false

	for i, k := range d.karts {
		if k.Remote {
			continue
		}
		var in core.Controls
		if i < len(inputs) {
			in = inputs[i] & core.ControlMask
		}
		if countdown {
			if k.Human && in != 0 && !k.JumpedGun {
				k.JumpedGun = true
				d.logger.Debug("jumped the gun", "kart", k.Index, "tick", d.tick)
			}
			continue
		}
		if k.JumpedGun && d.tick < d.cfg.CountdownTicks+d.tune.JumpPenaltyTicks {
			in = 0
		}
		d.drive(k, in)
		d.progress(k)
		d.watchdog(k)
	}

	d.advancePowerUp()
	d.resolver.Resolve(&d.world, allowKartCollisions)

	if d.finishedNow || d.tick%d.tune.RankInterval == 0 {
		d.rank()
	}
	d.pushCamera()
	d.tick++
}

// drive runs one physics step. Finished karts are taken over by the
// automated driver so they clear the line.
func (d *Director) drive(k *kart.Kart, in core.Controls) {
	if k.Human && !k.Finished() {
		k.Update(in)
		return
	}
	dec := d.nav.Target(k)
	k.UpdateAI(dec.Target, dec.LineDevSq, d.ai)
}

// progress updates segment dwell, lap crossing and the distance used for
// ranking. A lap only counts when the kart has passed the half-way
// segment since its last crossing, so the grid (which sits behind the
// line) and reversing over the line never score.
func (d *Director) progress(k *kart.Kart) {
	seg, arc := d.nav.Progress(k.Position)
	n := d.track.SegmentCount()
	half := n / 2

	switch {
	case k.LastSegment < 0:
		k.LastSegment = seg
	case seg == k.LastSegment:
		k.SegmentDwellTicks++
	default:
		forward := (seg-k.LastSegment+n)%n <= half
		wasFront, isFront := k.LastSegment < half, seg < half
		switch {
		case forward && wasFront && !isFront:
			k.ValidLap = true
		case !forward && !wasFront && isFront:
			k.ValidLap = false
		case forward && !wasFront && isFront && k.ValidLap:
			d.completeLap(k)
		}
		k.LastSegment = seg
		k.SegmentDwellTicks = 0
	}

	// Until the half-way segment is passed the kart is still short of the
	// line it will score on, so its back-half arc belongs to the lap before.
	if !k.ValidLap && seg >= half {
		arc -= d.track.Length()
	}
	k.DistanceThisLap = arc
}

func (d *Director) completeLap(k *kart.Kart) {
	k.ValidLap = false
	if k.Finished() {
		return
	}
	now := d.RaceTicks()
	k.LapCount++
	k.LastLapTicks = now - k.LapStartTick
	if k.BestLapTicks == 0 || k.LastLapTicks < k.BestLapTicks {
		k.BestLapTicks = k.LastLapTicks
	}
	k.LapStartTick = now
	d.lapPending[k.Index] = d.tune.LapRetransmits

	d.logger.Debug("lap completed", "kart", k.Index, "lap", k.LapCount, "ticks", k.LastLapTicks)

	if k.LapCount >= d.laps {
		k.FinishOrder = d.finishCursor
		k.FinishTick = now
		d.finishCursor++
		d.finishedNow = true
		d.logger.Info("kart finished", "kart", k.Index, "place", k.FinishOrder+1, "ticks", now)
	}
}

// watchdog warps an automated kart that has sat in one segment too long
// back onto its line, provided nobody can see it happen.
func (d *Director) watchdog(k *kart.Kart) {
	if k.Human && !k.Finished() {
		return
	}
	if k.SegmentDwellTicks <= d.tune.DwellTicks || d.onScreen(k.Position) {
		return
	}
	seg := d.track.SegmentAt(k.Position)
	pos, heading := d.nav.WarpPoint(k.RacingLine, seg)
	k.Warp(pos, heading)
	d.logger.Debug("watchdog warp", "kart", k.Index, "segment", seg)
}

// onScreen uses the Chebyshev distance from the camera target. A
// perspective view reaches twice as far toward the horizon.
func (d *Director) onScreen(pos fixed.Vec) bool {
	limit := d.tune.CameraDistance
	perspective := false
	if d.viewport != nil {
		limit = d.viewport.CameraDistance()
		perspective = d.viewport.Perspective()
	}
	if perspective {
		limit *= 2
	}
	delta := pos.Sub(d.CameraTarget())
	return max(delta.X.Abs(), delta.Y.Abs()) <= limit
}

// distance is the race progress used for ranking.
func (d *Director) distance(k *kart.Kart) int64 {
	return int64(k.LapCount)*int64(d.track.Length()) + int64(k.DistanceThisLap)
}

// rank recomputes live standings. Finished karts keep their finish order
// ahead of everyone still racing; ties keep roster order.
func (d *Director) rank() {
	copy(d.order, d.karts)
	slices.SortStableFunc(d.order, func(a, b *kart.Kart) int {
		switch {
		case a.Finished() && b.Finished():
			return cmp.Compare(a.FinishOrder, b.FinishOrder)
		case a.Finished():
			return -1
		case b.Finished():
			return 1
		}
		return cmp.Compare(d.distance(b), d.distance(a))
	})
	for r, k := range d.order {
		k.RaceRank = r
	}
}

func (d *Director) pushCamera() {
	d.camera[d.cameraIndex] = d.karts[d.player].Position
	d.cameraIndex = (d.cameraIndex + 1) % cameraFrames
}

// CameraTarget is the mean of the player's recent positions.
func (d *Director) CameraTarget() fixed.Vec {
	var sx, sy int64
	for _, p := range d.camera {
		sx += int64(p.X)
		sy += int64(p.Y)
	}
	return fixed.Vec{X: fixed.Fixed(sx / cameraFrames), Y: fixed.Fixed(sy / cameraFrames)}
}
