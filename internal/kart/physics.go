package kart

import (
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/fixed"
)

// positionShift scales velocity into per-tick displacement.
const positionShift = 3

// Update advances the kart one tick from manual controls.
func (k *Kart) Update(c core.Controls) {
	k.integrate(c)
}

// UpdateAI steers toward target and advances the kart one tick.
// lineDevSq is the squared distance from the kart to its racing line.
func (k *Kart) UpdateAI(target fixed.Vec, lineDevSq int64, ai AITuning) {
	k.integrate(k.steer(target, lineDevSq, ai))
}

// steer derives controls for an automated kart.
func (k *Kart) steer(target fixed.Vec, lineDevSq int64, ai AITuning) core.Controls {
	if k.ReverseTicks == 0 && k.Speed != 0 && k.Position == k.PreviousPosition {
		k.ReverseTicks = k.tune.ReverseTicks
		k.ReverseSide = -k.ReverseSide
	}
	if k.ReverseTicks > 0 {
		k.ReverseTicks--
		return core.Make(false, true, k.ReverseSide < 0, k.ReverseSide > 0)
	}

	toTarget := target.Sub(k.Position)
	dev := k.Heading.Delta(toTarget.Angle())

	right, left := ai.CorrectR, ai.CorrectL
	if lineDevSq > ai.FarLineSq {
		right /= 2
		left /= 2
	}

	up := true
	abs := dev
	if abs < 0 {
		abs = -abs
	}
	if abs > ai.BrakeAngle && k.Speed > k.Props.MaxCornerSpeed {
		up = false
	}

	return core.Make(up, false, dev < -left, dev > right)
}

// integrate is the single physics step shared by manual and automated karts.
func (k *Kart) integrate(c core.Controls) {
	if k.PowerupTimer > 0 {
		k.PowerupTimer--
		if k.PowerupTimer == 0 {
			k.Powerup = PowerupNone
		}
	}
	if k.BumpTimer > 0 {
		k.BumpTimer--
	}

	p := &k.Props
	up, down := c.Up(), c.Down()
	steer := c.Steer()
	accel := p.Acceleration
	traction := k.Surface.Traction

	switch k.Powerup {
	case PowerupNitrous:
		accel *= 2
	case PowerupMisfire:
		up = false
	case PowerupSpinout:
		traction *= k.tune.SpinTraction
		steer = k.SpinSide
	}
	if k.Surface.Boost {
		accel += accel / 2
	}

	throttle := 0
	if up {
		throttle++
	}
	if down {
		throttle--
	}

	unconstrained := steer == 0 || k.Powerup == PowerupNitrous || k.BumpTimer > 1
	if throttle != 0 {
		if unconstrained || k.Speed.Abs() <= p.MaxCornerSpeed {
			k.Speed += fixed.Fixed(throttle) * accel
		} else {
			k.Speed -= k.Speed / fixed.Fixed(p.Deceleration)
		}
	}

	turn := int32(int64(steer) * ((int64(p.SteerGain) * int64(k.Speed)) >> fixed.FracBits))
	if k.Bumped() {
		turn /= 2
	}
	k.Heading = fixed.Angle(uint16(int32(k.Heading) + turn))

	if traction < 1 {
		traction = 1
	}
	target := fixed.Dir(k.Heading).Scale(k.Speed)
	k.Velocity = k.Velocity.Add(target.Sub(k.Velocity).DivInt(int(traction)))

	if k.Bumped() {
		k.Speed -= k.Speed / fixed.Fixed(k.tune.AirResistance)
	} else if k.Surface.Friction > 0 {
		k.Speed -= k.Speed / fixed.Fixed(k.Surface.Friction)
	}
	if k.Speed.Abs() < p.Acceleration/2 {
		k.Speed = 0
	}
	k.Speed = fixed.Clamp(k.Speed, p.MinSpeed, k.MaxSpeed())

	k.PreviousPosition = k.Position
	k.Position = k.Position.Add(k.Velocity.Shr(positionShift))
}
