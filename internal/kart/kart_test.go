package kart

import (
	"testing"

	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/rng"
)

func newTestKart(t *testing.T) *Kart {
	t.Helper()
	tune := DefaultTuning()
	k := New(0, &tune)
	k.Reset(0, DefaultProperties(), fixed.V(10, 10), 0, true, rng.New(42))
	return k
}

func TestDefaultPropertiesValid(t *testing.T) {
	if err := DefaultProperties().Validate(); err != nil {
		t.Fatalf("default properties invalid: %v", err)
	}
}

func TestPropertiesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Properties)
	}{
		{"zero acceleration", func(p *Properties) { p.Acceleration = 0 }},
		{"small deceleration", func(p *Properties) { p.Deceleration = 1 }},
		{"no steering", func(p *Properties) { p.SteerGain = 0 }},
		{"massless", func(p *Properties) { p.Mass = 0 }},
		{"positive min speed", func(p *Properties) { p.MinSpeed = fixed.One }},
		{"corner above max", func(p *Properties) { p.MaxCornerSpeed = p.MaxSpeed + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProperties()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSpeedStaysClamped(t *testing.T) {
	k := newTestKart(t)
	r := rng.New(7)
	payouts := []Powerup{PowerupNone, PowerupNitrous, PowerupMisfire, PowerupSpinout}

	for tick := 0; tick < 3000; tick++ {
		if tick%100 == 0 {
			k.ApplyPowerup(payouts[r.Intn(len(payouts))], 40)
		}
		if tick%37 == 0 {
			k.BumpTimer = 8
		}
		k.Update(core.Controls(r.Intn(16)))
		if k.Speed < k.Props.MinSpeed || k.Speed > k.MaxSpeed() {
			t.Fatalf("tick %d: speed %d outside [%d, %d]", tick, k.Speed, k.Props.MinSpeed, k.MaxSpeed())
		}
	}
}

func TestNitrousRaisesTopSpeed(t *testing.T) {
	plain := newTestKart(t)
	boosted := newTestKart(t)
	boosted.ApplyPowerup(PowerupNitrous, 1000)

	for i := 0; i < 300; i++ {
		plain.Update(core.ControlUp)
		boosted.Update(core.ControlUp)
	}

	if plain.Speed > plain.Props.MaxSpeed {
		t.Errorf("plain kart exceeded max speed: %d", plain.Speed)
	}
	if boosted.Speed <= plain.Props.MaxSpeed {
		t.Errorf("nitrous kart speed %d should exceed base max %d", boosted.Speed, plain.Props.MaxSpeed)
	}
	if boosted.Speed != boosted.MaxSpeed() {
		t.Errorf("nitrous kart speed %d, want cap %d", boosted.Speed, boosted.MaxSpeed())
	}
}

func TestMisfireBlocksThrottle(t *testing.T) {
	k := newTestKart(t)
	k.ApplyPowerup(PowerupMisfire, 20)
	for i := 0; i < 10; i++ {
		k.Update(core.ControlUp)
	}
	if k.Speed != 0 {
		t.Errorf("speed = %d during misfire, want 0", k.Speed)
	}
}

func TestPowerupExpires(t *testing.T) {
	k := newTestKart(t)
	k.ApplyPowerup(PowerupNitrous, 3)
	for i := 0; i < 3; i++ {
		k.Update(0)
	}
	if k.Powerup != PowerupNone || k.PowerupTimer != 0 {
		t.Errorf("powerup = %v timer %d after expiry", k.Powerup, k.PowerupTimer)
	}
}

func TestSpinoutForcesSteering(t *testing.T) {
	k := newTestKart(t)
	k.Speed = fixed.FromInt(2)
	k.ApplyPowerup(PowerupSpinout, 10)
	before := k.Heading
	k.Update(core.ControlUp)
	if k.Heading == before {
		t.Error("heading unchanged during spinout")
	}
	delta := before.Delta(k.Heading)
	if (delta > 0) != (k.SpinSide > 0) {
		t.Errorf("heading turned %d, spin side %d", delta, k.SpinSide)
	}
}

func TestCorneringCapDecelerates(t *testing.T) {
	k := newTestKart(t)
	k.Speed = k.Props.MaxSpeed
	k.Update(core.ControlUp | core.ControlRight)
	if k.Speed >= k.Props.MaxSpeed {
		t.Errorf("speed %d should drop while steering above corner speed", k.Speed)
	}
}

func TestStuckRecoveryAlternatesSides(t *testing.T) {
	k := newTestKart(t)
	k.Human = false
	ai := AITuning{CorrectR: 512, CorrectL: 512, BrakeAngle: 8192, FarLineSq: int64(fixed.One) * 4}
	target := fixed.V(20, 10)

	k.Speed = fixed.One
	k.UpdateAI(target, 0, ai)
	if k.ReverseSide != -1 {
		t.Fatalf("first trigger side = %d, want -1", k.ReverseSide)
	}
	if k.ReverseTicks != k.tune.ReverseTicks-1 {
		t.Fatalf("reverse ticks = %d, want %d", k.ReverseTicks, k.tune.ReverseTicks-1)
	}

	k.ReverseTicks = 0
	k.Speed = fixed.One
	k.PreviousPosition = k.Position
	k.UpdateAI(target, 0, ai)
	if k.ReverseSide != 1 {
		t.Errorf("second trigger side = %d, want 1", k.ReverseSide)
	}
}

func TestAIStartsFromRest(t *testing.T) {
	k := newTestKart(t)
	k.Human = false
	ai := AITuning{CorrectR: 512, CorrectL: 512, BrakeAngle: 8192, FarLineSq: int64(fixed.One) * 4}
	for i := 0; i < 20; i++ {
		k.UpdateAI(fixed.V(40, 10), 0, ai)
	}
	if k.ReverseTicks != 0 {
		t.Errorf("kart reversing from a standing start")
	}
	if k.Position.X <= fixed.FromInt(10) {
		t.Errorf("kart did not advance toward target: x=%d", k.Position.X)
	}
}

func TestForceSeparationNonPenetration(t *testing.T) {
	tests := []struct {
		name   string
		offset fixed.Vec
	}{
		{"coincident", fixed.Vec{}},
		{"horizontal", fixed.Vec{X: fixed.One / 4}},
		{"vertical", fixed.Vec{Y: -fixed.One / 3}},
		{"diagonal", fixed.Vec{X: fixed.One / 5, Y: fixed.One / 7}},
		{"barely", fixed.Vec{X: fixed.One*3/4 - 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tune := DefaultTuning()
			a, b := New(0, &tune), New(1, &tune)
			a.Reset(0, DefaultProperties(), fixed.V(5, 5), fixed.Quarter/3, false, rng.New(1))
			b.Reset(0, DefaultProperties(), fixed.V(5, 5).Add(tt.offset), 0, false, rng.New(2))
			a.Velocity = fixed.Vec{X: fixed.One}

			if !a.CollideKart(b, ForceSeparation) {
				t.Fatal("expected overlap")
			}
			limit := int64(tune.CollisionDiameter - 4)
			if got := b.Position.Sub(a.Position).LenSq(); got < limit*limit>>fixed.FracBits {
				t.Errorf("distance² %d below %d", got, limit*limit>>fixed.FracBits)
			}
		})
	}
}

func TestObjectSeparation(t *testing.T) {
	k := newTestKart(t)
	obj := k.Position.Add(fixed.Vec{X: fixed.One / 8})
	k.Velocity = fixed.Vec{X: fixed.One}
	if !k.CollideObject(obj, 8, ForceSeparation) {
		t.Fatal("expected overlap")
	}
	limit := int64(k.tune.CollisionDiameter - 4)
	if got := obj.Sub(k.Position).LenSq(); got < limit*limit>>fixed.FracBits {
		t.Errorf("distance² %d below %d", got, limit*limit>>fixed.FracBits)
	}
	if k.Velocity.X >= fixed.One {
		t.Errorf("velocity not reduced: %d", k.Velocity.X)
	}
}

func TestPassableObjectOnlyReports(t *testing.T) {
	k := newTestKart(t)
	k.Velocity = fixed.Vec{X: fixed.One}
	pos := k.Position
	if !k.CollideObject(pos.Add(fixed.Vec{X: fixed.One / 4}), 0, ForceSeparation) {
		t.Fatal("expected overlap")
	}
	if k.Position != pos || k.Velocity.X != fixed.One {
		t.Error("passable object moved the kart")
	}
}

func TestCollisionImpulseConservesMomentum(t *testing.T) {
	tune := DefaultTuning()
	a, b := New(0, &tune), New(1, &tune)
	a.Reset(0, DefaultProperties(), fixed.V(0, 0), 0, false, rng.New(1))
	b.Reset(0, DefaultProperties(), fixed.Vec{X: fixed.One / 2}, 0, false, rng.New(2))
	a.Velocity = fixed.Vec{X: fixed.One}

	a.CollideKart(b, 0)

	if a.Velocity.X != fixed.One/4 {
		t.Errorf("a velocity = %d, want %d", a.Velocity.X, fixed.One/4)
	}
	if b.Velocity.X != fixed.One*3/4 {
		t.Errorf("b velocity = %d, want %d", b.Velocity.X, fixed.One*3/4)
	}
}

func TestSlideRemovesClosingComponent(t *testing.T) {
	tune := DefaultTuning()
	a, b := New(0, &tune), New(1, &tune)
	a.Reset(0, DefaultProperties(), fixed.V(0, 0), 0, false, rng.New(1))
	b.Reset(0, DefaultProperties(), fixed.Vec{X: fixed.One / 2}, 0, false, rng.New(2))
	a.Velocity = fixed.Vec{X: fixed.One, Y: fixed.One / 2}

	a.CollideKart(b, Slide)

	if a.Velocity.X != 0 || a.Velocity.Y != fixed.One/2 {
		t.Errorf("a velocity = %+v, want {0 %d}", a.Velocity, fixed.One/2)
	}
}

func TestBounceReflects(t *testing.T) {
	k := newTestKart(t)
	k.Velocity = fixed.Vec{X: fixed.One}
	k.Bounce(fixed.Vec{X: -fixed.One})
	if k.Velocity.X >= 0 {
		t.Errorf("velocity after bounce = %d, want negative", k.Velocity.X)
	}
}

func TestStateRoundTripKeepsTrajectory(t *testing.T) {
	inputs := make([]core.Controls, 400)
	r := rng.New(99)
	for i := range inputs {
		inputs[i] = core.Make(r.Chance(80), r.Chance(5), r.Chance(20), r.Chance(20))
	}

	a := newTestKart(t)
	for _, in := range inputs[:200] {
		a.Update(in)
	}
	a.ApplyPowerup(PowerupSpinout, 12)

	saved := a.State()
	b := newTestKart(t)
	b.Restore(saved, DefaultProperties())
	if b.State() != saved {
		t.Fatalf("restored state differs:\n%+v\n%+v", b.State(), saved)
	}

	for _, in := range inputs[200:] {
		a.Update(in)
		b.Update(in)
	}
	if a.State() != b.State() {
		t.Errorf("trajectories diverged after restore")
	}
}

func TestUpdateDeterminism(t *testing.T) {
	run := func() State {
		k := newTestKart(t)
		r := rng.New(1234)
		for i := 0; i < 500; i++ {
			if i == 100 {
				k.ApplyPowerup(PowerupSpinout, 30)
			}
			k.Update(core.Controls(r.Intn(16)))
		}
		return k.State()
	}
	if run() != run() {
		t.Error("identical inputs produced different states")
	}
}
