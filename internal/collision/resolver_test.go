package collision

import (
	"testing"

	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
	"github.com/vovakirdan/tui-kart/internal/rng"
	"github.com/vovakirdan/tui-kart/internal/track"
)

func testTrack(t *testing.T) *track.Track {
	t.Helper()
	loop := []track.Point{{1.5, 1.5}, {8.5, 1.5}, {8.5, 4.5}, {1.5, 4.5}}
	tr, err := track.Build(track.File{
		ID: "arena",
		Tiles: []string{
			"##########",
			"#........#",
			"#..^.....#",
			"#,,~~++..#",
			"#........#",
			"##########",
		},
		Grid: []track.Point{{1.5, 1.5}},
		Objects: []track.ObjectSpec{
			{X: 5, Y: 1, Type: "pickup"},
			{X: 7, Y: 1, Type: "powerup"},
			{X: 7, Y: 4, Type: "decor", Mass: 8},
		},
		Lines: [][]track.Point{loop, loop, loop, loop},
	})
	if err != nil {
		t.Fatalf("build track: %v", err)
	}
	return tr
}

var tuning = kart.DefaultTuning()

func at(index int, human bool, x, y float64) *kart.Kart {
	k := kart.New(index, &tuning)
	pos := fixed.Vec{X: fixed.Fixed(x * float64(fixed.One)), Y: fixed.Fixed(y * float64(fixed.One))}
	k.Reset(0, kart.DefaultProperties(), pos, 0, human, rng.New(uint64(index)+1))
	return k
}

func world(tr *track.Track, karts ...*kart.Kart) *World {
	return &World{
		Karts:          karts,
		Track:          tr,
		Collected:      make([]bool, len(tr.Objects())),
		PickupsEnabled: true,
	}
}

func TestKartContacts(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)

	a, b := at(0, true, 2.5, 4.5), at(1, false, 2.8, 4.5)
	r.Resolve(world(tr, a, b), false)
	if a.Events&kart.EventKartHit != 0 {
		t.Error("kart contact reported with collisions disabled")
	}

	r.Resolve(world(tr, a, b), true)
	if a.Events&kart.EventKartHit == 0 || b.Events&kart.EventKartHit == 0 {
		t.Error("both karts should see the contact")
	}
	limit := int64(tuning.CollisionDiameter - 4)
	if d := b.Position.Sub(a.Position).LenSq(); d < limit*limit>>fixed.FracBits {
		t.Errorf("karts still overlap: %d", d)
	}
}

func TestPickupRules(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)

	ai := at(0, false, 5.5, 1.5)
	w := world(tr, ai)
	r.Resolve(w, true)
	if ai.PickupCount != 0 || w.Collected[0] {
		t.Error("automated karts must not collect pickups")
	}

	human := at(1, true, 5.5, 1.5)
	w = world(tr, human)
	r.Resolve(w, true)
	if human.PickupCount != 1 || !w.Collected[0] || human.Events&kart.EventPickup == 0 {
		t.Errorf("pickup not collected: count=%d events=%b", human.PickupCount, human.Events)
	}
	r.Resolve(w, true)
	if human.PickupCount != 1 {
		t.Error("pickup collected twice")
	}

	done := at(2, true, 5.5, 1.5)
	done.FinishOrder = 0
	w = world(tr, done)
	r.Resolve(w, true)
	if done.PickupCount != 0 {
		t.Error("finished karts must not collect pickups")
	}

	off := at(3, true, 5.5, 1.5)
	w = world(tr, off)
	w.PickupsEnabled = false
	r.Resolve(w, true)
	if off.PickupCount != 0 {
		t.Error("pickups disabled but collected")
	}
}

func TestPowerupPadTriggers(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)
	k := at(0, false, 7.4, 1.6)
	w := world(tr, k)

	calls := 0
	ready := true
	w.TriggerPowerup = func(got *kart.Kart) bool {
		calls++
		if got != k {
			t.Error("wrong kart passed to trigger")
		}
		was := ready
		ready = false
		return was
	}

	r.Resolve(w, true)
	if calls != 1 || k.Events&kart.EventPowerup == 0 {
		t.Errorf("calls=%d events=%b", calls, k.Events)
	}
	r.Resolve(w, true)
	if k.Events&kart.EventPowerup != 0 {
		t.Error("busy machine should not raise the power-up event")
	}
}

func TestDecorBlocks(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)
	k := at(0, false, 7.1, 4.5)
	k.Velocity = fixed.Vec{X: fixed.One}

	r.Resolve(world(tr, k), true)
	if k.Events&kart.EventObjectHit == 0 {
		t.Fatal("expected object hit")
	}
	centre := tr.Objects()[2].Pos
	limit := int64(tuning.CollisionDiameter - 4)
	if d := centre.Sub(k.Position).LenSq(); d < limit*limit>>fixed.FracBits {
		t.Errorf("kart inside decor: %d", d)
	}
	if k.Effect != kart.EffectSpark {
		t.Errorf("effect = %d, want spark", k.Effect)
	}
}

func TestWallSnapsBack(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)
	k := at(0, false, 9.1, 2.5)
	k.PreviousPosition = fixed.Vec{X: fixed.FromInt(8) + fixed.One*9/10, Y: k.Position.Y}
	k.Velocity = fixed.Vec{X: fixed.One}

	r.Resolve(world(tr, k), true)
	if k.Events&kart.EventWallHit == 0 {
		t.Fatal("expected wall hit")
	}
	if k.Position.X != fixed.FromInt(9)-1 {
		t.Errorf("x = %d, want %d", k.Position.X, fixed.FromInt(9)-1)
	}
	if k.Velocity.X >= 0 {
		t.Errorf("velocity should point away from the wall, got %d", k.Velocity.X)
	}
}

func TestWallCorner(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)
	k := at(0, false, 9.1, 5.1)
	k.PreviousPosition = fixed.Vec{X: fixed.FromInt(8) + fixed.One*8/10, Y: fixed.FromInt(4) + fixed.One*8/10}

	r.Resolve(world(tr, k), true)
	cx, cy := track.CellOf(k.Position)
	if cx != 8 || cy != 4 {
		t.Errorf("kart left in cell %d,%d", cx, cy)
	}
}

func TestSurfaceClassification(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)

	tests := []struct {
		name     string
		x, y     float64
		traction int32
		boost    bool
		effect   kart.Effect
	}{
		{"normal", 1.5, 1.5, 2, false, kart.EffectNone},
		{"slow", 1.5, 3.5, 2, false, kart.EffectDust},
		{"skid", 3.5, 3.5, 8, false, kart.EffectNone},
		{"fast", 5.5, 3.5, 2, true, kart.EffectNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := at(0, false, tt.x, tt.y)
			k.Speed = fixed.One
			r.Resolve(world(tr, k), true)
			if k.Surface.Traction != tt.traction || k.Surface.Boost != tt.boost {
				t.Errorf("surface = %+v", k.Surface)
			}
			if k.Effect != tt.effect {
				t.Errorf("effect = %d, want %d", k.Effect, tt.effect)
			}
		})
	}
}

func TestBumpTile(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(6)
	k := at(0, false, 3.5, 2.5)
	r.Resolve(world(tr, k), true)
	if k.BumpTimer != 6 || k.Events&kart.EventBump == 0 {
		t.Errorf("bump timer = %d events=%b", k.BumpTimer, k.Events)
	}
	k.BumpTimer = 3
	r.Resolve(world(tr, k), true)
	if k.BumpTimer != 3 {
		t.Error("airborne kart should not be bumped again")
	}
}

func TestPowerupEffectOverridesSurface(t *testing.T) {
	tr := testTrack(t)
	r := NewResolver(8)
	k := at(0, false, 1.5, 3.5)
	k.Speed = fixed.One
	k.ApplyPowerup(kart.PowerupNitrous, 10)
	r.Resolve(world(tr, k), true)
	if k.Effect != kart.EffectNitrous {
		t.Errorf("effect = %d, want nitrous", k.Effect)
	}
}
