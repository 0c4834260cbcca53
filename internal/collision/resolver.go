// Package collision resolves every contact of a race tick: kart against
// kart, kart against static objects, kart against wall tiles, and the
// floor surface under each kart for its next physics step.
package collision

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// World is the mutable race state the resolver works on. The race
// director owns it and passes it in every tick.
type World struct {
	Karts []*kart.Kart
	Track *track.Track

	// Collected marks pickups already taken, indexed like Track.Objects().
	Collected      []bool
	PickupsEnabled bool

	// TriggerPowerup is called when a kart touches a power-up pad. It
	// reports whether the fruit machine started.
	TriggerPowerup func(k *kart.Kart) bool
}

// Resolver applies collision and surface rules.
type Resolver struct {
	bumpTicks int
}

// NewResolver creates a resolver. bumpTicks is how long a kart stays
// airborne after crossing a bump tile.
func NewResolver(bumpTicks int) *Resolver {
	return &Resolver{bumpTicks: bumpTicks}
}

// Resolve runs one tick of collision handling for every kart in w.
// Kart-to-kart contacts are skipped when allowKartCollisions is false.
func (r *Resolver) Resolve(w *World, allowKartCollisions bool) {
	for _, k := range w.Karts {
		k.Events = 0
	}

	for i, k := range w.Karts {
		if allowKartCollisions {
			for _, o := range w.Karts[i+1:] {
				if k.CollideKart(o, kart.ForceSeparation) {
					k.Events |= kart.EventKartHit
					o.Events |= kart.EventKartHit
				}
			}
		}
		r.objects(w, k)
		r.walls(w.Track, k)
		r.surface(w.Track, k)
	}
}

// objects tests the 2x2 block of cells nearest the kart. Objects sit at
// cell centres, so no object outside that block can be within reach.
func (r *Resolver) objects(w *World, k *kart.Kart) {
	cx0 := (k.Position.X - fixed.Half).Int()
	cy0 := (k.Position.Y - fixed.Half).Int()
	objs := w.Track.Objects()

	for cy := cy0; cy <= cy0+1; cy++ {
		for cx := cx0; cx <= cx0+1; cx++ {
			idx := w.Track.ObjectAt(cx, cy)
			if idx < 0 {
				continue
			}
			obj := objs[idx]
			switch obj.Type {
			case track.ObjectPickup:
				if !w.PickupsEnabled || w.Collected[idx] || !k.Human || k.Ghost || k.Finished() {
					continue
				}
				if k.Touches(obj.Pos) {
					w.Collected[idx] = true
					k.PickupCount++
					k.Events |= kart.EventPickup
				}
			case track.ObjectPowerup:
				if w.TriggerPowerup != nil && k.Touches(obj.Pos) && w.TriggerPowerup(k) {
					k.Events |= kart.EventPowerup
				}
			default:
				if obj.Mass > 0 && k.CollideObject(obj.Pos, obj.Mass, kart.ForceSeparation) {
					k.Events |= kart.EventObjectHit
				}
			}
		}
	}
}

// walls stops a kart that moved from an open cell into a wall cell this
// tick. The position is snapped back to the boundary it crossed and the
// kart bounces off it.
func (r *Resolver) walls(t *track.Track, k *kart.Kart) {
	cx, cy := track.CellOf(k.Position)
	if t.CellAt(cx, cy).Tile != track.TileWall {
		return
	}
	px, py := track.CellOf(k.PreviousPosition)
	if t.CellAt(px, py).Tile == track.TileWall {
		return
	}

	hitX := cx != px && t.CellAt(cx, py).Tile == track.TileWall
	hitY := cy != py && t.CellAt(px, cy).Tile == track.TileWall
	if !hitX && !hitY {
		// Corner: only the diagonal cell is wall.
		hitX, hitY = cx != px, cy != py
	}

	if hitX {
		n := fixed.Vec{X: fixed.One}
		if cx > px {
			k.Position.X = fixed.FromInt(cx) - 1
			n.X = -fixed.One
		} else {
			k.Position.X = fixed.FromInt(px)
		}
		k.Bounce(n)
	}
	if hitY {
		n := fixed.Vec{Y: fixed.One}
		if cy > py {
			k.Position.Y = fixed.FromInt(cy) - 1
			n.Y = -fixed.One
		} else {
			k.Position.Y = fixed.FromInt(py)
		}
		k.Bounce(n)
	}
	k.Events |= kart.EventWallHit
}

// surface classifies the floor under the kart for the next physics step
// and picks the visual effect.
func (r *Resolver) surface(t *track.Track, k *kart.Kart) {
	cell := t.CellAt(track.CellOf(k.Position))
	info := t.Surface(cell.Tile)
	k.Surface = info.Surface

	if cell.Bump && !k.Bumped() {
		k.BumpTimer = r.bumpTicks
		k.Events |= kart.EventBump
	}

	switch {
	case k.PowerupEffect() != kart.EffectNone:
		k.Effect = k.PowerupEffect()
	case k.Events&(kart.EventWallHit|kart.EventKartHit|kart.EventObjectHit) != 0:
		k.Effect = kart.EffectSpark
	case k.Speed != 0 && !k.Bumped():
		k.Effect = info.Effect
	default:
		k.Effect = kart.EffectNone
	}
}
