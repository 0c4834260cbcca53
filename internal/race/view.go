package race

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

// KartView is the read-only per-tick view of a kart for renderers.
type KartView struct {
	Index    int
	Name     string
	Position fixed.Vec
	Heading  fixed.Angle
	Speed    fixed.Fixed
	Bump     int // ticks of air left, zero when grounded
	Effect   kart.Effect
	Rank     int
	Lap      int
	Finished bool
	Human    bool
	Ghost    bool
}

// Karts returns a view of every active kart in roster order.
func (d *Director) Karts() []KartView {
	out := make([]KartView, len(d.karts))
	for i, k := range d.karts {
		out[i] = KartView{
			Index:    k.Index,
			Name:     k.Props.Name,
			Position: k.Position,
			Heading:  k.Heading,
			Speed:    k.Speed,
			Bump:     k.BumpTimer,
			Effect:   k.Effect,
			Rank:     k.RaceRank,
			Lap:      k.LapCount,
			Finished: k.Finished(),
			Human:    k.Human,
			Ghost:    k.Ghost,
		}
	}
	return out
}

// Collected reports whether the pickup at object index i has been taken.
func (d *Director) Collected(i int) bool {
	return d.world.Collected[i]
}
