package race

import (
	"fmt"
	"math"
	"slices"

	"github.com/vovakirdan/tui-kart/internal/kart"
)

// StatType selects a per-kart statistic.
type StatType int

const (
	StatLap StatType = iota
	StatRank
	StatFinishOrder
	StatFinishTick
	StatLastLap
	StatBestLap
	StatPickups
	StatJumpedGun
	statCount
)

// String returns the stat name.
func (s StatType) String() string {
	switch s {
	case StatLap:
		return "lap"
	case StatRank:
		return "rank"
	case StatFinishOrder:
		return "finish"
	case StatFinishTick:
		return "finish_tick"
	case StatLastLap:
		return "last_lap"
	case StatBestLap:
		return "best_lap"
	case StatPickups:
		return "pickups"
	case StatJumpedGun:
		return "jumped_gun"
	default:
		return "unknown"
	}
}

// KartStats is the full stat line of one kart.
type KartStats struct {
	Index       int
	Name        string
	Human       bool
	Ghost       bool
	Lap         int
	Rank        int
	FinishOrder int // -1 while racing
	FinishTick  int
	LastLap     int
	BestLap     int
	Pickups     int
	JumpedGun   bool
}

// Stats returns one statistic. An index outside the roster or an unknown
// stat type panics.
func (d *Director) Stats(i int, s StatType) int {
	k := d.karts[i]
	switch s {
	case StatLap:
		return k.LapCount
	case StatRank:
		return k.RaceRank
	case StatFinishOrder:
		return k.FinishOrder
	case StatFinishTick:
		return k.FinishTick
	case StatLastLap:
		return k.LastLapTicks
	case StatBestLap:
		return k.BestLapTicks
	case StatPickups:
		return k.PickupCount
	case StatJumpedGun:
		if k.JumpedGun {
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("race: invalid stat type %d", s))
}

// AllStats returns the stat lines of every active kart in roster order.
func (d *Director) AllStats() []KartStats {
	out := make([]KartStats, len(d.karts))
	for i, k := range d.karts {
		out[i] = statsOf(k)
	}
	return out
}

func statsOf(k *kart.Kart) KartStats {
	return KartStats{
		Index:       k.Index,
		Name:        k.Props.Name,
		Human:       k.Human,
		Ghost:       k.Ghost,
		Lap:         k.LapCount,
		Rank:        k.RaceRank,
		FinishOrder: k.FinishOrder,
		FinishTick:  k.FinishTick,
		LastLap:     k.LastLapTicks,
		BestLap:     k.BestLapTicks,
		Pickups:     k.PickupCount,
		JumpedGun:   k.JumpedGun,
	}
}

// Estimate ends the race early. Every kart still racing is given a finish
// tick extrapolated from its average speed so far and a finish order after
// the karts that really finished. The returned stat lines are in finish
// order.
func (d *Director) Estimate() []KartStats {
	elapsed := int64(max(d.RaceTicks(), 1))
	total := int64(d.laps) * int64(d.track.Length())

	var pending []*kart.Kart
	for _, k := range d.karts {
		if !k.Finished() {
			pending = append(pending, k)
		}
	}
	for _, k := range pending {
		dist := d.distance(k)
		if dist <= 0 {
			k.FinishTick = math.MaxInt32
			continue
		}
		est := elapsed * total / dist
		k.FinishTick = int(min(max(est, elapsed), math.MaxInt32))
	}
	slices.SortStableFunc(pending, func(a, b *kart.Kart) int {
		return a.FinishTick - b.FinishTick
	})
	for _, k := range pending {
		k.FinishOrder = d.finishCursor
		d.finishCursor++
	}
	if len(pending) > 0 {
		d.logger.Info("race estimated", "karts", len(pending), "elapsed", elapsed)
	}
	d.rank()

	out := d.AllStats()
	slices.SortFunc(out, func(a, b KartStats) int { return a.FinishOrder - b.FinishOrder })
	return out
}
