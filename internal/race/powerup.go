package race

import "github.com/vovakirdan/tui-kart/internal/kart"

// powerUp is the fruit machine. state counts down to the payout instant;
// zero means ready.
type powerUp struct {
	state  int
	owner  int
	payout kart.Powerup
	reels  [3]kart.Powerup
}

// PowerUpView is the fruit machine as shown on the HUD.
type PowerUpView struct {
	Ready   bool
	State   int // ticks until payout
	Owner   int
	Payout  kart.Powerup
	Reels   [3]kart.Powerup
	Stopped int // reels already showing their final symbol
}

// triggerPowerup is called by the collision resolver when a kart drives
// over a power-up pad. The roll happens now; the payout is applied when the
// countdown expires.
func (d *Director) triggerPowerup(k *kart.Kart) bool {
	if !d.powerups || d.power.state != 0 || k.Ghost || k.Remote || k.Finished() {
		return false
	}
	p := &d.power
	p.owner = k.Index
	p.state = d.tune.PayoutSteps
	p.reels = d.roll()
	p.payout = majority(p.reels)
	if p.payout == kart.PowerupPickup && !d.pickups {
		p.payout = kart.PowerupNitrous
	}
	d.logger.Debug("fruit machine started", "kart", k.Index, "reels", p.reels, "payout", p.payout)
	return true
}

// roll spins the reels. With ForceChance percent all three reels show the
// same real payout; otherwise each reel lands on any of the five symbols,
// none included.
func (d *Director) roll() [3]kart.Powerup {
	if d.rng.Chance(d.tune.ForceChance) {
		v := kart.Powerup(1 + d.rng.Intn(int(kart.PowerupCount)-1))
		return [3]kart.Powerup{v, v, v}
	}
	var reels [3]kart.Powerup
	for i := range reels {
		reels[i] = kart.Powerup(d.rng.Intn(int(kart.PowerupCount)))
	}
	return reels
}

// majority returns the symbol shown on at least two reels, or none. A
// majority of "none" reels pays out nothing as well.
func majority(r [3]kart.Powerup) kart.Powerup {
	switch {
	case r[0] == r[1] || r[0] == r[2]:
		return r[0]
	case r[1] == r[2]:
		return r[1]
	}
	return kart.PowerupNone
}

func (d *Director) advancePowerUp() {
	p := &d.power
	if p.state == 0 {
		return
	}
	p.state--
	if p.state != 0 {
		return
	}

	k := d.karts[p.owner]
	switch p.payout {
	case kart.PowerupNitrous:
		k.ApplyPowerup(p.payout, d.tune.NitrousTicks)
	case kart.PowerupMisfire:
		k.ApplyPowerup(p.payout, d.tune.MisfireTicks)
	case kart.PowerupSpinout:
		k.ApplyPowerup(p.payout, d.tune.SpinoutTicks)
	case kart.PowerupPickup:
		k.PickupCount += d.tune.PickupPayout
	}
	d.logger.Info("payout", "kart", p.owner, "payout", p.payout)
}

// PowerUp returns the fruit machine state for display.
func (d *Director) PowerUp() PowerUpView {
	p := d.power
	v := PowerUpView{
		Ready:  p.state == 0,
		State:  p.state,
		Owner:  p.owner,
		Payout: p.payout,
		Reels:  p.reels,
	}
	if v.Ready {
		v.Stopped = len(p.reels)
		return v
	}
	for i := range p.reels {
		stop := d.tune.PayoutSteps - (i+1)*d.tune.ReelInterval
		if i == len(p.reels)-1 {
			stop = 0
		}
		if p.state <= stop {
			v.Stopped++
		}
	}
	return v
}
