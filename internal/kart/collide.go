package kart

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
)

// CollideFlags alter how an overlap is resolved.
type CollideFlags uint8

const (
	// ForceSeparation pushes the bodies apart along the separation table
	// so that they no longer overlap after the call.
	ForceSeparation CollideFlags = 1 << iota
	// Slide removes only the closing velocity of this kart instead of
	// exchanging a full impulse.
	Slide
)

// separationDirs is the number of entries in the separation table.
const separationDirs = 256

// separation returns the precomputed push-out vector for direction d.
// Each entry is slightly longer than the collision diameter so that a
// forced separation always leaves the bodies apart.
func (t *Tuning) separation(d fixed.Vec) fixed.Vec {
	if t.sep == nil || t.sepDiameter != t.CollisionDiameter {
		var table [separationDirs]fixed.Vec
		length := t.CollisionDiameter + 4
		for i := range table {
			table[i] = fixed.Dir(fixed.AngleFromSteps(uint8(i))).Scale(length)
		}
		t.sep = &table
		t.sepDiameter = t.CollisionDiameter
	}
	return t.sep[d.Angle().Steps()]
}

// overlapping reports whether two centres separated by d are closer than
// the collision diameter.
func (t *Tuning) overlapping(d fixed.Vec) bool {
	diam := int64(t.CollisionDiameter)
	return d.LenSq() < diam*diam>>fixed.FracBits
}

// Touches reports whether the kart's body overlaps a point-sized object.
func (k *Kart) Touches(pos fixed.Vec) bool {
	return k.tune.overlapping(pos.Sub(k.Position))
}

// CollideKart resolves an overlap between k and o. It returns true when
// the bodies overlapped.
func (k *Kart) CollideKart(o *Kart, flags CollideFlags) bool {
	d := o.Position.Sub(k.Position)
	if !k.tune.overlapping(d) {
		return false
	}
	n := d.Normalize()
	if n.IsZero() {
		n = fixed.Dir(k.Heading)
		d = n
	}

	closing := fixed.Dot(k.Velocity.Sub(o.Velocity), n)
	if closing > 0 {
		ma, mb := k.Props.Mass, o.Props.Mass
		imp := fixed.Mul(k.tune.CollisionStrength, fixed.Fixed(closing)) / fixed.Fixed(ma+mb)
		if flags&Slide != 0 {
			k.Velocity = k.Velocity.Sub(n.Scale(fixed.Fixed(closing)))
		} else {
			k.Velocity = k.Velocity.Sub(n.Scale(imp * fixed.Fixed(mb)))
		}
		o.Velocity = o.Velocity.Add(n.Scale(imp * fixed.Fixed(ma)))
		k.syncSpeed()
		o.syncSpeed()
	}

	if flags&ForceSeparation != 0 {
		sep := k.tune.separation(d)
		mid := k.Position.Add(d.Shr(1))
		k.Position = mid.Sub(sep.Shr(1))
		o.Position = k.Position.Add(sep)
	}
	return true
}

// CollideObject resolves an overlap between k and a static object of the
// given mass. Objects never move. A zero mass object is passable and only
// reports the overlap.
func (k *Kart) CollideObject(pos fixed.Vec, mass int32, flags CollideFlags) bool {
	d := pos.Sub(k.Position)
	if !k.tune.overlapping(d) {
		return false
	}
	if mass <= 0 {
		return true
	}
	n := d.Normalize()
	if n.IsZero() {
		n = fixed.Dir(k.Heading)
		d = n
	}

	closing := fixed.Dot(k.Velocity, n)
	if closing > 0 {
		if flags&Slide != 0 {
			k.Velocity = k.Velocity.Sub(n.Scale(fixed.Fixed(closing)))
		} else {
			imp := fixed.Mul(k.tune.CollisionStrength, fixed.Fixed(closing)) / fixed.Fixed(k.Props.Mass+mass)
			k.Velocity = k.Velocity.Sub(n.Scale(imp * fixed.Fixed(mass)))
		}
		k.syncSpeed()
	}

	if flags&ForceSeparation != 0 {
		k.Position = pos.Sub(k.tune.separation(d))
	}
	return true
}

// Bounce reflects the velocity component along the unit normal n, which
// points out of the obstacle, and scales speed down accordingly.
func (k *Kart) Bounce(n fixed.Vec) {
	into := fixed.Dot(k.Velocity, n)
	if into >= 0 {
		return
	}
	imp := fixed.Mul(k.tune.CollisionStrength, fixed.Fixed(into))
	k.Velocity = k.Velocity.Sub(n.Scale(imp))
	k.syncSpeed()
}

// syncSpeed projects the velocity back onto the heading after an impulse.
func (k *Kart) syncSpeed() {
	s := fixed.Fixed(fixed.Dot(k.Velocity, fixed.Dir(k.Heading)))
	k.Speed = fixed.Clamp(s, k.Props.MinSpeed, k.MaxSpeed())
}
