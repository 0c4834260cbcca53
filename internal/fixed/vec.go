package fixed

// Vec is a 2D fixed-point vector. +X is right, +Y is down.
type Vec struct {
	X, Y Fixed
}

// V builds a vector from whole tile coordinates.
func V(x, y int) Vec {
	return Vec{X: FromInt(x), Y: FromInt(y)}
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale multiplies both components by s.
func (v Vec) Scale(s Fixed) Vec {
	return Vec{X: Mul(v.X, s), Y: Mul(v.Y, s)}
}

// DivInt divides both components by n (truncating toward zero).
func (v Vec) DivInt(n int) Vec {
	if n == 0 {
		return Vec{}
	}
	return Vec{X: v.X / Fixed(n), Y: v.Y / Fixed(n)}
}

// Shr arithmetic-shifts both components right by n bits.
func (v Vec) Shr(n uint) Vec {
	return Vec{X: v.X >> n, Y: v.Y >> n}
}

// Neg returns -v.
func (v Vec) Neg() Vec {
	return Vec{X: -v.X, Y: -v.Y}
}

// IsZero reports whether both components are zero.
func (v Vec) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Dot returns the dot product in Q16.16, widened to int64 so that
// products of map-sized vectors cannot overflow.
func Dot(a, b Vec) int64 {
	return (int64(a.X)*int64(b.X) + int64(a.Y)*int64(b.Y)) >> FracBits
}

// Cross returns the z component of a × b in Q16.16 (int64).
// Positive means b lies clockwise of a on screen.
func Cross(a, b Vec) int64 {
	return (int64(a.X)*int64(b.Y) - int64(a.Y)*int64(b.X)) >> FracBits
}

// LenSq returns |v|² in Q16.16 (int64).
func (v Vec) LenSq() int64 {
	return Dot(v, v)
}

// Len returns |v|.
func (v Vec) Len() Fixed {
	sq := v.LenSq()
	if sq <= 0 {
		return 0
	}
	return Fixed(isqrt(uint64(sq) << FracBits))
}

// Normalize returns the unit vector in the direction of v, or zero.
func (v Vec) Normalize() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return Vec{X: Div(v.X, l), Y: Div(v.Y, l)}
}

// Angle returns the direction of v.
func (v Vec) Angle() Angle {
	return Atan2(v.Y, v.X)
}
