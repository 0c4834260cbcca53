// Package fixed provides the Q16.16 integer arithmetic the race simulation runs on.
// Nothing in this package touches floating point, so every result is
// bit-identical across platforms and runs.
package fixed

// FracBits is the number of fractional bits in a Fixed value.
const FracBits = 16

// One is 1.0 in fixed-point.
const One Fixed = 1 << FracBits

// Half is 0.5 in fixed-point.
const Half Fixed = One / 2

// Fixed is a signed Q16.16 fixed-point number. One world unit is one track tile.
type Fixed int32

// FromInt converts an integer to fixed-point.
func FromInt(n int) Fixed {
	return Fixed(n << FracBits)
}

// FromRatio builds num/den in fixed-point (den must be non-zero).
func FromRatio(num, den int) Fixed {
	return Fixed((int64(num) << FracBits) / int64(den))
}

// Int returns the integer part, rounding toward negative infinity.
func (f Fixed) Int() int {
	return int(f >> FracBits)
}

// Frac returns the fractional bits.
func (f Fixed) Frac() Fixed {
	return f & (One - 1)
}

// Mul multiplies two fixed-point values.
func Mul(a, b Fixed) Fixed {
	return Fixed((int64(a) * int64(b)) >> FracBits)
}

// Div divides a by b. Division by zero yields zero.
func Div(a, b Fixed) Fixed {
	if b == 0 {
		return 0
	}
	return Fixed((int64(a) << FracBits) / int64(b))
}

// Abs returns the absolute value.
func (f Fixed) Abs() Fixed {
	if f < 0 {
		return -f
	}
	return f
}

// Sign returns -1, 0, or 1.
func (f Fixed) Sign() int {
	if f < 0 {
		return -1
	}
	if f > 0 {
		return 1
	}
	return 0
}

// Clamp restricts f to [lo, hi].
func Clamp(f, lo, hi Fixed) Fixed {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// Sqrt returns the fixed-point square root of a non-negative value.
func Sqrt(f Fixed) Fixed {
	if f <= 0 {
		return 0
	}
	return Fixed(isqrt(uint64(f) << FracBits))
}

// isqrt is the integer square root (floor).
func isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	var res uint64
	bit := uint64(1) << 62
	for bit > n {
		bit >>= 2
	}
	for bit != 0 {
		if n >= res+bit {
			n -= res + bit
			res = (res >> 1) + bit
		} else {
			res >>= 1
		}
		bit >>= 2
	}
	return res
}
