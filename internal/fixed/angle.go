package fixed

// Angle is a direction measured in 1/65536 of a full turn.
// 0 points along +X and angles grow clockwise on screen.
type Angle uint16

// Common angles.
const (
	Quarter  Angle = 1 << 14
	HalfTurn Angle = 1 << 15
)

// AngleFromSteps converts 1/256-turn steps (the wire resolution) to an Angle.
func AngleFromSteps(steps uint8) Angle {
	return Angle(steps) << 8
}

// Steps returns the angle truncated to 1/256-turn steps.
func (a Angle) Steps() uint8 {
	return uint8(a >> 8)
}

// Delta returns the signed shortest rotation from a to b.
func (a Angle) Delta(b Angle) int32 {
	return int32(int16(b - a))
}

// quarterSine holds sin(i·90°/64) in Q16.16.
var quarterSine = [65]Fixed{
	0, 1608, 3216, 4821, 6424, 8022, 9616, 11204, 12785, 14359, 15924, 17479, 19024,
	20557, 22078, 23586, 25080, 26558, 28020, 29466, 30893, 32303, 33692, 35062, 36410,
	37736, 39040, 40320, 41576, 42806, 44011, 45190, 46341, 47464, 48559, 49624, 50660,
	51665, 52639, 53581, 54491, 55368, 56212, 57022, 57798, 58538, 59244, 59914, 60547,
	61145, 61705, 62228, 62714, 63162, 63572, 63944, 64277, 64571, 64827, 65043, 65220,
	65358, 65457, 65516, 65536,
}

// arcTangent holds atan(i/32) as an Angle.
var arcTangent = [33]int32{
	0, 326, 651, 975, 1297, 1617, 1933, 2246, 2555, 2860, 3159, 3453, 3742, 4025, 4302,
	4572, 4836, 5094, 5344, 5589, 5826, 6058, 6282, 6500, 6712, 6917, 7117, 7310, 7498,
	7679, 7856, 8026, 8192,
}

func sinStep(step int) Fixed {
	step &= 255
	i := step & 63
	switch step >> 6 {
	case 0:
		return quarterSine[i]
	case 1:
		return quarterSine[64-i]
	case 2:
		return -quarterSine[i]
	default:
		return -quarterSine[64-i]
	}
}

// Sin returns sin(a), linearly interpolated between table steps.
func Sin(a Angle) Fixed {
	step := int(a >> 8)
	frac := Fixed(a & 0xFF)
	s0 := sinStep(step)
	s1 := sinStep(step + 1)
	return s0 + (s1-s0)*frac/256
}

// Cos returns cos(a).
func Cos(a Angle) Fixed {
	return Sin(a + Quarter)
}

// Dir returns the unit vector pointing along a.
func Dir(a Angle) Vec {
	return Vec{X: Cos(a), Y: Sin(a)}
}

// Atan2 returns the direction of the vector (x, y).
func Atan2(y, x Fixed) Angle {
	if x == 0 && y == 0 {
		return 0
	}
	ax, ay := int64(x.Abs()), int64(y.Abs())

	var t int32
	if ay <= ax {
		t = atanRatio(ay, ax)
	} else {
		t = int32(Quarter) - atanRatio(ax, ay)
	}
	if x < 0 {
		t = int32(HalfTurn) - t
	}
	if y < 0 {
		t = -t
	}
	return Angle(uint16(t))
}

// atanRatio returns atan(num/den) for 0 <= num <= den, den > 0.
func atanRatio(num, den int64) int32 {
	r := num * 32 * 256 / den
	idx := int(r >> 8)
	if idx >= 32 {
		return arcTangent[32]
	}
	frac := int32(r & 0xFF)
	lo, hi := arcTangent[idx], arcTangent[idx+1]
	return lo + (hi-lo)*frac/256
}
