package fixed

import "testing"

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name string
		a, b Fixed
		mul  Fixed
		div  Fixed
	}{
		{"ones", One, One, One, One},
		{"two by half", FromInt(2), Half, One, FromInt(4)},
		{"negative", FromInt(-3), FromInt(2), FromInt(-6), FromRatio(-3, 2)},
		{"zero divisor", FromInt(5), 0, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Mul(tc.a, tc.b); got != tc.mul {
				t.Errorf("Mul(%d, %d) = %d, expected %d", tc.a, tc.b, got, tc.mul)
			}
			if got := Div(tc.a, tc.b); got != tc.div {
				t.Errorf("Div(%d, %d) = %d, expected %d", tc.a, tc.b, got, tc.div)
			}
		})
	}
}

func TestIntFloors(t *testing.T) {
	if got := (FromInt(3) + Half).Int(); got != 3 {
		t.Errorf("Int(3.5) = %d, expected 3", got)
	}
	if got := (FromInt(-3) + Half).Int(); got != -3 {
		t.Errorf("Int(-2.5) = %d, expected -3", got)
	}
}

func TestSqrt(t *testing.T) {
	if got := Sqrt(FromInt(16)); got != FromInt(4) {
		t.Errorf("Sqrt(16) = %d, expected %d", got, FromInt(4))
	}
	if got := Sqrt(0); got != 0 {
		t.Errorf("Sqrt(0) = %d, expected 0", got)
	}
	if got := (Vec{X: FromInt(3), Y: FromInt(4)}).Len(); got != FromInt(5) {
		t.Errorf("|(3,4)| = %d, expected %d", got, FromInt(5))
	}
}

func TestSinCosCardinal(t *testing.T) {
	tests := []struct {
		a        Angle
		sin, cos Fixed
	}{
		{0, 0, One},
		{Quarter, One, 0},
		{HalfTurn, 0, -One},
		{3 * Quarter, -One, 0},
	}

	for _, tc := range tests {
		if got := Sin(tc.a); got != tc.sin {
			t.Errorf("Sin(%d) = %d, expected %d", tc.a, got, tc.sin)
		}
		if got := Cos(tc.a); got != tc.cos {
			t.Errorf("Cos(%d) = %d, expected %d", tc.a, got, tc.cos)
		}
	}
}

func TestAtan2Cardinal(t *testing.T) {
	tests := []struct {
		name string
		x, y Fixed
		want Angle
	}{
		{"east", One, 0, 0},
		{"south", 0, One, Quarter},
		{"west", -One, 0, HalfTurn},
		{"north", 0, -One, 3 * Quarter},
		{"south-east", One, One, Quarter / 2},
		{"zero", 0, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Atan2(tc.y, tc.x); got != tc.want {
				t.Errorf("Atan2(%d, %d) = %d, expected %d", tc.y, tc.x, got, tc.want)
			}
		})
	}
}

func TestAtan2InvertsDir(t *testing.T) {
	for a := 0; a < 65536; a += 97 {
		angle := Angle(a)
		back := Dir(angle).Angle()
		delta := angle.Delta(back)
		if delta < -64 || delta > 64 {
			t.Fatalf("Dir(%d).Angle() = %d, delta %d too large", angle, back, delta)
		}
	}
}

func TestAngleDelta(t *testing.T) {
	if d := Angle(65000).Delta(100); d != 636 {
		t.Errorf("Delta across zero = %d, expected 636", d)
	}
	if d := Angle(100).Delta(65000); d != -636 {
		t.Errorf("Delta backwards = %d, expected -636", d)
	}
}

func TestCrossOrientation(t *testing.T) {
	east := Vec{X: One}
	south := Vec{Y: One}
	if Cross(east, south) <= 0 {
		t.Error("south should be clockwise of east")
	}
	if Cross(south, east) >= 0 {
		t.Error("east should be counter-clockwise of south")
	}
}
