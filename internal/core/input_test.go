package core

import "testing"

func TestInputFrameControls(t *testing.T) {
	tests := []struct {
		name     string
		actions  []Action
		expected Controls
	}{
		{"empty", nil, 0},
		{"throttle", []Action{ActionThrottle}, ControlUp},
		{"brake left", []Action{ActionBrake, ActionSteerLeft}, ControlDown | ControlLeft},
		{"ignores pause", []Action{ActionPause, ActionSteerRight}, ControlRight},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewInputFrame()
			for _, a := range tc.actions {
				f.Set(a)
			}
			if got := f.Controls(); got != tc.expected {
				t.Errorf("Controls() = %04b, expected %04b", got, tc.expected)
			}
		})
	}
}

func TestControlsDeltas(t *testing.T) {
	tests := []struct {
		c               Controls
		steer, throttle int
	}{
		{0, 0, 0},
		{ControlLeft | ControlRight, 0, 0},
		{ControlRight | ControlUp, 1, 1},
		{ControlLeft | ControlDown, -1, -1},
		{ControlUp | ControlDown, 0, 0},
	}

	for _, tc := range tests {
		if got := tc.c.Steer(); got != tc.steer {
			t.Errorf("Steer(%04b) = %d, expected %d", tc.c, got, tc.steer)
		}
		if got := tc.c.Throttle(); got != tc.throttle {
			t.Errorf("Throttle(%04b) = %d, expected %d", tc.c, got, tc.throttle)
		}
	}
}

func TestMake(t *testing.T) {
	if got := Make(true, false, false, true); got != ControlUp|ControlRight {
		t.Errorf("Make() = %04b, expected %04b", got, ControlUp|ControlRight)
	}
}
