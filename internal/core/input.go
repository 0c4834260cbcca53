package core

// Action represents a semantic driver action, abstracted from physical key presses.
type Action int

const (
	ActionNone       Action = iota
	ActionThrottle          // W, Up arrow - accelerate
	ActionBrake             // S, Down arrow - brake / reverse
	ActionSteerLeft         // A, Left arrow
	ActionSteerRight        // D, Right arrow
	ActionConfirm           // Enter - start race / confirm
	ActionBack              // B, Escape - back to menu
	ActionRestart           // R key - restart after the race
	ActionQuit              // Q, Ctrl+C - exit
	ActionPause             // P - pause/unpause
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionThrottle:
		return "Throttle"
	case ActionBrake:
		return "Brake"
	case ActionSteerLeft:
		return "Left"
	case ActionSteerRight:
		return "Right"
	case ActionConfirm:
		return "Confirm"
	case ActionBack:
		return "Back"
	case ActionRestart:
		return "Restart"
	case ActionQuit:
		return "Quit"
	case ActionPause:
		return "Pause"
	default:
		return "Unknown"
	}
}

// InputFrame collects the actions pressed by one driver during a tick.
type InputFrame struct {
	Actions map[Action]bool
}

// NewInputFrame creates an empty input frame.
func NewInputFrame() InputFrame {
	return InputFrame{
		Actions: make(map[Action]bool),
	}
}

// Set marks an action as triggered for this frame.
func (f *InputFrame) Set(a Action) {
	if f.Actions == nil {
		f.Actions = make(map[Action]bool)
	}
	f.Actions[a] = true
}

// Has returns true if the given action was triggered this frame.
func (f InputFrame) Has(a Action) bool {
	if f.Actions == nil {
		return false
	}
	return f.Actions[a]
}

// Clear resets all actions for the next frame.
func (f *InputFrame) Clear() {
	for k := range f.Actions {
		delete(f.Actions, k)
	}
}

// Controls is the per-tick driving input of one kart packed into a byte.
// It is what the simulation consumes, what ghosts record and what peers send.
type Controls uint8

// Control bits.
const (
	ControlUp Controls = 1 << iota
	ControlDown
	ControlLeft
	ControlRight
)

// ControlMask covers every defined control bit.
const ControlMask = ControlUp | ControlDown | ControlLeft | ControlRight

// Controls extracts the driving bits from a frame.
func (f InputFrame) Controls() Controls {
	var c Controls
	if f.Has(ActionThrottle) {
		c |= ControlUp
	}
	if f.Has(ActionBrake) {
		c |= ControlDown
	}
	if f.Has(ActionSteerLeft) {
		c |= ControlLeft
	}
	if f.Has(ActionSteerRight) {
		c |= ControlRight
	}
	return c
}

// Up reports whether the throttle is pressed.
func (c Controls) Up() bool { return c&ControlUp != 0 }

// Down reports whether the brake is pressed.
func (c Controls) Down() bool { return c&ControlDown != 0 }

// Left reports whether steering left.
func (c Controls) Left() bool { return c&ControlLeft != 0 }

// Right reports whether steering right.
func (c Controls) Right() bool { return c&ControlRight != 0 }

// Steer returns -1, 0 or 1.
func (c Controls) Steer() int {
	s := 0
	if c.Right() {
		s++
	}
	if c.Left() {
		s--
	}
	return s
}

// Throttle returns -1, 0 or 1.
func (c Controls) Throttle() int {
	t := 0
	if c.Up() {
		t++
	}
	if c.Down() {
		t--
	}
	return t
}

// Make builds Controls from individual flags.
func Make(up, down, left, right bool) Controls {
	var c Controls
	if up {
		c |= ControlUp
	}
	if down {
		c |= ControlDown
	}
	if left {
		c |= ControlLeft
	}
	if right {
		c |= ControlRight
	}
	return c
}
