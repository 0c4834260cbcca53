package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-kart/internal/core"
)

// KeyMapper translates Bubble Tea key messages to driver actions.
type KeyMapper struct{}

// NewKeyMapper creates a new key mapper with default bindings.
func NewKeyMapper() *KeyMapper {
	return &KeyMapper{}
}

// MapKey translates a key message to an action.
// Returns the action (may be ActionNone) and whether it's a quit request.
func (km *KeyMapper) MapKey(msg tea.KeyMsg) (action core.Action, isQuit bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		return core.ActionQuit, true
	case "w", "up":
		return core.ActionThrottle, false
	case "s", "down":
		return core.ActionBrake, false
	case "a", "left":
		return core.ActionSteerLeft, false
	case "d", "right":
		return core.ActionSteerRight, false
	case "enter":
		return core.ActionConfirm, false
	case "b", "esc":
		return core.ActionBack, false
	case "p":
		return core.ActionPause, false
	case "r":
		return core.ActionRestart, false
	}
	return core.ActionNone, false
}

// MenuAction represents a menu-specific action derived from input.
type MenuAction int

const (
	MenuActionNone MenuAction = iota
	MenuActionUp
	MenuActionDown
	MenuActionLeft
	MenuActionRight
	MenuActionSelect
	MenuActionBack
	MenuActionQuit
)

// MapKeyToMenuAction translates a key to a menu action.
func (km *KeyMapper) MapKeyToMenuAction(msg tea.KeyMsg) MenuAction {
	switch msg.String() {
	case "ctrl+c", "q":
		return MenuActionQuit
	case "w", "up", "k":
		return MenuActionUp
	case "s", "down", "j":
		return MenuActionDown
	case "a", "left", "h":
		return MenuActionLeft
	case "d", "right", "l":
		return MenuActionRight
	case "enter", " ":
		return MenuActionSelect
	case "b", "esc":
		return MenuActionBack
	}
	return MenuActionNone
}

// Terminals report key presses and auto-repeats but never releases, so a
// pressed control is held for a few ticks and refreshed by the repeats.
const (
	throttleHoldTicks = 8
	steerHoldTicks    = 3
)

// ControlLatch turns key presses into per-tick Controls. Presses are
// collected in a frame and applied on the next tick.
type ControlLatch struct {
	pressed               core.InputFrame
	up, down, left, right int
}

// Press queues an action for the next tick.
func (l *ControlLatch) Press(a core.Action) {
	l.pressed.Set(a)
}

// Tick applies the queued presses, returns the controls held this tick and
// ages them. A press holds its control for a few ticks and cancels the
// opposite direction. When both arrive in one tick, brake and right win.
func (l *ControlLatch) Tick() core.Controls {
	p := l.pressed.Controls()
	l.pressed.Clear()
	if p.Up() {
		l.up, l.down = throttleHoldTicks, 0
	}
	if p.Down() {
		l.down, l.up = throttleHoldTicks, 0
	}
	if p.Left() {
		l.left, l.right = steerHoldTicks, 0
	}
	if p.Right() {
		l.right, l.left = steerHoldTicks, 0
	}

	c := core.Make(l.up > 0, l.down > 0, l.left > 0, l.right > 0)
	for _, h := range []*int{&l.up, &l.down, &l.left, &l.right} {
		if *h > 0 {
			*h--
		}
	}
	return c
}

// Release drops every held and queued control.
func (l *ControlLatch) Release() {
	*l = ControlLatch{}
}
