package keyboard

import (
	"strings"
	"time"
)

// TransitionState describes what happened to a key. The numeric values are
// part of the dispatch contract and must not be reordered.
type TransitionState int

const (
	// StateUp marks a key release.
	StateUp TransitionState = 0
	// StateDown marks a key press, including auto-repeat.
	StateDown TransitionState = 1
	// StateModifiers marks a change of modifier flags with no key press.
	StateModifiers TransitionState = 2
)

// String returns the lowercase name used by logs and sinks.
func (s TransitionState) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	case StateModifiers:
		return "modifiers"
	default:
		return "invalid"
	}
}

// Modifiers holds the four modifier keys the pipeline understands.
type Modifiers struct {
	Control bool
	Option  bool
	Shift   bool
	Command bool
}

// Any reports whether at least one modifier is held.
func (m Modifiers) Any() bool {
	return m.Control || m.Option || m.Shift || m.Command
}

// String joins the held modifiers with '+', e.g. "ctrl+shift".
func (m Modifiers) String() string {
	parts := make([]string, 0, 4)
	if m.Control {
		parts = append(parts, "ctrl")
	}
	if m.Option {
		parts = append(parts, "alt")
	}
	if m.Shift {
		parts = append(parts, "shift")
	}
	if m.Command {
		parts = append(parts, "cmd")
	}
	return strings.Join(parts, "+")
}

// ModifierMask is the packed modifier state handed to a Layout. It uses the
// Carbon EventModifiers layout shifted right by eight bits.
type ModifierMask uint32

const (
	MaskCommand ModifierMask = 1 << 0
	MaskShift   ModifierMask = 1 << 1
	MaskOption  ModifierMask = 1 << 3
	MaskControl ModifierMask = 1 << 4
)

// Pack converts the modifier booleans into a ModifierMask.
func (m Modifiers) Pack() ModifierMask {
	var mask ModifierMask
	if m.Command {
		mask |= MaskCommand
	}
	if m.Shift {
		mask |= MaskShift
	}
	if m.Option {
		mask |= MaskOption
	}
	if m.Control {
		mask |= MaskControl
	}
	return mask
}

// Has reports whether every bit of other is set in m.
func (m ModifierMask) Has(other ModifierMask) bool {
	return m&other == other
}

// KeyEvent is a decoded key transition. It is created once per recognised
// notification and handed to the Sink by value.
type KeyEvent struct {
	Keycode   uint16
	// Char is the resolved code point, 0 when the key produced nothing.
	Char      rune
	State     TransitionState
	Modifiers Modifiers
	Time      time.Time
}

// HasChar reports whether the event resolved to a character.
func (e KeyEvent) HasChar() bool {
	return e.Char != 0
}
