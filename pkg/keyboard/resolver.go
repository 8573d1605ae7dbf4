package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

// MaxOutput is the capacity, in UTF-16 code units, of the buffer handed to a
// Layout. Only the first unit is ever consumed.
const MaxOutput = 4

// KeyAction tells a Layout why a key is being translated. Values mirror the
// Carbon kUCKeyAction constants.
type KeyAction uint16

const (
	ActionDown    KeyAction = 0
	ActionUp      KeyAction = 1
	ActionAutoKey KeyAction = 2
	ActionDisplay KeyAction = 3
)

// TranslateRequest carries everything a Layout needs for one translation
// besides the composition state and output buffer.
type TranslateRequest struct {
	Keycode          uint16
	Modifiers        ModifierMask
	Action           KeyAction
	SuppressDeadKeys bool
}

// Layout is a keyboard layout handle acquired from a LayoutService. Handles
// are valid for one resolution and must be released afterwards.
type Layout interface {
	// ID identifies the input source, e.g. "com.apple.keylayout.US".
	ID() string
	// Translate writes up to len(out) UTF-16 code units and returns how many
	// were produced. deadKeys is read and updated in place.
	Translate(req TranslateRequest, deadKeys *uint32, out []uint16) (int, error)
	Release()
}

// LayoutService hands out the layout that is active right now.
type LayoutService interface {
	Current() (Layout, error)
}

// LayoutServiceFunc adapts a function to the LayoutService interface.
type LayoutServiceFunc func() (Layout, error)

// Current calls the underlying function.
func (f LayoutServiceFunc) Current() (Layout, error) {
	return f()
}

// SystemLayouts returns the platform layout service: the live input source
// on darwin, USLayout elsewhere.
func SystemLayouts() LayoutService {
	return defaultLayouts()
}

// CompositionState carries a partially entered dead-key sequence between
// successive key presses. The zero value has nothing pending. A state belongs
// to one capture loop and must only be used from its bound thread.
type CompositionState struct {
	deadKeys uint32
	layoutID string
}

// Pending reports whether a dead key is waiting for its base character.
func (s *CompositionState) Pending() bool {
	return s.deadKeys != 0
}

// DeadKeyMode selects how the resolver treats dead keys.
type DeadKeyMode int

const (
	// DeadKeysDisplay asks for the displayed glyph of every key. Dead keys
	// produce their bare accent and nothing is carried to the next key.
	DeadKeysDisplay DeadKeyMode = iota
	// DeadKeysCompose lets dead keys arm the composition state. The dead key
	// itself produces no character and the following compatible key yields
	// the composed one.
	DeadKeysCompose
)

// String returns the config spelling of the mode.
func (m DeadKeyMode) String() string {
	switch m {
	case DeadKeysDisplay:
		return "display"
	case DeadKeysCompose:
		return "compose"
	default:
		return fmt.Sprintf("DeadKeyMode(%d)", int(m))
	}
}

// ParseDeadKeyMode parses "display" or "compose".
func ParseDeadKeyMode(s string) (DeadKeyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "display":
		return DeadKeysDisplay, nil
	case "compose":
		return DeadKeysCompose, nil
	default:
		return 0, fmt.Errorf("unsupported dead key mode %q", s)
	}
}

// Resolver maps keycodes and modifiers to characters using whatever layout
// the LayoutService reports as active at the time of each call.
type Resolver struct {
	layouts LayoutService
	mode    DeadKeyMode
}

// NewResolver constructs a resolver over the given layout service.
func NewResolver(layouts LayoutService, mode DeadKeyMode) *Resolver {
	return &Resolver{layouts: layouts, mode: mode}
}

// Mode returns the configured dead-key mode.
func (r *Resolver) Mode() DeadKeyMode {
	return r.mode
}

// Resolve translates a key press. The returned character is 0 whenever the
// key produces nothing or an error is returned; errors are never fatal.
func (r *Resolver) Resolve(state *CompositionState, keycode uint16, mods Modifiers) (rune, error) {
	req := TranslateRequest{
		Keycode:          keycode,
		Modifiers:        mods.Pack(),
		Action:           ActionDisplay,
		SuppressDeadKeys: true,
	}
	if r.mode == DeadKeysCompose {
		req.Action = ActionDown
		req.SuppressDeadKeys = false
	}
	return r.translate(state, req)
}

// Preview returns the displayed glyph for a key without touching any
// in-flight composition. It is used for releases and modifier changes.
func (r *Resolver) Preview(keycode uint16, mods Modifiers) (rune, error) {
	var scratch CompositionState
	return r.translate(&scratch, TranslateRequest{
		Keycode:          keycode,
		Modifiers:        mods.Pack(),
		Action:           ActionDisplay,
		SuppressDeadKeys: true,
	})
}

func (r *Resolver) translate(state *CompositionState, req TranslateRequest) (rune, error) {
	if r.layouts == nil {
		return 0, ErrLayoutUnavailable
	}
	layout, err := r.layouts.Current()
	if err != nil {
		if errors.Is(err, ErrLayoutUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrLayoutUnavailable, err)
	}
	if layout == nil {
		return 0, ErrLayoutUnavailable
	}
	defer layout.Release()

	// A layout switch invalidates whatever the previous layout left pending.
	if id := layout.ID(); id != state.layoutID {
		state.deadKeys = 0
		state.layoutID = id
	}

	var buf [MaxOutput]uint16
	n, err := layout.Translate(req, &state.deadKeys, buf[:])
	if err != nil {
		return 0, fmt.Errorf("%w: keycode %d: %w", ErrTranslationFailed, req.Keycode, err)
	}
	if n <= 0 {
		return 0, nil
	}
	return rune(buf[0]), nil
}
