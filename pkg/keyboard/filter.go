package keyboard

// EventType is the platform notification tag delivered with every raw event.
// Values mirror CGEventType.
type EventType uint32

const (
	TypeKeyDown      EventType = 10
	TypeKeyUp        EventType = 11
	TypeFlagsChanged EventType = 12

	// The OS sends these when it disables a tap that took too long or was
	// turned off by user input.
	TypeTapDisabledByTimeout   EventType = 0xFFFFFFFE
	TypeTapDisabledByUserInput EventType = 0xFFFFFFFF
)

// Raw modifier flag bits, mirroring CGEventFlags.
const (
	FlagAlphaShift uint64 = 0x00010000
	FlagShift      uint64 = 0x00020000
	FlagControl    uint64 = 0x00040000
	FlagAlternate  uint64 = 0x00080000
	FlagCommand    uint64 = 0x00100000
	FlagNumericPad uint64 = 0x00200000
	FlagHelp       uint64 = 0x00400000
	FlagFn         uint64 = 0x00800000
)

// RawEvent is the opaque per-notification handle a backend passes to the
// filter. Fields are only read for recognised notification types.
type RawEvent interface {
	Keycode() uint16
	Flags() uint64
}

// Classify maps a notification type to a transition. ok is false for every
// type that is not a keyboard notification; such events are left alone.
func Classify(t EventType) (state TransitionState, ok bool) {
	switch t {
	case TypeKeyDown:
		return StateDown, true
	case TypeKeyUp:
		return StateUp, true
	case TypeFlagsChanged:
		return StateModifiers, true
	default:
		return 0, false
	}
}

// DecodeModifiers extracts the four modifier booleans from a raw flag mask.
// Bits outside the four modifiers are ignored.
func DecodeModifiers(flags uint64) Modifiers {
	return Modifiers{
		Control: flags&FlagControl != 0,
		Option:  flags&FlagAlternate != 0,
		Shift:   flags&FlagShift != 0,
		Command: flags&FlagCommand != 0,
	}
}

// Extract reads the keycode and modifiers from a recognised event.
func Extract(ev RawEvent) (uint16, Modifiers) {
	return ev.Keycode(), DecodeModifiers(ev.Flags())
}

// Notification is a self-contained RawEvent used by scripted backends and
// tests.
type Notification struct {
	Type EventType
	Code uint16
	Mask uint64
}

// Keycode implements RawEvent.
func (n Notification) Keycode() uint16 { return n.Code }

// Flags implements RawEvent.
func (n Notification) Flags() uint64 { return n.Mask }

// Press returns the down/up notification pair for one key stroke.
func Press(code uint16, flags uint64) []Notification {
	return []Notification{
		{Type: TypeKeyDown, Code: code, Mask: flags},
		{Type: TypeKeyUp, Code: code, Mask: flags},
	}
}
