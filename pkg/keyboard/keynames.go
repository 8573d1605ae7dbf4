package keyboard

import (
	"fmt"
	"strconv"
	"strings"
)

// Names of macOS virtual keycodes on an ANSI keyboard. Letter and symbol
// keys are named after their U.S. legend regardless of the active layout.
var keyNames = map[uint16]string{
	0: "a", 1: "s", 2: "d", 3: "f", 4: "h", 5: "g", 6: "z", 7: "x",
	8: "c", 9: "v", 10: "section", 11: "b", 12: "q", 13: "w", 14: "e", 15: "r",
	16: "y", 17: "t", 18: "1", 19: "2", 20: "3", 21: "4", 22: "6",
	23: "5", 24: "=", 25: "9", 26: "7", 27: "-", 28: "8", 29: "0",
	30: "]", 31: "o", 32: "u", 33: "[", 34: "i", 35: "p", 36: "return",
	37: "l", 38: "j", 39: "'", 40: "k", 41: ";", 42: "\\", 43: ",",
	44: "/", 45: "n", 46: "m", 47: ".", 48: "tab", 49: "space", 50: "`",
	51: "backspace", 53: "escape", 54: "rightcmd", 55: "leftcmd",
	56: "leftshift", 57: "capslock", 58: "leftoption", 59: "leftctrl",
	60: "rightshift", 61: "rightoption", 62: "rightctrl", 63: "fn",
	64: "f17", 65: "keypad.", 67: "keypad*", 69: "keypad+", 71: "keypadclear",
	72: "volumeup", 73: "volumedown", 74: "mute", 75: "keypad/", 76: "keypadenter",
	78: "keypad-", 79: "f18", 80: "f19", 81: "keypad=", 82: "keypad0",
	83: "keypad1", 84: "keypad2", 85: "keypad3", 86: "keypad4", 87: "keypad5",
	88: "keypad6", 89: "keypad7", 90: "f20", 91: "keypad8", 92: "keypad9",
	96: "f5", 97: "f6", 98: "f7", 99: "f3", 100: "f8", 101: "f9",
	103: "f11", 105: "f13", 106: "f16", 107: "f14", 109: "f10", 111: "f12",
	113: "f15", 114: "help", 115: "home", 116: "pageup",
	117: "delete", 118: "f4", 119: "end", 120: "f2", 121: "pagedown",
	122: "f1", 123: "left", 124: "right", 125: "down", 126: "up",
}

// KeyName returns a readable name for a virtual keycode, or "key:<code>"
// when the code is not known.
func KeyName(code uint16) string {
	if name, ok := keyNames[code]; ok {
		return name
	}
	return fmt.Sprintf("key:%d", code)
}

// IsModifierKey reports whether the keycode belongs to a modifier key.
func IsModifierKey(code uint16) bool {
	return code >= 54 && code <= 63
}

var keycodesByName = func() map[string]uint16 {
	m := make(map[string]uint16, len(keyNames))
	for code, name := range keyNames {
		m[name] = code
	}
	return m
}()

// LookupKey is the inverse of KeyName. It also accepts the "key:<code>"
// form and plain decimal keycodes.
func LookupKey(name string) (uint16, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if code, ok := keycodesByName[name]; ok {
		return code, true
	}
	name = strings.TrimPrefix(name, "key:")
	code, err := strconv.ParseUint(name, 10, 16)
	if err != nil || code > 127 {
		return 0, false
	}
	return uint16(code), true
}
