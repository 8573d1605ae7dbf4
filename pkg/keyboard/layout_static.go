package keyboard

import "unicode/utf16"

// StaticLayout is a pure-Go keyboard layout. It backs the layout service on
// platforms without a live input source service and is the reference layout
// for tests.
type StaticLayout struct {
	id      string
	keys    map[uint16]staticKey
	accents map[uint32]accent
}

type staticKey struct {
	plain  rune
	shift  rune
	option rune
	// dead is the accent armed by option+key, 0 when none.
	dead uint32
}

type accent struct {
	glyph    rune
	composed map[rune]rune
}

const (
	deadAcute uint32 = iota + 1
	deadGrave
	deadCircumflex
	deadTilde
	deadUmlaut
)

// USLayout returns the ANSI "U.S." layout with its option dead keys.
func USLayout() *StaticLayout {
	keys := map[uint16]staticKey{
		0: {plain: 'a', shift: 'A', option: 'å'}, 1: {plain: 's', shift: 'S', option: 'ß'},
		2: {plain: 'd', shift: 'D', option: '∂'}, 3: {plain: 'f', shift: 'F', option: 'ƒ'},
		4: {plain: 'h', shift: 'H', option: '˙'}, 5: {plain: 'g', shift: 'G', option: '©'},
		6: {plain: 'z', shift: 'Z', option: 'Ω'}, 7: {plain: 'x', shift: 'X', option: '≈'},
		8: {plain: 'c', shift: 'C', option: 'ç'}, 9: {plain: 'v', shift: 'V', option: '√'},
		11: {plain: 'b', shift: 'B', option: '∫'}, 12: {plain: 'q', shift: 'Q', option: 'œ'},
		13: {plain: 'w', shift: 'W', option: '∑'}, 14: {plain: 'e', shift: 'E', dead: deadAcute},
		15: {plain: 'r', shift: 'R', option: '®'}, 16: {plain: 'y', shift: 'Y', option: '¥'},
		17: {plain: 't', shift: 'T', option: '†'}, 18: {plain: '1', shift: '!', option: '¡'},
		19: {plain: '2', shift: '@', option: '™'}, 20: {plain: '3', shift: '#', option: '£'},
		21: {plain: '4', shift: '$', option: '¢'}, 22: {plain: '6', shift: '^', option: '§'},
		23: {plain: '5', shift: '%', option: '∞'}, 24: {plain: '=', shift: '+', option: '≠'},
		25: {plain: '9', shift: '(', option: 'ª'}, 26: {plain: '7', shift: '&', option: '¶'},
		27: {plain: '-', shift: '_', option: '–'}, 28: {plain: '8', shift: '*', option: '•'},
		29: {plain: '0', shift: ')', option: 'º'}, 30: {plain: ']', shift: '}', option: '‘'},
		31: {plain: 'o', shift: 'O', option: 'ø'}, 32: {plain: 'u', shift: 'U', dead: deadUmlaut},
		33: {plain: '[', shift: '{', option: '“'}, 34: {plain: 'i', shift: 'I', dead: deadCircumflex},
		35: {plain: 'p', shift: 'P', option: 'π'}, 36: {plain: '\r', shift: '\r', option: '\r'},
		37: {plain: 'l', shift: 'L', option: '¬'}, 38: {plain: 'j', shift: 'J', option: '∆'},
		39: {plain: '\'', shift: '"', option: 'æ'}, 40: {plain: 'k', shift: 'K', option: '˚'},
		41: {plain: ';', shift: ':', option: '…'}, 42: {plain: '\\', shift: '|', option: '«'},
		43: {plain: ',', shift: '<', option: '≤'}, 44: {plain: '/', shift: '?', option: '÷'},
		45: {plain: 'n', shift: 'N', dead: deadTilde}, 46: {plain: 'm', shift: 'M', option: 'µ'},
		47: {plain: '.', shift: '>', option: '≥'}, 48: {plain: '\t', shift: '\t', option: '\t'},
		49: {plain: ' ', shift: ' ', option: ' '}, 50: {plain: '`', shift: '~', dead: deadGrave},
		51: {plain: 0x08, shift: 0x08, option: 0x08}, 53: {plain: 0x1b, shift: 0x1b, option: 0x1b},
	}

	accents := map[uint32]accent{
		deadAcute: {glyph: '´', composed: map[rune]rune{
			'a': 'á', 'e': 'é', 'i': 'í', 'o': 'ó', 'u': 'ú', 'y': 'ý',
			'A': 'Á', 'E': 'É', 'I': 'Í', 'O': 'Ó', 'U': 'Ú', 'Y': 'Ý',
		}},
		deadGrave: {glyph: '`', composed: map[rune]rune{
			'a': 'à', 'e': 'è', 'i': 'ì', 'o': 'ò', 'u': 'ù',
			'A': 'À', 'E': 'È', 'I': 'Ì', 'O': 'Ò', 'U': 'Ù',
		}},
		deadCircumflex: {glyph: 'ˆ', composed: map[rune]rune{
			'a': 'â', 'e': 'ê', 'i': 'î', 'o': 'ô', 'u': 'û',
			'A': 'Â', 'E': 'Ê', 'I': 'Î', 'O': 'Ô', 'U': 'Û',
		}},
		deadTilde: {glyph: '˜', composed: map[rune]rune{
			'a': 'ã', 'n': 'ñ', 'o': 'õ',
			'A': 'Ã', 'N': 'Ñ', 'O': 'Õ',
		}},
		deadUmlaut: {glyph: '¨', composed: map[rune]rune{
			'a': 'ä', 'e': 'ë', 'i': 'ï', 'o': 'ö', 'u': 'ü', 'y': 'ÿ',
			'A': 'Ä', 'E': 'Ë', 'I': 'Ï', 'O': 'Ö', 'U': 'Ü',
		}},
	}

	return &StaticLayout{id: "com.apple.keylayout.US", keys: keys, accents: accents}
}

// ID implements Layout.
func (l *StaticLayout) ID() string { return l.id }

// Release implements Layout. Static layouts hold no resources.
func (l *StaticLayout) Release() {}

// Translate implements Layout with the same dead-key rules as the system
// translation service: with composition enabled a dead key arms the state
// and emits nothing, the next key either composes or flushes the accent.
func (l *StaticLayout) Translate(req TranslateRequest, deadKeys *uint32, out []uint16) (int, error) {
	key, ok := l.keys[req.Keycode]
	if !ok {
		return 0, nil
	}

	base, dead := l.lookup(key, req.Modifiers)
	composing := req.Action != ActionDisplay && req.Action != ActionUp && !req.SuppressDeadKeys

	if !composing || deadKeys == nil {
		if dead != 0 {
			return emit(out, l.accents[dead].glyph), nil
		}
		return emit(out, base), nil
	}

	pending := *deadKeys
	if pending == 0 {
		if dead != 0 {
			*deadKeys = dead
			return 0, nil
		}
		return emit(out, base), nil
	}

	*deadKeys = 0
	acc := l.accents[pending]
	if dead != 0 {
		return emit(out, acc.glyph, l.accents[dead].glyph), nil
	}
	if base == ' ' {
		return emit(out, acc.glyph), nil
	}
	if composed, ok := acc.composed[base]; ok {
		return emit(out, composed), nil
	}
	return emit(out, acc.glyph, base), nil
}

func (l *StaticLayout) lookup(key staticKey, mods ModifierMask) (rune, uint32) {
	switch {
	case mods.Has(MaskControl):
		if key.plain >= 'a' && key.plain <= 'z' {
			return key.plain - 'a' + 1, 0
		}
		return key.plain, 0
	case mods.Has(MaskCommand):
		if mods.Has(MaskShift) {
			return key.shift, 0
		}
		return key.plain, 0
	case mods.Has(MaskOption):
		if key.dead != 0 {
			return 0, key.dead
		}
		if key.option != 0 {
			return key.option, 0
		}
		return key.plain, 0
	case mods.Has(MaskShift):
		return key.shift, 0
	default:
		return key.plain, 0
	}
}

func emit(out []uint16, runes ...rune) int {
	var units []uint16
	for _, r := range runes {
		if r != 0 {
			units = utf16.AppendRune(units, r)
		}
	}
	return copy(out, units)
}

// StaticLayouts serves a fixed layout, or nothing when the layout is nil.
type StaticLayouts struct {
	Layout Layout
}

// Current implements LayoutService.
func (s StaticLayouts) Current() (Layout, error) {
	if s.Layout == nil {
		return nil, ErrLayoutUnavailable
	}
	return s.Layout, nil
}
