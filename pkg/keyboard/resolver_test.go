package keyboard

import (
	"errors"
	"testing"
)

// countingLayouts wraps a layout and records acquisitions and releases.
type countingLayouts struct {
	layout   Layout
	acquired int
	released int
}

func (c *countingLayouts) Current() (Layout, error) {
	c.acquired++
	return &countedLayout{Layout: c.layout, owner: c}, nil
}

type countedLayout struct {
	Layout
	owner *countingLayouts
}

func (l *countedLayout) Release() {
	l.owner.released++
	l.Layout.Release()
}

type failingLayout struct{}

func (failingLayout) ID() string { return "failing" }

func (failingLayout) Release() {}

func (failingLayout) Translate(TranslateRequest, *uint32, []uint16) (int, error) {
	return 0, errors.New("status -50")
}

func TestResolvePlainLetters(t *testing.T) {
	r := NewResolver(StaticLayouts{Layout: USLayout()}, DeadKeysDisplay)
	var state CompositionState

	cases := []struct {
		code uint16
		mods Modifiers
		want rune
	}{
		{0, Modifiers{}, 'a'},
		{0, Modifiers{Shift: true}, 'A'},
		{0, Modifiers{Control: true}, 0x01},
		{8, Modifiers{Command: true}, 'c'},
		{1, Modifiers{Option: true}, 'ß'},
		{18, Modifiers{Shift: true}, '!'},
		{49, Modifiers{}, ' '},
	}
	for _, tc := range cases {
		got, err := r.Resolve(&state, tc.code, tc.mods)
		if err != nil {
			t.Fatalf("keycode %d: unexpected error %v", tc.code, err)
		}
		if got != tc.want {
			t.Fatalf("keycode %d %s: expected %q, got %q", tc.code, tc.mods, tc.want, got)
		}
	}
}

func TestResolveIsPureForNonComposingKeys(t *testing.T) {
	for _, mode := range []DeadKeyMode{DeadKeysDisplay, DeadKeysCompose} {
		r := NewResolver(StaticLayouts{Layout: USLayout()}, mode)
		var state CompositionState
		first, _ := r.Resolve(&state, 14, Modifiers{})
		second, _ := r.Resolve(&state, 14, Modifiers{})
		if first != 'e' || second != 'e' {
			t.Fatalf("%s: expected 'e' twice, got %q then %q", mode, first, second)
		}
	}
}

func TestResolveDisplayModeShowsDeadKeyGlyph(t *testing.T) {
	r := NewResolver(StaticLayouts{Layout: USLayout()}, DeadKeysDisplay)
	var state CompositionState

	accent, err := r.Resolve(&state, 14, Modifiers{Option: true})
	if err != nil {
		t.Fatalf("resolve dead key: %v", err)
	}
	if accent != '´' {
		t.Fatalf("expected bare acute glyph, got %q", accent)
	}
	if state.Pending() {
		t.Fatalf("display mode must not arm composition")
	}
	again, _ := r.Resolve(&state, 14, Modifiers{Option: true})
	if again != accent {
		t.Fatalf("expected the same glyph on repeat, got %q", again)
	}
	base, _ := r.Resolve(&state, 14, Modifiers{})
	if base != 'e' {
		t.Fatalf("expected plain e after dead key in display mode, got %q", base)
	}
}

func TestResolveComposeModeCarriesDeadKeys(t *testing.T) {
	r := NewResolver(StaticLayouts{Layout: USLayout()}, DeadKeysCompose)
	var state CompositionState

	dead, err := r.Resolve(&state, 14, Modifiers{Option: true})
	if err != nil {
		t.Fatalf("resolve dead key: %v", err)
	}
	if dead != 0 {
		t.Fatalf("expected no character for dead key, got %q", dead)
	}
	if !state.Pending() {
		t.Fatalf("expected composition to be pending")
	}

	composed, err := r.Resolve(&state, 14, Modifiers{})
	if err != nil {
		t.Fatalf("resolve base key: %v", err)
	}
	if composed != 'é' {
		t.Fatalf("expected é, got %q", composed)
	}
	if state.Pending() {
		t.Fatalf("composition should be consumed")
	}

	r.Resolve(&state, 45, Modifiers{Option: true})
	upper, _ := r.Resolve(&state, 45, Modifiers{Shift: true})
	if upper != 'Ñ' {
		t.Fatalf("expected Ñ, got %q", upper)
	}
}

func TestResolveComposeModeFlushesIncompatibleBase(t *testing.T) {
	r := NewResolver(StaticLayouts{Layout: USLayout()}, DeadKeysCompose)
	var state CompositionState

	r.Resolve(&state, 32, Modifiers{Option: true})
	got, _ := r.Resolve(&state, 5, Modifiers{})
	if got != '¨' {
		t.Fatalf("expected accent glyph as first unit, got %q", got)
	}
	if state.Pending() {
		t.Fatalf("composition should be flushed")
	}
	next, _ := r.Resolve(&state, 5, Modifiers{})
	if next != 'g' {
		t.Fatalf("expected g after flush, got %q", next)
	}
}

func TestPreviewLeavesCompositionAlone(t *testing.T) {
	r := NewResolver(StaticLayouts{Layout: USLayout()}, DeadKeysCompose)
	var state CompositionState

	r.Resolve(&state, 34, Modifiers{Option: true})
	if got, _ := r.Preview(34, Modifiers{Option: true}); got != 'ˆ' {
		t.Fatalf("expected circumflex glyph from preview, got %q", got)
	}
	if !state.Pending() {
		t.Fatalf("preview must not consume composition")
	}
	if got, _ := r.Resolve(&state, 31, Modifiers{}); got != 'ô' {
		t.Fatalf("expected ô, got %q", got)
	}
}

func TestResolveFetchesLayoutEveryCall(t *testing.T) {
	layouts := &countingLayouts{layout: USLayout()}
	r := NewResolver(layouts, DeadKeysDisplay)
	var state CompositionState

	for i := 0; i < 3; i++ {
		r.Resolve(&state, 0, Modifiers{})
	}
	r.Preview(0, Modifiers{})
	if layouts.acquired != 4 {
		t.Fatalf("expected 4 acquisitions, got %d", layouts.acquired)
	}
	if layouts.released != layouts.acquired {
		t.Fatalf("expected every layout released, got %d/%d", layouts.released, layouts.acquired)
	}
}

func TestResolveLayoutSwitchResetsComposition(t *testing.T) {
	us := USLayout()
	other := USLayout()
	other.id = "com.apple.keylayout.ABC"

	active := Layout(us)
	r := NewResolver(LayoutServiceFunc(func() (Layout, error) { return active, nil }), DeadKeysCompose)
	var state CompositionState

	r.Resolve(&state, 14, Modifiers{Option: true})
	if !state.Pending() {
		t.Fatalf("expected pending composition")
	}
	active = other
	got, _ := r.Resolve(&state, 14, Modifiers{})
	if got != 'e' {
		t.Fatalf("expected plain e after layout switch, got %q", got)
	}
}

func TestResolveLayoutUnavailableDegrades(t *testing.T) {
	r := NewResolver(StaticLayouts{}, DeadKeysDisplay)
	var state CompositionState

	got, err := r.Resolve(&state, 0, Modifiers{})
	if got != 0 {
		t.Fatalf("expected no character, got %q", got)
	}
	if !errors.Is(err, ErrLayoutUnavailable) {
		t.Fatalf("expected ErrLayoutUnavailable, got %v", err)
	}

	wrapped := NewResolver(LayoutServiceFunc(func() (Layout, error) {
		return nil, errors.New("no input source")
	}), DeadKeysDisplay)
	if _, err := wrapped.Resolve(&state, 0, Modifiers{}); !errors.Is(err, ErrLayoutUnavailable) {
		t.Fatalf("expected wrapped ErrLayoutUnavailable, got %v", err)
	}
}

func TestResolveTranslationFailureDegrades(t *testing.T) {
	r := NewResolver(StaticLayouts{Layout: failingLayout{}}, DeadKeysDisplay)
	var state CompositionState

	got, err := r.Resolve(&state, 0, Modifiers{})
	if got != 0 {
		t.Fatalf("expected no character, got %q", got)
	}
	if !errors.Is(err, ErrTranslationFailed) {
		t.Fatalf("expected ErrTranslationFailed, got %v", err)
	}
}

func TestResolveUnknownKeyHasNoCharacter(t *testing.T) {
	r := NewResolver(StaticLayouts{Layout: USLayout()}, DeadKeysDisplay)
	var state CompositionState
	for _, code := range []uint16{56, 59, 122, 123} {
		got, err := r.Resolve(&state, code, Modifiers{})
		if err != nil || got != 0 {
			t.Fatalf("keycode %d: expected (0, nil), got (%q, %v)", code, got, err)
		}
	}
}

func TestParseDeadKeyMode(t *testing.T) {
	for input, want := range map[string]DeadKeyMode{"": DeadKeysDisplay, "Display": DeadKeysDisplay, " compose ": DeadKeysCompose} {
		got, err := ParseDeadKeyMode(input)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (%v)", input, want, got, err)
		}
	}
	if _, err := ParseDeadKeyMode("latin"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
