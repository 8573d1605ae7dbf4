package sinks

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"golang.org/x/text/unicode/runenames"

	"github.com/offlinefirst/keytap/pkg/keyboard"
)

const textTimeLayout = "15:04:05.000"

// Text renders events as aligned, human readable lines.
type Text struct {
	mu        sync.Mutex
	w         io.Writer
	runeNames bool
	err       error
}

// NewText writes to w. With runeNames set each character is followed by its
// code point and Unicode name.
func NewText(w io.Writer, runeNames bool) *Text {
	return &Text{w: w, runeNames: runeNames}
}

// Deliver implements keyboard.Sink.
func (t *Text) Deliver(ev keyboard.KeyEvent) {
	line := fmt.Sprintf("%s  %-9s %3d  %-12s %-20s %s",
		ev.Time.Local().Format(textTimeLayout),
		ev.State,
		ev.Keycode,
		keyboard.KeyName(ev.Keycode),
		orDash(ev.Modifiers.String()),
		describeChar(ev.Char),
	)
	if t.runeNames && ev.HasChar() {
		line += fmt.Sprintf("  %s %s", codepoint(ev.Char), runeName(ev.Char))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	if _, err := io.WriteString(t.w, line+"\n"); err != nil {
		t.err = err
	}
}

// Err returns the first write error. Once set, further events are dropped.
func (t *Text) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func describeChar(r rune) string {
	if r == 0 {
		return "-"
	}
	return strconv.QuoteRune(r)
}

func codepoint(r rune) string {
	return fmt.Sprintf("U+%04X", r)
}

func runeName(r rune) string {
	name := runenames.Name(r)
	if name == "" {
		return "<unnamed>"
	}
	return name
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
