package sinks

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/offlinefirst/keytap/pkg/keyboard"
)

// Record is the JSON shape of one key event.
type Record struct {
	Time      string   `json:"time"`
	State     string   `json:"state"`
	Keycode   uint16   `json:"keycode"`
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
	Char      string   `json:"char,omitempty"`
	Codepoint string   `json:"codepoint,omitempty"`
	Name      string   `json:"name,omitempty"`
}

// NewRecord converts an event. The rune name is only filled when names is set.
func NewRecord(ev keyboard.KeyEvent, names bool) Record {
	rec := Record{
		Time:      ev.Time.UTC().Format(time.RFC3339Nano),
		State:     ev.State.String(),
		Keycode:   ev.Keycode,
		Key:       keyboard.KeyName(ev.Keycode),
		Modifiers: modifierList(ev.Modifiers),
	}
	if ev.HasChar() {
		rec.Char = string(ev.Char)
		rec.Codepoint = codepoint(ev.Char)
		if names {
			rec.Name = runeName(ev.Char)
		}
	}
	return rec
}

// JSON writes one JSON object per line.
type JSON struct {
	mu    sync.Mutex
	enc   *json.Encoder
	names bool
	err   error
}

// NewJSON writes records to w.
func NewJSON(w io.Writer, runeNames bool) *JSON {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSON{enc: enc, names: runeNames}
}

// Deliver implements keyboard.Sink.
func (j *JSON) Deliver(ev keyboard.KeyEvent) {
	rec := NewRecord(ev, j.names)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	if err := j.enc.Encode(rec); err != nil {
		j.err = err
	}
}

// Err returns the first encode error.
func (j *JSON) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func modifierList(m keyboard.Modifiers) []string {
	out := make([]string, 0, 4)
	if m.Control {
		out = append(out, "ctrl")
	}
	if m.Option {
		out = append(out, "alt")
	}
	if m.Shift {
		out = append(out, "shift")
	}
	if m.Command {
		out = append(out, "cmd")
	}
	return out
}
