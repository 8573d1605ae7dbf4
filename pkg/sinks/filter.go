package sinks

import (
	"time"

	"github.com/offlinefirst/keytap/pkg/keyboard"
)

// Debounce drops an event when it repeats the keycode and transition of the
// previously forwarded event within window, measured on event timestamps.
// A window of zero or less returns next unchanged.
func Debounce(next keyboard.Sink, window time.Duration) keyboard.Sink {
	if window <= 0 {
		return next
	}
	return &debounce{next: next, window: window}
}

// debounce is only called from the tap's thread and needs no locking.
type debounce struct {
	next   keyboard.Sink
	window time.Duration

	seen    bool
	keycode uint16
	state   keyboard.TransitionState
	at      time.Time
}

func (d *debounce) Deliver(ev keyboard.KeyEvent) {
	if d.seen && ev.Keycode == d.keycode && ev.State == d.state && ev.Time.Sub(d.at) < d.window {
		return
	}
	d.seen = true
	d.keycode = ev.Keycode
	d.state = ev.State
	d.at = ev.Time
	d.next.Deliver(ev)
}

// DropKeyUp forwards everything except key releases.
func DropKeyUp(next keyboard.Sink) keyboard.Sink {
	return keyboard.SinkFunc(func(ev keyboard.KeyEvent) {
		if ev.State == keyboard.StateUp {
			return
		}
		next.Deliver(ev)
	})
}
