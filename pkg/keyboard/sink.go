package keyboard

// Sink receives decoded key events. Deliver is called synchronously on the
// tap's bound thread; the next notification is not processed until it
// returns. The sink owns the event once delivered.
type Sink interface {
	Deliver(KeyEvent)
}

// SinkFunc adapts a function literal to the Sink interface.
type SinkFunc func(KeyEvent)

// Deliver calls the underlying function.
func (f SinkFunc) Deliver(ev KeyEvent) {
	f(ev)
}
