package keyboard

import (
	"sync"
)

// Handler receives every notification the backend observes, recognised or
// not. It runs on the thread that called Loop.Run.
type Handler func(t EventType, ev RawEvent)

// Backend installs a listen-only keyboard hook on the calling thread.
type Backend interface {
	// Install registers interest in the given notification types and binds
	// the hook to the current thread's event loop. The returned Loop has not
	// started running yet.
	Install(types []EventType, handle Handler) (Loop, error)
}

// Loop is an installed hook bound to one thread.
type Loop interface {
	// Run blocks processing notifications until Stop is called.
	Run()
	// Stop makes Run return. It is safe to call from any goroutine, before
	// Run has started, and more than once.
	Stop()
	// Close uninstalls the hook. It is called on the bound thread after Run
	// returns.
	Close()
}

// ReplayBackend feeds a scripted sequence of notifications through the
// pipeline. It stands in for the OS event tap on platforms without one and
// in tests.
type ReplayBackend struct {
	Script []Notification
	// Hold keeps Run blocked after the script is exhausted until Stop.
	Hold bool
	// Err, when set, is returned by Install.
	Err error
}

// Install implements Backend.
func (b *ReplayBackend) Install(types []EventType, handle Handler) (Loop, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return &replayLoop{
		script: append([]Notification(nil), b.Script...),
		hold:   b.Hold,
		handle: handle,
		types:  types,
		done:   make(chan struct{}),
	}, nil
}

type replayLoop struct {
	script   []Notification
	hold     bool
	handle   Handler
	types    []EventType
	done     chan struct{}
	stopOnce sync.Once
}

func (l *replayLoop) Run() {
	for _, n := range l.script {
		select {
		case <-l.done:
			return
		default:
		}
		// The OS only delivers what the tap subscribed to, plus notifications
		// about the tap itself.
		if !l.subscribed(n.Type) {
			continue
		}
		l.handle(n.Type, n)
	}
	if l.hold {
		<-l.done
	}
}

func (l *replayLoop) subscribed(t EventType) bool {
	if t == TypeTapDisabledByTimeout || t == TypeTapDisabledByUserInput {
		return true
	}
	if t != TypeKeyDown && t != TypeKeyUp && t != TypeFlagsChanged {
		// Non-keyboard traffic in a script is delivered so tests can observe
		// how the filter treats it.
		return true
	}
	for _, s := range l.types {
		if s == t {
			return true
		}
	}
	return false
}

func (l *replayLoop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *replayLoop) Close() {}
