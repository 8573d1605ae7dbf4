package keyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Options controls tap behaviour.
type Options struct {
	// Sink receives every decoded event. Required.
	Sink Sink
	// Backend installs the OS hook. Defaults to the platform backend.
	Backend Backend
	// Layouts supplies the active keyboard layout. Defaults to the platform
	// layout service.
	Layouts LayoutService
	// DeadKeys selects display or compose semantics for dead keys.
	DeadKeys DeadKeyMode
	// SubscribeModifiers also subscribes to modifier-only flag changes,
	// which are then delivered with StateModifiers.
	SubscribeModifiers bool
	Logger             *slog.Logger
	Clock              func() time.Time
}

// Tap owns the install, run and stop lifecycle of one keyboard hook. At most
// one loop runs per Tap at a time.
type Tap struct {
	sink      Sink
	backend   Backend
	resolver  *Resolver
	logger    *slog.Logger
	clock     func() time.Time
	modifiers bool

	current atomic.Pointer[Handle]
}

// Handle identifies a running capture loop.
type Handle struct {
	ID      string
	Started time.Time

	stopped atomic.Bool
	mu      sync.Mutex
	loop    Loop
}

// attach binds the installed loop to the handle. It reports false when a
// stop request already arrived, in which case the loop must not run.
func (h *Handle) attach(loop Loop) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped.Load() {
		return false
	}
	h.loop = loop
	return true
}

func (h *Handle) stop() {
	h.mu.Lock()
	h.stopped.Store(true)
	loop := h.loop
	h.loop = nil
	h.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
}

// NewTap validates options and constructs a tap.
func NewTap(opts Options) (*Tap, error) {
	if opts.Sink == nil {
		return nil, errors.New("sink must be provided")
	}
	if opts.DeadKeys != DeadKeysDisplay && opts.DeadKeys != DeadKeysCompose {
		return nil, fmt.Errorf("unsupported dead key mode %d", int(opts.DeadKeys))
	}
	backend := opts.Backend
	if backend == nil {
		backend = defaultBackend()
	}
	layouts := opts.Layouts
	if layouts == nil {
		layouts = defaultLayouts()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Tap{
		sink:      opts.Sink,
		backend:   backend,
		resolver:  NewResolver(layouts, opts.DeadKeys),
		logger:    logger,
		clock:     clock,
		modifiers: opts.SubscribeModifiers,
	}, nil
}

// Start installs the hook on the calling goroutine's OS thread and blocks,
// dispatching events, until Stop is called. It returns ErrInstallFailed when
// the hook cannot be installed and ErrAlreadyRunning on misuse.
func (t *Tap) Start() error {
	return t.run(nil)
}

// Run is Start with cancellation: when ctx is done the loop is stopped and
// ctx.Err() is returned.
func (t *Tap) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := t.run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// Stop signals the running loop to unwind. It may be called from any
// goroutine and is a no-op when nothing is running.
func (t *Tap) Stop() {
	h := t.current.Swap(nil)
	if h == nil {
		return
	}
	t.logger.Info("keyboard tap stop requested", "handle", h.ID)
	h.stop()
}

// Running reports whether a loop is active.
func (t *Tap) Running() bool {
	return t.current.Load() != nil
}

// Handle returns the active loop handle, or nil.
func (t *Tap) Handle() *Handle {
	return t.current.Load()
}

func (t *Tap) run(ctx context.Context) error {
	h := &Handle{ID: uuid.New().String(), Started: t.clock().UTC()}
	if !t.current.CompareAndSwap(nil, h) {
		return ErrAlreadyRunning
	}
	defer t.current.CompareAndSwap(h, nil)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	types := []EventType{TypeKeyDown, TypeKeyUp}
	if t.modifiers {
		types = append(types, TypeFlagsChanged)
	}

	var state CompositionState
	loop, err := t.backend.Install(types, func(typ EventType, ev RawEvent) {
		t.dispatch(h, &state, typ, ev)
	})
	if err != nil {
		t.logger.Error("keyboard tap install failed", "handle", h.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	defer loop.Close()

	if !h.attach(loop) {
		t.logger.Info("keyboard tap stopped before running", "handle", h.ID)
		return nil
	}

	if ctx != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				if t.current.CompareAndSwap(h, nil) {
					h.stop()
				}
			case <-done:
			}
		}()
	}

	t.logger.Info("keyboard tap running", "handle", h.ID, "dead_keys", t.resolver.Mode().String(), "modifier_events", t.modifiers)
	loop.Run()
	t.logger.Info("keyboard tap stopped", "handle", h.ID, "uptime", t.clock().UTC().Sub(h.Started).String())
	return nil
}

func (t *Tap) dispatch(h *Handle, state *CompositionState, typ EventType, raw RawEvent) {
	if h.stopped.Load() {
		return
	}
	transition, ok := Classify(typ)
	if !ok {
		return
	}

	keycode, mods := Extract(raw)
	var (
		char rune
		err  error
	)
	if transition == StateDown {
		char, err = t.resolver.Resolve(state, keycode, mods)
	} else {
		char, err = t.resolver.Preview(keycode, mods)
	}
	if err != nil {
		t.logger.Debug("key resolved without character", "keycode", keycode, "state", transition.String(), "error", err)
	}

	t.sink.Deliver(KeyEvent{
		Keycode:   keycode,
		Char:      char,
		State:     transition,
		Modifiers: mods,
		Time:      t.clock().UTC(),
	})
}
