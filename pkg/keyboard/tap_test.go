package keyboard

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []KeyEvent
	seen   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan struct{}, 64)}
}

func (r *recorder) Deliver(ev KeyEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.seen <- struct{}{}:
	default:
	}
}

func (r *recorder) snapshot() []KeyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]KeyEvent(nil), r.events...)
}

func (r *recorder) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(time.Second)
	for len(r.snapshot()) < n {
		select {
		case <-r.seen:
		case <-deadline:
			t.Fatalf("expected %d events, got %d", n, len(r.snapshot()))
		}
	}
}

func newTestTap(t *testing.T, sink Sink, backend Backend, mutate func(*Options)) *Tap {
	t.Helper()
	opts := Options{
		Sink:    sink,
		Backend: backend,
		Layouts: StaticLayouts{Layout: USLayout()},
		Clock: func() time.Time {
			return time.Date(2024, 3, 14, 9, 26, 0, 0, time.UTC)
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	tap, err := NewTap(opts)
	if err != nil {
		t.Fatalf("new tap: %v", err)
	}
	return tap
}

func startAsync(tap *Tap) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- tap.Start()
	}()
	return done
}

func TestNewTapValidation(t *testing.T) {
	if _, err := NewTap(Options{}); err == nil {
		t.Fatalf("expected error without sink")
	}
	if _, err := NewTap(Options{Sink: newRecorder(), DeadKeys: DeadKeyMode(7)}); err == nil {
		t.Fatalf("expected error for unknown dead key mode")
	}
}

func TestTapDispatchesPlainLetter(t *testing.T) {
	rec := newRecorder()
	tap := newTestTap(t, rec, &ReplayBackend{Script: Press(0, 0)}, nil)

	if err := tap.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	down, up := events[0], events[1]
	if down.Keycode != 0 || down.Char != 'a' || down.State != StateDown || down.Modifiers.Any() {
		t.Fatalf("unexpected down event %+v", down)
	}
	if up.Keycode != 0 || (up.Char != 'a' && up.Char != 0) || up.State != StateUp || up.Modifiers.Any() {
		t.Fatalf("unexpected up event %+v", up)
	}
	if !down.Time.Equal(time.Date(2024, 3, 14, 9, 26, 0, 0, time.UTC)) {
		t.Fatalf("expected event stamped by clock, got %s", down.Time)
	}
	if tap.Running() {
		t.Fatalf("expected tap to be idle after loop returned")
	}
}

func TestTapDispatchesOneEventPerRecognisedNotification(t *testing.T) {
	rec := newRecorder()
	script := []Notification{
		{Type: TypeKeyDown, Code: 56, Mask: FlagShift},
		{Type: TypeKeyDown, Code: 0, Mask: FlagShift},
		{Type: TypeKeyUp, Code: 0, Mask: FlagShift},
		{Type: TypeFlagsChanged, Code: 56},
		{Type: EventType(1)},
		{Type: EventType(5)},
		{Type: TypeTapDisabledByTimeout},
	}
	tap := newTestTap(t, rec, &ReplayBackend{Script: script}, func(o *Options) {
		o.SubscribeModifiers = true
	})

	if err := tap.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	events := rec.snapshot()
	want := []struct {
		state TransitionState
		char  rune
	}{
		{StateDown, 0},
		{StateDown, 'A'},
		{StateUp, 'A'},
		{StateModifiers, 0},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		if events[i].State != w.state || events[i].Char != w.char {
			t.Fatalf("event %d: expected %s/%q, got %s/%q", i, w.state, w.char, events[i].State, events[i].Char)
		}
	}
	if !events[1].Modifiers.Shift {
		t.Fatalf("expected shift to be decoded")
	}
}

func TestTapSkipsModifierEventsUnlessSubscribed(t *testing.T) {
	rec := newRecorder()
	script := []Notification{{Type: TypeFlagsChanged, Code: 59, Mask: FlagControl}}
	tap := newTestTap(t, rec, &ReplayBackend{Script: script}, nil)

	if err := tap.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if n := len(rec.snapshot()); n != 0 {
		t.Fatalf("expected no events without modifier subscription, got %d", n)
	}
}

// countingEvent records how often its fields are read.
type countingEvent struct {
	reads int
}

func (c *countingEvent) Keycode() uint16 { c.reads++; return 0 }
func (c *countingEvent) Flags() uint64   { c.reads++; return 0 }

type rawBackend struct {
	typ EventType
	ev  RawEvent
}

func (b rawBackend) Install(_ []EventType, handle Handler) (Loop, error) {
	return funcLoop{run: func() { handle(b.typ, b.ev) }}, nil
}

type funcLoop struct {
	run  func()
	stop func()
}

func (l funcLoop) Run() { l.run() }

func (l funcLoop) Stop() {
	if l.stop != nil {
		l.stop()
	}
}

func (funcLoop) Close() {}

func TestTapLeavesUnrecognisedEventsUntouched(t *testing.T) {
	for _, typ := range []EventType{1, 2, 5, 22, TypeTapDisabledByUserInput} {
		rec := newRecorder()
		ev := &countingEvent{}
		tap := newTestTap(t, rec, rawBackend{typ: typ, ev: ev}, nil)
		if err := tap.Start(); err != nil {
			t.Fatalf("start: %v", err)
		}
		if n := len(rec.snapshot()); n != 0 {
			t.Fatalf("type %d: expected no dispatch, got %d", typ, n)
		}
		if ev.reads != 0 {
			t.Fatalf("type %d: expected no field reads, got %d", typ, ev.reads)
		}
	}
}

func TestTapComposesDeadKeysAcrossPresses(t *testing.T) {
	rec := newRecorder()
	script := append(Press(14, FlagAlternate), Press(14, 0)...)
	tap := newTestTap(t, rec, &ReplayBackend{Script: script}, func(o *Options) {
		o.DeadKeys = DeadKeysCompose
	})

	if err := tap.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	events := rec.snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	chars := []rune{events[0].Char, events[1].Char, events[2].Char, events[3].Char}
	want := []rune{0, '´', 'é', 'e'}
	for i := range want {
		if chars[i] != want[i] {
			t.Fatalf("event %d: expected %q, got %q", i, want[i], chars[i])
		}
	}
}

func TestTapDegradesWhenLayoutUnavailable(t *testing.T) {
	rec := newRecorder()
	tap := newTestTap(t, rec, &ReplayBackend{Script: Press(0, 0)}, func(o *Options) {
		o.Layouts = StaticLayouts{}
	})
	if err := tap.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected events to be dispatched without layout, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Char != 0 {
			t.Fatalf("expected no character, got %q", ev.Char)
		}
	}
}

func TestTapStopWithoutLoopIsNoop(t *testing.T) {
	rec := newRecorder()
	tap := newTestTap(t, rec, &ReplayBackend{}, nil)
	tap.Stop()
	tap.Stop()
	if tap.Running() {
		t.Fatalf("expected tap to be idle")
	}
	if tap.Handle() != nil {
		t.Fatalf("expected no handle")
	}
	if n := len(rec.snapshot()); n != 0 {
		t.Fatalf("expected no dispatch, got %d", n)
	}
}

func TestTapStopFromAnotherGoroutine(t *testing.T) {
	rec := newRecorder()
	tap := newTestTap(t, rec, &ReplayBackend{Script: Press(1, 0), Hold: true}, nil)

	done := startAsync(tap)
	rec.waitFor(t, 2)
	if !tap.Running() {
		t.Fatalf("expected tap to report running")
	}
	if h := tap.Handle(); h == nil || h.ID == "" {
		t.Fatalf("expected a handle with an id")
	}

	tap.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("start did not return after stop")
	}
	if tap.Running() {
		t.Fatalf("expected tap to be idle after stop")
	}
}

func TestTapDropsNotificationsAfterStop(t *testing.T) {
	rec := newRecorder()
	stopped := make(chan struct{})
	var once sync.Once
	backend := backendFunc(func(_ []EventType, handle Handler) (Loop, error) {
		return funcLoop{
			run: func() {
				handle(TypeKeyDown, Notification{Type: TypeKeyDown, Code: 2})
				<-stopped
				// A notification already queued when stop lands.
				handle(TypeKeyUp, Notification{Type: TypeKeyUp, Code: 2})
			},
			stop: func() { once.Do(func() { close(stopped) }) },
		}, nil
	})
	tap := newTestTap(t, rec, backend, nil)

	done := startAsync(tap)
	rec.waitFor(t, 1)
	tap.Stop()
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}
	if n := len(rec.snapshot()); n != 1 {
		t.Fatalf("expected dispatch to end at stop, got %d events", n)
	}
}

type backendFunc func([]EventType, Handler) (Loop, error)

func (f backendFunc) Install(types []EventType, handle Handler) (Loop, error) {
	return f(types, handle)
}

func TestTapSecondStartIsRejected(t *testing.T) {
	rec := newRecorder()
	tap := newTestTap(t, rec, &ReplayBackend{Script: Press(3, 0), Hold: true}, nil)

	done := startAsync(tap)
	rec.waitFor(t, 1)

	if err := tap.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	tap.Stop()
	if err := <-done; err != nil {
		t.Fatalf("first start: %v", err)
	}
}

func TestTapReportsInstallFailureDistinctly(t *testing.T) {
	rec := newRecorder()
	tap := newTestTap(t, rec, &ReplayBackend{Err: ErrPermissionDenied}, nil)

	err := tap.Start()
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("expected ErrInstallFailed, got %v", err)
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission cause to be preserved, got %v", err)
	}
	if errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("install failure must not look like misuse")
	}
	if tap.Running() {
		t.Fatalf("loop must not be running after install failure")
	}

	// The tap is reusable once the cause is fixed.
	tap.backend = &ReplayBackend{Script: Press(0, 0)}
	if err := tap.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if n := len(rec.snapshot()); n != 2 {
		t.Fatalf("expected 2 events after restart, got %d", n)
	}
}

func TestTapRunRespectsCancellation(t *testing.T) {
	rec := newRecorder()
	tap := newTestTap(t, rec, &ReplayBackend{Hold: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tap.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not exit on cancellation")
	}
}

func TestDefaultBackendOffDarwinIsUnsupported(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("darwin installs a real event tap")
	}
	tap, err := NewTap(Options{Sink: newRecorder()})
	if err != nil {
		t.Fatalf("new tap: %v", err)
	}
	err = tap.Start()
	if !errors.Is(err, ErrInstallFailed) || !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected unsupported install failure, got %v", err)
	}
}
