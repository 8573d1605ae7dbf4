//go:build darwin

package keyboard

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

extern CGEventRef goHandleKeyEvent(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *userInfo);

static CFMachPortRef createKeyTap(uintptr_t handle, CGEventMask mask) {
        return CGEventTapCreate(kCGSessionEventTap,
                                kCGHeadInsertEventTap,
                                kCGEventTapOptionListenOnly,
                                mask,
                                goHandleKeyEvent,
                                (void *)handle);
}

static CFRunLoopSourceRef attachKeyTap(CFMachPortRef tap, CFRunLoopRef loop) {
        CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
        if (source == NULL) {
                return NULL;
        }
        CFRunLoopAddSource(loop, source, kCFRunLoopCommonModes);
        CGEventTapEnable(tap, true);
        return source;
}

static void detachKeyTap(CFMachPortRef tap, CFRunLoopRef loop, CFRunLoopSourceRef source) {
        CGEventTapEnable(tap, false);
        if (source != NULL) {
                CFRunLoopRemoveSource(loop, source, kCFRunLoopCommonModes);
                CFRelease(source);
        }
        CFMachPortInvalidate(tap);
        CFRelease(tap);
}

static void enableKeyTap(CFMachPortRef tap) {
        CGEventTapEnable(tap, true);
}

static CFRunLoopRef currentRunLoop(void) {
        return CFRunLoopGetCurrent();
}

static CGEventMask cgEventMaskBit(CGEventType type) {
        return ((CGEventMask)1) << type;
}

static int32_t runLoopSlice(double seconds) {
        return CFRunLoopRunInMode(kCFRunLoopDefaultMode, seconds, false);
}

static void stopRunLoop(CFRunLoopRef loop) {
        CFRunLoopStop(loop);
        CFRunLoopWakeUp(loop);
}

static int64_t cgEventKeycode(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
}

static uint64_t cgEventFlags(CGEventRef event) {
        return (uint64_t)CGEventGetFlags(event);
}
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"sync"
	"sync/atomic"
	"unsafe"
)

// runSlice bounds how long the run loop spins before re-checking for a stop
// request that arrived before CFRunLoopStop could take effect.
const runSlice = 0.25

type quartzBackend struct{}

func defaultBackend() Backend {
	return quartzBackend{}
}

type quartzLoop struct {
	handle   Handler
	cgHandle cgo.Handle
	tap      C.CFMachPortRef
	source   C.CFRunLoopSourceRef
	runLoop  C.CFRunLoopRef

	stopped  atomic.Bool
	stopOnce sync.Once
}

// cgEvent adapts a CGEventRef to RawEvent. It is only valid for the duration
// of the callback.
type cgEvent struct {
	ref C.CGEventRef
}

func (e cgEvent) Keycode() uint16 { return uint16(C.cgEventKeycode(e.ref)) }

func (e cgEvent) Flags() uint64 { return uint64(C.cgEventFlags(e.ref)) }

func (quartzBackend) Install(types []EventType, handle Handler) (Loop, error) {
	var mask C.CGEventMask
	for _, t := range types {
		mask |= C.cgEventMaskBit(C.CGEventType(t))
	}

	loop := &quartzLoop{handle: handle}
	loop.cgHandle = cgo.NewHandle(loop)

	tap := C.createKeyTap(C.uintptr_t(loop.cgHandle), mask)
	if tap == 0 {
		loop.cgHandle.Delete()
		return nil, ErrPermissionDenied
	}
	loop.tap = tap
	loop.runLoop = C.currentRunLoop()
	loop.source = C.attachKeyTap(tap, loop.runLoop)
	if loop.source == 0 {
		C.detachKeyTap(tap, loop.runLoop, 0)
		loop.cgHandle.Delete()
		return nil, errors.New("create run loop source for event tap")
	}
	return loop, nil
}

func (l *quartzLoop) Run() {
	for !l.stopped.Load() {
		if C.runLoopSlice(C.double(runSlice)) == C.kCFRunLoopRunFinished {
			return
		}
	}
}

func (l *quartzLoop) Stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		C.stopRunLoop(l.runLoop)
	})
}

func (l *quartzLoop) Close() {
	C.detachKeyTap(l.tap, l.runLoop, l.source)
	l.cgHandle.Delete()
}

//export goHandleKeyEvent
func goHandleKeyEvent(_ C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, userInfo unsafe.Pointer) C.CGEventRef {
	loop, ok := cgo.Handle(uintptr(userInfo)).Value().(*quartzLoop)
	if !ok {
		return event
	}

	switch EventType(eventType) {
	case TypeTapDisabledByTimeout, TypeTapDisabledByUserInput:
		if !loop.stopped.Load() {
			C.enableKeyTap(loop.tap)
		}
		return event
	}

	loop.handle(EventType(eventType), cgEvent{ref: event})
	return event
}
