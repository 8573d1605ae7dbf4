//go:build darwin

package keyboard

/*
#cgo darwin LDFLAGS: -framework Carbon -framework CoreFoundation
#include <Carbon/Carbon.h>
#include <stdint.h>
#include <stdlib.h>

static void *copyCurrentLayoutSource(void) {
        return (void *)TISCopyCurrentKeyboardLayoutInputSource();
}

static void releaseLayoutSource(void *source) {
        if (source != NULL) {
                CFRelease((CFTypeRef)source);
        }
}

static const void *layoutBytes(void *source) {
        CFDataRef data = (CFDataRef)TISGetInputSourceProperty((TISInputSourceRef)source, kTISPropertyUnicodeKeyLayoutData);
        if (data == NULL) {
                return NULL;
        }
        return CFDataGetBytePtr(data);
}

static CFStringRef layoutSourceID(void *source) {
        return (CFStringRef)TISGetInputSourceProperty((TISInputSourceRef)source, kTISPropertyInputSourceID);
}

static int32_t translateKey(const void *layout, uint16_t keycode, uint16_t action, uint32_t modifiers,
                            uint32_t options, uint32_t *deadKeyState, unsigned long capacity,
                            unsigned long *length, uint16_t *out) {
        UniCharCount actual = 0;
        OSStatus status = UCKeyTranslate((const UCKeyboardLayout *)layout,
                                         keycode,
                                         action,
                                         modifiers,
                                         LMGetKbdType(),
                                         options,
                                         deadKeyState,
                                         (UniCharCount)capacity,
                                         &actual,
                                         (UniChar *)out);
        *length = (unsigned long)actual;
        return (int32_t)status;
}

static uint32_t noDeadKeysMask(void) {
        return kUCKeyTranslateNoDeadKeysMask;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type tisLayouts struct{}

func defaultLayouts() LayoutService {
	return tisLayouts{}
}

// tisLayout wraps a retained TISInputSourceRef. The layout bytes are owned
// by the source and stay valid until Release.
type tisLayout struct {
	source unsafe.Pointer
	bytes  unsafe.Pointer
	id     string
}

func (tisLayouts) Current() (Layout, error) {
	source := C.copyCurrentLayoutSource()
	if source == nil {
		return nil, fmt.Errorf("%w: no current keyboard input source", ErrLayoutUnavailable)
	}
	bytes := C.layoutBytes(source)
	if bytes == nil {
		C.releaseLayoutSource(source)
		return nil, fmt.Errorf("%w: input source has no unicode key layout data", ErrLayoutUnavailable)
	}
	return &tisLayout{
		source: source,
		bytes:  unsafe.Pointer(bytes),
		id:     cfStringValue(C.layoutSourceID(source)),
	}, nil
}

func (l *tisLayout) ID() string { return l.id }

func (l *tisLayout) Translate(req TranslateRequest, deadKeys *uint32, out []uint16) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}
	var options C.uint32_t
	if req.SuppressDeadKeys {
		options = C.noDeadKeysMask()
	}
	var scratch uint32
	if deadKeys == nil {
		deadKeys = &scratch
	}
	var length C.ulong
	status := C.translateKey(
		l.bytes,
		C.uint16_t(req.Keycode),
		C.uint16_t(req.Action),
		C.uint32_t(req.Modifiers),
		options,
		(*C.uint32_t)(unsafe.Pointer(deadKeys)),
		C.ulong(len(out)),
		&length,
		(*C.uint16_t)(unsafe.Pointer(&out[0])),
	)
	if status != 0 {
		return 0, fmt.Errorf("UCKeyTranslate status %d", int32(status))
	}
	return int(length), nil
}

func (l *tisLayout) Release() {
	if l.source == nil {
		return
	}
	C.releaseLayoutSource(l.source)
	l.source = nil
	l.bytes = nil
}

// cfStringValue copies a CFString the caller does not own.
func cfStringValue(str C.CFStringRef) string {
	if str == 0 {
		return ""
	}
	length := C.CFStringGetLength(str)
	if length == 0 {
		return ""
	}
	bufSize := C.CFIndex(1 + 4*length)
	buf := make([]byte, int(bufSize))
	if C.CFStringGetCString(str, (*C.char)(unsafe.Pointer(&buf[0])), bufSize, C.kCFStringEncodingUTF8) == C.Boolean(0) {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(&buf[0])))
}
