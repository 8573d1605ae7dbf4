//go:build darwin

package permissions

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <CoreGraphics/CoreGraphics.h>

static Boolean listenAccessGranted(void) {
        return CGPreflightListenEventAccess();
}

static Boolean accessibilityTrusted(void) {
        return AXIsProcessTrusted();
}
*/
import "C"

func preflightListenAccess() ProbeResult {
	if C.listenAccessGranted() != C.Boolean(0) {
		return ProbeResult{Status: StatusGranted, Message: "input monitoring granted"}
	}
	return ProbeResult{Status: StatusDenied, Message: "input monitoring not granted to this process"}
}

func preflightAccessibility() ProbeResult {
	if C.accessibilityTrusted() != C.Boolean(0) {
		return ProbeResult{Status: StatusGranted, Message: "accessibility trust granted"}
	}
	return ProbeResult{Status: StatusDenied, Message: "accessibility trust not granted to this process"}
}
