//go:build !darwin

package permissions

func preflightListenAccess() ProbeResult {
	return ProbeResult{Status: StatusUnavailable, Message: "input monitoring unsupported on this platform"}
}

func preflightAccessibility() ProbeResult {
	return ProbeResult{Status: StatusUnavailable, Message: "accessibility prompts unavailable"}
}
