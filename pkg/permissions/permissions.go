package permissions

import (
	"os"
	"strings"
)

// Status enumerates coarse permission results for macOS privacy surfaces.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that permission was previously granted.
	StatusGranted Status = "granted"
	// StatusDenied indicates the process is not trusted yet.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// DefaultLookupEnv is the standard environment resolver.
func DefaultLookupEnv(key string) (string, bool) {
	return lookupEnv(key)
}

// lookupEnv is declared for swapping in tests.
var lookupEnv = func(key string) (string, bool) {
	return os.LookupEnv(key)
}

const (
	envInputMonitoring = "KEYTAP_INPUT_MONITORING"
	envAccessibility   = "KEYTAP_ACCESSIBILITY"

	guidanceInputMonitoring = "enable the terminal or binary under System Settings > Privacy & Security > Input Monitoring"
	guidanceAccessibility   = "enable the terminal or binary under System Settings > Privacy & Security > Accessibility"
)

// ProbeInputMonitoring reports whether the process may create a listen-only
// keyboard event tap. It never triggers a system prompt.
func ProbeInputMonitoring(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup(envInputMonitoring); ok {
		return interpretPermissionFlag("input monitoring", value)
	}
	res := preflightListenAccess()
	if res.Status == StatusDenied && res.Guidance == "" {
		res.Guidance = guidanceInputMonitoring
	}
	return res
}

// ProbeAccessibility inspects accessibility trust without prompting.
func ProbeAccessibility(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup(envAccessibility); ok {
		return interpretPermissionFlag("accessibility", value)
	}
	res := preflightAccessibility()
	if res.Status == StatusDenied && res.Guidance == "" {
		res.Guidance = guidanceAccessibility
	}
	return res
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "use 'tccutil reset' or update KEYTAP_* env to re-test"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the string representation for reports.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
