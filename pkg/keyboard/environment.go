package keyboard

import (
	"runtime"

	"github.com/offlinefirst/keytap/pkg/permissions"
)

// Environment summarises event tap backend support.
type Environment struct {
	Provider   string
	Available  bool
	Permission string
	Layout     string
	Message    string
	Guidance   string
}

const (
	providerQuartz      = "quartz_event_tap"
	providerUnsupported = "unsupported"
)

// DetectEnvironment reports whether a real event tap can be installed and
// which layout the resolver would use right now.
func DetectEnvironment(layouts LayoutService) Environment {
	if layouts == nil {
		layouts = defaultLayouts()
	}
	listen := permissions.ProbeInputMonitoring(nil)
	env := Environment{
		Provider:   providerUnsupported,
		Permission: listen.StatusString(),
		Message:    listen.Message,
		Guidance:   listen.Guidance,
	}

	if runtime.GOOS == "darwin" {
		env.Provider = providerQuartz
		env.Available = listen.Status != permissions.StatusDenied
		if !env.Available && env.Message == "" {
			env.Message = "input monitoring permission missing"
		}
	} else {
		env.Permission = "not_applicable"
		if env.Message == "" {
			env.Message = "event taps unavailable; use the replay backend"
		}
	}

	if layout, err := layouts.Current(); err == nil && layout != nil {
		env.Layout = layout.ID()
		layout.Release()
	}
	return env
}
