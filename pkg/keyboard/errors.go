package keyboard

import "errors"

var (
	// ErrInstallFailed reports that the event tap could not be installed.
	// The loop never started; the caller decides whether to retry.
	ErrInstallFailed = errors.New("keyboard event tap could not be installed")

	// ErrPermissionDenied indicates the host must grant Input Monitoring or
	// Accessibility trust before a tap can be created.
	ErrPermissionDenied = errors.New("macOS input monitoring permission required for key capture")

	// ErrUnsupportedPlatform is returned by the default backend on systems
	// without a Quartz event tap.
	ErrUnsupportedPlatform = errors.New("keyboard event taps are not supported on this platform")

	// ErrAlreadyRunning is returned when Start is called on a Tap whose loop
	// is still active.
	ErrAlreadyRunning = errors.New("keyboard tap already running")

	// ErrLayoutUnavailable means the layout service produced no layout data
	// for the current input source.
	ErrLayoutUnavailable = errors.New("keyboard layout unavailable")

	// ErrTranslationFailed means the layout rejected a keycode/modifier pair.
	ErrTranslationFailed = errors.New("key translation failed")
)
