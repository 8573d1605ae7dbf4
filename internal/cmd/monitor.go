package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/offlinefirst/keytap/pkg/config"
	"github.com/offlinefirst/keytap/pkg/keyboard"
	"github.com/offlinefirst/keytap/pkg/sinks"
)

type monitorOptions struct {
	synthetic bool
	format    string
	deadKeys  string
	modifiers bool
	noKeyUp   bool
	names     bool
	debounce  time.Duration
	duration  time.Duration
}

// syntheticScript types "Hé!" with a stray mouse click in between.
var syntheticScript = func() []keyboard.Notification {
	var s []keyboard.Notification
	s = append(s, keyboard.Notification{Type: keyboard.TypeFlagsChanged, Code: 56, Mask: keyboard.FlagShift})
	s = append(s, keyboard.Press(4, keyboard.FlagShift)...)
	s = append(s, keyboard.Notification{Type: keyboard.TypeFlagsChanged, Code: 56})
	s = append(s, keyboard.Notification{Type: keyboard.EventType(1)})
	s = append(s, keyboard.Press(14, keyboard.FlagAlternate)...)
	s = append(s, keyboard.Press(14, 0)...)
	s = append(s, keyboard.Press(18, keyboard.FlagShift)...)
	return s
}()

func (rc *RootCommand) newMonitorCommand() *cobra.Command {
	opts := &monitorOptions{}
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print key events as they happen until interrupted",
		Long: `Install a listen-only keyboard event tap and print one line per key
transition together with the character the active layout produces.
Stop with Ctrl-C. On macOS the terminal needs Input Monitoring permission.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			return rc.runMonitor(cmd, app, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.synthetic, "synthetic", false, "Replay a scripted key sequence instead of the system tap")
	flags.StringVar(&opts.format, "format", "", "Output format: auto, text or json (default from config)")
	flags.StringVar(&opts.deadKeys, "dead-keys", "", "Dead key handling: display or compose (default from config)")
	flags.BoolVar(&opts.modifiers, "modifiers", false, "Also report modifier-only changes")
	flags.BoolVar(&opts.noKeyUp, "no-key-up", false, "Hide key release events")
	flags.BoolVar(&opts.names, "names", false, "Show Unicode names of produced characters")
	flags.DurationVar(&opts.debounce, "debounce", 0, "Drop repeats of the same key transition within this window")
	flags.DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

func (rc *RootCommand) runMonitor(cmd *cobra.Command, app *AppContext, opts *monitorOptions) error {
	settings, err := resolveMonitorSettings(cmd, app.Config, opts)
	if err != nil {
		return err
	}
	logger := app.Logger.With("component", "monitor")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	format := settings.format
	if format == "auto" {
		format = autoFormat(out)
	}
	renderer, rendererErr := newRenderer(out, format, settings.names)

	var sink keyboard.Sink = renderer
	if !settings.includeKeyUp {
		sink = sinks.DropKeyUp(sink)
	}
	sink = sinks.Debounce(sink, settings.debounce)

	backend := rc.backend
	layouts := rc.layouts
	if opts.synthetic {
		backend = &keyboard.ReplayBackend{Script: syntheticScript}
		if layouts == nil {
			layouts = keyboard.StaticLayouts{Layout: keyboard.USLayout()}
		}
	}

	tap, err := keyboard.NewTap(keyboard.Options{
		Sink:               sink,
		Backend:            backend,
		Layouts:            layouts,
		DeadKeys:           settings.deadKeys,
		SubscribeModifiers: settings.modifiers,
		Logger:             app.Logger.With("component", "keyboard"),
	})
	if err != nil {
		return err
	}

	logger.Info("monitor starting", "format", format, "dead_keys", settings.deadKeys.String(), "synthetic", opts.synthetic)

	var runErr error
	rc.mainThread(func() {
		runErr = tap.Run(ctx)
	})

	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		logger.Info("monitor stopped")
	case errors.Is(runErr, keyboard.ErrInstallFailed):
		printInstallGuidance(cmd.ErrOrStderr(), runErr)
		return runErr
	default:
		return runErr
	}

	if err := rendererErr(); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

type monitorSettings struct {
	format       string
	deadKeys     keyboard.DeadKeyMode
	modifiers    bool
	includeKeyUp bool
	names        bool
	debounce     time.Duration
}

// resolveMonitorSettings layers explicitly set flags over the config file.
func resolveMonitorSettings(cmd *cobra.Command, cfg config.Config, opts *monitorOptions) (monitorSettings, error) {
	s := monitorSettings{
		format:       cfg.Output.Format,
		modifiers:    cfg.Keyboard.SubscribeModifiers,
		includeKeyUp: cfg.Output.IncludeKeyUp,
		names:        cfg.Output.RuneNames,
		debounce:     time.Duration(cfg.Output.DebounceMS) * time.Millisecond,
	}
	deadKeys := cfg.Keyboard.DeadKeys

	flags := cmd.Flags()
	if flags.Changed("format") {
		s.format = opts.format
	}
	if flags.Changed("dead-keys") {
		deadKeys = opts.deadKeys
	}
	if flags.Changed("modifiers") {
		s.modifiers = opts.modifiers
	}
	if flags.Changed("no-key-up") {
		s.includeKeyUp = !opts.noKeyUp
	}
	if flags.Changed("names") {
		s.names = opts.names
	}
	if flags.Changed("debounce") {
		s.debounce = opts.debounce
	}

	format, err := config.NormalizeOutputFormat(s.format)
	if err != nil {
		return s, err
	}
	s.format = format
	if s.deadKeys, err = keyboard.ParseDeadKeyMode(deadKeys); err != nil {
		return s, err
	}
	if s.debounce < 0 {
		return s, errors.New("debounce must not be negative")
	}
	return s, nil
}

// autoFormat picks text for an interactive terminal and JSON lines otherwise.
func autoFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "text"
	}
	return "json"
}

func newRenderer(w io.Writer, format string, names bool) (keyboard.Sink, func() error) {
	if format == "json" {
		s := sinks.NewJSON(w, names)
		return s, s.Err
	}
	s := sinks.NewText(w, names)
	return s, s.Err
}

func printInstallGuidance(w io.Writer, err error) {
	fmt.Fprintf(w, "keyboard tap unavailable: %v\n", err)
	switch {
	case errors.Is(err, keyboard.ErrPermissionDenied):
		fmt.Fprintln(w, "Grant Input Monitoring to this terminal under System Settings > Privacy & Security, then run again.")
	case errors.Is(err, keyboard.ErrUnsupportedPlatform):
		fmt.Fprintln(w, "Event taps need macOS. Try 'keytap monitor --synthetic' to see the pipeline with a scripted sequence.")
	}
	fmt.Fprintln(w, "Run 'keytap doctor' for details.")
}
