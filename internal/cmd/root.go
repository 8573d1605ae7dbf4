package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/keytap/internal/buildinfo"
	"github.com/offlinefirst/keytap/pkg/config"
	"github.com/offlinefirst/keytap/pkg/keyboard"
	"github.com/offlinefirst/keytap/pkg/logging"
)

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config config.Config
	Logger *slog.Logger
}

// RootCommand owns the cobra tree and the state shared by subcommands.
type RootCommand struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
	appCtx *AppContext

	configPath string
	logLevel   string
	logFormat  string

	mainThread func(func())
	backend    keyboard.Backend
	layouts    keyboard.LayoutService
}

// Option customises a RootCommand.
type Option func(*RootCommand)

// WithOutput redirects command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(rc *RootCommand) {
		rc.stdout = stdout
		rc.stderr = stderr
	}
}

// WithMainThread runs the keyboard tap through fn, which must execute its
// argument on the process main thread and wait for it.
func WithMainThread(fn func(func())) Option {
	return func(rc *RootCommand) {
		rc.mainThread = fn
	}
}

// WithBackend replaces the platform event tap backend.
func WithBackend(b keyboard.Backend) Option {
	return func(rc *RootCommand) {
		rc.backend = b
	}
}

// WithLayouts replaces the platform layout service.
func WithLayouts(l keyboard.LayoutService) Option {
	return func(rc *RootCommand) {
		rc.layouts = l
	}
}

// NewRootCommand constructs the CLI with its subcommands and global flags.
func NewRootCommand(opts ...Option) *RootCommand {
	rc := &RootCommand{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		mainThread: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(rc)
	}

	root := &cobra.Command{
		Use:           "keytap",
		Short:         "Watch keyboard events and the characters they produce",
		Long:          "keytap observes key transitions through a listen-only event tap and shows the character the active keyboard layout produces for each one. Nothing is stored or sent anywhere.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(rc.stdout)
	root.SetErr(rc.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&rc.configPath, "config", "", "Path to config file (default: ./keytap.yaml if present)")
	flags.StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flags.StringVar(&rc.logFormat, "log-format", "", "Override log output format (json, console)")

	root.AddCommand(
		rc.newMonitorCommand(),
		rc.newLayoutCommand(),
		rc.newDoctorCommand(),
		rc.newVersionCommand(),
	)

	rc.root = root
	return rc
}

// Execute parses args and dispatches to a subcommand. Errors are printed to
// stderr and returned.
func (rc *RootCommand) Execute(args []string) error {
	rc.root.SetArgs(args)
	if err := rc.root.Execute(); err != nil {
		fmt.Fprintf(rc.stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func (rc *RootCommand) ensureAppContext() (*AppContext, error) {
	if rc.appCtx != nil {
		return rc.appCtx, nil
	}

	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(rc.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if rc.logFormat != "" {
		format, err := config.NormalizeFormat(rc.logFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: rc.stderr,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", "source", cfg.Source, "dead_keys", cfg.Keyboard.DeadKeys, "output", cfg.Output.Format)

	rc.appCtx = &AppContext{Config: cfg, Logger: logger}
	return rc.appCtx, nil
}

func (rc *RootCommand) layoutSource() keyboard.LayoutService {
	if rc.layouts != nil {
		return rc.layouts
	}
	return keyboard.SystemLayouts()
}

func versionString() string {
	return fmt.Sprintf("%s (%s/%s)", buildinfo.Version(), runtimeVersion(), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return runtime.Version() }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
