package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/keytap/pkg/config"
	"github.com/offlinefirst/keytap/pkg/keyboard"
)

func (rc *RootCommand) newLayoutCommand() *cobra.Command {
	var (
		deadKeys string
		format   string
		names    bool
		static   bool
	)
	cmd := &cobra.Command{
		Use:   "layout CHORD...",
		Short: "Resolve key chords against the active keyboard layout",
		Long: `Resolve each chord to the character the active layout produces, without
installing an event tap. A chord is a key name or keycode with optional
modifier prefixes, e.g. "a", "shift+a", "opt+e", "ctrl+c" or "key:14".
Chords are resolved in order, so in compose mode "opt+e e" yields é.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dead-keys") {
				deadKeys = app.Config.Keyboard.DeadKeys
			}
			mode, err := keyboard.ParseDeadKeyMode(deadKeys)
			if err != nil {
				return err
			}

			layouts := rc.layoutSource()
			if static {
				layouts = keyboard.StaticLayouts{Layout: keyboard.USLayout()}
			}
			resolver := keyboard.NewResolver(layouts, mode)

			out := cmd.OutOrStdout()
			normalized, err := config.NormalizeOutputFormat(format)
			if err != nil {
				return err
			}
			if normalized == "auto" {
				normalized = autoFormat(out)
			}
			sink, sinkErr := newRenderer(out, normalized, names)
			var state keyboard.CompositionState
			for _, arg := range args {
				code, mods, err := parseChord(arg)
				if err != nil {
					return err
				}
				char, err := resolver.Resolve(&state, code, mods)
				if err != nil {
					app.Logger.Warn("chord resolved without character", "chord", arg, "error", err)
				}
				sink.Deliver(keyboard.KeyEvent{
					Keycode:   code,
					Char:      char,
					State:     keyboard.StateDown,
					Modifiers: mods,
					Time:      time.Now(),
				})
			}
			return sinkErr()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&deadKeys, "dead-keys", "display", "Dead key handling: display or compose")
	flags.StringVar(&format, "format", "text", "Output format: auto, text or json")
	flags.BoolVar(&names, "names", false, "Show Unicode names of produced characters")
	flags.BoolVar(&static, "us", false, "Use the built-in U.S. layout instead of the active one")
	return cmd
}

// parseChord splits "mod+mod+key" into a keycode and modifiers.
func parseChord(chord string) (uint16, keyboard.Modifiers, error) {
	var mods keyboard.Modifiers
	parts := strings.Split(strings.TrimSpace(chord), "+")
	key := parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "ctrl", "control":
			mods.Control = true
		case "alt", "opt", "option":
			mods.Option = true
		case "shift":
			mods.Shift = true
		case "cmd", "command":
			mods.Command = true
		default:
			return 0, mods, fmt.Errorf("unknown modifier %q in chord %q", p, chord)
		}
	}
	code, ok := keyboard.LookupKey(key)
	if !ok {
		return 0, mods, fmt.Errorf("unknown key %q in chord %q", key, chord)
	}
	return code, mods, nil
}
