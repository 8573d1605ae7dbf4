package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/keytap/pkg/keyboard"
	"github.com/offlinefirst/keytap/pkg/permissions"
)

var (
	detectEnvironment  = keyboard.DetectEnvironment
	probeAccessibility = func() permissions.ProbeResult {
		return permissions.ProbeAccessibility(nil)
	}
)

func (rc *RootCommand) newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report event tap support, permissions and the active layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			env := detectEnvironment(rc.layoutSource())
			access := probeAccessibility()
			app.Logger.Debug("environment probed", "provider", env.Provider, "available", env.Available, "permission", env.Permission)
			return printDoctor(cmd.OutOrStdout(), env, access)
		},
	}
}

type doctorLine struct {
	label string
	value string
}

func printDoctor(w io.Writer, env keyboard.Environment, access permissions.ProbeResult) error {
	layout := env.Layout
	if layout == "" {
		layout = "unavailable"
	}
	lines := []doctorLine{
		{"version", versionString()},
		{"provider", env.Provider},
		{"available", fmt.Sprintf("%t", env.Available)},
		{"input monitoring", env.Permission},
		{"accessibility", access.StatusString()},
		{"layout", layout},
		{"status", env.Message},
	}
	if env.Guidance != "" {
		lines = append(lines, doctorLine{"guidance", env.Guidance})
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-17s %s\n", l.label+":", l.value); err != nil {
			return err
		}
	}
	return nil
}
