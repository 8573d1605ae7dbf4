package buildinfo

import "runtime/debug"

// version is overridden at link time with -ldflags "-X".
var version = "dev"

var readBuildInfo = debug.ReadBuildInfo

// SetVersion allows build scripts to override the CLI version information.
func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

// Version returns the release version, the module version recorded by
// "go install", or the short VCS revision for local builds.
func Version() string {
	if version != "dev" {
		return version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return "dev-" + s.Value[:7]
		}
	}
	return "dev"
}
