// Package buildinfo carries the release version, injected with
// -ldflags "-X github.com/offlinefirst/gameplay-dagger/internal/buildinfo.version=v1.2.3".
package buildinfo

import "runtime/debug"

var version = "dev"

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// SetVersion overrides the injected version. Empty values are ignored.
func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

// Version returns the injected version, then the module version, then the short VCS
// revision, falling back to "dev".
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
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
			return "dev-" + setting.Value[:12]
		}
	}
	return "dev"
}
