package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	orig, origVersion := readBuildInfo, version
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	version = "dev"
	t.Cleanup(func() { readBuildInfo, version = orig, origVersion })
}

func TestVersionPrefersInjectedValue(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "v0.1.0"}})
	SetVersion("")
	assert.Equal(t, "v0.1.0", Version())
	SetVersion("v9.9.9")
	assert.Equal(t, "v9.9.9", Version())
}

func TestVersionFallsBackToRevision(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}},
	})
	assert.Equal(t, "dev-0123456789ab", Version())
}

func TestVersionWithoutBuildInfo(t *testing.T) {
	withBuildInfo(t, nil)
	assert.Equal(t, "dev", Version())
}
