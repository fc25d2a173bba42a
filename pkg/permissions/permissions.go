package permissions

import (
	"os"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results for desktop input and capture surfaces.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that the capability is usable.
	StatusGranted Status = "granted"
	// StatusDenied indicates the user or platform refused access.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// Environment variables that force a probe result.
const (
	EnvScreenCapture = "DAGGER_SCREEN_CAPTURE"
	EnvInputHooks    = "DAGGER_INPUT_HOOKS"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// lookupEnv is declared for swapping in tests.
var lookupEnv = os.LookupEnv

// goos is declared for swapping in tests.
var goos = runtime.GOOS

// ProbeScreenCapture reports whether frames of the game window can be grabbed.
func ProbeScreenCapture(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup(EnvScreenCapture); ok {
		return interpretPermissionFlag("screen capture", value)
	}
	return probeDesktop(lookup, "screen capture", "grant Screen Recording to the terminal in System Settings > Privacy & Security")
}

// ProbeInputHooks reports whether global mouse and keyboard state can be observed.
func ProbeInputHooks(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup(EnvInputHooks); ok {
		return interpretPermissionFlag("input hooks", value)
	}
	return probeDesktop(lookup, "input hooks", "grant Accessibility to the terminal in System Settings > Privacy & Security")
}

func probeDesktop(lookup LookupEnvFunc, name, darwinGuidance string) ProbeResult {
	switch goos {
	case "darwin":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " requires macOS authorisation", Guidance: darwinGuidance}
	case "windows":
		return ProbeResult{Status: StatusGranted, Message: name + " available"}
	case "linux", "freebsd", "openbsd", "netbsd":
		if v, ok := lookup("DISPLAY"); ok && strings.TrimSpace(v) != "" {
			return ProbeResult{Status: StatusGranted, Message: name + " available through X11"}
		}
		if _, ok := lookup("WAYLAND_DISPLAY"); ok {
			return ProbeResult{Status: StatusDenied, Message: name + " unsupported under Wayland", Guidance: "run the game and recorder under XWayland with DISPLAY set"}
		}
		return ProbeResult{Status: StatusUnavailable, Message: "no display server for " + name}
	default:
		return ProbeResult{Status: StatusUnavailable, Message: name + " unsupported on " + goos}
	}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " denied via env override", Guidance: "unset DAGGER_* overrides to re-probe"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " state unknown"}
	}
}

// Usable reports whether capture may proceed.
func (p ProbeResult) Usable() bool {
	return p.Status == StatusGranted || p.Status == StatusPromptRequired
}

// StatusString returns the string representation for manifest integration.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
