package permissions

import "testing"

type fakeLookup map[string]string

func (f fakeLookup) get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func withGOOS(t *testing.T, value string) {
	t.Helper()
	prev := goos
	goos = value
	t.Cleanup(func() { goos = prev })
}

func TestInterpretPermissionFlag(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected Status
	}{
		"granted":     {"granted", StatusGranted},
		"denied":      {"denied", StatusDenied},
		"prompt":      {"prompt", StatusPromptRequired},
		"unsupported": {"unsupported", StatusUnavailable},
		"unknown":     {"", StatusUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := interpretPermissionFlag("test", tc.value)
			if res.Status != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, res.Status)
			}
		})
	}
}

func TestProbeScreenCaptureHonoursEnv(t *testing.T) {
	lookup := fakeLookup{EnvScreenCapture: "denied"}
	res := ProbeScreenCapture(lookup.get)
	if res.Status != StatusDenied {
		t.Fatalf("expected denied, got %s", res.Status)
	}
	if res.Guidance == "" {
		t.Fatalf("expected guidance when denied")
	}
	if res.Usable() {
		t.Fatalf("denied probe must not be usable")
	}
}

func TestProbeInputHooksLinuxDisplay(t *testing.T) {
	withGOOS(t, "linux")

	if res := ProbeInputHooks(fakeLookup{"DISPLAY": ":0"}.get); res.Status != StatusGranted {
		t.Fatalf("expected granted with DISPLAY, got %s", res.Status)
	}
	if res := ProbeInputHooks(fakeLookup{"WAYLAND_DISPLAY": "wayland-0"}.get); res.Status != StatusDenied {
		t.Fatalf("expected denied under wayland, got %s", res.Status)
	}
	if res := ProbeInputHooks(fakeLookup{}.get); res.Status != StatusUnavailable {
		t.Fatalf("expected unavailable without display, got %s", res.Status)
	}
}

func TestProbeDarwinPrompts(t *testing.T) {
	withGOOS(t, "darwin")
	res := ProbeScreenCapture(fakeLookup{}.get)
	if res.Status != StatusPromptRequired || !res.Usable() {
		t.Fatalf("expected usable prompt status, got %s", res.Status)
	}
}
