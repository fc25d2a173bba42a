package input

import (
	"github.com/offlinefirst/gameplay-dagger/pkg/permissions"
)

// Environment describes input and capture backend availability.
type Environment struct {
	Backend       string
	Available     bool
	ScreenCapture string
	InputHooks    string
	Message       string
	Guidance      string
}

// DetectEnvironment reports which backend is compiled in and whether it can run.
func DetectEnvironment() Environment {
	return detectEnvironment(nil)
}

func detectEnvironment(lookup permissions.LookupEnvFunc) Environment {
	env := Environment{Backend: backendName, Available: true}
	if backendName != "desktop" {
		env.ScreenCapture = "not_applicable"
		env.InputHooks = "not_applicable"
		env.Message = "synthetic input backend"
		return env
	}

	screen := permissions.ProbeScreenCapture(lookup)
	hooks := permissions.ProbeInputHooks(lookup)
	env.ScreenCapture = screen.StatusString()
	env.InputHooks = hooks.StatusString()
	env.Available = screen.Usable() && hooks.Usable()
	switch {
	case !screen.Usable():
		env.Message, env.Guidance = screen.Message, screen.Guidance
	case !hooks.Usable():
		env.Message, env.Guidance = hooks.Message, hooks.Guidance
	default:
		env.Message = "desktop input backend ready"
		env.Guidance = screen.Guidance
	}
	return env
}
