package agent

import (
	"os"
	"os/exec"
	"strings"
)

// Environment captures whether the agent command and model artifact are present.
type Environment struct {
	Command      string
	Available    bool
	ModelPath    string
	ModelPresent bool
	Message      string
	Guidance     []string
}

// DetectorOptions controls agent environment probing.
type DetectorOptions struct {
	Command  string
	AgentDir string
	LookPath func(string) (string, error)
}

// DetectEnvironment reports whether an agent can be launched.
func DetectEnvironment(opts DetectorOptions) Environment {
	command := strings.TrimSpace(opts.Command)
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	env := Environment{Command: command, ModelPath: ModelPath(opts.AgentDir)}
	if info, err := os.Stat(env.ModelPath); err == nil && !info.IsDir() {
		env.ModelPresent = true
	}

	switch {
	case command == "":
		env.Message = "no agent command configured; idle between recordings"
		env.Guidance = append(env.Guidance, "set agent.command in config.yaml to launch the trained policy")
	default:
		if _, err := lookPath(command); err == nil {
			env.Available = true
			env.Message = "agent command available"
		} else {
			env.Message = "agent command " + command + " not found"
			env.Guidance = append(env.Guidance, "install the agent runner and expose it on PATH")
		}
	}
	if !env.ModelPresent {
		env.Guidance = append(env.Guidance, "train a model and place it at "+env.ModelPath)
	}
	return env
}
