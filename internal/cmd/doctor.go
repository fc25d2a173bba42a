package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/gameplay-dagger/pkg/agent"
	"github.com/offlinefirst/gameplay-dagger/pkg/input"
)

func newDoctorCommand(rc *RootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check input backend permissions and agent availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			out := rc.stdout
			cfg := app.Config

			in := input.DetectEnvironment()
			fmt.Fprintf(out, "Input backend: %s (available=%t)\n", in.Backend, in.Available)
			fmt.Fprintf(out, "  screen capture: %s\n", in.ScreenCapture)
			fmt.Fprintf(out, "  input hooks: %s\n", in.InputHooks)
			if in.Message != "" {
				fmt.Fprintf(out, "  %s\n", in.Message)
			}
			if in.Guidance != "" {
				fmt.Fprintf(out, "  hint: %s\n", in.Guidance)
			}

			ag := agent.DetectEnvironment(agent.DetectorOptions{Command: cfg.Agent.Command, AgentDir: cfg.Paths.AgentDir})
			command := ag.Command
			if command == "" {
				command = "<none>"
			}
			fmt.Fprintf(out, "Agent: %s (available=%t)\n", command, ag.Available)
			fmt.Fprintf(out, "  model: %s (present=%t)\n", ag.ModelPath, ag.ModelPresent)
			if ag.Message != "" {
				fmt.Fprintf(out, "  %s\n", ag.Message)
			}
			for _, hint := range ag.Guidance {
				fmt.Fprintf(out, "  hint: %s\n", hint)
			}
			return nil
		},
	}
}
