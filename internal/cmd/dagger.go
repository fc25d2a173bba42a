package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/offlinefirst/gameplay-dagger/pkg/agent"
	"github.com/offlinefirst/gameplay-dagger/pkg/config"
	"github.com/offlinefirst/gameplay-dagger/pkg/dagger"
)

// sleeper paces the countdown; tests replace it.
var sleeper func(context.Context, time.Duration) error

func newDaggerCommand(rc *RootCommand) *cobra.Command {
	var flags captureFlags
	var rounds int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Alternate agent play and expert recording until interrupted",
		Long: "run counts down, then hands control to the trained agent and, once it cedes control,\n" +
			"records the expert until the cancel key is pressed. The cycle repeats until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, app.Config)
			if err != nil {
				return err
			}
			return runDagger(cmd.Context(), app, cfg, rounds, rc.stdout)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&rounds, "rounds", 0, "Stop after this many play/record rounds (0 runs until interrupted)")
	return cmd
}

func runDagger(parent context.Context, app *AppContext, cfg config.Config, rounds int, stdout io.Writer) error {
	if rounds < 0 {
		return errors.New("--rounds must not be negative")
	}
	ctx, stop := notifyContext(contextOrBackground(parent))
	defer stop()

	player, err := newPlayer(app, cfg)
	if err != nil {
		return err
	}
	device, err := openInput(app, cfg)
	if err != nil {
		return err
	}
	defer device.Close()

	recorder, err := newRecorder(app, cfg, device)
	if err != nil {
		return err
	}

	control := dagger.NewController()
	if watchControlSignals(ctx, control, app.Logger) {
		fmt.Fprintf(stdout, "Send %s to pid %d to pause after the current phase, %s to resume.\n", pauseSignal, os.Getpid(), resumeSignal)
	}
	summary, err := dagger.Run(ctx, dagger.Options{
		Agent:            player,
		Recorder:         recorder,
		CountdownSeconds: cfg.Dagger.CountdownSeconds,
		OnCountdown:      func(remaining int) { fmt.Fprintf(stdout, "Starting in %d...\n", remaining) },
		MaxRounds:        rounds,
		Control:          control,
		Clock:            timeNow,
		Sleeper:          sleeper,
		Logger:           app.Logger,
	})

	for _, res := range summary.Sessions {
		printSession(stdout, res)
	}
	fmt.Fprintf(stdout, "Rounds: %d, sessions: %d, rows: %d (agent errors: %d, aborted sessions: %d)\n",
		summary.Rounds, len(summary.Sessions), summary.Rows(), summary.AgentErrors, summary.RecordErrors)
	fmt.Fprintln(stdout, "Phase timeline:")
	for _, tr := range control.Timeline() {
		fmt.Fprintf(stdout, "  - %s -> %s (round %d)\n", tr.At.Format(time.RFC3339), tr.Phase, tr.Round)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "aggregation loop")
	}
	return nil
}

func newPlayer(app *AppContext, cfg config.Config) (agent.Player, error) {
	budget := time.Duration(cfg.Agent.PlayBudgetSeconds) * time.Second
	env := agent.DetectEnvironment(agent.DetectorOptions{Command: cfg.Agent.Command, AgentDir: cfg.Paths.AgentDir})
	app.Logger.Info("agent environment", "command", env.Command, "available", env.Available, "model", env.ModelPath, "model_present", env.ModelPresent)
	if cfg.Agent.Command == "" {
		for _, hint := range env.Guidance {
			app.Logger.Warn("agent not configured", "hint", hint)
		}
		return agent.Idle{Budget: budget}, nil
	}
	player, err := agent.NewCommand(agent.Options{
		Command:  cfg.Agent.Command,
		Args:     cfg.Agent.Args,
		AgentDir: cfg.Paths.AgentDir,
		DataRoot: cfg.Paths.DataRoot,
		Budget:   budget,
		Logger:   app.Logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "prepare agent")
	}
	return player, nil
}
