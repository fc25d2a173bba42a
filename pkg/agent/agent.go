// Package agent launches the trained policy that plays between expert recordings.
package agent

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
	"github.com/offlinefirst/gameplay-dagger/pkg/logging"
)

// ModelFileName is the trained model artifact inside the agent directory.
const ModelFileName = "agent.h5"

// EnvModelPath carries the model artifact location to the agent process.
const EnvModelPath = "DAGGER_AGENT_MODEL"

// Player runs the autonomous agent until it cedes control.
type Player interface {
	Play(ctx context.Context) error
}

// ModelPath returns the model artifact path for an agent directory.
func ModelPath(agentDir string) string {
	return filepath.Join(agentDir, ModelFileName)
}

// Options configure an external agent process.
type Options struct {
	Command  string
	Args     []string
	AgentDir string
	DataRoot string
	// Budget bounds a single Play call. Zero lets the process decide when to return.
	Budget   time.Duration
	LookPath func(string) (string, error)
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
}

// Command plays by running an external process once per Play call.
type Command struct {
	binary   string
	args     []string
	agentDir string
	dataRoot string
	budget   time.Duration
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
}

// NewCommand resolves the agent binary and returns a player.
func NewCommand(opts Options) (*Command, error) {
	name := strings.TrimSpace(opts.Command)
	if name == "" {
		return nil, errors.New("agent command must not be empty")
	}
	if opts.Budget < 0 {
		return nil, errors.New("play budget must not be negative")
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	binary, err := lookPath(name)
	if err != nil {
		return nil, errors.Wrapf(err, "locate agent command %q", name)
	}
	return &Command{
		binary:   binary,
		args:     append([]string(nil), opts.Args...),
		agentDir: opts.AgentDir,
		dataRoot: opts.DataRoot,
		budget:   opts.Budget,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		logger:   logging.OrDiscard(opts.Logger),
	}, nil
}

// Play starts the agent process and waits for it to exit. An elapsed play budget
// counts as the agent ceding control; cancelling ctx returns ctx.Err.
func (c *Command) Play(ctx context.Context) error {
	playCtx := ctx
	if c.budget > 0 {
		var cancel context.CancelFunc
		playCtx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}

	cmd := exec.CommandContext(playCtx, c.binary, c.args...)
	cmd.Env = append(os.Environ(),
		EnvModelPath+"="+ModelPath(c.agentDir),
		config.EnvAgentDir+"="+c.agentDir,
		config.EnvDataRoot+"="+c.dataRoot,
	)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	c.logger.Info("agent playing", "command", c.binary, "budget", c.budget.String())
	err := cmd.Run()
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case playCtx.Err() == context.DeadlineExceeded:
		c.logger.Info("agent play budget elapsed")
		return nil
	case err != nil:
		return errors.Wrap(err, "agent process failed")
	}
	c.logger.Info("agent ceded control")
	return nil
}

// Idle stands in for an agent when none is configured. It holds for the budget and
// returns, so recordings follow one another.
type Idle struct {
	Budget time.Duration
}

// Play implements Player.
func (i Idle) Play(ctx context.Context) error {
	if i.Budget <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(i.Budget)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
