package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/gameplay-dagger/internal/buildinfo"
	"github.com/offlinefirst/gameplay-dagger/pkg/config"
	"github.com/offlinefirst/gameplay-dagger/pkg/logging"
)

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config config.Config
	Logger *slog.Logger
}

// RootCommand owns the cobra command tree and the shared application context.
type RootCommand struct {
	cmd        *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	appCtx     *AppContext
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand constructs the CLI with its subcommands and global flags.
func NewRootCommand() *RootCommand {
	rc := &RootCommand{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	root := &cobra.Command{
		Use:           "dagger",
		Short:         "Gameplay data collection for imitation learning",
		Long:          "dagger alternates a trained agent with a human expert, records frame/input pairs at a fixed rate,\nand prepares train/validation/test datasets from the recordings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionString(),
	}
	flags := root.PersistentFlags()
	flags.StringVar(&rc.configPath, "config", "", "Path to config file (default: ./config.yaml if present)")
	flags.StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flags.StringVar(&rc.logFormat, "log-format", "", "Override log output format (json, console)")

	root.AddCommand(
		newDaggerCommand(rc),
		newRecordCommand(rc),
		newPrepareCommand(rc),
		newDoctorCommand(rc),
		newVersionCommand(rc),
	)

	rc.cmd = root
	rc.SetOutput(rc.stdout, rc.stderr)
	return rc
}

// SetOutput redirects command output, mainly for tests.
func (rc *RootCommand) SetOutput(stdout, stderr io.Writer) {
	rc.stdout = stdout
	rc.stderr = stderr
	rc.cmd.SetOut(stdout)
	rc.cmd.SetErr(stderr)
}

// Execute parses args and dispatches to a subcommand. Errors are printed to stderr
// before being returned.
func (rc *RootCommand) Execute(args []string) error {
	rc.cmd.SetArgs(args)
	if err := rc.cmd.Execute(); err != nil {
		fmt.Fprintf(rc.stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func (rc *RootCommand) ensureAppContext() (*AppContext, error) {
	if rc.appCtx != nil {
		return rc.appCtx, nil
	}

	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(rc.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if rc.logFormat != "" {
		format, err := config.NormalizeFormat(rc.logFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: rc.stderr,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("configuration loaded", "source", cfg.Source, "data_root", cfg.Paths.DataRoot, "agent_dir", cfg.Paths.AgentDir)

	rc.appCtx = &AppContext{Config: cfg, Logger: logger}
	return rc.appCtx, nil
}

func versionString() string {
	return fmt.Sprintf("%s (go%s/%s)", buildinfo.Version(), runtimeVersion(), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return runtime.Version() }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
