package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/offlinefirst/gameplay-dagger/internal/buildinfo"
	"github.com/offlinefirst/gameplay-dagger/pkg/capture"
	"github.com/offlinefirst/gameplay-dagger/pkg/config"
	"github.com/offlinefirst/gameplay-dagger/pkg/input"
	"github.com/offlinefirst/gameplay-dagger/pkg/session"
)

var (
	timeNow    = time.Now
	hostname   = os.Hostname
	openDevice = input.Open
	// notifyContext cancels on interrupt; tests replace it to inject cancellation.
	notifyContext = func(parent context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	}
)

// captureFlags are the capture overrides shared by record and dagger.
type captureFlags struct {
	region      []int
	resetCursor bool
	rate        float64
	pacing      string
}

func (f *captureFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntSliceVar(&f.region, "region", nil, "Capture region as left,top,right,bottom (default: full screen)")
	flags.BoolVar(&f.resetCursor, "reset-cursor", false, "Re-centre the cursor after every poll")
	flags.Float64Var(&f.rate, "rate", 0, "Sampling rate in Hz (default from config)")
	flags.StringVar(&f.pacing, "pacing", "", "Tick pacing: spin or sleep (default from config)")
}

// apply overlays the flags the user set onto cfg and revalidates it.
func (f *captureFlags) apply(cmd *cobra.Command, cfg config.Config) (config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("region") {
		if len(f.region) != 4 {
			return cfg, errors.Errorf("--region needs four integers (left,top,right,bottom), got %d", len(f.region))
		}
		cfg.Capture.Region = config.Region{Left: f.region[0], Top: f.region[1], Right: f.region[2], Bottom: f.region[3]}
	}
	if flags.Changed("reset-cursor") {
		cfg.Capture.ResetCursor = f.resetCursor
	}
	if flags.Changed("rate") {
		cfg.Capture.RateHz = f.rate
	}
	if flags.Changed("pacing") {
		pacing, err := config.NormalizePacing(f.pacing)
		if err != nil {
			return cfg, err
		}
		cfg.Capture.Pacing = pacing
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newRecordCommand(rc *RootCommand) *cobra.Command {
	var flags captureFlags
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a single expert session until the cancel key is pressed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, app.Config)
			if err != nil {
				return err
			}
			return runRecord(cmd.Context(), app, cfg, rc.stdout)
		},
	}
	flags.register(cmd)
	return cmd
}

func runRecord(parent context.Context, app *AppContext, cfg config.Config, stdout io.Writer) error {
	ctx, stop := notifyContext(contextOrBackground(parent))
	defer stop()

	device, err := openInput(app, cfg)
	if err != nil {
		return err
	}
	defer device.Close()

	recorder, err := newRecorder(app, cfg, device)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Recording at %.1f Hz; press %q to stop.\n", cfg.Capture.RateHz, cfg.Capture.CancelKey)
	res, err := recorder.Record(ctx)
	printSession(stdout, res)
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "record session")
	}
	return nil
}

func openInput(app *AppContext, cfg config.Config) (input.Device, error) {
	env := input.DetectEnvironment()
	app.Logger.Info("input backend", "backend", env.Backend, "available", env.Available, "screen_capture", env.ScreenCapture, "input_hooks", env.InputHooks)
	if !env.Available {
		return nil, errors.Errorf("input backend %s unavailable: %s %s", env.Backend, env.Message, env.Guidance)
	}
	device, err := openDevice(input.Options{
		Region:      cfg.Capture.Region,
		ResetCursor: cfg.Capture.ResetCursor,
		CancelKey:   cfg.Capture.CancelKey,
		Logger:      app.Logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open input backend")
	}
	return device, nil
}

func newRecorder(app *AppContext, cfg config.Config, device input.Device) (*capture.Recorder, error) {
	host, err := hostname()
	if err != nil {
		host = "unknown"
	}
	return capture.NewRecorder(capture.Options{
		Config:     cfg,
		Layout:     session.BuildLayout(cfg.Paths.DataRoot),
		Source:     device,
		Frames:     device,
		Cancel:     device,
		Clock:      timeNow,
		Logger:     app.Logger,
		Hostname:   host,
		AppVersion: buildinfo.Version(),
	})
}

func printSession(stdout io.Writer, res capture.Result) {
	if res.SessionID == "" {
		return
	}
	fmt.Fprintf(stdout, "Session %s: %d rows at %.2f Hz (termination: %s)\n", res.SessionID, res.Rows, res.AchievedRateHz, res.Termination)
	fmt.Fprintf(stdout, "  csv: %s\n", res.CSVPath)
	fmt.Fprintf(stdout, "  frames: %s\n", res.FramesDir)
	fmt.Fprintf(stdout, "  manifest: %s\n", res.ManifestPath)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
