// Package capture runs the fixed-rate acquisition loop that records one frame and one
// sample row per tick until the cancel key is pressed.
package capture

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
	"github.com/offlinefirst/gameplay-dagger/pkg/frames"
	"github.com/offlinefirst/gameplay-dagger/pkg/input"
	"github.com/offlinefirst/gameplay-dagger/pkg/labels"
	"github.com/offlinefirst/gameplay-dagger/pkg/logging"
	"github.com/offlinefirst/gameplay-dagger/pkg/session"
)

// ErrInvalidRate reports a non-positive sampling rate.
var ErrInvalidRate = errors.New("sampling rate must be positive")

// Termination causes recorded in results and manifests.
const (
	TerminationCancelKey = "cancel_key"
	TerminationContext   = "context"
	TerminationError     = "error"
)

// Options controls a capture session.
type Options struct {
	// Config supplies the capture section: rate, pacing, frame format and region.
	Config config.Config
	Layout session.Layout
	Source input.Source
	Frames input.FrameSource
	Cancel input.CancelSignal
	Clock  func() time.Time
	// Pacer overrides the pacer derived from Config.Capture.Pacing.
	Pacer      Pacer
	Logger     *slog.Logger
	Hostname   string
	AppVersion string
}

// Result summarises a finished session.
type Result struct {
	SessionID      string
	Rows           int
	CSVPath        string
	FramesDir      string
	ManifestPath   string
	StartedAt      time.Time
	EndedAt        time.Time
	AchievedRateHz float64
	Termination    string
}

// Recorder runs capture sessions. Each Record call owns its session table exclusively.
type Recorder struct {
	opts   Options
	clock  func() time.Time
	pacer  Pacer
	writer *frames.Writer
	logger *slog.Logger
}

// NewRecorder validates options and constructs a recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Config.Capture.RateHz <= 0 {
		return nil, errors.Wrapf(ErrInvalidRate, "got %v", opts.Config.Capture.RateHz)
	}
	if opts.Source == nil || opts.Frames == nil || opts.Cancel == nil {
		return nil, errors.New("input source, frame source and cancel signal must be provided")
	}
	if opts.Layout.Root == "" {
		return nil, errors.New("data root must not be empty")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	pacer := opts.Pacer
	if pacer == nil {
		var err error
		pacer, err = NewPacer(opts.Config.Capture.Pacing, opts.Config.Capture.RateHz, clock)
		if err != nil {
			return nil, err
		}
	}
	writer, err := frames.NewWriter(frames.Options{Format: opts.Config.Capture.FrameFormat, Quality: opts.Config.Capture.JPEGQuality})
	if err != nil {
		return nil, err
	}
	return &Recorder{
		opts:   opts,
		clock:  clock,
		pacer:  pacer,
		writer: writer,
		logger: logging.OrDiscard(opts.Logger),
	}, nil
}

// Record runs one session until the cancel signal is observed after a completed tick.
// Cancelling ctx ends the session the same way and returns ctx.Err alongside the result.
// I/O failures abort the session; rows already written stay valid.
func (r *Recorder) Record(ctx context.Context) (res Result, err error) {
	started := r.clock()
	id := session.NewID(started)
	paths := r.opts.Layout.Session(id)

	res = Result{
		SessionID:    id,
		CSVPath:      paths.CSVPath,
		FramesDir:    paths.FramesDir,
		ManifestPath: paths.ManifestPath,
		StartedAt:    started,
	}

	if err := session.EnsureFilesystem(r.opts.Layout); err != nil {
		return res, err
	}
	if err := os.MkdirAll(paths.FramesDir, 0o755); err != nil {
		return res, errors.Wrap(err, "create session frame directory")
	}

	man := session.NewManifest(session.Options{
		CreatedAt:  started,
		Hostname:   r.opts.Hostname,
		AppVersion: r.opts.AppVersion,
		Config:     r.opts.Config,
		Layout:     r.opts.Layout,
		Session:    paths,
	})
	man.Status.State = session.StateRunning
	man.Status.StartedAt = timePtr(started.UTC())
	if err := session.Save(man, paths.ManifestPath); err != nil {
		return res, err
	}

	table, err := labels.CreateRecordFile(paths.CSVPath)
	if err != nil {
		res.Termination = TerminationError
		res.EndedAt = r.clock()
		man.Status.State = session.StateFailed
		man.Status.Summary = err.Error()
		man.Status.Termination = res.Termination
		man.Status.EndedAt = timePtr(res.EndedAt.UTC())
		return res, multierr.Append(err, session.Save(man, paths.ManifestPath))
	}

	if rs, ok := r.opts.Cancel.(input.Resetter); ok {
		rs.Reset()
	}
	if rs, ok := r.pacer.(sessionPacer); ok {
		rs.Start()
	}

	r.logger.Info("capture session started", "session", id, "rate_hz", r.opts.Config.Capture.RateHz, "csv", paths.CSVPath)

	defer func() {
		err = multierr.Append(err, table.Close())
		res.Rows = table.Rows()
		res.EndedAt = r.clock()
		if elapsed := res.EndedAt.Sub(res.StartedAt); elapsed > 0 && res.Rows > 0 {
			res.AchievedRateHz = float64(res.Rows) / elapsed.Seconds()
		}

		man.Status.EndedAt = timePtr(res.EndedAt.UTC())
		man.Status.Rows = res.Rows
		man.Status.AchievedRateHz = res.AchievedRateHz
		man.Status.Termination = res.Termination
		switch {
		case res.Termination == TerminationError:
			man.Status.State = session.StateFailed
			man.Status.Summary = err.Error()
		default:
			man.Status.State = session.StateCompleted
		}
		err = multierr.Append(err, session.Save(man, paths.ManifestPath))

		r.logger.Info("capture session finished",
			"session", id,
			"rows", res.Rows,
			"achieved_rate_hz", res.AchievedRateHz,
			"termination", res.Termination,
		)
	}()

	ext := r.writer.Ext()
	for index := 1; ; index++ {
		tickStart := r.clock()

		sample := r.opts.Source.Poll()
		img, err := r.opts.Frames.CaptureFrame()
		if err != nil {
			res.Termination = TerminationError
			return res, errors.Wrapf(err, "capture frame %d", index)
		}
		if err := r.writer.WriteFile(paths.FramePath(index, ext), img); err != nil {
			res.Termination = TerminationError
			return res, err
		}
		if err := table.Append(labels.SampleRecord{
			ImagePath: paths.RelativeFramePath(index, ext),
			DeltaX:    sample.DeltaX,
			DeltaY:    sample.DeltaY,
			Click:     sample.Click,
			HitEdge:   sample.HitEdge,
		}); err != nil {
			res.Termination = TerminationError
			return res, err
		}

		tickEnd, waitErr := r.pacer.Wait(ctx, tickStart)
		if elapsed := tickEnd.Sub(tickStart); elapsed > 0 {
			r.logger.Debug("tick", "index", index, "achieved_rate_hz", 1/elapsed.Seconds())
		}

		if r.opts.Cancel.Asserted() {
			res.Termination = TerminationCancelKey
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Termination = TerminationContext
			return res, ctxErr
		}
		if waitErr != nil {
			res.Termination = TerminationError
			return res, errors.Wrap(waitErr, "pace tick")
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
