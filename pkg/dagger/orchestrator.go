// Package dagger drives dataset aggregation: the trained agent plays, then a human
// expert records corrective demonstrations from the states the agent reached, forever.
package dagger

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/offlinefirst/gameplay-dagger/pkg/agent"
	"github.com/offlinefirst/gameplay-dagger/pkg/capture"
	"github.com/offlinefirst/gameplay-dagger/pkg/logging"
)

// Recorder runs one expert capture session.
type Recorder interface {
	Record(ctx context.Context) (capture.Result, error)
}

// Options configure the aggregation loop.
type Options struct {
	Agent    agent.Player
	Recorder Recorder
	// CountdownSeconds delays the first agent phase so the game window can be focused.
	CountdownSeconds int
	// OnCountdown is called with the remaining seconds before each countdown second.
	OnCountdown func(remaining int)
	// MaxRounds stops after that many play/record rounds. Zero runs until ctx is cancelled.
	MaxRounds int
	Control   *Controller
	Clock     func() time.Time
	Sleeper   func(context.Context, time.Duration) error
	Logger    *slog.Logger
}

// Summary reports what the loop did before it stopped.
type Summary struct {
	Rounds       int
	Sessions     []capture.Result
	AgentErrors  int
	RecordErrors int
}

// Rows is the number of sample rows recorded across sessions.
func (s Summary) Rows() int {
	total := 0
	for _, res := range s.Sessions {
		total += res.Rows
	}
	return total
}

// Run executes the countdown and then alternates agent play and expert recording.
// Agent and recording failures are logged and the loop carries on; only cancellation of
// ctx or a controller kill stops it.
func Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.Agent == nil || opts.Recorder == nil {
		return Summary{}, errors.New("agent and recorder must be provided")
	}
	if opts.CountdownSeconds < 0 {
		return Summary{}, errors.New("countdown must not be negative")
	}
	logger := logging.OrDiscard(opts.Logger)
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = defaultSleeper
	}
	controller := opts.Control
	if controller == nil {
		controller = NewController()
	}

	summary := Summary{}
	stop := func(err error) (Summary, error) {
		controller.Enter(PhaseStopped, clock(), summary.Rounds)
		logger.Info("aggregation stopped", "rounds", summary.Rounds, "sessions", len(summary.Sessions), "rows", summary.Rows())
		return summary, err
	}

	controller.Enter(PhaseCountdown, clock(), 0)
	for remaining := opts.CountdownSeconds; remaining > 0; remaining-- {
		if opts.OnCountdown != nil {
			opts.OnCountdown(remaining)
		}
		logger.Info("starting soon", "seconds", remaining)
		if err := sleeper(ctx, time.Second); err != nil {
			return stop(err)
		}
	}

	for round := 1; opts.MaxRounds == 0 || round <= opts.MaxRounds; round++ {
		if err := controller.Wait(ctx); err != nil {
			return stop(err)
		}
		controller.Enter(PhaseAgentPlay, clock(), round)
		logger.Info("agent playing", "round", round)
		if err := opts.Agent.Play(ctx); err != nil {
			if ctx.Err() != nil {
				return stop(ctx.Err())
			}
			summary.AgentErrors++
			logger.Warn("agent play failed", "round", round, "error", err)
		}

		if err := controller.Wait(ctx); err != nil {
			return stop(err)
		}
		controller.Enter(PhaseExpertRecord, clock(), round)
		logger.Info("expert recording; press the cancel key to hand control back", "round", round)
		res, err := opts.Recorder.Record(ctx)
		if res.Rows > 0 {
			summary.Sessions = append(summary.Sessions, res)
		}
		summary.Rounds = round
		if ctx.Err() != nil {
			return stop(ctx.Err())
		}
		if err != nil {
			summary.RecordErrors++
			logger.Error("recording session aborted", "round", round, "session", res.SessionID, "rows", res.Rows, "error", err)
		}
	}
	return stop(nil)
}

func defaultSleeper(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
