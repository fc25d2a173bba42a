package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/offlinefirst/gameplay-dagger/pkg/dagger"
)

// watchControlSignals pauses the aggregation loop at its next phase boundary on
// pauseSignal and resumes it on resumeSignal until ctx ends.
func watchControlSignals(ctx context.Context, control *dagger.Controller, logger *slog.Logger) bool {
	if pauseSignal == nil || resumeSignal == nil {
		return false
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, pauseSignal, resumeSignal)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				switch sig {
				case pauseSignal:
					control.Pause()
				case resumeSignal:
					control.Resume()
				}
				logger.Info("aggregation control", "signal", sig.String(), "state", control.State())
			}
		}
	}()
	return true
}
