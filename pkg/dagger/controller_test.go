package dagger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestControllerPauseResume(t *testing.T) {
	controller := NewController()

	controller.Pause()
	if controller.State() != "paused" {
		t.Fatalf("expected paused state, got %s", controller.State())
	}
	done := make(chan error, 1)
	go func() {
		done <- controller.Wait(context.Background())
	}()

	select {
	case <-time.After(100 * time.Millisecond):
	case err := <-done:
		t.Fatalf("expected wait to block, got %v", err)
	}

	controller.Resume()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error after resume, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("controller wait did not resume")
	}
}

func TestControllerKillPropagatesError(t *testing.T) {
	controller := NewController()
	customErr := errors.New("boom")

	controller.Pause()
	done := make(chan error, 1)
	go func() {
		done <- controller.Wait(context.Background())
	}()

	controller.Kill(customErr)

	select {
	case err := <-done:
		if !errors.Is(err, customErr) {
			t.Fatalf("expected custom error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("controller wait did not unblock after kill")
	}
	if controller.State() != "stopping" {
		t.Fatalf("expected stopping state, got %s", controller.State())
	}
}

func TestControllerWaitRespectsContextCancellation(t *testing.T) {
	controller := NewController()
	controller.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- controller.Wait(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("controller wait did not exit on cancellation")
	}
}

func TestControllerTimeline(t *testing.T) {
	controller := NewController()
	if controller.Phase() != PhaseIdle {
		t.Fatalf("expected idle phase, got %s", controller.Phase())
	}
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	controller.Enter(PhaseCountdown, base, 0)
	controller.Enter(PhaseAgentPlay, base.Add(3*time.Second), 1)

	timeline := controller.Timeline()
	if len(timeline) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(timeline))
	}
	if timeline[1].Phase != PhaseAgentPlay || timeline[1].Round != 1 {
		t.Fatalf("unexpected transition %+v", timeline[1])
	}
	if controller.Phase() != PhaseAgentPlay {
		t.Fatalf("expected agent phase, got %s", controller.Phase())
	}
}
