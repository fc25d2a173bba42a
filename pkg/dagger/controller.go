package dagger

import (
	"context"
	"sync"
	"time"
)

// Phase names the orchestrator states.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseCountdown    Phase = "countdown"
	PhaseAgentPlay    Phase = "agent_play"
	PhaseExpertRecord Phase = "expert_record"
	PhaseStopped      Phase = "stopped"
)

// Transition records entry into a phase.
type Transition struct {
	Phase Phase
	At    time.Time
	Round int
}

// Controller coordinates pause/resume/kill signals for the aggregation loop and keeps
// its phase timeline. Pausing takes effect at the next phase boundary.
type Controller struct {
	mu       sync.Mutex
	paused   bool
	stopping bool
	stopErr  error
	phase    Phase
	timeline []Transition
	signal   chan struct{}
}

// NewController constructs a controller in the running state.
func NewController() *Controller {
	return &Controller{phase: PhaseIdle, signal: make(chan struct{}, 1)}
}

// Pause holds the loop before its next phase.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume clears a paused state and notifies waiters.
func (c *Controller) Resume() {
	c.mu.Lock()
	alreadyRunning := !c.paused
	c.paused = false
	c.mu.Unlock()
	if !alreadyRunning {
		c.notify()
	}
}

// Kill requests the loop to stop and propagates an optional error.
func (c *Controller) Kill(err error) {
	c.mu.Lock()
	c.stopping = true
	if err != nil && c.stopErr == nil {
		c.stopErr = err
	}
	c.mu.Unlock()
	c.notify()
}

// Wait blocks until the controller is running or stopping.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		paused := c.paused
		stopping := c.stopping
		stopErr := c.stopErr
		c.mu.Unlock()

		if stopping {
			if stopErr != nil {
				return stopErr
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return context.Canceled
		}
		if !paused {
			return nil
		}

		select {
		case <-ctx.Done():
			c.Kill(ctx.Err())
			return ctx.Err()
		case <-c.signal:
		}
	}
}

// Enter records a phase transition.
func (c *Controller) Enter(phase Phase, at time.Time, round int) {
	c.mu.Lock()
	c.phase = phase
	c.timeline = append(c.timeline, Transition{Phase: phase, At: at, Round: round})
	c.mu.Unlock()
}

// Phase reports the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Timeline returns a copy of the recorded transitions.
func (c *Controller) Timeline() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transition(nil), c.timeline...)
}

// State reports the textual state for diagnostics.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.stopping:
		return "stopping"
	case c.paused:
		return "paused"
	default:
		return "running"
	}
}

func (c *Controller) notify() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}
