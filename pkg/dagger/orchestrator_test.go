package dagger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/gameplay-dagger/pkg/capture"
)

type fakeAgent struct {
	plays int
	fail  map[int]bool
	log   *[]string
}

func (a *fakeAgent) Play(context.Context) error {
	a.plays++
	*a.log = append(*a.log, "play")
	if a.fail[a.plays] {
		return errors.New("agent crashed")
	}
	return nil
}

type fakeRecorder struct {
	records int
	fail    map[int]bool
	cancel  context.CancelFunc
	stopAt  int
	log     *[]string
}

func (r *fakeRecorder) Record(context.Context) (capture.Result, error) {
	r.records++
	*r.log = append(*r.log, "record")
	if r.stopAt > 0 && r.records == r.stopAt {
		r.cancel()
	}
	res := capture.Result{SessionID: "s", Rows: 10}
	if r.fail[r.records] {
		res.Rows = 2
		return res, errors.New("disk full")
	}
	return res, nil
}

func noSleep(sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
}

func TestRunAlternatesAndSurvivesFailures(t *testing.T) {
	var calls []string
	var sleeps []time.Duration
	var reported []int
	control := NewController()
	ag := &fakeAgent{fail: map[int]bool{1: true}, log: &calls}
	rec := &fakeRecorder{fail: map[int]bool{2: true}, log: &calls}

	summary, err := Run(context.Background(), Options{
		Agent:            ag,
		Recorder:         rec,
		CountdownSeconds: 3,
		OnCountdown:      func(n int) { reported = append(reported, n) },
		MaxRounds:        3,
		Control:          control,
		Sleeper:          noSleep(&sleeps),
	})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 1}, reported)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, sleeps)
	assert.Equal(t, []string{"play", "record", "play", "record", "play", "record"}, calls)
	assert.Equal(t, 3, summary.Rounds)
	assert.Equal(t, 1, summary.AgentErrors)
	assert.Equal(t, 1, summary.RecordErrors)
	assert.Len(t, summary.Sessions, 3)
	assert.Equal(t, 22, summary.Rows())

	var phases []Phase
	for _, tr := range control.Timeline() {
		phases = append(phases, tr.Phase)
	}
	assert.Equal(t, []Phase{
		PhaseCountdown,
		PhaseAgentPlay, PhaseExpertRecord,
		PhaseAgentPlay, PhaseExpertRecord,
		PhaseAgentPlay, PhaseExpertRecord,
		PhaseStopped,
	}, phases)
}

func TestRunStopsOnlyOnCancellation(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &fakeRecorder{cancel: cancel, stopAt: 4, log: &calls}
	summary, err := Run(ctx, Options{
		Agent:    &fakeAgent{log: &calls},
		Recorder: rec,
		Sleeper:  noSleep(new([]time.Duration)),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, summary.Rounds)
	assert.Len(t, summary.Sessions, 4)
}

func TestRunCancelledDuringCountdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls []string
	summary, err := Run(ctx, Options{
		Agent:            &fakeAgent{log: &calls},
		Recorder:         &fakeRecorder{log: &calls},
		CountdownSeconds: 3,
		Sleeper:          noSleep(new([]time.Duration)),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Rounds)
	assert.Empty(t, calls)
}

func TestRunControllerKill(t *testing.T) {
	var calls []string
	control := NewController()
	boom := errors.New("operator stop")
	control.Kill(boom)

	_, err := Run(context.Background(), Options{
		Agent:    &fakeAgent{log: &calls},
		Recorder: &fakeRecorder{log: &calls},
		Control:  control,
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, calls)
	assert.Equal(t, PhaseStopped, control.Phase())
}

func TestRunValidation(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
