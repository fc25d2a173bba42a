package capture

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
)

// Pacer holds a tick until its period has elapsed and returns when the wait ended.
type Pacer interface {
	Wait(ctx context.Context, tickStart time.Time) (time.Time, error)
}

// sessionPacer is a pacer that must be re-armed when a session starts.
type sessionPacer interface {
	Start()
}

// SpinPacer busy-waits on the clock. It bounds the inter-tick interval from above only;
// late ticks are not compensated.
type SpinPacer struct {
	Period time.Duration
	Clock  func() time.Time
}

// Wait implements Pacer.
func (p SpinPacer) Wait(_ context.Context, tickStart time.Time) (time.Time, error) {
	for {
		now := p.Clock()
		if now.Sub(tickStart) >= p.Period {
			return now, nil
		}
	}
}

// SleepPacer blocks on a token bucket refilled at the sampling rate. It yields the CPU
// at the cost of scheduler latency on each tick. The bucket is drained at construction
// and on Start, so the first tick also lasts a full period.
type SleepPacer struct {
	limiter *rate.Limiter
	clock   func() time.Time
}

// NewSleepPacer returns a pacer admitting hz ticks per second with no burst.
func NewSleepPacer(hz float64, clock func() time.Time) *SleepPacer {
	if clock == nil {
		clock = time.Now
	}
	p := &SleepPacer{limiter: rate.NewLimiter(rate.Limit(hz), 1), clock: clock}
	p.Start()
	return p
}

// Start consumes the token that refilled while the pacer sat idle. The limiter runs on
// the wall clock whatever clock the pacer reports with.
func (p *SleepPacer) Start() {
	p.limiter.ReserveN(time.Now(), 1)
}

// Wait implements Pacer.
func (p *SleepPacer) Wait(ctx context.Context, _ time.Time) (time.Time, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return p.clock(), err
	}
	return p.clock(), nil
}

// NewPacer builds the pacer for a pacing mode.
func NewPacer(mode string, hz float64, clock func() time.Time) (Pacer, error) {
	if hz <= 0 {
		return nil, ErrInvalidRate
	}
	if clock == nil {
		clock = time.Now
	}
	normalized, err := config.NormalizePacing(mode)
	if err != nil {
		return nil, err
	}
	if normalized == config.PacingSleep {
		return NewSleepPacer(hz, clock), nil
	}
	return SpinPacer{Period: Period(hz), Clock: clock}, nil
}

// Period is the tick duration for a sampling rate.
func Period(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}
