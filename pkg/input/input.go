// Package input exposes the per-tick input sample, frame grab, and cancellation key
// the capture loop polls. The desktop backend is compiled with the desktop build tag;
// other builds use the synthetic backend.
package input

import (
	"image"
	"log/slog"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
)

// Sample is the input state observed during one tick.
type Sample struct {
	DeltaX  int
	DeltaY  int
	Click   bool
	HitEdge bool
}

// Source yields the cursor delta since the previous poll and the click and edge flags.
type Source interface {
	Poll() Sample
}

// FrameSource grabs the current frame of the capture region.
type FrameSource interface {
	CaptureFrame() (image.Image, error)
}

// CancelSignal reports whether the cancellation key was pressed since the last check.
type CancelSignal interface {
	Asserted() bool
}

// CancelFunc adapts a function to CancelSignal.
type CancelFunc func() bool

// Asserted implements CancelSignal.
func (f CancelFunc) Asserted() bool { return f() }

// Resetter discards input latched before a session starts, such as a cancel key
// pressed while the agent was playing.
type Resetter interface {
	Reset()
}

// Device bundles every input surface of one backend.
type Device interface {
	Source
	FrameSource
	CancelSignal
	Close() error
}

// Options configure a backend.
type Options struct {
	Region      config.Region
	ResetCursor bool
	CancelKey   string
	Logger      *slog.Logger
}

// Open starts the backend compiled into this binary.
func Open(opts Options) (Device, error) {
	return openDevice(opts)
}
