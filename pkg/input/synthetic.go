package input

import (
	"image"
	"image/color"
	"math/rand"
	"sync"
)

// SyntheticOptions configure the synthetic backend.
type SyntheticOptions struct {
	Seed   int64
	Width  int
	Height int
	// CancelAfter asserts the cancel signal once this many polls were served. Zero never cancels.
	CancelAfter int
}

// Synthetic produces deterministic pseudo-random input and gradient frames. It stands
// in for the desktop backend in headless builds and tests.
type Synthetic struct {
	mu          sync.Mutex
	rng         *rand.Rand
	width       int
	height      int
	cancelAfter int
	polls       int
	frames      int
}

// NewSynthetic constructs a synthetic backend.
func NewSynthetic(opts SyntheticOptions) *Synthetic {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 160
	}
	if height <= 0 {
		height = 100
	}
	return &Synthetic{
		rng:         rand.New(rand.NewSource(opts.Seed)),
		width:       width,
		height:      height,
		cancelAfter: opts.CancelAfter,
	}
}

// Poll implements Source.
func (s *Synthetic) Poll() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	return Sample{
		DeltaX:  s.rng.Intn(81) - 40,
		DeltaY:  s.rng.Intn(41) - 20,
		Click:   s.rng.Intn(8) == 0,
		HitEdge: s.rng.Intn(20) == 0,
	}
}

// CaptureFrame implements FrameSource.
func (s *Synthetic) CaptureFrame() (image.Image, error) {
	s.mu.Lock()
	s.frames++
	hue := uint8(40 + (s.frames*17)%200)
	s.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: hue, G: uint8(x % 255), B: uint8(y % 255), A: 255})
		}
	}
	return img, nil
}

// Asserted implements CancelSignal.
func (s *Synthetic) Asserted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAfter > 0 && s.polls >= s.cancelAfter
}

// Reset implements Resetter. CancelAfter counts polls from the last reset.
func (s *Synthetic) Reset() {
	s.mu.Lock()
	s.polls = 0
	s.mu.Unlock()
}

// Polls reports how many samples were served since the last reset.
func (s *Synthetic) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Close implements Device.
func (s *Synthetic) Close() error { return nil }
