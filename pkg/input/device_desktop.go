//go:build desktop

package input

import (
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"
	hook "github.com/robotn/gohook"

	"github.com/offlinefirst/gameplay-dagger/pkg/logging"
)

const backendName = "desktop"

// desktop reads the cursor through robotgo, grabs frames with screenshot, and latches
// left clicks and the cancel key from a global gohook event stream. Latched flags are
// cleared when read, so each poll reports presses since the previous poll.
type desktop struct {
	region    image.Rectangle
	center    image.Point
	reset     bool
	cancelKey rune

	mu   sync.Mutex
	last image.Point

	clicked   atomic.Bool
	cancelled atomic.Bool

	events    chan hook.Event
	done      chan struct{}
	closeOnce sync.Once
}

func openDevice(opts Options) (Device, error) {
	logger := logging.OrDiscard(opts.Logger)

	region := image.Rect(opts.Region.Left, opts.Region.Top, opts.Region.Right, opts.Region.Bottom)
	if opts.Region.Empty() {
		if screenshot.NumActiveDisplays() == 0 {
			return nil, errors.New("no active display")
		}
		region = screenshot.GetDisplayBounds(0)
	}
	if region.Empty() {
		return nil, errors.Errorf("capture region %v is empty", region)
	}

	key, _ := utf8.DecodeRuneInString(strings.ToLower(opts.CancelKey))
	if key == utf8.RuneError {
		key = 'q'
	}

	d := &desktop{
		region:    region,
		center:    image.Pt((region.Min.X+region.Max.X)/2, (region.Min.Y+region.Max.Y)/2),
		reset:     opts.ResetCursor,
		cancelKey: key,
		events:    hook.Start(),
		done:      make(chan struct{}),
	}
	if d.reset {
		robotgo.Move(d.center.X, d.center.Y)
		d.last = d.center
	} else {
		x, y := robotgo.Location()
		d.last = image.Pt(x, y)
	}
	go d.listen()

	logger.Info("desktop input opened", "region", region.String(), "reset_cursor", d.reset, "cancel_key", string(key))
	return d, nil
}

func (d *desktop) listen() {
	left := hook.MouseMap["left"]
	for {
		select {
		case <-d.done:
			return
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			switch ev.Kind {
			case hook.MouseHold, hook.MouseDown:
				if ev.Button == left {
					d.clicked.Store(true)
				}
			case hook.KeyDown:
				if unicode.ToLower(ev.Keychar) == d.cancelKey {
					d.cancelled.Store(true)
				}
			}
		}
	}
}

// Poll implements Source.
func (d *desktop) Poll() Sample {
	x, y := robotgo.Location()

	d.mu.Lock()
	defer d.mu.Unlock()
	s := Sample{
		DeltaX:  x - d.last.X,
		DeltaY:  y - d.last.Y,
		Click:   d.clicked.Swap(false),
		HitEdge: x <= d.region.Min.X || x >= d.region.Max.X-1 || y <= d.region.Min.Y || y >= d.region.Max.Y-1,
	}
	if d.reset {
		robotgo.Move(d.center.X, d.center.Y)
		d.last = d.center
	} else {
		d.last = image.Pt(x, y)
	}
	return s
}

// CaptureFrame implements FrameSource.
func (d *desktop) CaptureFrame() (image.Image, error) {
	img, err := screenshot.CaptureRect(d.region)
	if err != nil {
		return nil, errors.Wrap(err, "capture screen region")
	}
	return img, nil
}

// Asserted implements CancelSignal.
func (d *desktop) Asserted() bool {
	return d.cancelled.Swap(false)
}

// Reset implements Resetter.
func (d *desktop) Reset() {
	d.cancelled.Store(false)
	d.clicked.Store(false)
}

// Close stops the global hook.
func (d *desktop) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		hook.End()
	})
	return nil
}
