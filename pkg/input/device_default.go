//go:build !desktop

package input

import "time"

const backendName = "synthetic"

func openDevice(opts Options) (Device, error) {
	width, height := 160, 100
	if !opts.Region.Empty() {
		width = opts.Region.Right - opts.Region.Left
		height = opts.Region.Bottom - opts.Region.Top
	}
	return NewSynthetic(SyntheticOptions{Seed: time.Now().UnixNano(), Width: width, Height: height}), nil
}
