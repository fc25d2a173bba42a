//go:build windows

package cmd

import "os"

// Windows has no user signals; pause and resume are unavailable there.
var pauseSignal, resumeSignal os.Signal
