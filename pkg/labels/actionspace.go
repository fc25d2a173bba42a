package labels

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
)

// ErrInvalidActionSpace reports a bin vocabulary that is empty, unsorted, or lacks the zero bin.
var ErrInvalidActionSpace = errors.New("invalid action space")

// Bins is a strictly increasing motion vocabulary that always contains 0.
type Bins []int

// NewBins validates values and returns them as a vocabulary.
func NewBins(values []int) (Bins, error) {
	if len(values) == 0 {
		return nil, errors.Wrap(ErrInvalidActionSpace, "no bins")
	}
	zero := false
	for i, v := range values {
		if v == 0 {
			zero = true
		}
		if i > 0 && v <= values[i-1] {
			return nil, errors.Wrapf(ErrInvalidActionSpace, "bins not strictly increasing at index %d", i)
		}
	}
	if !zero {
		return nil, errors.Wrap(ErrInvalidActionSpace, "zero bin missing")
	}
	return append(Bins(nil), values...), nil
}

// Index returns the position of the bin nearest to v. The two neighbours around v are
// located by binary search; when v is equidistant from both, the lower-indexed bin wins.
func (b Bins) Index(v int) int {
	i := sort.SearchInts(b, v)
	switch {
	case i == 0:
		return 0
	case i == len(b):
		return len(b) - 1
	case b[i] == v:
		return i
	}
	if v-b[i-1] <= b[i]-v {
		return i - 1
	}
	return i
}

// Quantize maps v onto the nearest bin value.
func (b Bins) Quantize(v int) int {
	return b[b.Index(v)]
}

// ActionSpace is the discrete motion vocabulary for both axes.
type ActionSpace struct {
	X Bins
	Y Bins
}

// NewActionSpace validates both axes.
func NewActionSpace(x, y []int) (ActionSpace, error) {
	bx, err := NewBins(x)
	if err != nil {
		return ActionSpace{}, errors.WithMessage(err, "x axis")
	}
	by, err := NewBins(y)
	if err != nil {
		return ActionSpace{}, errors.WithMessage(err, "y axis")
	}
	return ActionSpace{X: bx, Y: by}, nil
}

// DefaultActionSpace returns the built-in vocabularies.
func DefaultActionSpace() ActionSpace {
	return ActionSpace{
		X: append(Bins(nil), config.DefaultActionSpaceX...),
		Y: append(Bins(nil), config.DefaultActionSpaceY...),
	}
}
