package dataset

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/offlinefirst/gameplay-dagger/pkg/labels"
)

// Heads are the per-head label groups of one partition.
type Heads struct {
	Click *mat.Dense
	X     *mat.Dense
	Y     *mat.Dense
}

// Offsets are the first column of each head in the combined label matrix.
type Offsets struct {
	Click int `json:"click"`
	X     int `json:"x"`
	Y     int `json:"y"`
}

// OffsetsOf derives head offsets for the (click, X, Y) column order.
func OffsetsOf(w labels.Widths) Offsets {
	return Offsets{Click: 0, X: w.Click, Y: w.Click + w.X}
}

// CombineLabels stacks the click, X, and Y one-hot blocks column-wise.
func CombineLabels(enc labels.Encoding) (*mat.Dense, labels.Widths, error) {
	widths := enc.Widths()
	if enc.Click == nil || enc.X == nil || enc.Y == nil {
		return nil, widths, ErrEmptyDataset
	}
	var cx, cxy mat.Dense
	cx.Augment(enc.Click, enc.X)
	cxy.Augment(&cx, enc.Y)
	return &cxy, widths, nil
}

// SplitHeads partitions the columns of m using the widths frozen when m was built.
func SplitHeads(m *mat.Dense, w labels.Widths) (Heads, error) {
	if m == nil {
		return Heads{}, nil
	}
	rows, cols := m.Dims()
	if cols != w.Total() {
		return Heads{}, errors.Wrapf(ErrVocabularyMismatch, "label matrix has %d columns, head widths sum to %d", cols, w.Total())
	}
	off := OffsetsOf(w)
	block := func(from, width int) *mat.Dense {
		if width == 0 {
			return nil
		}
		return mat.DenseCopyOf(m.Slice(0, rows, from, from+width))
	}
	return Heads{
		Click: block(off.Click, w.Click),
		X:     block(off.X, w.X),
		Y:     block(off.Y, w.Y),
	}, nil
}
