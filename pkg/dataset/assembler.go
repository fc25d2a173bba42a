// Package dataset assembles normalized session tables and their frames into
// train/validation/test tensors with per-head label groups.
package dataset

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/offlinefirst/gameplay-dagger/pkg/labels"
	"github.com/offlinefirst/gameplay-dagger/pkg/logging"
)

var (
	// ErrEmptyDataset is returned when no samples survive filtering and image loading.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrEmptyPartition is returned when a split would leave the training partition empty.
	ErrEmptyPartition = errors.New("training partition is empty")
	// ErrInvalidSplit reports unusable split fractions.
	ErrInvalidSplit = errors.New("invalid split fractions")
	// ErrVocabularyMismatch reports one-hot vocabularies that differ from the expected ones.
	ErrVocabularyMismatch = errors.New("label vocabulary mismatch")
)

// LabelSource yields the normalized table and its one-hot encoding.
type LabelSource interface {
	Run() (labels.Result, error)
}

// Options configure an Assembler.
type Options struct {
	ImageRoot          string
	Frame              Frame
	TimeSteps          int
	ValidationFraction float64
	TestFraction       float64
	Seed               int64
	Logger             *slog.Logger
}

// Vocabularies are the realized one-hot vocabularies of each head.
type Vocabularies struct {
	Click labels.Vocabulary `json:"click"`
	X     labels.Vocabulary `json:"x"`
	Y     labels.Vocabulary `json:"y"`
}

// CheckVocabulary reports ErrVocabularyMismatch when got differs from want.
func CheckVocabulary(want, got Vocabularies) error {
	switch {
	case !want.Click.Equal(got.Click):
		return errors.Wrapf(ErrVocabularyMismatch, "click: want %v, got %v", want.Click.Values, got.Click.Values)
	case !want.X.Equal(got.X):
		return errors.Wrapf(ErrVocabularyMismatch, "x: want %v, got %v", want.X.Values, got.X.Values)
	case !want.Y.Equal(got.Y):
		return errors.Wrapf(ErrVocabularyMismatch, "y: want %v, got %v", want.Y.Values, got.Y.Values)
	}
	return nil
}

// Partition holds the features and labels of one split. Features are flattened unit
// by unit; each unit contributes Steps label rows.
type Partition struct {
	Units    int
	Features []float32
	Labels   *mat.Dense
	Heads    Heads
}

// Dataset is the assembled output.
type Dataset struct {
	Vocabularies Vocabularies
	Widths       labels.Widths
	// FeatureShape is the shape of one unit: [width, height, channels] for independent
	// samples or [steps, height, width, channels] for windows.
	FeatureShape []int
	TimeSteps    int
	Sizes        Sizes
	Skipped      int

	Train      Partition
	Validation Partition
	Test       Partition
}

// Steps is the number of label rows per unit.
func (d *Dataset) Steps() int {
	if d.TimeSteps > 0 {
		return d.TimeSteps
	}
	return 1
}

// Assembler turns a label source and its frames into a Dataset.
type Assembler struct {
	source LabelSource
	opts   Options
	logger *slog.Logger
}

// NewAssembler validates options and constructs an assembler.
func NewAssembler(source LabelSource, opts Options) (*Assembler, error) {
	if source == nil {
		return nil, errors.New("label source must be provided")
	}
	if opts.Frame.Width <= 0 || opts.Frame.Height <= 0 {
		return nil, errors.New("frame width and height must be positive")
	}
	if opts.Frame.Channels != 1 && opts.Frame.Channels != 3 {
		return nil, errors.Errorf("frame channels must be 1 or 3, got %d", opts.Frame.Channels)
	}
	if opts.TimeSteps < 0 {
		return nil, errors.New("time steps must not be negative")
	}
	if err := ValidateFractions(opts.ValidationFraction, opts.TestFraction); err != nil {
		return nil, err
	}
	return &Assembler{source: source, opts: opts, logger: logging.OrDiscard(opts.Logger)}, nil
}

type sample struct {
	session string
	row     int
	pixels  []float32
}

// Build loads frames, windows them when configured, and splits into partitions.
func (a *Assembler) Build(ctx context.Context) (*Dataset, error) {
	res, err := a.source.Run()
	if err != nil {
		return nil, err
	}
	combined, widths, err := CombineLabels(res.Encoding)
	if err != nil {
		return nil, err
	}

	windowed := a.opts.TimeSteps > 0
	samples := make([]sample, 0, res.Table.Len())
	skipped := 0
	for i, row := range res.Table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !IsImagePath(row.ImagePath) {
			skipped++
			continue
		}
		path := filepath.Join(a.opts.ImageRoot, filepath.FromSlash(row.ImagePath))
		img, err := decodeImage(path)
		if err != nil {
			a.logger.Debug("frame skipped", "path", path, "error", err)
			skipped++
			continue
		}
		samples = append(samples, sample{
			session: row.Session,
			row:     i,
			pixels:  a.opts.Frame.Pixels(make([]float32, 0, a.opts.Frame.Len()), img, !windowed),
		})
	}
	if skipped > 0 {
		a.logger.Warn("rows without a loadable frame were skipped", "skipped", skipped, "kept", len(samples))
	}

	var units [][]int
	if windowed {
		units = Windows(sessionsOf(samples), a.opts.TimeSteps)
	} else {
		units = make([][]int, len(samples))
		for i := range samples {
			units[i] = []int{i}
		}
	}
	if len(units) == 0 {
		return nil, errors.Wrapf(ErrEmptyDataset, "%d rows loaded, %d skipped", len(samples), skipped)
	}

	sizes, err := PartitionSizes(len(units), a.opts.ValidationFraction, a.opts.TestFraction)
	if err != nil {
		return nil, err
	}
	trainIdx, valIdx, testIdx := shuffledPartitions(sizes, a.opts.Seed)

	ds := &Dataset{
		Vocabularies: Vocabularies{Click: res.Encoding.ClickVocab, X: res.Encoding.XVocab, Y: res.Encoding.YVocab},
		Widths:       widths,
		TimeSteps:    a.opts.TimeSteps,
		Sizes:        sizes,
		Skipped:      skipped,
	}
	f := a.opts.Frame
	if windowed {
		ds.FeatureShape = []int{a.opts.TimeSteps, f.Height, f.Width, f.Channels}
	} else {
		ds.FeatureShape = []int{f.Width, f.Height, f.Channels}
	}

	build := func(idx []int) (Partition, error) {
		return gather(samples, units, idx, combined, widths)
	}
	if ds.Train, err = build(trainIdx); err != nil {
		return nil, err
	}
	if ds.Validation, err = build(valIdx); err != nil {
		return nil, err
	}
	if ds.Test, err = build(testIdx); err != nil {
		return nil, err
	}

	a.logger.Info("dataset assembled",
		"train", sizes.Train,
		"validation", sizes.Validation,
		"test", sizes.Test,
		"time_steps", a.opts.TimeSteps,
		"label_width", widths.Total(),
	)
	return ds, nil
}

// sessionsOf returns sample indices grouped by contiguous session.
func sessionsOf(samples []sample) [][]int {
	var groups [][]int
	for i, s := range samples {
		if i == 0 || samples[i-1].session != s.session {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], i)
	}
	return groups
}

// Windows cuts each session into consecutive windows of length steps. Each session is
// truncated to a multiple of steps; the remainder is dropped and windows never span sessions.
func Windows(sessions [][]int, steps int) [][]int {
	var windows [][]int
	for _, rows := range sessions {
		usable := len(rows) / steps * steps
		for start := 0; start < usable; start += steps {
			windows = append(windows, rows[start:start+steps])
		}
	}
	return windows
}

func gather(samples []sample, units [][]int, idx []int, combined *mat.Dense, widths labels.Widths) (Partition, error) {
	p := Partition{Units: len(idx)}
	if len(idx) == 0 {
		return p, nil
	}
	rows := 0
	for _, u := range idx {
		rows += len(units[u])
	}
	p.Labels = mat.NewDense(rows, widths.Total(), nil)
	r := 0
	for _, u := range idx {
		for _, s := range units[u] {
			p.Features = append(p.Features, samples[s].pixels...)
			p.Labels.SetRow(r, combined.RawRowView(samples[s].row))
			r++
		}
	}
	heads, err := SplitHeads(p.Labels, widths)
	if err != nil {
		return Partition{}, err
	}
	p.Heads = heads
	return p, nil
}
