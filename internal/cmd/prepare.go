package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
	"github.com/offlinefirst/gameplay-dagger/pkg/dataset"
	"github.com/offlinefirst/gameplay-dagger/pkg/labels"
	"github.com/offlinefirst/gameplay-dagger/pkg/session"
)

type prepareFlags struct {
	out         string
	timeSteps   int
	seed        int64
	expectVocab string
}

func newPrepareCommand(rc *RootCommand) *cobra.Command {
	var flags prepareFlags
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Discretize recorded sessions and write train/validation/test tensors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			cfg := app.Config
			if cmd.Flags().Changed("out") {
				cfg.Paths.DatasetDir = flags.out
			}
			if cmd.Flags().Changed("time-steps") {
				cfg.Dataset.TimeSteps = flags.timeSteps
			}
			if cmd.Flags().Changed("seed") {
				cfg.Dataset.Seed = flags.seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runPrepare(contextOrBackground(cmd.Context()), app, cfg, flags.expectVocab, rc.stdout)
		},
	}
	cmd.Flags().StringVar(&flags.out, "out", "", "Dataset output directory (default from config)")
	cmd.Flags().IntVar(&flags.timeSteps, "time-steps", 0, "Window length for sequence models (0 keeps samples independent)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Shuffle seed (default from config)")
	cmd.Flags().StringVar(&flags.expectVocab, "expect-vocab", "", "Fail unless vocabularies match this dataset manifest")
	return cmd
}

func runPrepare(ctx context.Context, app *AppContext, cfg config.Config, expectVocab string, stdout io.Writer) error {
	space, err := labels.NewActionSpace(cfg.Dataset.ActionSpaceX, cfg.Dataset.ActionSpaceY)
	if err != nil {
		return err
	}
	layout := session.BuildLayout(cfg.Paths.DataRoot)
	normalizer, err := labels.NewNormalizer(labels.Options{
		CSVDir:      layout.CSVDir,
		ActionSpace: space,
		Logger:      app.Logger,
	})
	if err != nil {
		return err
	}
	assembler, err := dataset.NewAssembler(normalizer, dataset.Options{
		ImageRoot:          layout.Root,
		Frame:              dataset.Frame{Width: cfg.Dataset.Width, Height: cfg.Dataset.Height, Channels: cfg.Dataset.Channels},
		TimeSteps:          cfg.Dataset.TimeSteps,
		ValidationFraction: cfg.Dataset.ValidationFraction,
		TestFraction:       cfg.Dataset.TestFraction,
		Seed:               cfg.Dataset.Seed,
		Logger:             app.Logger,
	})
	if err != nil {
		return err
	}

	ds, err := assembler.Build(ctx)
	if err != nil {
		return errors.Wrap(err, "assemble dataset")
	}
	if expectVocab != "" {
		want, err := dataset.LoadManifest(expectVocab)
		if err != nil {
			return err
		}
		if err := dataset.CheckVocabulary(want.Vocabularies, ds.Vocabularies); err != nil {
			return err
		}
	}

	man, err := dataset.Save(cfg.Paths.DatasetDir, ds, timeNow())
	if err != nil {
		return errors.Wrap(err, "save dataset")
	}
	app.Logger.Info("dataset written", "dir", cfg.Paths.DatasetDir, "train", ds.Sizes.Train, "validation", ds.Sizes.Validation, "test", ds.Sizes.Test)

	fmt.Fprintf(stdout, "Dataset: %s\n", cfg.Paths.DatasetDir)
	fmt.Fprintf(stdout, "  feature shape: %v (time steps: %d)\n", ds.FeatureShape, ds.TimeSteps)
	fmt.Fprintf(stdout, "  units: train=%s validation=%s test=%s (skipped frames: %s)\n",
		humanize.Comma(int64(ds.Sizes.Train)), humanize.Comma(int64(ds.Sizes.Validation)),
		humanize.Comma(int64(ds.Sizes.Test)), humanize.Comma(int64(ds.Skipped)))
	fmt.Fprintf(stdout, "  label widths: click=%d x=%d y=%d\n", ds.Widths.Click, ds.Widths.X, ds.Widths.Y)

	fmt.Fprintln(stdout, "Label distribution (all partitions):")
	parts := []dataset.Partition{ds.Train, ds.Validation, ds.Test}
	printHead(stdout, "click", ds.Vocabularies.Click, parts, func(h dataset.Heads) *mat.Dense { return h.Click })
	printHead(stdout, "x", ds.Vocabularies.X, parts, func(h dataset.Heads) *mat.Dense { return h.X })
	printHead(stdout, "y", ds.Vocabularies.Y, parts, func(h dataset.Heads) *mat.Dense { return h.Y })

	var total uint64
	for _, name := range man.Files {
		if info, err := os.Stat(filepath.Join(cfg.Paths.DatasetDir, name)); err == nil {
			total += uint64(info.Size())
		}
	}
	fmt.Fprintf(stdout, "Wrote %d tensor files (%s) and %s\n", len(man.Files), humanize.Bytes(total), dataset.ManifestName)
	return nil
}

func printHead(stdout io.Writer, name string, vocab labels.Vocabulary, parts []dataset.Partition, head func(dataset.Heads) *mat.Dense) {
	counts := columnCounts(vocab.Width(), parts, head)
	fmt.Fprintf(stdout, "  %s:", name)
	for i, value := range vocab.Values {
		fmt.Fprintf(stdout, " %d=%s", value, humanize.Comma(int64(counts[i])))
	}
	fmt.Fprintln(stdout)
}

// columnCounts sums one-hot columns, giving the number of rows per class.
func columnCounts(width int, parts []dataset.Partition, head func(dataset.Heads) *mat.Dense) []int {
	counts := make([]int, width)
	for _, part := range parts {
		m := head(part.Heads)
		if m == nil {
			continue
		}
		rows, cols := m.Dims()
		for c := 0; c < cols && c < width; c++ {
			var sum float64
			for r := 0; r < rows; r++ {
				sum += m.At(r, c)
			}
			counts[c] += int(sum)
		}
	}
	return counts
}
