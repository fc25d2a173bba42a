// Package frames encodes captured frames to deterministic files inside a session.
package frames

import (
	"bufio"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Supported frame encodings.
const (
	FormatJPG = "jpg"
	FormatPNG = "png"
)

// ErrUnsupportedFormat indicates an encoding the writer cannot produce.
var ErrUnsupportedFormat = errors.New("unsupported frame format")

// Options configure a Writer.
type Options struct {
	Format  string
	Quality int
}

// Writer persists frames in a single encoding.
type Writer struct {
	format  string
	quality int
}

// NewWriter validates options and returns a frame writer.
func NewWriter(opts Options) (*Writer, error) {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(opts.Format)), ".")
	switch format {
	case "", "jpeg", FormatJPG:
		format = FormatJPG
	case FormatPNG:
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", opts.Format)
	}
	quality := opts.Quality
	if quality == 0 {
		quality = jpeg.DefaultQuality
	}
	if quality < 1 || quality > 100 {
		return nil, errors.Errorf("jpeg quality %d outside 1..100", quality)
	}
	return &Writer{format: format, quality: quality}, nil
}

// Ext is the file extension written, without the leading dot.
func (w *Writer) Ext() string { return w.format }

// Encode writes img to out in the configured encoding.
func (w *Writer) Encode(out io.Writer, img image.Image) error {
	if img == nil {
		return errors.New("nil frame")
	}
	switch w.format {
	case FormatPNG:
		return png.Encode(out, img)
	default:
		return jpeg.Encode(out, img, &jpeg.Options{Quality: w.quality})
	}
}

// WriteFile encodes img to path, replacing any existing file.
func (w *Writer) WriteFile(path string, img image.Image) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "create frame")
	}
	defer func() { err = multierr.Append(err, file.Close()) }()

	buf := bufio.NewWriter(file)
	if err := w.Encode(buf, img); err != nil {
		return errors.Wrapf(err, "encode frame %q", path)
	}
	return errors.Wrap(buf.Flush(), "flush frame")
}
