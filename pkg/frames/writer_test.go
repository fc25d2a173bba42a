package frames

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 20), B: 90, A: 255})
		}
	}
	return img
}

func TestNewWriterValidation(t *testing.T) {
	w, err := NewWriter(Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatJPG, w.Ext())

	w, err = NewWriter(Options{Format: ".JPEG", Quality: 80})
	require.NoError(t, err)
	assert.Equal(t, FormatJPG, w.Ext())

	w, err = NewWriter(Options{Format: "png"})
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, w.Ext())

	_, err = NewWriter(Options{Format: "gif"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewWriter(Options{Format: "jpg", Quality: 101})
	assert.Error(t, err)
}

func TestWriteFileDecodesBack(t *testing.T) {
	for _, format := range []string{FormatJPG, FormatPNG} {
		t.Run(format, func(t *testing.T) {
			w, err := NewWriter(Options{Format: format, Quality: 90})
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "Frame_x_1."+w.Ext())
			require.NoError(t, w.WriteFile(path, testImage()))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			img, decoded, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, map[string]string{FormatJPG: "jpeg", FormatPNG: "png"}[format], decoded)
			assert.Equal(t, image.Rect(0, 0, 16, 9), img.Bounds())
		})
	}
}

func TestWriteFileMissingDirectory(t *testing.T) {
	w, err := NewWriter(Options{Format: FormatPNG})
	require.NoError(t, err)
	err = w.WriteFile(filepath.Join(t.TempDir(), "absent", "f.png"), testImage())
	assert.Error(t, err)
}
