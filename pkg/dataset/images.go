package dataset

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".webp": {},
}

// IsImagePath reports whether path carries a recognized image extension.
func IsImagePath(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Frame geometry used when turning images into feature vectors.
type Frame struct {
	Width    int
	Height   int
	Channels int
}

// Len is the number of values in one frame.
func (f Frame) Len() int { return f.Width * f.Height * f.Channels }

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %q", path)
	}
	return img, nil
}

// Pixels resizes img to the frame geometry and appends its intensities scaled to [0, 1].
// With swap set the spatial axes are emitted as [width][height][channels], otherwise
// as [height][width][channels].
func (f Frame) Pixels(dst []float32, img image.Image, swap bool) []float32 {
	scaled := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	at := func(x, y int) {
		off := scaled.PixOffset(x, y)
		r, g, b := scaled.Pix[off], scaled.Pix[off+1], scaled.Pix[off+2]
		if f.Channels == 1 {
			gray := color.GrayModel.Convert(color.RGBA{R: r, G: g, B: b, A: 0xff}).(color.Gray)
			dst = append(dst, float32(gray.Y)/255)
			return
		}
		dst = append(dst, float32(r)/255, float32(g)/255, float32(b)/255)
	}
	if swap {
		for x := 0; x < f.Width; x++ {
			for y := 0; y < f.Height; y++ {
				at(x, y)
			}
		}
		return dst
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			at(x, y)
		}
	}
	return dst
}
