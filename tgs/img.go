package tgs

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/sugarme/gotch/ts"
	"golang.org/x/image/bmp"
)

// ReadImage reads image from file.
func ReadImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	case ".bmp", ".BMP":
		return bmp.Decode(f)
	default:
		err = fmt.Errorf("unsupported image format: %v", ext)
		return nil, err
	}
}

// LoadGray reads an image file, converts it to grayscale and resizes it to
// size x size.
func LoadGray(filename string, size int) (*image.Gray, error) {
	img, err := ReadImage(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", filename, err)
	}

	return GrayResize(img, size), nil
}

// GrayResize converts img to grayscale (ITU-R 601-2 luma) and resizes it to
// size x size with bicubic resampling.
func GrayResize(img image.Image, size int) *image.Gray {
	gray := imaging.Grayscale(img)
	resized := imaging.Resize(gray, size, size, imaging.CatmullRom)

	b := resized.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// grayscale NRGBA: R == G == B
			out.SetGray(x, y, color.Gray{Y: resized.NRGBAAt(b.Min.X+x, b.Min.Y+y).R})
		}
	}

	return out
}

// GrayValues returns pixel values of img scaled to [0, 1] in row-major order.
func GrayValues(img *image.Gray) []float32 {
	b := img.Bounds()
	vals := make([]float32, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			vals = append(vals, float32(img.GrayAt(x, y).Y)/255.0)
		}
	}

	return vals
}

// GrayTensor converts img to a float tensor of shape [1 H W] with values in [0, 1].
func GrayTensor(img *image.Gray) *ts.Tensor {
	b := img.Bounds()
	vals := GrayValues(img)

	return ts.MustOfSlice(vals).MustView([]int64{1, int64(b.Dy()), int64(b.Dx())}, true)
}

// ValuesToGray converts row-major values in [0, 1] to a w x h grayscale image.
// Values outside the range are clamped.
func ValuesToGray(vals []float64, w, h int) (*image.Gray, error) {
	if len(vals) != w*h {
		return nil, fmt.Errorf("expected %d values for a %dx%d image. Got %d", w*h, w, h, len(vals))
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range vals {
		switch {
		case v < 0:
			v = 0
		case v > 1:
			v = 1
		}
		img.Pix[i] = uint8(v*255 + 0.5)
	}

	return img, nil
}

// Coverage returns the fraction of mask pixels marked as salt (> 127).
func Coverage(mask *image.Gray) float64 {
	b := mask.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}

	var salt int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y > 127 {
				salt++
			}
		}
	}
	return float64(salt) / float64(n)
}
