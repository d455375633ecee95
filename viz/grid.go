package viz

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/nfnt/resize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Column titles of the inference grid.
var InferenceTitles = []string{"Input", "Ground truth", "Pred", "Pred binary"}

// CellSize is the side of one grid cell.
var CellSize = 1.6 * vg.Inch

// upscale is the nearest neighbour magnification applied to panels so small
// tiles stay crisp when drawn.
const upscale = 4

// Grid draws rows of images as a table, titles labelling the columns of the
// first row, and writes it to path as PNG. All rows must have the same length.
// Grayscale images are false colored.
func Grid(rows [][]image.Image, titles []string, path string) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return fmt.Errorf("empty grid")
	}
	cols := len(rows[0])

	cm := colorMap()
	plots := make([][]*plot.Plot, len(rows))
	for j, row := range rows {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d images, expected %d", j, len(row), cols)
		}
		plots[j] = make([]*plot.Plot, cols)
		for i, img := range row {
			if img == nil {
				return fmt.Errorf("missing image at row %d, column %d", j, i)
			}
			p := plot.New()
			p.HideAxes()
			if j == 0 && i < len(titles) {
				p.Title.Text = titles[i]
			}
			b := img.Bounds()
			p.Add(plotter.NewImage(Upscale(Colorize(img, cm), upscale), 0, 0, float64(b.Dx()), float64(b.Dy())))
			plots[j][i] = p
		}
	}

	w := vg.Length(cols) * CellSize
	h := vg.Length(len(rows)) * CellSize
	img := vgimg.New(w, h)
	dc := draw.New(img)

	t := draw.Tiles{
		Rows:      len(rows),
		Cols:      cols,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(2),
	}
	canvases := plot.Align(plots, t, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return f.Close()
}

// InferenceGrid writes one row per sample: input, ground truth, probability
// map and binarized prediction.
func InferenceGrid(rows [][4]image.Image, path string) error {
	grid := make([][]image.Image, len(rows))
	for j := range rows {
		grid[j] = rows[j][:]
	}
	return Grid(grid, InferenceTitles, path)
}

// SampleGrid writes images on the first row and their masks on the second.
func SampleGrid(images, masks []image.Image, path string) error {
	if len(images) != len(masks) {
		return fmt.Errorf("got %d images and %d masks", len(images), len(masks))
	}
	return Grid([][]image.Image{images, masks}, nil, path)
}

// Upscale magnifies img by factor using nearest neighbour interpolation.
func Upscale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	return resize.Resize(uint(b.Dx()*factor), uint(b.Dy()*factor), img, resize.NearestNeighbor)
}

// Colorize maps intensities of a grayscale image through cm. Other images
// are returned unchanged.
func Colorize(img image.Image, cm palette.ColorMap) image.Image {
	gray, ok := img.(*image.Gray)
	if !ok {
		return img
	}

	b := gray.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, err := cm.At(float64(gray.GrayAt(x, y).Y) / 255)
			if err != nil {
				c = color.Black
			}
			out.Set(x, y, c)
		}
	}
	return out
}

func colorMap() palette.ColorMap {
	cm := moreland.Kindlmann()
	cm.SetMin(0)
	cm.SetMax(1)
	return cm
}
