package tgs_test

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gotest.tools/assert"

	"github.com/sugarme/saltseg/tgs"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	assert.NilError(t, err)
	defer f.Close()
	assert.NilError(t, png.Encode(f, img))
}

// makeDataset writes n 101x101 RGB images and binary masks.
func makeDataset(t *testing.T, n int) (imgDir, maskDir string) {
	t.Helper()
	root := t.TempDir()
	imgDir = filepath.Join(root, "images")
	maskDir = filepath.Join(root, "masks")
	assert.NilError(t, os.MkdirAll(imgDir, 0755))
	assert.NilError(t, os.MkdirAll(maskDir, 0755))

	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 101, 101))
		mask := image.NewGray(image.Rect(0, 0, 101, 101))
		for y := 0; y < 101; y++ {
			for x := 0; x < 101; x++ {
				v := uint8((x + y + i) % 256)
				img.Set(x, y, color.RGBA{v, v, v, 255})
				if x > 50 {
					mask.SetGray(x, y, color.Gray{255})
				}
			}
		}
		name := fmt.Sprintf("%03d.png", i)
		writePNG(t, filepath.Join(imgDir, name), img)
		writePNG(t, filepath.Join(maskDir, name), mask)
	}

	return imgDir, maskDir
}

func TestDatasetLenMatchesListing(t *testing.T) {
	imgDir, maskDir := makeDataset(t, 5)
	// ignored entries
	assert.NilError(t, os.WriteFile(filepath.Join(imgDir, ".DS_Store"), []byte("x"), 0644))
	assert.NilError(t, os.MkdirAll(filepath.Join(imgDir, "sub"), 0755))

	ds, err := tgs.NewDataset(imgDir, maskDir, 32)
	assert.NilError(t, err)
	assert.Equal(t, ds.Len(), 5)
	assert.Equal(t, ds.Name(0), "000.png")
	assert.Equal(t, ds.Name(4), "004.png")
}

func TestDatasetLoadImages(t *testing.T) {
	imgDir, maskDir := makeDataset(t, 2)
	ds, err := tgs.NewDataset(imgDir, maskDir, 32)
	assert.NilError(t, err)

	img, mask, err := ds.LoadImages(1)
	assert.NilError(t, err)
	assert.Equal(t, img.Bounds().Dx(), 32)
	assert.Equal(t, img.Bounds().Dy(), 32)
	assert.Equal(t, mask.Bounds().Dx(), 32)

	// left half of the mask is background, right half salt
	assert.Equal(t, mask.GrayAt(2, 16).Y, uint8(0))
	assert.Equal(t, mask.GrayAt(29, 16).Y, uint8(255))

	_, _, err = ds.LoadImages(2)
	assert.ErrorContains(t, err, "out of range")
}

func TestDatasetMissingMask(t *testing.T) {
	imgDir, maskDir := makeDataset(t, 2)
	assert.NilError(t, os.Remove(filepath.Join(maskDir, "001.png")))

	ds, err := tgs.NewDataset(imgDir, maskDir, 16)
	assert.NilError(t, err)
	_, _, err = ds.Collate([]tgs.Record{{Index: 0, Name: "000.png"}, {Index: 1, Name: "001.png"}})
	assert.ErrorContains(t, err, "001.png")
}

func TestNewDatasetErrors(t *testing.T) {
	imgDir, maskDir := makeDataset(t, 1)

	_, err := tgs.NewDataset(filepath.Join(imgDir, "nope"), maskDir, 16)
	assert.ErrorContains(t, err, "listing images")

	_, err = tgs.NewDataset(imgDir, filepath.Join(maskDir, "nope"), 16)
	assert.ErrorContains(t, err, "masks directory")

	_, err = tgs.NewDataset(imgDir, maskDir, 0)
	assert.ErrorContains(t, err, "image size")
}

func TestItemAndCollate(t *testing.T) {
	imgDir, maskDir := makeDataset(t, 3)
	ds, err := tgs.NewDataset(imgDir, maskDir, 16)
	assert.NilError(t, err)
	assert.Equal(t, ds.DType().Kind(), reflect.Slice)

	var records []tgs.Record
	for i := 0; i < ds.Len(); i++ {
		it, err := ds.Item(i)
		assert.NilError(t, err)
		r := it.(tgs.Record)
		assert.Equal(t, r.Index, i)
		assert.Equal(t, r.Name, ds.Name(i))
		records = append(records, r)
	}
	_, err = ds.Item(3)
	assert.ErrorContains(t, err, "out of range")

	images, masks, err := ds.Collate(records)
	assert.NilError(t, err)
	defer images.MustDrop()
	defer masks.MustDrop()
	assert.DeepEqual(t, images.MustSize(), []int64{3, 1, 16, 16})
	assert.DeepEqual(t, masks.MustSize(), []int64{3, 1, 16, 16})

	for _, v := range masks.Float64Values() {
		assert.Assert(t, v >= 0 && v <= 1, "mask value %v not in [0, 1]", v)
	}

	_, _, err = ds.Collate([]tgs.Record{})
	assert.ErrorContains(t, err, "empty batch")

	_, _, err = ds.Collate([]int{0})
	assert.ErrorContains(t, err, "expected []Record")
}

func TestReadImageUnsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.txt")
	assert.NilError(t, os.WriteFile(p, []byte("hello"), 0644))
	_, err := tgs.ReadImage(p)
	assert.ErrorContains(t, err, "unsupported image format")
}

func TestValuesToGray(t *testing.T) {
	img, err := tgs.ValuesToGray([]float64{-1, 0, 0.5, 2}, 2, 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, img.Pix, []uint8{0, 0, 128, 255})

	_, err = tgs.ValuesToGray([]float64{0, 1}, 2, 2)
	assert.ErrorContains(t, err, "expected 4 values")
}

func TestGrayValues(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.Pix = []uint8{0, 255}
	assert.DeepEqual(t, tgs.GrayValues(img), []float32{0, 1})
}

func TestCoverage(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 4, 2))
	assert.Equal(t, tgs.Coverage(mask), 0.0)

	mask.Pix = []uint8{255, 255, 0, 0, 200, 100, 0, 0}
	assert.Equal(t, tgs.Coverage(mask), 3.0/8)

	assert.Equal(t, tgs.Coverage(image.NewGray(image.Rectangle{})), 0.0)
}
