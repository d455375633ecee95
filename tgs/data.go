// Package tgs loads the TGS salt identification dataset: seismic image tiles
// and their salt masks stored as same-named files in two directories.
package tgs

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/sugarme/gotch/ts"
)

// DefaultImageSize is the network input size. Source tiles are 101x101.
const DefaultImageSize = 128

// Dataset implements gotch dutil.Dataset over an images directory and a masks
// directory. Images and masks are paired by file name.
type Dataset struct {
	imgDir  string
	maskDir string
	size    int
	fnames  []string
}

// Record references a dataset sample by index and file name. Tensors are
// loaded when a batch of records is collated.
type Record struct {
	Index int
	Name  string
}

// NewDataset lists imgDir and creates a Dataset resizing samples to size x size.
// Subdirectories and hidden files are ignored.
func NewDataset(imgDir, maskDir string, size int) (*Dataset, error) {
	if size <= 0 {
		return nil, fmt.Errorf("image size must be positive. Got %d", size)
	}

	entries, err := os.ReadDir(imgDir)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	if _, err := os.Stat(maskDir); err != nil {
		return nil, fmt.Errorf("masks directory: %w", err)
	}

	var fnames []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fnames = append(fnames, e.Name())
	}
	sort.Strings(fnames)

	return &Dataset{
		imgDir:  imgDir,
		maskDir: maskDir,
		size:    size,
		fnames:  fnames,
	}, nil
}

// Len implements dutil.Dataset interface.
func (ds *Dataset) Len() int {
	return len(ds.fnames)
}

// Size returns side length samples are resized to.
func (ds *Dataset) Size() int {
	return ds.size
}

// Name returns file name of sample idx.
func (ds *Dataset) Name(idx int) string {
	return ds.fnames[idx]
}

// LoadImages loads image and mask of sample idx as resized grayscale images.
func (ds *Dataset) LoadImages(idx int) (img, mask *image.Gray, err error) {
	if idx < 0 || idx >= len(ds.fnames) {
		return nil, nil, fmt.Errorf("index out of range: %d (dataset length: %d)", idx, len(ds.fnames))
	}
	fname := ds.fnames[idx]

	img, err = LoadGray(filepath.Join(ds.imgDir, fname), ds.size)
	if err != nil {
		return nil, nil, err
	}
	mask, err = LoadGray(filepath.Join(ds.maskDir, fname), ds.size)
	if err != nil {
		return nil, nil, err
	}

	return img, mask, nil
}

// Item implements dutil.Dataset interface. It returns a Record.
func (ds *Dataset) Item(idx int) (interface{}, error) {
	if idx < 0 || idx >= len(ds.fnames) {
		return nil, fmt.Errorf("index out of range: %d (dataset length: %d)", idx, len(ds.fnames))
	}
	return Record{Index: idx, Name: ds.fnames[idx]}, nil
}

// DType implements dutil.Dataset interface.
func (ds *Dataset) DType() reflect.Type {
	return reflect.TypeOf(ds.fnames)
}

// Collate loads a batch of records as returned by dutil.DataLoader.Next
// and stacks them into image and mask tensors of shape [B 1 H W].
func (ds *Dataset) Collate(batch interface{}) (images, masks *ts.Tensor, err error) {
	records, ok := batch.([]Record)
	if !ok {
		return nil, nil, fmt.Errorf("expected []Record batch. Got %T", batch)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty batch")
	}

	var img, mask []*ts.Tensor
	drop := func() {
		for _, x := range append(img, mask...) {
			x.MustDrop()
		}
	}
	for _, r := range records {
		i, m, err := ds.LoadImages(r.Index)
		if err != nil {
			drop()
			return nil, nil, err
		}
		img = append(img, GrayTensor(i))
		mask = append(mask, GrayTensor(m))
	}

	images = ts.MustStack(img, 0)
	masks = ts.MustStack(mask, 0)
	drop()

	return images, masks, nil
}

// Subset is a view of Dataset restricted to given sample indices.
type Subset struct {
	ds      *Dataset
	indices []int
}

// Subset creates a Subset. Every index must be in range.
func (ds *Dataset) Subset(indices []int) (*Subset, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= ds.Len() {
			return nil, fmt.Errorf("subset index out of range: %d (dataset length: %d)", idx, ds.Len())
		}
	}

	idxs := make([]int, len(indices))
	copy(idxs, indices)
	return &Subset{ds: ds, indices: idxs}, nil
}

// Len implements dutil.Dataset interface.
func (s *Subset) Len() int {
	return len(s.indices)
}

// Item implements dutil.Dataset interface.
func (s *Subset) Item(idx int) (interface{}, error) {
	if idx < 0 || idx >= len(s.indices) {
		return nil, fmt.Errorf("index out of range: %d (subset length: %d)", idx, len(s.indices))
	}
	return s.ds.Item(s.indices[idx])
}

// DType implements dutil.Dataset interface.
func (s *Subset) DType() reflect.Type {
	return reflect.TypeOf(s.indices)
}
