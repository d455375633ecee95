package tgs_test

import (
	"sort"
	"testing"

	"github.com/sugarme/gotch/dutil"
	"gotest.tools/assert"

	"github.com/sugarme/saltseg/tgs"
)

func TestTrainTestSplit(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 10, 4000} {
		train, test, err := tgs.TrainTestSplit(n, 0.2, 42)
		assert.NilError(t, err)

		assert.Equal(t, len(test), int(0.2*float64(n)))
		assert.Equal(t, len(train)+len(test), n)

		seen := make(map[int]bool, n)
		for _, idx := range append(append([]int{}, train...), test...) {
			assert.Assert(t, idx >= 0 && idx < n, "index %d out of range", idx)
			assert.Assert(t, !seen[idx], "index %d appears twice", idx)
			seen[idx] = true
		}
		assert.Equal(t, len(seen), n)
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	train1, test1, err := tgs.TrainTestSplit(100, 0.2, 42)
	assert.NilError(t, err)
	train2, test2, err := tgs.TrainTestSplit(100, 0.2, 42)
	assert.NilError(t, err)
	assert.DeepEqual(t, train1, train2)
	assert.DeepEqual(t, test1, test2)

	_, test3, err := tgs.TrainTestSplit(100, 0.2, 7)
	assert.NilError(t, err)
	assert.Assert(t, !equalInts(test1, test3), "different seeds should give different splits")
}

func TestTrainTestSplitInvalid(t *testing.T) {
	_, _, err := tgs.TrainTestSplit(10, 1.5, 42)
	assert.ErrorContains(t, err, "test fraction")

	_, _, err = tgs.TrainTestSplit(-1, 0.2, 42)
	assert.ErrorContains(t, err, "invalid dataset size")
}

func TestSubset(t *testing.T) {
	imgDir, maskDir := makeDataset(t, 5)
	ds, err := tgs.NewDataset(imgDir, maskDir, 16)
	assert.NilError(t, err)

	sub, err := ds.Subset([]int{4, 1, 3})
	assert.NilError(t, err)
	assert.Equal(t, sub.Len(), 3)

	item, err := sub.Item(1)
	assert.NilError(t, err)
	assert.Equal(t, item.(tgs.Record), tgs.Record{Index: 1, Name: "001.png"})

	_, err = sub.Item(3)
	assert.ErrorContains(t, err, "out of range")

	_, err = ds.Subset([]int{5})
	assert.ErrorContains(t, err, "out of range")
}

func TestSubsetDataLoader(t *testing.T) {
	imgDir, maskDir := makeDataset(t, 5)
	ds, err := tgs.NewDataset(imgDir, maskDir, 16)
	assert.NilError(t, err)
	sub, err := ds.Subset([]int{4, 3, 0})
	assert.NilError(t, err)

	s, err := dutil.NewBatchSampler(sub.Len(), 2, false, true)
	assert.NilError(t, err)
	dl, err := dutil.NewDataLoader(sub, s)
	assert.NilError(t, err)

	for epoch := 0; epoch < 2; epoch++ {
		dl.Reset(true)
		var sizes, got []int
		for dl.HasNext() {
			batch, err := dl.Next()
			assert.NilError(t, err)

			records := batch.([]tgs.Record)
			sizes = append(sizes, len(records))
			for _, r := range records {
				got = append(got, r.Index)
			}

			images, masks, err := ds.Collate(batch)
			assert.NilError(t, err)
			assert.DeepEqual(t, images.MustSize(), []int64{int64(len(records)), 1, 16, 16})
			assert.DeepEqual(t, masks.MustSize(), []int64{int64(len(records)), 1, 16, 16})
			images.MustDrop()
			masks.MustDrop()
		}
		assert.DeepEqual(t, sizes, []int{2, 1})
		sort.Ints(got)
		assert.DeepEqual(t, got, []int{0, 3, 4})
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
