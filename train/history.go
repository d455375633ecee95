package train

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// LossHistory holds per-epoch average losses.
type LossHistory struct {
	Train []float64
	Test  []float64
}

// Append records losses of one epoch.
func (h *LossHistory) Append(trainLoss, testLoss float64) {
	h.Train = append(h.Train, trainLoss)
	h.Test = append(h.Test, testLoss)
}

// Len returns number of recorded epochs.
func (h *LossHistory) Len() int {
	return len(h.Train)
}

// MinTest returns the lowest test loss and its 0-based epoch.
// It returns (NaN, -1) on empty history.
func (h *LossHistory) MinTest() (float64, int) {
	min, at := math.NaN(), -1
	for i, v := range h.Test {
		if at < 0 || v < min {
			min, at = v, i
		}
	}
	return min, at
}

// Save writes train and test histories to trainPath and testPath.
func (h *LossHistory) Save(trainPath, testPath string) error {
	if err := SaveLosses(trainPath, h.Train); err != nil {
		return err
	}
	return SaveLosses(testPath, h.Test)
}

// LoadLossHistory reads histories written by LossHistory.Save.
func LoadLossHistory(trainPath, testPath string) (*LossHistory, error) {
	trainLoss, err := LoadLosses(trainPath)
	if err != nil {
		return nil, err
	}
	testLoss, err := LoadLosses(testPath)
	if err != nil {
		return nil, err
	}
	if len(trainLoss) != len(testLoss) {
		return nil, fmt.Errorf("train history has %d epochs, test history has %d", len(trainLoss), len(testLoss))
	}

	return &LossHistory{Train: trainLoss, Test: testLoss}, nil
}

// SaveLosses writes losses to a CSV file with columns "epoch" (1-based) and
// "loss". Losses are written with the shortest exact representation.
func SaveLosses(path string, losses []float64) error {
	epochs := make([]int, len(losses))
	values := make([]string, len(losses))
	for i, l := range losses {
		epochs[i] = i + 1
		values[i] = strconv.FormatFloat(l, 'g', -1, 64)
	}

	df := dataframe.New(
		series.New(epochs, series.Int, "epoch"),
		series.New(values, series.String, "loss"),
	)
	if df.Err != nil {
		return fmt.Errorf("building loss dataframe: %w", df.Err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return f.Close()
}

// LoadLosses reads the "loss" column of a CSV file written by SaveLosses.
func LoadLosses(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.WithTypes(map[string]series.Type{
			"epoch": series.Int,
			"loss":  series.Float,
		}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, df.Err)
	}

	col := df.Col("loss")
	if col.Err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, col.Err)
	}

	return col.Float(), nil
}
