package train

import (
	"fmt"
	"path/filepath"

	"github.com/sugarme/gotch"

	"github.com/sugarme/saltseg/tgs"
)

// Loss history file names, written under Config.OutDir.
const (
	TrainLossFile = "train_loss.csv"
	TestLossFile  = "test_loss.csv"
)

// Config holds data locations and hyper-parameters of a run.
type Config struct {
	ImageDir  string // input images
	MaskDir   string // masks, same file names as images
	ModelPath string // best model checkpoint
	OutDir    string // loss histories and figures

	ImageSize int   // images and masks are resized to ImageSize x ImageSize
	Features  int64 // UNet first stage channels

	Epochs        int
	BatchSize     int // train batch size
	TestBatchSize int
	LearningRate  float64
	Patience      int // early stopping epochs without test loss improvement, <= 0 disables
	Schedule      bool
	TestSplit     float64
	Seed          int64
	Threshold     float64 // inference binarization threshold
	SaveLoss      bool

	Device gotch.Device
	Quiet  bool // no progress bar
}

// DefaultConfig returns the default training setup.
func DefaultConfig() Config {
	return Config{
		ImageDir:      "./data/train/images",
		MaskDir:       "./data/train/masks",
		ModelPath:     "./model.gt",
		OutDir:        ".",
		ImageSize:     tgs.DefaultImageSize,
		Features:      64,
		Epochs:        50,
		BatchSize:     32,
		TestBatchSize: 1,
		LearningRate:  1e-3,
		Patience:      10,
		Schedule:      false,
		TestSplit:     0.2,
		Seed:          42,
		Threshold:     0.5,
		SaveLoss:      true,
		Device:        gotch.CPU,
	}
}

// Validate checks config values.
func (c Config) Validate() error {
	switch {
	case c.ImageSize <= 0:
		return fmt.Errorf("image size must be positive. Got %d", c.ImageSize)
	case c.Features <= 0:
		return fmt.Errorf("features must be positive. Got %d", c.Features)
	case c.Epochs <= 0:
		return fmt.Errorf("epochs must be positive. Got %d", c.Epochs)
	case c.BatchSize <= 0 || c.TestBatchSize <= 0:
		return fmt.Errorf("batch sizes must be positive. Got train=%d, test=%d", c.BatchSize, c.TestBatchSize)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive. Got %v", c.LearningRate)
	case c.TestSplit <= 0 || c.TestSplit >= 1:
		return fmt.Errorf("test split must be in (0, 1). Got %v", c.TestSplit)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("threshold must be in [0, 1]. Got %v", c.Threshold)
	}
	return nil
}

// TrainLossPath returns where train loss history is persisted.
func (c Config) TrainLossPath() string {
	return filepath.Join(c.OutDir, TrainLossFile)
}

// TestLossPath returns where test loss history is persisted.
func (c Config) TestLossPath() string {
	return filepath.Join(c.OutDir, TestLossFile)
}
