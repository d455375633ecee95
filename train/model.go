// Package train wires dataset, UNet, optimizer and loss into the training,
// evaluation and inference routines.
package train

import (
	"fmt"
	"image"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sugarme/gotch/dutil"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/saltseg/metric"
	"github.com/sugarme/saltseg/tgs"
	"github.com/sugarme/saltseg/unet"
)

// LossFunc computes a scalar loss from logits and target masks.
type LossFunc func(logit, target *ts.Tensor) *ts.Tensor

// Model holds network, optimizer, loss function, data and hyper-parameters.
type Model struct {
	Config Config

	VS   *nn.VarStore
	Net  *unet.UNet
	Opt  *nn.Optimizer
	Loss LossFunc

	Dataset  *tgs.Dataset
	TrainIdx []int
	TestIdx  []int

	History LossHistory

	trainDL *dutil.DataLoader
	testDL  *dutil.DataLoader
}

// New creates the dataset, the 80/20-style train/test split, the UNet and
// its Adam optimizer.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ds, err := tgs.NewDataset(cfg.ImageDir, cfg.MaskDir, cfg.ImageSize)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := tgs.TrainTestSplit(ds.Len(), cfg.TestSplit, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, fmt.Errorf("dataset of %d samples is too small for test split %v (train: %d, test: %d)",
			ds.Len(), cfg.TestSplit, len(trainIdx), len(testIdx))
	}

	trainDL, err := newLoader(ds, trainIdx, cfg.BatchSize, true)
	if err != nil {
		return nil, err
	}
	testDL, err := newLoader(ds, testIdx, cfg.TestBatchSize, false)
	if err != nil {
		return nil, err
	}

	vs := nn.NewVarStore(cfg.Device)
	netCfg := unet.DefaultConfig()
	netCfg.Features = cfg.Features
	net := unet.New(vs.Root(), netCfg)

	opt, err := nn.DefaultAdamConfig().Build(vs, cfg.LearningRate)
	if err != nil {
		return nil, fmt.Errorf("building optimizer: %w", err)
	}

	return &Model{
		Config:   cfg,
		VS:       vs,
		Net:      net,
		Opt:      opt,
		Loss:     metric.BCEWithLogitsLoss,
		Dataset:  ds,
		TrainIdx: trainIdx,
		TestIdx:  testIdx,
		trainDL:  trainDL,
		testDL:   testDL,
	}, nil
}

// newLoader creates a DataLoader over a subset of ds. Batch size is capped
// at the subset length.
func newLoader(ds *tgs.Dataset, indices []int, batchSize int, shuffle bool) (*dutil.DataLoader, error) {
	sub, err := ds.Subset(indices)
	if err != nil {
		return nil, err
	}
	if batchSize > sub.Len() {
		batchSize = sub.Len()
	}
	s, err := dutil.NewBatchSampler(sub.Len(), batchSize, false, shuffle)
	if err != nil {
		return nil, err
	}
	return dutil.NewDataLoader(sub, s)
}

// numBatches returns number of batches of size bs covering n samples.
func numBatches(n, bs int) int {
	if bs > n {
		bs = n
	}
	return (n + bs - 1) / bs
}

// Train runs the training loop. After each epoch the average test loss is
// compared with the best one: on improvement the checkpoint is saved and
// the early stopping counter reset. Training halts when the counter
// reaches Config.Patience or after Config.Epochs epochs.
func (m *Model) Train() (*LossHistory, error) {
	cfg := m.Config
	fmt.Printf("\nTraining model...\n\n")
	fmt.Printf("learning rate = %v\tbatch size = %v\t early stopping : %v epochs\n\n", cfg.LearningRate, cfg.BatchSize, cfg.Patience)

	stopper := NewEarlyStopping(cfg.Patience)
	var sched *PlateauScheduler
	if cfg.Schedule {
		sched = NewPlateauScheduler(cfg.LearningRate)
	}

	for e := 0; e < cfg.Epochs; e++ {
		fmt.Printf("%s Epoch %d/%d %s\n", strings.Repeat("=", 15), e+1, cfg.Epochs, strings.Repeat("=", 15))
		start := time.Now()

		trainLoss, err := m.trainEpoch()
		if err != nil {
			return &m.History, fmt.Errorf("epoch %d: %w", e+1, err)
		}
		fmt.Printf("Average train loss\t:\t%v\n", trainLoss)

		testLoss, dice, err := m.Evaluate()
		if err != nil {
			return &m.History, fmt.Errorf("epoch %d: %w", e+1, err)
		}
		fmt.Printf("Average test loss\t:\t%v\tdice: %6.4f\tTaken time: %0.2fMin\n\n", testLoss, dice, time.Since(start).Minutes())

		m.History.Append(trainLoss, testLoss)

		if stopper.Step(testLoss) {
			fmt.Printf("***\tSaving best model on average test loss\t***\n\n")
			if err := m.Save(); err != nil {
				return &m.History, err
			}
		}

		if sched != nil {
			if lr, reduced := sched.Step(testLoss); reduced {
				m.Opt.SetLR(lr)
				log.Printf("Reduced learning rate to %v\n", lr)
			}
		}

		if stopper.ShouldStop() {
			fmt.Printf("#####\tNo improvement of test loss since %v epochs. Stopping the training\t#####\n", cfg.Patience)
			break
		}
	}

	if cfg.SaveLoss {
		fmt.Println("Saving train and test loss...")
		if err := m.History.Save(cfg.TrainLossPath(), cfg.TestLossPath()); err != nil {
			return &m.History, fmt.Errorf("saving loss history: %w", err)
		}
	}

	fmt.Printf("\nDone !\n\n")

	return &m.History, nil
}

// trainEpoch runs one pass over the train set and returns the average batch loss.
func (m *Model) trainEpoch() (float64, error) {
	dl := m.trainDL
	dl.Reset(true)

	nbatches := int64(numBatches(len(m.TrainIdx), m.Config.BatchSize))
	var bar *progressbar.ProgressBar
	if m.Config.Quiet {
		bar = progressbar.DefaultSilent(nbatches, "train")
	} else {
		bar = progressbar.Default(nbatches, "train")
	}

	var losses []float64
	for dl.HasNext() {
		batch, err := dl.Next()
		if err != nil {
			return 0, err
		}
		imgTs, maskTs, err := m.Dataset.Collate(batch)
		if err != nil {
			return 0, err
		}

		input := imgTs.MustTo(m.Config.Device, true)
		target := maskTs.MustTo(m.Config.Device, true)

		logit := m.Net.ForwardT(input, true)
		loss := m.Loss(logit, target)
		input.MustDrop()
		target.MustDrop()
		logit.MustDrop()

		m.Opt.BackwardStep(loss)
		losses = append(losses, loss.Float64Values()[0])
		loss.MustDrop()

		bar.Add(1)
	}
	bar.Finish()

	return avg(losses), nil
}

// Evaluate runs the network without gradient over the test set and returns
// average loss and average Dice coefficient.
func (m *Model) Evaluate() (loss, dice float64, err error) {
	dl := m.testDL
	dl.Reset()

	var losses, dices []float64
	for dl.HasNext() {
		batch, err := dl.Next()
		if err != nil {
			return 0, 0, err
		}
		imgTs, maskTs, err := m.Dataset.Collate(batch)
		if err != nil {
			return 0, 0, err
		}

		input := imgTs.MustTo(m.Config.Device, true)
		target := maskTs.MustTo(m.Config.Device, true)

		ts.NoGrad(func() {
			logit := m.Net.ForwardT(input, false)
			l := m.Loss(logit, target)
			prob := logit.MustSigmoid(true)

			losses = append(losses, l.Float64Values()[0])
			dices = append(dices, metric.DiceCoeffBatch(prob, target))

			l.MustDrop()
			prob.MustDrop()
		})
		input.MustDrop()
		target.MustDrop()
	}

	return avg(losses), avg(dices), nil
}

// Save writes network weights to Config.ModelPath.
func (m *Model) Save() error {
	path := m.Config.ModelPath
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := m.VS.Save(path); err != nil {
		return fmt.Errorf("saving model to %q: %w", path, err)
	}
	return nil
}

// Load loads network weights from Config.ModelPath.
func (m *Model) Load() error {
	path, err := filepath.Abs(m.Config.ModelPath)
	if err != nil {
		return err
	}
	if err := m.VS.Load(path); err != nil {
		return fmt.Errorf("loading model from %q: %w", path, err)
	}
	return nil
}

// Prediction is a test sample with the network output.
type Prediction struct {
	Name   string
	Image  *image.Gray // input
	Mask   *image.Gray // ground truth
	Prob   *image.Gray // per-pixel probability
	Binary *image.Gray // Prob > threshold
	Dice   float64
}

// Infer predicts up to n random test samples, binarizing probabilities at threshold.
func (m *Model) Infer(n int, threshold float64) ([]Prediction, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in [0, 1]. Got %v", threshold)
	}

	if n <= 0 {
		return nil, fmt.Errorf("number of samples must be positive. Got %d", n)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	idxs := r.Perm(len(m.TestIdx))
	if n < len(idxs) {
		idxs = idxs[:n]
	}

	size := m.Config.ImageSize
	var preds []Prediction
	for _, i := range idxs {
		idx := m.TestIdx[i]
		img, mask, err := m.Dataset.LoadImages(idx)
		if err != nil {
			return nil, err
		}

		input := tgs.GrayTensor(img).MustUnsqueeze(0, true).MustTo(m.Config.Device, true)
		var probVals []float64
		ts.NoGrad(func() {
			logit := m.Net.ForwardT(input, false)
			prob := logit.MustSigmoid(true)
			probVals = prob.Float64Values()
			prob.MustDrop()
		})
		input.MustDrop()

		binVals := metric.Binarize(probVals, threshold)
		probImg, err := tgs.ValuesToGray(probVals, size, size)
		if err != nil {
			return nil, err
		}
		binImg, err := tgs.ValuesToGray(binVals, size, size)
		if err != nil {
			return nil, err
		}

		dice := metric.DiceValues(binVals, toValues(tgs.GrayValues(mask)), metric.DefaultThreshold)
		log.Printf("%v\tdice: %6.4f\n", m.Dataset.Name(idx), dice)

		preds = append(preds, Prediction{
			Name:   m.Dataset.Name(idx),
			Image:  img,
			Mask:   mask,
			Prob:   probImg,
			Binary: binImg,
			Dice:   dice,
		})
	}

	return preds, nil
}

// Sample is a dataset image and its mask.
type Sample struct {
	Name  string
	Image *image.Gray
	Mask  *image.Gray
}

// Samples loads n random samples drawn with replacement from the whole dataset.
func (m *Model) Samples(n int) ([]Sample, error) {
	r := rand.New(rand.NewSource(m.Config.Seed))
	var samples []Sample
	for k := 0; k < n; k++ {
		idx := r.Intn(m.Dataset.Len())
		img, mask, err := m.Dataset.LoadImages(idx)
		if err != nil {
			return nil, err
		}
		samples = append(samples, Sample{Name: m.Dataset.Name(idx), Image: img, Mask: mask})
	}

	return samples, nil
}

// Coverages returns salt coverage of every dataset mask.
func (m *Model) Coverages() ([]float64, error) {
	coverages := make([]float64, 0, m.Dataset.Len())
	for idx := 0; idx < m.Dataset.Len(); idx++ {
		_, mask, err := m.Dataset.LoadImages(idx)
		if err != nil {
			return nil, err
		}
		coverages = append(coverages, tgs.Coverage(mask))
	}
	return coverages, nil
}

func toValues(vals []float32) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

func avg(input []float64) float64 {
	var sum float64
	for _, v := range input {
		sum += v
	}

	return sum / float64(len(input))
}
