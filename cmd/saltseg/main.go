package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/klauspost/cpuid/v2"
	"github.com/sugarme/gotch"

	"github.com/sugarme/saltseg/train"
)

// flag variables
var (
	doTrain   bool
	doInfer   bool
	doCurves  bool
	doSamples bool
	doEDA     bool
	Cuda      bool

	cfg = train.DefaultConfig()
)

func init() {
	flag.BoolVar(&doTrain, "train", false, "runs the training loop")
	flag.BoolVar(&doInfer, "infer", false, "infers results on the test set")
	flag.BoolVar(&doCurves, "curves", false, "plots the learning curves")
	flag.BoolVar(&doSamples, "samples", false, "plots random dataset samples")
	flag.BoolVar(&doEDA, "eda", false, "plots salt coverage histogram of the dataset")

	flag.StringVar(&cfg.ImageDir, "images", cfg.ImageDir, "specify input images directory")
	flag.StringVar(&cfg.MaskDir, "masks", cfg.MaskDir, "specify masks directory")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "specify model checkpoint file")
	flag.StringVar(&cfg.OutDir, "out", cfg.OutDir, "specify output directory for loss histories and figures")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")

	flag.IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "specify number of epochs")
	flag.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "specify batch size")
	flag.Float64Var(&cfg.LearningRate, "lr", cfg.LearningRate, "specify learning rate")
	flag.IntVar(&cfg.Patience, "patience", cfg.Patience, "specify early stopping epochs without test loss improvement (0 disables)")
	flag.BoolVar(&cfg.Schedule, "schedule", cfg.Schedule, "reduce learning rate on test loss plateau")
	flag.IntVar(&cfg.ImageSize, "size", cfg.ImageSize, "specify image resize target")
	flag.Int64Var(&cfg.Features, "features", cfg.Features, "specify UNet first stage channels")
	flag.Float64Var(&cfg.TestSplit, "test-split", cfg.TestSplit, "specify test set fraction")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "specify train/test split seed")
	flag.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "specify inference binarization threshold")
}

func main() {
	flag.Parse()

	mode, err := selectMode(doTrain, doInfer, doCurves, doSamples, doEDA)
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	cfg.Device = gotch.CPU
	if Cuda {
		cfg.Device = gotch.CudaIfAvailable()
	}
	logDevice(cfg.Device)

	switch mode {
	case "train":
		runTrain()
	case "infer":
		runInfer()
	case "curves":
		runCurves()
	case "samples":
		runSamples()
	case "eda":
		runEDA()
	}
}

// selectMode returns the single selected mode.
func selectMode(trainOn, inferOn, curvesOn, samplesOn, edaOn bool) (string, error) {
	var modes []string
	for _, m := range []struct {
		name string
		on   bool
	}{
		{"train", trainOn},
		{"infer", inferOn},
		{"curves", curvesOn},
		{"samples", samplesOn},
		{"eda", edaOn},
	} {
		if m.on {
			modes = append(modes, m.name)
		}
	}

	switch len(modes) {
	case 0:
		return "", fmt.Errorf("no mode specified. Use one of -train, -infer, -curves, -samples or -eda")
	case 1:
		return modes[0], nil
	default:
		return "", fmt.Errorf("flags %v are mutually exclusive", modes)
	}
}

func logDevice(device gotch.Device) {
	if device != gotch.CPU {
		log.Printf("Device: %v\n", device)
		return
	}
	log.Printf("Device: CPU %v (%d cores, %d threads, AVX2: %v)\n",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, cpuid.CPU.Supports(cpuid.AVX2))
}

func outPath(name string) string {
	return filepath.Join(cfg.OutDir, name)
}
