package main

import (
	"fmt"
	"image"
	"log"

	"github.com/sugarme/saltseg/train"
	"github.com/sugarme/saltseg/viz"
)

// figure files written under -out
const (
	inferenceFile = "inference.png"
	samplesFile   = "samples.png"
	curvesFile    = "curves.png"
	coverageFile  = "coverage.png"
)

func runTrain() {
	m, err := train.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Dataset: %v samples (train: %v, test: %v)\n", m.Dataset.Len(), len(m.TrainIdx), len(m.TestIdx))

	if _, err := m.Train(); err != nil {
		log.Fatal(err)
	}
}

func runInfer() {
	m, err := train.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := m.Load(); err != nil {
		log.Fatal(err)
	}

	preds, err := m.Infer(6, cfg.Threshold)
	if err != nil {
		log.Fatal(err)
	}

	rows := make([][4]image.Image, len(preds))
	for i, p := range preds {
		rows[i] = [4]image.Image{p.Image, p.Mask, p.Prob, p.Binary}
	}
	if err := viz.InferenceGrid(rows, outPath(inferenceFile)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Predictions saved to %v\n", outPath(inferenceFile))
}

func runSamples() {
	m, err := train.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	samples, err := m.Samples(4)
	if err != nil {
		log.Fatal(err)
	}

	var images, masks []image.Image
	for _, s := range samples {
		images = append(images, s.Image)
		masks = append(masks, s.Mask)
	}
	if err := viz.SampleGrid(images, masks, outPath(samplesFile)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Samples saved to %v\n", outPath(samplesFile))
}

func runCurves() {
	h, err := train.LoadLossHistory(cfg.TrainLossPath(), cfg.TestLossPath())
	if err != nil {
		log.Fatal(err)
	}

	min, epoch := h.MinTest()
	fmt.Printf("Min test loss : %v (epoch %d)\n", min, epoch+1)

	if err := viz.LossCurves(h.Train, h.Test, outPath(curvesFile)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Learning curves saved to %v\n", outPath(curvesFile))
}

func runEDA() {
	m, err := train.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	coverages, err := m.Coverages()
	if err != nil {
		log.Fatal(err)
	}

	var empty int
	for _, c := range coverages {
		if c == 0 {
			empty++
		}
	}
	fmt.Printf("Samples: %v\t empty masks: %v\n", len(coverages), empty)

	if err := viz.CoverageHistogram(coverages, 10, outPath(coverageFile)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Coverage histogram saved to %v\n", outPath(coverageFile))
}
