package train

import "math"

// PlateauScheduler reduces learning rate when test loss stops improving.
// It mirrors ReduceLROnPlateau in "min" mode with relative threshold.
type PlateauScheduler struct {
	Factor    float64 // new lr = lr * Factor
	Patience  int     // epochs without improvement before reducing
	Threshold float64 // relative improvement needed
	MinLR     float64

	lr   float64
	best float64
	bad  int
}

// NewPlateauScheduler creates a PlateauScheduler starting at lr with
// factor 0.1, patience 10 and threshold 1e-4.
func NewPlateauScheduler(lr float64) *PlateauScheduler {
	return &PlateauScheduler{
		Factor:    0.1,
		Patience:  10,
		Threshold: 1e-4,
		lr:        lr,
		best:      math.Inf(1),
	}
}

// Step records metric and returns the learning rate to use from now on and
// whether it was just reduced.
func (s *PlateauScheduler) Step(metric float64) (lr float64, reduced bool) {
	if metric < s.best*(1-s.Threshold) {
		s.best = metric
		s.bad = 0
		return s.lr, false
	}

	s.bad++
	if s.bad <= s.Patience {
		return s.lr, false
	}

	s.bad = 0
	newLR := math.Max(s.lr*s.Factor, s.MinLR)
	if s.lr-newLR > 1e-8 {
		s.lr = newLR
		return s.lr, true
	}
	return s.lr, false
}

// LR returns current learning rate.
func (s *PlateauScheduler) LR() float64 {
	return s.lr
}
