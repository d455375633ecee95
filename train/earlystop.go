package train

import "math"

// EarlyStopping tracks the best test loss and counts epochs without
// improvement.
type EarlyStopping struct {
	Patience int

	best    float64
	counter int
}

// NewEarlyStopping creates EarlyStopping. Patience <= 0 never stops.
func NewEarlyStopping(patience int) *EarlyStopping {
	return &EarlyStopping{
		Patience: patience,
		best:     math.Inf(1),
	}
}

// Step records an epoch loss. It reports whether loss improved on the best
// one, resetting the counter if so and incrementing it otherwise.
// NaN never improves.
func (e *EarlyStopping) Step(loss float64) bool {
	if loss < e.best {
		e.best = loss
		e.counter = 0
		return true
	}
	e.counter++
	return false
}

// ShouldStop reports whether counter reached patience.
func (e *EarlyStopping) ShouldStop() bool {
	return e.Patience > 0 && e.counter >= e.Patience
}

// Counter returns number of consecutive epochs without improvement.
func (e *EarlyStopping) Counter() int {
	return e.counter
}

// Best returns the best loss so far, +Inf before the first Step.
func (e *EarlyStopping) Best() float64 {
	return e.best
}
