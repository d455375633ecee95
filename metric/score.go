package metric

import (
	"github.com/sugarme/gotch/ts"
)

// DefaultThreshold binarizes probabilities into foreground/background.
const DefaultThreshold = 0.5

// Binarize maps values strictly greater than threshold to 1, others to 0.
func Binarize(vals []float64, threshold float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v > threshold {
			out[i] = 1
		}
	}
	return out
}

// counts returns overlap and foreground sizes of binarized pred and target.
func counts(pred, target []float64, threshold float64) (overlap, p, t float64) {
	n := len(pred)
	if len(target) < n {
		n = len(target)
	}
	for i := 0; i < n; i++ {
		pi := pred[i] > threshold
		ti := target[i] > threshold
		if pi {
			p++
		}
		if ti {
			t++
		}
		if pi && ti {
			overlap++
		}
	}
	return overlap, p, t
}

// DiceValues is 2|P∩T| / (|P|+|T|) of binarized pred and target.
// It is 1 when both are empty.
func DiceValues(pred, target []float64, threshold float64) float64 {
	overlap, p, t := counts(pred, target, threshold)
	if p+t == 0 {
		return 1
	}
	return 2 * overlap / (p + t)
}

// IoUValues is |P∩T| / |P∪T| of binarized pred and target.
// It is 1 when both are empty.
func IoUValues(pred, target []float64, threshold float64) float64 {
	overlap, p, t := counts(pred, target, threshold)
	union := p + t - overlap
	if union == 0 {
		return 1
	}
	return overlap / union
}

// DiceCoeff computes Dice coefficient of pred (probabilities) and target
// tensors at DefaultThreshold.
func DiceCoeff(pred, target *ts.Tensor) float64 {
	return DiceValues(pred.Float64Values(), target.Float64Values(), DefaultThreshold)
}

// IoU computes intersection over union of pred (probabilities) and target
// tensors at DefaultThreshold.
func IoU(pred, target *ts.Tensor) float64 {
	return IoUValues(pred.Float64Values(), target.Float64Values(), DefaultThreshold)
}

// DiceCoeffBatch averages per-sample Dice coefficients over the first
// dimension of pred and target.
func DiceCoeffBatch(pred, target *ts.Tensor) float64 {
	size := pred.MustSize()
	if len(size) == 0 || size[0] == 0 {
		return 0
	}
	bs := int(size[0])
	pv := pred.Float64Values()
	tv := target.Float64Values()
	n := len(pv) / bs

	var sum float64
	for i := 0; i < bs; i++ {
		sum += DiceValues(pv[i*n:(i+1)*n], tv[i*n:(i+1)*n], DefaultThreshold)
	}
	return sum / float64(bs)
}
