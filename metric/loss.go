// Package metric provides segmentation losses and overlap scores.
package metric

import (
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/ts"
)

// NOTE: reduction: none = 0; mean = 1; sum = 2.
// ref. https://pytorch.org/docs/master/nn.functional.html#torch.nn.functional.binary_cross_entropy
const reductionMean int64 = 1

// BCEWithLogitsLoss is mean binary cross entropy between sigmoid(logit) and
// target. It is numerically stable equivalent of BCELoss(sigmoid(logit), target).
// Returns a scalar tensor of dtype Double.
func BCEWithLogitsLoss(logit, target *ts.Tensor) *ts.Tensor {
	logitR := logit.MustReshape([]int64{-1}, false).MustTotype(gotch.Double, true)
	targetR := target.MustReshape([]int64{-1}, false).MustTotype(gotch.Double, true)

	weight := ts.NewTensor()
	posWeight := ts.NewTensor()
	loss := logitR.MustBinaryCrossEntropyWithLogits(targetR, weight, posWeight, reductionMean, true)
	targetR.MustDrop()

	return loss
}

// BCELoss is mean binary cross entropy between probabilities in [0, 1] and target.
// Returns a scalar tensor of dtype Double.
func BCELoss(prob, target *ts.Tensor) *ts.Tensor {
	p := prob.MustReshape([]int64{-1}, false).MustTotype(gotch.Double, true)
	t := target.MustReshape([]int64{-1}, false).MustTotype(gotch.Double, true)

	weight := ts.NewTensor()
	loss := p.MustBinaryCrossEntropy(t, weight, reductionMean, true)
	t.MustDrop()

	return loss
}
