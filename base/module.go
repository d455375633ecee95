package base

import (
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// Conv2dNoBias creates Conv2D with no bias.
func Conv2dNoBias(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dRelu creates a SequentialT composing of Conv2D No bias, a BatchNorm and a ReLU activation.
func Conv2dRelu(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2dNoBias(p.Sub("conv"), cIn, cOut, ksize, padding, stride))
	seq.Add(nn.BatchNorm2D(p.Sub("bn"), cOut, nn.DefaultBatchNormConfig()))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}

// DoubleConv creates (conv => BN => ReLU) * 2.
// Optional cMid sets the channels between the two convolutions (default cOut).
func DoubleConv(p *nn.Path, cIn, cOut int64, cMidOpt ...int64) *nn.SequentialT {
	cMid := cOut
	if len(cMidOpt) > 0 && cMidOpt[0] > 0 {
		cMid = cMidOpt[0]
	}

	seq := nn.SeqT()
	seq.Add(Conv2dRelu(p.Sub("0"), cIn, cMid, 3, 1, 1))
	seq.Add(Conv2dRelu(p.Sub("1"), cMid, cOut, 3, 1, 1))

	return seq
}
