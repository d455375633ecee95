package unet

import (
	"fmt"
	"reflect"

	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/saltseg/base"
)

// Down is a SequentialT module composed of maxpool and 2x conv.
type Down struct {
	MaxpoolConv *nn.SequentialT
}

// NewDown creates a new Down ModuleT layer.
func NewDown(p *nn.Path, cIn, cOut int64, cMidOpt ...int64) *Down {
	doubleconv := base.DoubleConv(p, cIn, cOut, cMidOpt...)

	down := nn.SeqT()
	down.AddFn(nn.NewFunc(func(x *ts.Tensor) *ts.Tensor {
		// Down sample to half size: [B C H W] => [B C H/2 W/2]
		// ksize = 2; stride=2; padding=0; dilation=1; ceil=false
		return x.MustMaxPool2d([]int64{2, 2}, []int64{2, 2}, []int64{0, 0}, []int64{1, 1}, false, false)
	}))
	down.Add(doubleconv)

	return &Down{down}
}

// ForwardT implements ts.ModuleT interface.
func (l *Down) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return l.MaxpoolConv.ForwardT(x, train)
}

// Up is a SequentialT composed of an upsampling layer and a conv.
type Up struct {
	DoubleConv *nn.SequentialT
}

// NewUp creates new Up layer.
func NewUp(p *nn.Path, cIn, cOut int64) *Up {
	doubleconv := base.DoubleConv(p, cIn, cOut, cIn/2)
	return &Up{doubleconv}
}

// UpForward upsamples x1 to the spatial size of skip tensor x2, concatenates
// them along channels and forwards through double conv.
// x1, x2 should be in shape [B C H W].
func (l *Up) UpForward(x1, x2 *ts.Tensor, train bool) *ts.Tensor {
	x2Size := x2.MustSize()
	xUp := upsampling(x1, x2Size[2:])

	x := ts.MustCat([]*ts.Tensor{x2, xUp}, 1)
	xUp.MustDrop()

	out := l.DoubleConv.ForwardT(x, train)
	x.MustDrop()

	return out
}

// interpolation using `bilinear` algorithm
// x should be in shape: [B C H W]
func upsampling(x *ts.Tensor, outSize []int64) *ts.Tensor {
	xSize := x.MustSize()
	if reflect.DeepEqual(xSize[2:], outSize) {
		return x.MustDetach(false)
	}

	return x.MustUpsampleBilinear2d(outSize, false, nil, nil, false)
}

// OutConv creates out layer.
func OutConv(p *nn.Path, cIn, cOut int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	return nn.NewConv2D(p, cIn, cOut, 1, config)
}

// Config holds UNet shape options.
type Config struct {
	InChannels int64 // input image channels, 1 for grayscale
	Classes    int64 // output channels, 1 for binary masks
	Features   int64 // channels of the first encoder stage; doubled at each Down
}

// DefaultConfig returns the classic UNet widths (64..512) on single channel
// input with one output class.
func DefaultConfig() Config {
	return Config{
		InChannels: 1,
		Classes:    1,
		Features:   64,
	}
}

// Validate checks whether config can build a model.
func (c Config) Validate() error {
	if c.InChannels <= 0 || c.Classes <= 0 {
		return fmt.Errorf("invalid UNet channels: in=%d, classes=%d", c.InChannels, c.Classes)
	}
	if c.Features < 1 {
		return fmt.Errorf("UNet features must be positive. Got %d", c.Features)
	}
	return nil
}

// UNet is a UNet model using bilinear upsampling.
// Ref: https://arxiv.org/abs/1505.04597
//
// It outputs logits of shape [B Classes H W]. Apply sigmoid to get
// per-pixel probabilities.
type UNet struct {
	Inc *nn.SequentialT

	Down1 *Down
	Down2 *Down
	Down3 *Down
	Down4 *Down

	Up1 *Up
	Up2 *Up
	Up3 *Up
	Up4 *Up

	OutC *nn.Conv2D
}

// New creates a UNet from config. It panics if config is invalid.
func New(p *nn.Path, c Config) *UNet {
	if err := c.Validate(); err != nil {
		panic(err)
	}

	f := c.Features
	inc := base.DoubleConv(p.Sub("inc"), c.InChannels, f)
	down1 := NewDown(p.Sub("down1"), f, f*2)
	down2 := NewDown(p.Sub("down2"), f*2, f*4)
	down3 := NewDown(p.Sub("down3"), f*4, f*8)
	down4 := NewDown(p.Sub("down4"), f*8, f*16/2) // bilinear: halved

	up1 := NewUp(p.Sub("up1"), f*16, f*8/2)
	up2 := NewUp(p.Sub("up2"), f*8, f*4/2)
	up3 := NewUp(p.Sub("up3"), f*4, f*2/2)
	up4 := NewUp(p.Sub("up4"), f*2, f)
	outc := OutConv(p.Sub("outc"), f, c.Classes)

	return &UNet{
		Inc:   inc,
		Down1: down1,
		Down2: down2,
		Down3: down3,
		Down4: down4,
		Up1:   up1,
		Up2:   up2,
		Up3:   up3,
		Up4:   up4,
		OutC:  outc,
	}
}

// ForwardT implements ts.ModuleT for UNet model
func (m *UNet) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	x1 := m.Inc.ForwardT(x, train)    // [B  F   H    W   ]
	x2 := m.Down1.ForwardT(x1, train) // [B 2F   H/2  W/2 ]
	x3 := m.Down2.ForwardT(x2, train) // [B 4F   H/4  W/4 ]
	x4 := m.Down3.ForwardT(x3, train) // [B 8F   H/8  W/8 ]
	x5 := m.Down4.ForwardT(x4, train) // [B 8F   H/16 W/16]

	z1 := m.Up1.UpForward(x5, x4, train) // [B 4F H/8 W/8]
	z2 := m.Up2.UpForward(z1, x3, train) // [B 2F H/4 W/4]
	z3 := m.Up3.UpForward(z2, x2, train) // [B  F H/2 W/2]
	z4 := m.Up4.UpForward(z3, x1, train) // [B  F H   W  ]

	logits := m.OutC.ForwardT(z4, train) // [B  C H   W  ]

	x1.MustDrop()
	x2.MustDrop()
	x3.MustDrop()
	x4.MustDrop()
	x5.MustDrop()
	z1.MustDrop()
	z2.MustDrop()
	z3.MustDrop()
	z4.MustDrop()

	return logits
}
