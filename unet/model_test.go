package unet_test

import (
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
	"gotest.tools/assert"

	"github.com/sugarme/saltseg/unet"
)

func TestUNetOutputShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net := unet.New(vs.Root(), unet.Config{InChannels: 1, Classes: 1, Features: 4})

	batchSize := int64(2)
	imageSize := int64(32)
	image := ts.MustRand([]int64{batchSize, 1, imageSize, imageSize}, gotch.Float, gotch.CPU)
	defer image.MustDrop()

	ts.NoGrad(func() {
		logit := net.ForwardT(image, false)
		defer logit.MustDrop()

		got := logit.MustSize()
		want := []int64{batchSize, 1, imageSize, imageSize}
		assert.Assert(t, reflect.DeepEqual(got, want), "got shape %v, want %v", got, want)
	})
}

// 101x101 TGS tiles are not divisible by 16; skips must still line up.
func TestUNetOddInputSize(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net := unet.New(vs.Root(), unet.Config{InChannels: 1, Classes: 1, Features: 2})

	image := ts.MustRand([]int64{1, 1, 101, 101}, gotch.Float, gotch.CPU)
	defer image.MustDrop()

	ts.NoGrad(func() {
		logit := net.ForwardT(image, false)
		defer logit.MustDrop()
		assert.DeepEqual(t, logit.MustSize(), []int64{1, 1, 101, 101})
	})
}

func TestConfigValidate(t *testing.T) {
	assert.NilError(t, unet.DefaultConfig().Validate())

	tests := []unet.Config{
		{InChannels: 0, Classes: 1, Features: 64},
		{InChannels: 1, Classes: 0, Features: 64},
		{InChannels: 1, Classes: 1, Features: 0},
	}
	for _, c := range tests {
		assert.Assert(t, c.Validate() != nil, "config %+v should be invalid", c)
	}
}
