// Package cpu registers the reference CPU kernels.
package cpu

import (
	"reflect"

	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/registry"
)

// Target is the name kernels of this module are registered under.
const Target = "cpu"

// Module implements the registry.Module interface for this package.
type Module struct{}

// ConvParams are the attributes read by conv and deconv.
type ConvParams struct {
	Kernel   []int64 `attr:"kernel"`
	Stride   []int64 `attr:"stride,optional"`
	Pad      []int64 `attr:"pad,optional"`
	Dilation []int64 `attr:"dilation,optional"`
	Group    int64   `attr:"group,optional"`
	Bias     bool    `attr:"bias,optional"`
}

// BatchNormParams are the attributes read by batchnorm.
type BatchNormParams struct {
	Epsilon float64 `attr:"epsilon,optional"`
}

// ScaleParams are the attributes read by scale.
type ScaleParams struct {
	Bias bool `attr:"bias,optional"`
}

// ReluParams are the attributes read by relu. A zero slope is a plain ReLU.
type ReluParams struct {
	Slope float64 `attr:"slope,optional"`
}

// PoolParams are the attributes read by pool.
type PoolParams struct {
	Kernel []int64 `attr:"kernel"`
	Stride []int64 `attr:"stride,optional"`
	Pad    []int64 `attr:"pad,optional"`
	Mode   string  `attr:"mode,optional"`
}

// EltwiseParams are the attributes read by eltwise.
type EltwiseParams struct {
	Operation string    `attr:"operation,optional"`
	Coeffs    []float64 `attr:"coeffs,optional"`
}

// DenseParams are the attributes read by dense.
type DenseParams struct {
	Units int64 `attr:"units"`
	Bias  bool  `attr:"bias,optional"`
}

// AxisParams are the attributes read by softmax and concat.
type AxisParams struct {
	Axis int64 `attr:"axis,optional"`
}

// SplitParams are the attributes read by split.
type SplitParams struct {
	Axis     int64   `attr:"axis,optional"`
	Sections []int64 `attr:"sections,optional"`
}

// DropoutParams are the attributes read by Dropout.
type DropoutParams struct {
	Ratio float64 `attr:"ratio,optional"`
}

var (
	quantized = []ir.Precision{ir.FP32, ir.FP16, ir.INT8, ir.UINT8}
	floating  = []ir.Precision{ir.FP32, ir.FP16}
)

// Register registers the kernels with the registry.
func (m *Module) Register(r *registry.Registry) {
	kernels := []struct {
		opType     string
		precisions []ir.Precision
		params     any
	}{
		{ir.OpConv, quantized, ConvParams{}},
		{ir.OpDeconv, floating, ConvParams{}},
		{ir.OpBatchNorm, floating, BatchNormParams{}},
		{ir.OpScale, quantized, ScaleParams{}},
		{ir.OpRelu, quantized, ReluParams{}},
		{ir.OpPool, quantized, PoolParams{}},
		{ir.OpEltwise, quantized, EltwiseParams{}},
		{ir.OpDense, quantized, DenseParams{}},
		{ir.OpSoftmax, floating, AxisParams{}},
		{ir.OpConcat, quantized, AxisParams{}},
		{ir.OpSplit, quantized, SplitParams{}},
		{ir.OpIdentity, quantized, nil},
		{ir.OpDropout, floating, DropoutParams{}},
	}
	for _, k := range kernels {
		kernel := &registry.Kernel{Precisions: k.precisions}
		if k.params != nil {
			kernel.Params = reflect.TypeOf(k.params)
		}
		r.RegisterKernel(k.opType, Target, kernel)
	}
}
