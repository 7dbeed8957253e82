// Package fused registers kernels for the fused operators produced by the
// default fusion library.
package fused

import (
	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/registry"
	"github.com/specialistvlad/infergraph/modules/cpu"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers one kernel per default pattern on the cpu target. Fused
// nodes carry their members' attributes under qualified names, which the
// kernels read without a params struct.
func (m *Module) Register(r *registry.Registry) {
	for _, p := range fusion.DefaultLibrary().Patterns() {
		r.RegisterKernel(p.Name, cpu.Target, &registry.Kernel{
			Precisions: []ir.Precision{ir.FP32, ir.FP16, ir.INT8, ir.UINT8},
		})
	}
}
