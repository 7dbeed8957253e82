package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/specialistvlad/infergraph/internal/config"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// Module is the interface that all kernel modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Key identifies a kernel.
type Key struct {
	OpType string
	Target string
}

func (k Key) String() string {
	return k.OpType + "/" + k.Target
}

// Kernel holds the compiled Go side of an operator implementation.
type Kernel struct {
	// Precisions lists the supported precisions. Empty means FP32 only.
	Precisions []ir.Precision
	// Params is the struct type the node attributes bind to. Nil means the
	// kernel reads no attributes.
	Params reflect.Type
}

// Supports reports whether the kernel runs at p.
func (k *Kernel) Supports(p ir.Precision) bool {
	if len(k.Precisions) == 0 {
		return p == ir.FP32
	}
	for _, have := range k.Precisions {
		if have == p {
			return true
		}
	}
	return false
}

// Registry holds the registered kernels and the kernel manifests of a single
// application instance.
type Registry struct {
	KernelRegistry     map[Key]*Kernel
	DefinitionRegistry map[Key]*config.KernelDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		KernelRegistry:     make(map[Key]*Kernel),
		DefinitionRegistry: make(map[Key]*config.KernelDefinition),
	}
}

// RegisterKernel registers the Go implementation of an operator on a target.
// Registering the same key twice is a programming error and panics.
func (r *Registry) RegisterKernel(opType, target string, k *Kernel) {
	key := Key{OpType: opType, Target: target}
	if _, exists := r.KernelRegistry[key]; exists {
		panic(fmt.Sprintf("kernel '%s' already registered", key))
	}
	if k.Params != nil && k.Params.Kind() != reflect.Struct {
		panic(fmt.Sprintf("kernel '%s': params must be a struct type, got %s", key, k.Params))
	}
	slog.Debug("Registering kernel.", "op_type", opType, "target", target)
	r.KernelRegistry[key] = k
}

// Lookup returns the kernel registered for opType on target.
func (r *Registry) Lookup(opType, target string) (*Kernel, bool) {
	k, ok := r.KernelRegistry[Key{OpType: opType, Target: target}]
	return k, ok
}

// Targets returns the sorted set of targets with at least one kernel.
func (r *Registry) Targets() []string {
	seen := make(map[string]bool)
	for key := range r.KernelRegistry {
		seen[key.Target] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// PopulateDefinitionsFromModel copies the loaded kernel manifests from the
// config model into the registry. A later manifest for the same key replaces
// an earlier one.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for _, def := range model.Kernels {
		key := Key{OpType: def.OpType, Target: def.Target}
		if _, exists := r.DefinitionRegistry[key]; exists {
			slog.Warn("Kernel manifest declared more than once, using the last one.", "kernel", key.String())
		}
		r.DefinitionRegistry[key] = def
	}
}
