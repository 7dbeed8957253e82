package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/specialistvlad/infergraph/internal/attr"
	"github.com/specialistvlad/infergraph/internal/config"
	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// ValidateRegistry performs a strict parity check between kernel manifests and
// Go code. It checks precisions, the presence of params and the
// compatibility of their types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, key := range sortedDefinitionKeys(r.DefinitionRegistry) {
		def := r.DefinitionRegistry[key]
		kernel, ok := r.KernelRegistry[key]
		if !ok {
			logger.Warn("Kernel manifest has no Go implementation.", "kernel", key.String())
			continue
		}

		for _, p := range def.Precisions {
			prec, err := ir.ParsePrecision(p)
			if err != nil {
				errs = append(errs, fmt.Sprintf("kernel '%s': %v", key, err))
				continue
			}
			if !kernel.Supports(prec) {
				errs = append(errs, fmt.Sprintf("kernel '%s': manifest declares precision '%s' which the Go kernel does not support", key, prec))
			}
		}

		if kernel.Params == nil {
			if len(def.Params) > 0 {
				errs = append(errs, fmt.Sprintf("kernel '%s': manifest declares params, but Go kernel has no params struct", key))
			}
			continue
		}

		goParams := make(map[string]paramField)
		for _, f := range paramFields(kernel.Params) {
			goParams[f.name] = f
		}

		// Check for presence mismatches
		for _, name := range sortedKeys(goParams) {
			if _, ok := def.Params[name]; !ok {
				errs = append(errs, fmt.Sprintf("kernel '%s': Go struct has field for param '%s' which is not declared in manifest", key, name))
			}
		}
		for _, name := range sortedKeys(def.Params) {
			if _, ok := goParams[name]; !ok {
				errs = append(errs, fmt.Sprintf("kernel '%s': manifest declares param '%s' which is not found in Go struct", key, name))
			}
		}

		for _, name := range sortedKeys(def.Params) {
			paramDef := def.Params[name]
			goField, ok := goParams[name]
			if !ok {
				continue
			}

			if paramDef.Optional && paramDef.Default == nil && !goField.optional {
				errs = append(errs, fmt.Sprintf("kernel '%s', param '%s': optional in manifest without a default, but Go struct field '%s' requires it",
					key, name, goField.field.Name))
			}

			manifestType := paramDef.Type
			if manifestType.Equals(cty.DynamicPseudoType) {
				logger.Warn("Kernel manifest has param with 'type = any', which disables static type checking.", "kernel", key.String(), "param", name)
				continue
			}

			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.field.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("kernel '%s', param '%s': could not imply cty type from Go field type %s: %v", key, name, goField.field.Type, err))
				continue
			}
			if !manifestType.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("kernel '%s', param '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides '%s'",
					key, name, manifestType.FriendlyName(), goField.field.Name, goFieldType.FriendlyName()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Validate checks that every node can run on target: a kernel is registered
// for its type, supports its precision and binds its attributes. Input and
// Output nodes need no kernel.
func (r *Registry) Validate(ctx context.Context, nodes []*ir.Node, target string) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, n := range nodes {
		if n.Type == ir.OpInput || n.Type == ir.OpOutput {
			continue
		}
		key := Key{OpType: n.Type, Target: target}
		kernel, ok := r.KernelRegistry[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("node '%s': no kernel for op type '%s' on target '%s'", n.Name, n.Type, target))
			continue
		}
		if !kernel.Supports(n.Precision) {
			errs = append(errs, fmt.Sprintf("node '%s': kernel '%s' does not support precision '%s'", n.Name, key, n.Precision))
		}

		failed := false
		if def, ok := r.DefinitionRegistry[key]; ok {
			for _, name := range sortedKeys(def.Params) {
				p := def.Params[name]
				v, has := n.Attrs.Lookup(name)
				if !has {
					if !p.Optional {
						errs = append(errs, fmt.Sprintf("node '%s': missing required attribute '%s'", n.Name, name))
						failed = true
					}
					continue
				}
				if have := attrType(v); !compatible(p.Type, have) {
					errs = append(errs, fmt.Sprintf("node '%s', attribute '%s': manifest requires '%s' but node has '%s'",
						n.Name, name, p.Type.FriendlyName(), have.FriendlyName()))
					failed = true
				}
			}
		}
		if failed {
			continue
		}
		if _, err := kernel.Bind(n.Attrs); err != nil {
			errs = append(errs, fmt.Sprintf("node '%s': %s", n.Name, strings.ReplaceAll(err.Error(), "\n", "; ")))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Nodes validated against registry.", "target", target, "nodes", len(nodes))
	return nil
}

// attrType returns the cty type an attribute value corresponds to. A list
// mixing kinds has no list type and maps to cty.DynamicPseudoType.
func attrType(v attr.Value) cty.Type {
	switch v.Kind() {
	case attr.KindInt, attr.KindFloat:
		return cty.Number
	case attr.KindString:
		return cty.String
	case attr.KindList:
		list, _ := v.AsList()
		if len(list) == 0 {
			return cty.List(cty.DynamicPseudoType)
		}
		elem := attrType(list[0])
		for _, e := range list[1:] {
			if !attrType(e).Equals(elem) {
				return cty.DynamicPseudoType
			}
		}
		return cty.List(elem)
	default:
		return cty.DynamicPseudoType
	}
}

// compatible reports whether a value of type have satisfies a param of type
// want. Booleans are stored as numbers and an empty list fits any list.
func compatible(want, have cty.Type) bool {
	switch {
	case want.Equals(cty.DynamicPseudoType):
		return true
	case want.Equals(have):
		return true
	case want.Equals(cty.Bool) && have.Equals(cty.Number):
		return true
	case want.IsListType() && have.Equals(cty.List(cty.DynamicPseudoType)):
		return true
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDefinitionKeys(m map[Key]*config.KernelDefinition) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
