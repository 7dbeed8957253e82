package hcl_adapter

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/specialistvlad/infergraph/internal/attr"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// ToAttr converts a known, non-null cty.Value into an attribute value.
// Whole numbers become ints and other numbers floats; booleans become 0 or 1.
// A list of numbers holding at least one fraction becomes a float list.
func (c *Converter) ToAttr(v cty.Value) (attr.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return attr.Value{}, fmt.Errorf("value is null or unknown")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return attr.String(v.AsString()), nil

	case ty == cty.Number:
		var i int64
		if err := gocty.FromCtyValue(v, &i); err == nil {
			return attr.Int(i), nil
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return attr.Value{}, fmt.Errorf("could not convert cty.Number to float64: %w", err)
		}
		return attr.Float(f), nil

	case ty == cty.Bool:
		return attr.Of(v.True())

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		elems := make([]attr.Value, 0, v.LengthInt())
		it := v.ElementIterator()
		for i := 0; it.Next(); i++ {
			_, ev := it.Element()
			a, err := c.ToAttr(ev)
			if err != nil {
				return attr.Value{}, fmt.Errorf("in element %d: %w", i, err)
			}
			elems = append(elems, a)
		}
		return widen(elems), nil

	default:
		return attr.Value{}, fmt.Errorf("unsupported cty type for an attribute: %s", ty.FriendlyName())
	}
}

// widen turns a mix of int and float elements into a float list.
func widen(elems []attr.Value) attr.Value {
	hasFloat := false
	for _, e := range elems {
		switch e.Kind() {
		case attr.KindFloat:
			hasFloat = true
		case attr.KindInt:
		default:
			return attr.List(elems...)
		}
	}
	if !hasFloat {
		return attr.List(elems...)
	}
	fs := make([]float64, len(elems))
	for i, e := range elems {
		if e.Kind() == attr.KindInt {
			n, _ := e.AsInt()
			fs[i] = float64(n)
			continue
		}
		fs[i], _ = e.AsFloat()
	}
	return attr.Floats(fs...)
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
