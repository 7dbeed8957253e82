package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/infergraph/internal/attr"
	"github.com/specialistvlad/infergraph/internal/gerr"
)

// paramField is one tagged field of a params struct.
type paramField struct {
	name     string
	index    int
	optional bool
	field    reflect.StructField
}

// paramFields returns the exported fields of t carrying an `attr` tag, in
// declaration order. The tag is "name" or "name,optional"; "-" skips the
// field.
func paramFields(t reflect.Type) []paramField {
	var out []paramField
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		parts := strings.Split(field.Tag.Get("attr"), ",")
		name := parts[0]
		if name == "" || name == "-" {
			continue
		}
		pf := paramField{name: name, index: i, field: field}
		for _, opt := range parts[1:] {
			if opt == "optional" {
				pf.optional = true
			}
		}
		out = append(out, pf)
	}
	return out
}

// Bind decodes attrs into a new value of the kernel's params type and
// returns a pointer to it. Every problem is reported, not just the first.
func (k *Kernel) Bind(attrs *attr.Store) (any, error) {
	if k.Params == nil {
		return nil, nil
	}
	ptr := reflect.New(k.Params)
	var errs []error
	for _, f := range paramFields(k.Params) {
		v, ok := attrs.Lookup(f.name)
		if !ok {
			if !f.optional {
				errs = append(errs, gerr.New(gerr.NotFound, "required attribute %q is not set", f.name))
			}
			continue
		}
		if err := assign(ptr.Elem().Field(f.index), v); err != nil {
			errs = append(errs, gerr.Wrap(gerr.TypeMismatch, err, "attribute %q", f.name))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ptr.Interface(), nil
}

// assign stores v into dst. Ints widen to floats and booleans read the 0/1
// integer encoding.
func assign(dst reflect.Value, v attr.Value) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		i, err := v.AsInt()
		if err != nil {
			return err
		}
		dst.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := number(v)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case reflect.String:
		s, err := v.AsString()
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Bool:
		i, err := v.AsInt()
		if err != nil {
			return err
		}
		dst.SetBool(i != 0)
	case reflect.Slice:
		list, err := v.AsList()
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(dst.Type(), len(list), len(list))
		for i, e := range list {
			if err := assign(out.Index(i), e); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		dst.Set(out)
	default:
		return fmt.Errorf("unsupported params field type %s", dst.Type())
	}
	return nil
}

func number(v attr.Value) (float64, error) {
	if v.Kind() == attr.KindInt {
		i, _ := v.AsInt()
		return float64(i), nil
	}
	return v.AsFloat()
}
