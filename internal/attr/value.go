// Package attr implements the typed per-node attribute store.
//
// Values are a tagged sum of int, float, string and ordered lists of values.
// Reads name the expected type and fail with a TypeMismatch error when the
// stored tag differs; nothing is ever coerced across kinds.
package attr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	// Invalid is the zero Kind.
	Invalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindList
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a single attribute value.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	list []Value
}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// List returns an ordered list of values.
func List(vs ...Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: KindList, list: cp}
}

// Ints returns a list of integer values.
func Ints(vs ...int64) Value {
	list := make([]Value, len(vs))
	for i, v := range vs {
		list[i] = Int(v)
	}
	return Value{kind: KindList, list: list}
}

// Floats returns a list of float values.
func Floats(vs ...float64) Value {
	list := make([]Value, len(vs))
	for i, v := range vs {
		list[i] = Float(v)
	}
	return Value{kind: KindList, list: list}
}

// Strings returns a list of string values.
func Strings(vs ...string) Value {
	list := make([]Value, len(vs))
	for i, v := range vs {
		list[i] = String(v)
	}
	return Value{kind: KindList, list: list}
}

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != Invalid }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, mismatch(KindInt, v)
	}
	return v.i, nil
}

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, mismatch(KindFloat, v)
	}
	return v.f, nil
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", mismatch(KindString, v)
	}
	return v.s, nil
}

// AsList returns a copy of the list held by v.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, mismatch(KindList, v)
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, nil
}

// AsInts returns the list held by v when every element is an int.
func (v Value) AsInts() ([]int64, error) {
	return listOf(v, KindInt, func(e Value) int64 { return e.i })
}

// AsFloats returns the list held by v when every element is a float.
func (v Value) AsFloats() ([]float64, error) {
	return listOf(v, KindFloat, func(e Value) float64 { return e.f })
}

// AsStrings returns the list held by v when every element is a string.
func (v Value) AsStrings() ([]string, error) {
	return listOf(v, KindString, func(e Value) string { return e.s })
}

func listOf[T any](v Value, elem Kind, get func(Value) T) ([]T, error) {
	if v.kind != KindList {
		return nil, gerr.New(gerr.TypeMismatch, "want list(%s), have %s", elem, v.kind)
	}
	out := make([]T, len(v.list))
	for i, e := range v.list {
		if e.kind != elem {
			return nil, gerr.New(gerr.TypeMismatch, "want list(%s), element %d is %s", elem, i, e.kind)
		}
		out[i] = get(e)
	}
	return out, nil
}

// Equal reports whether v and o hold the same tag and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// clone returns a deep copy of v.
func (v Value) clone() Value {
	if v.kind != KindList {
		return v
	}
	list := make([]Value, len(v.list))
	for i, e := range v.list {
		list[i] = e.clone()
	}
	return Value{kind: KindList, list: list}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

func mismatch(want Kind, have Value) error {
	return gerr.New(gerr.TypeMismatch, "want %s, have %s", want, have.kind)
}

// Of converts a native Go value into a Value of the matching kind.
// Integer types map to KindInt, float types to KindFloat; no conversion
// crosses kinds.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x.clone(), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint32:
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case bool:
		// Booleans are stored as 0/1 integers, as the model formats do.
		if x {
			return Int(1), nil
		}
		return Int(0), nil
	case []int:
		out := make([]int64, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return Ints(out...), nil
	case []int64:
		return Ints(x...), nil
	case []float32:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return Floats(out...), nil
	case []float64:
		return Floats(x...), nil
	case []string:
		return Strings(x...), nil
	case []Value:
		return List(x...), nil
	default:
		return Value{}, gerr.New(gerr.TypeMismatch, "unsupported attribute type %T", v)
	}
}

// MustOf is like Of but panics on unsupported types. It is meant for
// literals in tests and static tables.
func MustOf(v any) Value {
	val, err := Of(v)
	if err != nil {
		panic(fmt.Sprintf("attr.MustOf: %v", err))
	}
	return val
}
