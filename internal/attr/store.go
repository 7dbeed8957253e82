package attr

import (
	"sort"

	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Store maps attribute names to values. The zero value is ready to use.
// A Store is not safe for concurrent mutation; the owning graph serializes
// writers.
type Store struct {
	values map[string]Value
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]Value)}
}

// Set stores v under name, replacing any previous value.
func (s *Store) Set(name string, v Value) error {
	if name == "" {
		return gerr.New(gerr.InvalidGraph, "attribute name must not be empty")
	}
	if !v.IsValid() {
		return gerr.New(gerr.TypeMismatch, "attribute %q: value has no type", name)
	}
	if s.values == nil {
		s.values = make(map[string]Value)
	}
	s.values[name] = v.clone()
	return nil
}

// Lookup returns the raw value stored under name.
func (s *Store) Lookup(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is set.
func (s *Store) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Delete removes name from the store.
func (s *Store) Delete(name string) {
	if s != nil {
		delete(s.values, name)
	}
}

// Len returns the number of attributes.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Keys returns the attribute names in sorted order.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of s.
func (s *Store) Clone() *Store {
	c := NewStore()
	if s == nil {
		return c
	}
	for k, v := range s.values {
		c.values[k] = v.clone()
	}
	return c
}

// Equal reports whether s and o hold the same names and values.
func (s *Store) Equal(o *Store) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, k := range s.Keys() {
		ov, ok := o.Lookup(k)
		if !ok || !s.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

// MergeQualified copies every attribute of other into s as "prefix.name".
// An empty prefix copies names unchanged. Existing names are kept and
// reported as AlreadyExists.
func (s *Store) MergeQualified(prefix string, other *Store) error {
	for _, k := range other.Keys() {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if s.Has(name) {
			return gerr.New(gerr.AlreadyExists, "attribute %q already set", name)
		}
		if err := s.Set(name, other.values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Type is the set of Go types an attribute can be read as.
type Type interface {
	int64 | float64 | string | []int64 | []float64 | []string | []Value
}

// Get reads name from s as T. It fails with NotFound when the attribute is
// missing and TypeMismatch when the stored tag does not match T.
func Get[T Type](s *Store, name string) (T, error) {
	var zero T
	v, ok := s.Lookup(name)
	if !ok {
		return zero, gerr.New(gerr.NotFound, "attribute %q is not set", name)
	}

	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case int64:
		out, err = v.AsInt()
	case float64:
		out, err = v.AsFloat()
	case string:
		out, err = v.AsString()
	case []int64:
		out, err = v.AsInts()
	case []float64:
		out, err = v.AsFloats()
	case []string:
		out, err = v.AsStrings()
	case []Value:
		out, err = v.AsList()
	}
	if err != nil {
		return zero, gerr.Wrap(gerr.TypeMismatch, err, "attribute %q", name)
	}
	return out.(T), nil
}

// GetOr reads name as T and returns def when it is missing. A present value
// of the wrong type is still an error.
func GetOr[T Type](s *Store, name string, def T) (T, error) {
	if !s.Has(name) {
		return def, nil
	}
	return Get[T](s, name)
}
