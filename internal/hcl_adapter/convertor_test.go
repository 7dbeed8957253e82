package hcl_adapter

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/infergraph/internal/attr"
)

func TestToAttr(t *testing.T) {
	c := NewConverter()
	tests := []struct {
		name string
		in   cty.Value
		want attr.Value
	}{
		{"string", cty.StringVal("same"), attr.String("same")},
		{"whole number", cty.NumberIntVal(3), attr.Int(3)},
		{"fraction", cty.NumberFloatVal(0.25), attr.Float(0.25)},
		{"true", cty.True, attr.Int(1)},
		{"false", cty.False, attr.Int(0)},
		{"int tuple", cty.TupleVal([]cty.Value{cty.NumberIntVal(3), cty.NumberIntVal(3)}), attr.Ints(3, 3)},
		{"mixed numbers widen", cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberFloatVal(0.5)}), attr.Floats(1, 0.5)},
		{"string list", cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}), attr.Strings("a", "b")},
		{"mixed kinds", cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)}), attr.List(attr.String("a"), attr.Int(1))},
		{"empty", cty.EmptyTupleVal, attr.List()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ToAttr(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	t.Run("rejects null", func(t *testing.T) {
		_, err := c.ToAttr(cty.NullVal(cty.String))
		assert.Error(t, err)
	})
	t.Run("rejects objects", func(t *testing.T) {
		_, err := c.ToAttr(cty.ObjectVal(map[string]cty.Value{"a": cty.True}))
		assert.Error(t, err)
	})
}

func TestToCtyValue(t *testing.T) {
	c := NewConverter()
	v, err := c.ToCtyValue([]int64{1, 2})
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)})))

	v, err = c.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, v)
}

func TestTypeExprToCtyType(t *testing.T) {
	tests := []struct {
		src     string
		want    cty.Type
		wantErr bool
	}{
		{src: "string", want: cty.String},
		{src: "number", want: cty.Number},
		{src: "bool", want: cty.Bool},
		{src: "any", want: cty.DynamicPseudoType},
		{src: "list(number)", want: cty.List(cty.Number)},
		{src: "list(string)", want: cty.List(cty.String)},
		{src: "list(any)", wantErr: true},
		{src: "list(bool)", wantErr: true},
		{src: "map(number)", wantErr: true},
		{src: "object({a = number})", wantErr: true},
		{src: "tensor", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, diags := hclsyntax.ParseExpression([]byte(tt.src), "test.hcl", hcl.InitialPos)
			require.False(t, diags.HasErrors())

			got, err := typeExprToCtyType(context.Background(), expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equals(got), "want %s, got %s", tt.want.FriendlyName(), got.FriendlyName())
		})
	}

	t.Run("nil means any", func(t *testing.T) {
		got, err := typeExprToCtyType(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, cty.DynamicPseudoType, got)
	})
}
