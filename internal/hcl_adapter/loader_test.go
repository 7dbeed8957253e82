package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/infergraph/internal/config"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

const blockModel = `
graph "resnet_block" {}

var "data" {}

op "conv1" {
  type      = "conv"
  inputs    = ["data"]
  outputs   = ["conv1_out"]
  precision = "int8"
  attrs {
    kernel  = [3, 3]
    epsilon = 0.001
    mode    = "same"
    scales  = [1, 0.5]
    bias    = true
  }
}

op "bn1" {
  type    = "batchnorm"
  inputs  = ["conv1_out"]
  outputs = ["bn1_out"]
}

out "conv1" "bn1" {}

pattern "fused_cb" {
  chain = ["conv", "batchnorm"]
  arity = [0, 1]
}

var_scale "conv1_out" { scale = 0.02 }
weights_scale "conv1" { scales = [0.1, 0.2] }
weights_scale "conv1" {
  scales = [0.3]
  bias   = true
}
layout "conv1" "bn1" { value = "nhwc" }

block "conv1_w" {
  op    = "conv1"
  shape = [2, 1]
  data  = [0.5, 0.25]
}
`

const convKernel = `
kernel "conv" "cpu" {
  description = "Direct convolution."
  precisions  = ["fp32", "int8"]

  param "kernel" {
    type = list(number)
  }
  param "group" {
    type    = number
    default = 1
  }
  param "mode" {
    type     = string
    optional = true
  }
}
`

func TestLoad(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"model.hcl":          blockModel,
		"kernels/conv.hcl":   convKernel,
		"kernels/readme.txt": "not hcl",
	})

	model, conv, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.NotNil(t, model.Graph)

	g := model.Graph
	assert.Equal(t, "resnet_block", g.Name)
	assert.False(t, g.RegisterAllOuts)
	assert.Equal(t, []string{"data"}, g.Vars)
	require.Len(t, g.Ops, 2)

	op := g.Ops[0]
	assert.Equal(t, "conv1", op.Name)
	assert.Equal(t, "conv", op.Type)
	assert.Equal(t, []string{"data"}, op.Inputs)
	assert.Equal(t, []string{"conv1_out"}, op.Outputs)
	assert.Equal(t, "int8", op.Precision)
	assert.Len(t, op.Attrs, 5)
	assert.True(t, op.Attrs["mode"].RawEquals(cty.StringVal("same")))
	assert.Empty(t, g.Ops[1].Attrs)

	assert.Equal(t, []*config.Out{{Bottom: "conv1", Top: "bn1"}}, g.Outs)
	assert.Equal(t, []*config.Pattern{{Name: "fused_cb", Chain: []string{"conv", "batchnorm"}, Arity: []int{0, 1}}}, g.Patterns)
	assert.Equal(t, []*config.VarScale{{Var: "conv1_out", Scale: 0.02}}, g.VarScales)
	assert.Equal(t, []*config.WeightsScale{
		{Op: "conv1", Scales: []float64{0.1, 0.2}},
		{Op: "conv1", Scales: []float64{0.3}, Bias: true},
	}, g.WeightsScales)
	assert.Equal(t, []*config.Layout{{From: "conv1", To: "bn1", Value: "nhwc"}}, g.Layouts)
	assert.Equal(t, []*config.Block{{ID: "conv1_w", Op: "conv1", Shape: []int{2, 1}, Data: []float64{0.5, 0.25}}}, g.Blocks)

	require.Len(t, model.Kernels, 1)
	k := model.Kernels[0]
	assert.Equal(t, "conv", k.OpType)
	assert.Equal(t, "cpu", k.Target)
	assert.Equal(t, "Direct convolution.", k.Description)
	assert.Equal(t, []string{"fp32", "int8"}, k.Precisions)
	require.Len(t, k.Params, 3)
	assert.Equal(t, cty.List(cty.Number), k.Params["kernel"].Type)
	assert.False(t, k.Params["kernel"].Optional)
	require.NotNil(t, k.Params["group"].Default)
	assert.True(t, k.Params["group"].Default.RawEquals(cty.NumberIntVal(1)))
	assert.True(t, k.Params["group"].Optional)
	assert.True(t, k.Params["mode"].Optional)
	assert.Nil(t, k.Params["mode"].Default)
}

func TestLoadMergesFilesInPathOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.hcl": `
graph "net" { register_all_outs = true }
op "first" {
  type    = "conv"
  outputs = ["x"]
}
`,
		"b.hcl": `
graph "net" {}
op "second" {
  type   = "relu"
  inputs = ["x"]
}
`,
		"c.hcl": `
op "third" {
  type   = "pool"
  inputs = ["x"]
}
`,
	})

	loader := &Loader{Concurrency: 1}
	model, _, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, model.Graph)
	assert.Equal(t, "net", model.Graph.Name)
	assert.True(t, model.Graph.RegisterAllOuts)

	var names []string
	for _, op := range model.Graph.Ops {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
}

func TestLoadKernelsOnly(t *testing.T) {
	dir := writeFiles(t, map[string]string{"conv.hcl": convKernel})
	model, _, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Nil(t, model.Graph)
	assert.Len(t, model.Kernels, 1)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"bad.hcl": `op "a" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"bad.hcl": `step "print" "a" {}`},
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "missing op type",
			files:   map[string]string{"bad.hcl": `op "a" {}`},
			wantErr: "failed to decode HCL file",
		},
		{
			name: "two graph names",
			files: map[string]string{
				"a.hcl": `graph "one" {}`,
				"b.hcl": `graph "two" {}`,
			},
			wantErr: `graph is named both "one" and "two"`,
		},
		{
			name:    "arity does not match chain",
			files: map[string]string{"bad.hcl": `
pattern "p" {
  chain = ["conv", "relu"]
  arity = [1]
}`},
			wantErr: "arity has 1 entries for a chain of 2",
		},
		{
			name: "non constant attribute",
			files: map[string]string{"bad.hcl": `
op "a" {
  type = "conv"
  attrs { kernel = var.size }
}`},
			wantErr: `op "a", attribute "kernel"`,
		},
		{
			name: "unsupported param type",
			files: map[string]string{"bad.hcl": `
kernel "conv" "cpu" {
  param "shape" { type = map(number) }
}`},
			wantErr: `param "shape"`,
		},
		{
			name: "default does not match type",
			files: map[string]string{"bad.hcl": `
kernel "conv" "cpu" {
  param "group" {
    type    = number
    default = "one"
  }
}`},
			wantErr: "does not match type number",
		},
		{
			name: "duplicate param",
			files: map[string]string{"bad.hcl": `
kernel "conv" "cpu" {
  param "group" { type = number }
  param "group" { type = number }
}`},
			wantErr: `declares param "group" twice`,
		},
		{
			name:    "no hcl files",
			files:   map[string]string{"notes.txt": "nothing"},
			wantErr: "no .hcl files found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, tt.files)
			_, _, err := NewLoader().Load(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingPath(t *testing.T) {
	_, _, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
