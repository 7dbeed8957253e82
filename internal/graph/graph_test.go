package graph

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/infergraph/internal/attr"
	"github.com/specialistvlad/infergraph/internal/calib"
	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/weights"
)

type op struct {
	name, typ string
	inputs    []string
}

// newGraph creates an open graph where every op writes "<name>_out" and
// reads the outputs of the listed ops.
func newGraph(t *testing.T, lib *fusion.Library, ops ...op) *Manager {
	t.Helper()
	m := New("net", WithLibrary(lib), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	for _, o := range ops {
		var inputs []string
		for _, in := range o.inputs {
			inputs = append(inputs, in+"_out")
		}
		require.NoError(t, m.AddOp(o.name, o.typ, inputs, []string{o.name + "_out"}))
	}
	return m
}

func library(t *testing.T, patterns ...fusion.Pattern) *fusion.Library {
	t.Helper()
	l, err := fusion.NewLibrary(patterns...)
	require.NoError(t, err)
	return l
}

func cbr() fusion.Pattern {
	return fusion.Chain("fused_cbr", ir.OpConv, ir.OpBatchNorm, ir.OpRelu)
}

// cbrp builds A(conv) -> B(batchnorm) -> C(relu) -> D(pool).
func cbrp(t *testing.T, lib *fusion.Library) *Manager {
	return newGraph(t, lib,
		op{"A", ir.OpConv, nil},
		op{"B", ir.OpBatchNorm, []string{"A"}},
		op{"C", ir.OpRelu, []string{"B"}},
		op{"D", ir.OpPool, []string{"C"}},
	)
}

func edgeIDs(m *Manager) []ir.EdgeID {
	var ids []ir.EdgeID
	for _, e := range m.Graph().Edges() {
		ids = append(ids, e.ID())
	}
	return ids
}

// assertOrdered checks that every edge goes forward in NodesInOrder.
func assertOrdered(t *testing.T, m *Manager) {
	t.Helper()
	index := make(map[string]int)
	for i, name := range m.NodesInOrder() {
		index[name] = i
	}
	g := m.Graph()
	require.Len(t, index, g.Len())
	for _, e := range g.Edges() {
		assert.Less(t, index[e.From], index[e.To], "edge %s goes backwards", e.ID())
	}
}

func TestFuseChainEndToEnd(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, library(t, cbr()))
	require.NoError(t, m.Freeze(ctx))
	assert.Equal(t, Frozen, m.State())
	assert.Equal(t, []string{"A", "B", "C", "D"}, m.NodesInOrder())

	stats, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, Optimized, m.State())
	assert.Equal(t, 1, stats.Fused)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, stats, m.LastStats())

	assert.Equal(t, []string{"fused_cbr", "D"}, m.NodesInOrder())
	assert.Equal(t, []ir.EdgeID{"fused_cbr->D"}, edgeIDs(m))
	require.Len(t, m.Merges(), 1)
	assert.Equal(t, []string{"A", "B", "C"}, m.Merges()[0].Originals)
	assert.Equal(t, "fused_cbr", m.Merges()[0].Pattern)

	n, ok := m.Node("fused_cbr")
	require.True(t, ok)
	assert.Equal(t, "fused_cbr", n.Type)
	assert.Equal(t, []string{"C_out"}, n.Outputs)
	assert.Equal(t, []string{"fused_cbr"}, m.Ins())
	assert.Equal(t, []string{"D"}, m.Outs())
	require.NoError(t, m.Graph().Verify())
}

func TestOptimizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, fusion.DefaultLibrary())
	require.NoError(t, m.Freeze(ctx))
	_, err := m.Optimize(ctx, true)
	require.NoError(t, err)

	nodes, edges, merges, layouts := m.NodesInOrder(), edgeIDs(m), m.Merges(), m.LayoutMap()
	version := m.Graph().Version()

	stats, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, stats.Fused)
	assert.Equal(t, 1, stats.Iterations)
	assert.Equal(t, nodes, m.NodesInOrder())
	assert.Equal(t, edges, edgeIDs(m))
	assert.Equal(t, merges, m.Merges())
	assert.Equal(t, layouts, m.LayoutMap())
	assert.Equal(t, version, m.Graph().Version())
}

func TestRegisteredOutputIsPreserved(t *testing.T) {
	ctx := context.Background()
	lib := library(t, cbr(), fusion.Chain("fused_rp", ir.OpRelu, ir.OpPool))
	m := cbrp(t, lib)
	require.NoError(t, m.RegistOut("A", "B"))
	require.NoError(t, m.Freeze(ctx))

	_, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "fused_rp"}, m.NodesInOrder())
	assert.Equal(t, []ir.EdgeID{"A->B"}, m.Graph().Registered())
	require.Len(t, m.Merges(), 1)
	assert.Equal(t, []string{"C", "D"}, m.Merges()[0].Originals)
}

func TestFanOutBlocksFusion(t *testing.T) {
	ctx := context.Background()
	lib := library(t,
		fusion.Chain("fused_cr", ir.OpConv, ir.OpRelu),
		fusion.Chain("fused_cp", ir.OpConv, ir.OpPool),
	)
	m := newGraph(t, lib,
		op{"A", ir.OpConv, nil},
		op{"B", ir.OpRelu, []string{"A"}},
		op{"X", ir.OpPool, []string{"A"}},
	)
	require.NoError(t, m.Freeze(ctx))

	stats, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, stats.Fused)
	assert.Positive(t, stats.Rejected)
	assert.Equal(t, []string{"A", "B", "X"}, m.NodesInOrder())
	assert.Empty(t, m.Merges())
}

func TestFrozenGraphRejectsAddOp(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, fusion.DefaultLibrary())
	require.NoError(t, m.Freeze(ctx))

	err := m.AddOp("E", ir.OpRelu, []string{"D_out"}, []string{"E_out"})
	require.ErrorIs(t, err, gerr.ErrFrozenViolation)
	_, ok := m.Node("E")
	assert.False(t, ok)
	assert.Len(t, m.NodesInOrder(), 4)

	assert.ErrorIs(t, m.Freeze(ctx), gerr.ErrFrozenViolation)
	assert.ErrorIs(t, m.RegistVar("x"), gerr.ErrFrozenViolation)
	assert.ErrorIs(t, m.RegistOut("A", "B"), gerr.ErrFrozenViolation)
	assert.ErrorIs(t, m.RegistAllOut(), gerr.ErrFrozenViolation)

	// Attributes stay writable.
	require.NoError(t, m.AddOpAttr("A", "group", 2))
	n, _ := m.Node("A")
	v, err := attr.Get[int64](n.Attrs, "group")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestFreezeErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		build   func(t *testing.T) *Manager
		wantErr error
	}{
		{
			name: "undefined variable",
			build: func(t *testing.T) *Manager {
				return newGraph(t, nil, op{"A", ir.OpConv, []string{"missing"}})
			},
			wantErr: gerr.ErrNotFound,
		},
		{
			name: "cycle",
			build: func(t *testing.T) *Manager {
				return newGraph(t, nil,
					op{"A", ir.OpConv, []string{"B"}},
					op{"B", ir.OpRelu, []string{"A"}},
				)
			},
			wantErr: gerr.ErrInvalidGraph,
		},
		{
			name: "self loop",
			build: func(t *testing.T) *Manager {
				return newGraph(t, nil, op{"A", ir.OpConv, []string{"A"}})
			},
			wantErr: gerr.ErrInvalidGraph,
		},
		{
			name: "two producers",
			build: func(t *testing.T) *Manager {
				m := newGraph(t, nil, op{"A", ir.OpConv, nil})
				require.NoError(t, m.AddOp("B", ir.OpConv, nil, []string{"A_out"}))
				return m
			},
			wantErr: gerr.ErrInvalidGraph,
		},
		{
			name: "registered edge does not exist",
			build: func(t *testing.T) *Manager {
				m := newGraph(t, nil, op{"A", ir.OpConv, nil}, op{"B", ir.OpRelu, nil})
				require.NoError(t, m.RegistOut("A", "B"))
				return m
			},
			wantErr: gerr.ErrNotFound,
		},
		{
			name: "scaled variable is never read",
			build: func(t *testing.T) *Manager {
				m := newGraph(t, nil, op{"A", ir.OpConv, nil})
				require.NoError(t, m.SetVarScale("nowhere", 0.5))
				return m
			},
			wantErr: gerr.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.build(t)
			before := m.NodesInOrder()

			err := m.Freeze(ctx)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, Open, m.State())
			assert.Equal(t, before, m.NodesInOrder())
			assert.Zero(t, m.Graph().EdgeLen())
		})
	}
}

func TestFreezeResolvesVariables(t *testing.T) {
	ctx := context.Background()
	m := newGraph(t, nil)
	require.NoError(t, m.RegistVar("data"))
	assert.ErrorIs(t, m.RegistVar("data"), gerr.ErrAlreadyExists)
	require.NoError(t, m.AddOp("conv1", ir.OpConv, []string{"data"}, []string{"c1"}))
	require.NoError(t, m.AddOp("relu1", ir.OpRelu, []string{"c1"}, []string{"r1"}))
	require.NoError(t, m.AddOp("pool1", ir.OpPool, []string{"c1"}, []string{"p1"}))
	require.NoError(t, m.SetVarScale("c1", 0.25))

	require.NoError(t, m.Freeze(ctx))
	assert.Equal(t, []string{"conv1", "relu1", "pool1", "data"}, m.Graph().Vertices())
	assert.Equal(t, []string{"data", "conv1", "relu1", "pool1"}, m.NodesInOrder())
	assert.Equal(t, []string{"data"}, m.Ins())
	assert.Equal(t, []string{"relu1", "pool1"}, m.Outs())

	input, ok := m.Node("data")
	require.True(t, ok)
	assert.Equal(t, ir.OpInput, input.Type)

	e, ok := m.Graph().Edge("data", "conv1")
	require.True(t, ok)
	assert.Equal(t, "data", e.Var)

	scales := m.ScaleMap()
	assert.Len(t, scales, 2)
	assert.Equal(t, []float32{0.25}, scales["conv1->relu1"].Values)
	assert.Equal(t, []float32{0.25}, scales["conv1->pool1"].Values)

	// After Freeze a scale lands immediately.
	require.NoError(t, m.SetVarScale("data", 0.5))
	assert.Equal(t, []float32{0.5}, m.ScaleMap()["data->conv1"].Values)
	assert.ErrorIs(t, m.SetVarScale("missing", 1), gerr.ErrNotFound)
}

func TestRegistAllOutBlocksEveryFusion(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, fusion.DefaultLibrary())
	require.NoError(t, m.RegistAllOut())
	require.NoError(t, m.Freeze(ctx))
	assert.Len(t, m.Graph().Registered(), 3)

	stats, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, stats.Fused)
	assert.Equal(t, []string{"A", "B", "C", "D"}, m.NodesInOrder())
}

func TestOptimizeRequiresFreeze(t *testing.T) {
	m := cbrp(t, fusion.DefaultLibrary())
	_, err := m.Optimize(context.Background(), true)
	assert.ErrorIs(t, err, gerr.ErrInvalidGraph)
	assert.Equal(t, Open, m.State())
}

func TestOptimizeWithoutFusion(t *testing.T) {
	ctx := context.Background()
	m := newGraph(t, fusion.DefaultLibrary(),
		op{"A", ir.OpConv, nil},
		op{"B", ir.OpDropout, []string{"A"}},
		op{"C", ir.OpDense, []string{"B"}},
		op{"D", ir.OpSoftmax, []string{"C"}},
	)
	require.NoError(t, m.Freeze(ctx))
	require.NoError(t, m.AddOpAttr("A", fusion.LayoutAttr, "channels_last"))

	stats, err := m.Optimize(ctx, false)
	require.NoError(t, err)
	assert.NotEmpty(t, stats.RunID)
	assert.Zero(t, stats.Iterations)
	assert.Equal(t, Frozen, m.State(), "normalization alone does not optimize")
	assert.False(t, m.Graph().Optimized())
	assert.Equal(t, []string{"A", "B", "C", "D"}, m.NodesInOrder())
	assert.Empty(t, m.Merges())

	assert.Equal(t, map[ir.EdgeID]calib.Layout{
		"A->B": calib.NHWC,
		"B->C": calib.NCHW,
		"C->D": calib.NC,
	}, m.LayoutMap())

	n, _ := m.Node("A")
	l, err := attr.Get[string](n.Attrs, fusion.LayoutAttr)
	require.NoError(t, err)
	assert.Equal(t, "NHWC", l)

	_, err = m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, Optimized, m.State())
	_, err = m.Optimize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, Optimized, m.State(), "a later normalization keeps the optimized state")
}

func TestElisionInFusionMode(t *testing.T) {
	ctx := context.Background()
	m := newGraph(t, library(t, fusion.Chain("fused_cr", ir.OpConv, ir.OpRelu)),
		op{"A", ir.OpConv, nil},
		op{"B", ir.OpIdentity, []string{"A"}},
		op{"C", ir.OpRelu, []string{"B"}},
	)
	require.NoError(t, m.Freeze(ctx))

	stats, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, stats.Fused)
	assert.Equal(t, []string{"fused_cr"}, m.NodesInOrder())
}

func TestElisionKeepsRegisteredOutput(t *testing.T) {
	ctx := context.Background()
	m := newGraph(t, fusion.DefaultLibrary(),
		op{"A", ir.OpConv, nil},
		op{"I", ir.OpIdentity, []string{"A"}},
		op{"D", ir.OpPool, []string{"I"}},
	)
	require.NoError(t, m.RegistOut("I", "D"))
	require.NoError(t, m.Freeze(ctx))

	stats, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, stats.Dropped)
	assert.Equal(t, []string{"A", "I", "D"}, m.NodesInOrder())
	assert.Equal(t, []ir.EdgeID{"I->D"}, m.Graph().Registered())
	assert.Empty(t, m.Merges())
}

func TestIterationLimitLeavesGraphUntouched(t *testing.T) {
	ctx := context.Background()
	m := New("net", WithLibrary(library(t, cbr())), WithMaxIterations(1))
	for _, o := range []op{
		{"A", ir.OpConv, nil},
		{"B", ir.OpBatchNorm, []string{"A"}},
		{"C", ir.OpRelu, []string{"B"}},
	} {
		var inputs []string
		for _, in := range o.inputs {
			inputs = append(inputs, in+"_out")
		}
		require.NoError(t, m.AddOp(o.name, o.typ, inputs, []string{o.name + "_out"}))
	}
	require.NoError(t, m.Freeze(ctx))

	_, err := m.Optimize(ctx, true)
	require.ErrorIs(t, err, gerr.ErrIterationLimit)
	assert.Equal(t, Frozen, m.State())
	assert.Equal(t, []string{"A", "B", "C"}, m.NodesInOrder())
	assert.Empty(t, m.Merges())
}

func TestCalibrationFollowsFusion(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, library(t, cbr()))
	require.NoError(t, m.SetWeightsScale("A", []float32{0.1, 0.2}, false))
	require.NoError(t, m.SetWeightsScale("A", []float32{0.3}, true))
	assert.ErrorIs(t, m.SetWeightsScale("missing", []float32{1}, false), gerr.ErrNotFound)
	assert.ErrorIs(t, m.SetWeightsScale("A", nil, false), gerr.ErrSizeMismatch)
	require.NoError(t, m.Freeze(ctx))

	require.NoError(t, m.SetLayout("C", "D", "nhwc"))
	require.NoError(t, m.SetLayout("A", "B", "NCHW"))
	assert.ErrorIs(t, m.SetLayout("A", "D", "NCHW"), gerr.ErrNotFound)
	assert.ErrorIs(t, m.SetLayout("A", "B", "diagonal"), gerr.ErrTypeMismatch)

	_, err := m.Optimize(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, map[ir.EdgeID]calib.Layout{"fused_cbr->D": calib.NHWC}, m.LayoutMap())
	scales := m.ScaleMap()
	assert.Equal(t, []float32{0.1, 0.2}, scales["A#weights"].Values)
	assert.True(t, scales["A#bias"].IsBias)
}

func TestSetOpPrecision(t *testing.T) {
	m := cbrp(t, nil)
	require.NoError(t, m.SetOpPrecision("A", "INT8"))
	n, _ := m.Node("A")
	assert.Equal(t, ir.INT8, n.Precision)

	assert.ErrorIs(t, m.SetOpPrecision("A", "fp64"), gerr.ErrTypeMismatch)
	assert.ErrorIs(t, m.SetOpPrecision("missing", "fp16"), gerr.ErrNotFound)
	assert.ErrorIs(t, m.AddOpAttr("missing", "k", 1), gerr.ErrNotFound)
}

func TestAttributesOfFusedOps(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, library(t, cbr()))
	require.NoError(t, m.AddOpAttr("A", "kernel", []int64{3, 3}))
	require.NoError(t, m.AddOpAttr("B", "epsilon", 0.001))
	require.NoError(t, m.Freeze(ctx))
	_, err := m.Optimize(ctx, true)
	require.NoError(t, err)

	n, ok := m.Node("fused_cbr")
	require.True(t, ok)
	kernel, err := attr.Get[[]int64](n.Attrs, "A.kernel")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 3}, kernel)
	eps, err := attr.Get[float64](n.Attrs, "B.epsilon")
	require.NoError(t, err)
	assert.InDelta(t, 0.001, eps, 1e-9)

	assert.ErrorIs(t, m.AddOpAttr("A", "kernel", 1), gerr.ErrNotFound)
}

func TestCopyFrom(t *testing.T) {
	ctx := context.Background()
	src := cbrp(t, fusion.DefaultLibrary())
	require.NoError(t, src.AddOpAttr("A", "kernel", 3))
	require.NoError(t, src.Freeze(ctx))
	require.NoError(t, src.SetLayout("A", "B", "NCHW"))

	dst := New("copy")
	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, Frozen, dst.State())
	assert.Equal(t, src.NodesInOrder(), dst.NodesInOrder())
	assert.Equal(t, edgeIDs(src), edgeIDs(dst))
	assert.Equal(t, src.LayoutMap(), dst.LayoutMap())
	for _, name := range src.NodesInOrder() {
		a, _ := src.Node(name)
		b, _ := dst.Node(name)
		assert.True(t, a.Equal(b), "node %s differs", name)
	}

	require.NoError(t, dst.AddOpAttr("A", "kernel", 5))
	n, _ := src.Node("A")
	kernel, err := attr.Get[int64](n.Attrs, "kernel")
	require.NoError(t, err)
	assert.Equal(t, int64(3), kernel)

	_, err = dst.Optimize(ctx, true)
	require.NoError(t, err)
	assert.Len(t, src.NodesInOrder(), 4)
	assert.Empty(t, src.Merges())
	assert.Equal(t, Frozen, src.State())

	require.NoError(t, dst.RegisterPattern(fusion.Chain("local", ir.OpPool, ir.OpRelu)))
	assert.Equal(t, src.lib.Len()+1, dst.lib.Len())

	assert.NoError(t, dst.CopyFrom(dst))
	assert.ErrorIs(t, dst.CopyFrom(nil), gerr.ErrInvalidGraph)
}

func TestWeightBlocks(t *testing.T) {
	ctx := context.Background()
	reg := weights.NewRegistry()
	b, err := weights.NewBlock("w1", "A", []int{2}, []float32{1, 2})
	require.NoError(t, err)
	require.NoError(t, reg.Register(b))

	m := cbrp(t, library(t, cbr()))
	require.NoError(t, m.RegistBlock(b))
	assert.ErrorIs(t, m.RegistBlock(b), gerr.ErrAlreadyExists)
	assert.ErrorIs(t, m.RegistBlock(nil), gerr.ErrInvalidGraph)
	orphan, err := weights.NewBlock("w2", "missing", []int{1}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.RegistBlock(orphan), gerr.ErrNotFound)
	assert.Equal(t, 1, b.Refs())

	require.NoError(t, m.Freeze(ctx))
	_, err = m.Optimize(ctx, true)
	require.NoError(t, err)

	// A block of a fused op can still be registered.
	late, err := weights.NewBlock("w3", "B", []int{1}, []float32{1})
	require.NoError(t, err)
	require.NoError(t, m.RegistBlock(late))
	assert.Equal(t, []string{"w1", "w3"}, m.Blocks())

	cp := New("copy")
	require.NoError(t, cp.CopyFrom(m))
	assert.Equal(t, 2, b.Refs())

	m.Clean()
	assert.Equal(t, 1, b.Refs())
	assert.Equal(t, 1, reg.Len())

	cp.Clean()
	assert.Zero(t, b.Refs())
	assert.Zero(t, reg.Len())
}

func TestClean(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, fusion.DefaultLibrary())
	require.NoError(t, m.SetWeightsScale("A", []float32{1}, false))
	require.NoError(t, m.Freeze(ctx))
	_, err := m.Optimize(ctx, true)
	require.NoError(t, err)

	m.Clean()
	assert.Equal(t, Open, m.State())
	assert.Equal(t, "net", m.Name())
	assert.Empty(t, m.NodesInOrder())
	assert.Empty(t, m.ScaleMap())
	assert.Empty(t, m.Merges())

	require.NoError(t, m.AddOp("A", ir.OpConv, nil, []string{"a"}))
	require.NoError(t, m.Freeze(ctx))
	assert.Equal(t, []string{"A"}, m.NodesInOrder())
}

func TestOrderRespectsEdges(t *testing.T) {
	ctx := context.Background()
	// Declared out of dependency order, with a diamond and a side branch.
	m := newGraph(t, fusion.DefaultLibrary(),
		op{"join", ir.OpEltwise, []string{"left_relu", "right"}},
		op{"left_relu", ir.OpRelu, []string{"left"}},
		op{"left", ir.OpConv, []string{"stem"}},
		op{"right", ir.OpConv, []string{"stem"}},
		op{"stem", ir.OpConv, nil},
		op{"head", ir.OpRelu, []string{"join"}},
		op{"aux", ir.OpPool, []string{"stem"}},
	)
	require.NoError(t, m.Freeze(ctx))
	assertOrdered(t, m)

	_, err := m.Optimize(ctx, true)
	require.NoError(t, err)
	assertOrdered(t, m)
	require.NoError(t, m.Graph().Verify())

	// conv -> relu and eltwise -> relu fuse; stem fans out and stays.
	assert.ElementsMatch(t, []string{"stem", "fused_cr", "right", "aux", "fused_er"}, m.NodesInOrder())
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := cbrp(t, fusion.DefaultLibrary())
	require.NoError(t, m.Freeze(ctx))

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Optimize(ctx, true)
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				order := m.NodesInOrder()
				assert.NotEmpty(t, order)
				_ = m.ScaleMap()
				_ = m.LayoutMap()
				_ = m.Merges()
				g := m.Graph()
				assert.NoError(t, g.Verify())
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"fused_cbr", "D"}, m.NodesInOrder())
	require.Len(t, m.Merges(), 1)
}

func TestPatternsDuringCopyFrom(t *testing.T) {
	src := cbrp(t, fusion.DefaultLibrary())
	dst := New("copy")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			assert.NoError(t, dst.CopyFrom(src))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = dst.RegisterPattern(fusion.Chain("local", ir.OpPool, ir.OpRelu))
			assert.NotEmpty(t, dst.Patterns())
		}
	}()
	wg.Wait()

	assert.Equal(t, fusion.DefaultLibrary().Len(), src.library().Len())
}

func TestLogging(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	m := New("net", WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	require.NoError(t, m.AddOp("A", ir.OpConv, nil, []string{"a"}))
	require.NoError(t, m.AddOp("B", ir.OpRelu, []string{"a"}, []string{"b"}))
	require.NoError(t, m.Freeze(ctx))
	stats, err := m.Optimize(ctx, true)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="Graph frozen."`)
	assert.Contains(t, out, `msg="Graph optimized."`)
	assert.Contains(t, out, "run_id="+stats.RunID)
	assert.Contains(t, out, "graph=net")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "frozen", Frozen.String())
	assert.Equal(t, "optimized", Optimized.String())
	assert.Equal(t, "unknown", State(42).String())
}
