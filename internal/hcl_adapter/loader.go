package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/infergraph/internal/config"
	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Concurrency caps the number of files parsed at once. Zero or less
	// means no limit.
	Concurrency int
}

// NewLoader creates a new HCL model loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths concurrently, then translates the
// files in path order so that the resulting model does not depend on
// scheduling.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	files, err := l.parseAll(ctx, hclFiles)
	if err != nil {
		return nil, nil, err
	}

	model := &config.Model{}
	for i, file := range files {
		var root fileRoot
		if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", hclFiles[i], diags)
		}
		if err := l.merge(ctx, model, &root, hclFiles[i]); err != nil {
			return nil, nil, err
		}
	}

	if model.Graph != nil {
		logger.Debug("HCL loading complete.",
			"graph", model.Graph.Name, "ops", len(model.Graph.Ops), "vars", len(model.Graph.Vars), "kernels", len(model.Kernels))
	} else {
		logger.Debug("HCL loading complete.", "kernels", len(model.Kernels))
	}
	return model, NewConverter(), nil
}

// parseAll parses the files in parallel. Each goroutine owns its parser, as
// hclparse.Parser caches files in an unguarded map.
func (l *Loader) parseAll(ctx context.Context, paths []string) ([]*hcl.File, error) {
	files := make([]*hcl.File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if l.Concurrency > 0 {
		g.SetLimit(l.Concurrency)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, diags := hclparse.NewParser().ParseHCLFile(path)
			if diags.HasErrors() {
				return fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
			}
			files[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// merge translates the blocks of one file into model.
func (l *Loader) merge(ctx context.Context, model *config.Model, root *fileRoot, filename string) error {
	for _, k := range root.Kernels {
		def, err := translateKernelDefinition(ctx, k)
		if err != nil {
			return fmt.Errorf("in %s: %w", filename, err)
		}
		model.Kernels = append(model.Kernels, def)
	}

	if !root.declaresGraph() {
		return nil
	}
	if model.Graph == nil {
		model.Graph = &config.Graph{}
	}
	if err := translateGraph(ctx, model.Graph, root); err != nil {
		return fmt.Errorf("in %s: %w", filename, err)
	}
	return nil
}

func (r *fileRoot) declaresGraph() bool {
	return len(r.Graphs)+len(r.Vars)+len(r.Ops)+len(r.Outs)+len(r.Patterns)+
		len(r.VarScales)+len(r.WeightsScales)+len(r.Layouts)+len(r.Blocks) > 0
}
