package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/infergraph/internal/config"
	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/registry"
	"github.com/specialistvlad/infergraph/internal/weights"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	cfg       *Config
	registry  *registry.Registry
	weights   *weights.Registry
	model     *config.Model
	converter config.Converter
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Load and registry validation failures are fatal startup errors and panic.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Merge all configuration paths into a single collection for the loader.
	var paths []string
	if cfg.ModelPath != "" {
		paths = append(paths, cfg.ModelPath)
	}
	if cfg.KernelsPath != "" {
		paths = append(paths, cfg.KernelsPath)
	}

	model, converter, err := loader.Load(ctx, paths...)
	if err != nil {
		panic(fmt.Errorf("failed to load model: %w", err))
	}
	logger.Debug("Model loaded and translated into unified model.", "kernels", len(model.Kernels))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "kernels", len(reg.KernelRegistry))

	reg.PopulateDefinitionsFromModel(model)
	if err := reg.ValidateRegistry(ctx); err != nil {
		// A mismatch between Go code and manifests is a programmer error.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:      outW,
		logger:    logger,
		cfg:       cfg,
		registry:  reg,
		weights:   weights.NewRegistry(),
		model:     model,
		converter: converter,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Weights returns the application's weight block registry.
func (a *App) Weights() *weights.Registry {
	return a.weights
}
