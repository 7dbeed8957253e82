package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/infergraph/internal/attr"
)

// Loader is the interface for a format-specific model loader.
type Loader interface {
	// Load reads every model and manifest file under paths, translates them
	// into the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter bridges configuration values and the attribute values stored on
// graph nodes.
type Converter interface {
	// ToAttr converts a configuration value into an attribute value.
	ToAttr(v cty.Value) (attr.Value, error)

	// ToCtyValue converts a native Go value into its cty.Value equivalent.
	ToCtyValue(v any) (cty.Value, error)
}
