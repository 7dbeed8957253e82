// Package config defines the format-agnostic description of a model graph
// and of kernel manifests, along with the interfaces (Loader, Converter) for
// reading them from a concrete format.
//
// The `config.Model` is the single source of truth for the `builder` and
// `registry` packages. Concrete implementations of the interfaces, such as
// for HCL, are provided in separate packages.
package config
