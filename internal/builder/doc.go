/*
Package builder is responsible for the construction of the inference graph. It
acts as the bridge between the static model description (defined in the
'config' package) and the graph compiler (the 'graph' package).

The primary artifact produced by this package is a frozen *graph.Manager,
ready for Optimize.

The graph construction is a multi-phase process:

 1. Declaration: the builder registers the model's fusion patterns, graph
    input variables and ops with their precision and attributes. Attribute
    values are converted from the description format through the
    config.Converter. No edges exist yet.

 2. Registration: registered outputs, variable scales, weight scales and
    weight blocks are recorded. Blocks are handed to the weights registry,
    which owns them; the graph holds one reference on each.

 3. Freeze: the Manager resolves variable names into edges, computes the
    boundary and the first execution order. Cycles, undefined variables and
    duplicate producers are reported here.

 4. Layouts: edge layouts are applied last, as they are keyed by edges that
    only exist after Freeze.

On any error the partially built Manager is cleaned, releasing its weight
blocks, and the error names the declaration that caused it.
*/
package builder
