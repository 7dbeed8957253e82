package hcl_adapter

import (
	"context"

	"github.com/hashicorp/hcl/v2"

	"github.com/specialistvlad/infergraph/internal/ctxlog"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional expression fields with
// zero-width placeholder expressions, so a nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	isDefined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName, "hcl_range", r.String(), "is_defined", isDefined)
	return isDefined
}

// bodyAttributes returns the attribute expressions of an attrs block. Nested
// blocks are not allowed.
func bodyAttributes(block *AttrsBlock) (map[string]hcl.Expression, hcl.Diagnostics) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	exprs := make(map[string]hcl.Expression, len(attrs))
	for name, a := range attrs {
		exprs[name] = a.Expr
	}
	return exprs, nil
}
