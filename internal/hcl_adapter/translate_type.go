// This file contains the logic for parsing HCL type expressions (e.g., `string`,
// `list(number)`) into the cty.Type of a kernel param.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/infergraph/internal/ctxlog"
)

// typeExprToCtyType converts an HCL type expression into its cty.Type
// equivalent. Only the shapes an attribute can take are accepted: string,
// number, bool, list(number), list(string) and any.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Type expression is nil, defaulting to any.")
		return cty.DynamicPseudoType, nil
	}

	ty, diags := typeexpr.TypeConstraint(expr)
	if diags.HasErrors() {
		return cty.DynamicPseudoType, fmt.Errorf("invalid type expression: %w", diags)
	}

	switch {
	case ty == cty.String, ty == cty.Number, ty == cty.Bool, ty == cty.DynamicPseudoType:
	case ty.IsListType():
		elem := ty.ElementType()
		if elem == cty.DynamicPseudoType {
			return cty.DynamicPseudoType, fmt.Errorf("collection types cannot contain type 'any'")
		}
		if elem != cty.Number && elem != cty.String {
			return cty.DynamicPseudoType, fmt.Errorf("unsupported list element type %s", elem.FriendlyName())
		}
	default:
		return cty.DynamicPseudoType, fmt.Errorf("unsupported param type %s", ty.FriendlyName())
	}

	logger.Debug("Parsed param type.", "type", ty.FriendlyName())
	return ty, nil
}
