package clipper

import (
	"github.com/Carmen-Shannon/oxy-cull/common"
)

// FrustumClipperBuilderOption is a functional option for configuring a FrustumClipper.
type FrustumClipperBuilderOption func(*FrustumClipper)

// WithSplitFrustums sets the frustum for each split, in split order.
//
// Parameters:
//   - frustums: one frustum per split
//
// Returns:
//   - FrustumClipperBuilderOption: option function to apply
func WithSplitFrustums(frustums ...common.Frustum) FrustumClipperBuilderOption {
	return func(c *FrustumClipper) {
		c.splits = append([]common.Frustum(nil), frustums...)
	}
}

// WithViewProjection adds a split whose frustum is extracted from a
// view-projection matrix.
//
// Parameters:
//   - viewProj: column-major view-projection matrix
//
// Returns:
//   - FrustumClipperBuilderOption: option function to apply
func WithViewProjection(viewProj [16]float32) FrustumClipperBuilderOption {
	return func(c *FrustumClipper) {
		c.splits = append(c.splits, common.ExtractFrustumFromMatrix(viewProj[:]))
	}
}

// WithFrustumBounds sets the bounds source consulted by batch ID.
//
// Parameters:
//   - bounds: per-batch bounds resolved by batch ID
//
// Returns:
//   - FrustumClipperBuilderOption: option function to apply
func WithFrustumBounds(bounds BoundsSource) FrustumClipperBuilderOption {
	return func(c *FrustumClipper) {
		c.bounds = bounds
	}
}
