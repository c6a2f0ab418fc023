package clipper

// DistanceClipperBuilderOption is a functional option for configuring a DistanceClipper.
type DistanceClipperBuilderOption func(*DistanceClipper)

// WithOrigin sets the world-space point distances are measured from.
//
// Parameters:
//   - x, y, z: the view origin
//
// Returns:
//   - DistanceClipperBuilderOption: option function to apply
func WithOrigin(x, y, z float32) DistanceClipperBuilderOption {
	return func(c *DistanceClipper) {
		c.origin = [3]float32{x, y, z}
	}
}

// WithDistanceRanges sets the distance band of each split, in split order.
//
// Parameters:
//   - ranges: one band per split
//
// Returns:
//   - DistanceClipperBuilderOption: option function to apply
func WithDistanceRanges(ranges ...DistanceRange) DistanceClipperBuilderOption {
	return func(c *DistanceClipper) {
		c.nearSq = make([]float32, len(ranges))
		c.farSq = make([]float32, len(ranges))
		for i, r := range ranges {
			c.nearSq[i] = r.Near * r.Near
			if r.Near < 0 {
				c.nearSq[i] = -1
			}
			c.farSq[i] = r.Far * r.Far
			if r.Far < r.Near {
				c.farSq[i] = -1
			}
		}
	}
}

// WithMaxDistances sets one band per split covering [0, far].
//
// Parameters:
//   - far: the maximum draw distance of each split
//
// Returns:
//   - DistanceClipperBuilderOption: option function to apply
func WithMaxDistances(far ...float32) DistanceClipperBuilderOption {
	ranges := make([]DistanceRange, len(far))
	for i, f := range far {
		ranges[i] = DistanceRange{Near: 0, Far: f}
	}
	return WithDistanceRanges(ranges...)
}

// WithDistanceBounds sets the bounds source consulted by batch ID.
//
// Parameters:
//   - bounds: per-batch bounds resolved by batch ID
//
// Returns:
//   - DistanceClipperBuilderOption: option function to apply
func WithDistanceBounds(bounds BoundsSource) DistanceClipperBuilderOption {
	return func(c *DistanceClipper) {
		c.bounds = bounds
	}
}
