package clipper

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
)

// FrustumClipper culls batches against one frustum per split, such as a camera
// frustum or the per-cascade frustums of a directional light.
//
// A batch whose chunk box is outside every split frustum is Invisible, one
// fully inside every split frustum is Visible, and anything else is tested per
// instance. FrustumClipper is a small value type; copying it shares the
// underlying frustum and bounds slices, which are only read.
type FrustumClipper struct {
	splits []common.Frustum
	bounds BoundsSource
}

var _ culling.Clipper[FrustumTester] = FrustumClipper{}

// NewFrustumClipper creates a FrustumClipper. At least one and at most
// culling.MaxSplits split frustums are required; NewFrustumClipper panics
// otherwise.
//
// Parameters:
//   - options: functional options supplying split frustums and bounds
//
// Returns:
//   - FrustumClipper: the configured clipper
func NewFrustumClipper(options ...FrustumClipperBuilderOption) FrustumClipper {
	c := FrustumClipper{}
	for _, option := range options {
		option(&c)
	}
	if len(c.splits) == 0 || len(c.splits) > culling.MaxSplits {
		panic(fmt.Sprintf("clipper: NewFrustumClipper requires 1..%d split frustums, got %d", culling.MaxSplits, len(c.splits)))
	}
	return c
}

// SplitCount returns the number of split frustums.
func (c FrustumClipper) SplitCount() int {
	return len(c.splits)
}

// Cull classifies the batch's chunk box against every split frustum. Batches
// without bounds are sent to per-instance testing, where CreateTester reports
// the missing bounds.
func (c FrustumClipper) Cull(b *culling.VisibilityBatch) culling.Verdict {
	bb, ok := lookupBounds(c.bounds, b.ID)
	if !ok {
		return culling.VerdictPerInstance
	}

	anyIn, allInside := false, true
	for i := range c.splits {
		switch c.splits[i].ClassifyAABB(bb.Chunk) {
		case common.Inside:
			anyIn = true
		case common.Intersecting:
			anyIn = true
			allInside = false
		case common.Outside:
			allInside = false
		}
	}

	switch {
	case !anyIn:
		return culling.VerdictInvisible
	case allInside:
		return culling.VerdictVisible
	default:
		return culling.VerdictPerInstance
	}
}

// CreateTester builds a FrustumTester over the batch's instance bounds.
func (c FrustumClipper) CreateTester(b *culling.VisibilityBatch) (FrustumTester, error) {
	instances, err := instanceBounds(c.bounds, b)
	if err != nil {
		return FrustumTester{}, err
	}
	return FrustumTester{splits: c.splits, instances: instances}, nil
}

// FrustumTester tests one batch's instance boxes against the split frustums.
type FrustumTester struct {
	splits    []common.Frustum
	instances []common.AABB
}

// Test reports whether the instance box intersects the split frustum. Splits
// the clipper has no frustum for are never visible.
func (t FrustumTester) Test(instance, split int) bool {
	if split >= len(t.splits) {
		return false
	}
	return t.splits[split].IntersectsAABB(t.instances[instance])
}
