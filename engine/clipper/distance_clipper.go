package clipper

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
)

// DistanceRange is the [Near, Far] distance band, measured from the view
// origin, that a split covers. Cascade splits and LOD cutoffs are typical uses.
type DistanceRange struct {
	Near float32
	Far  float32
}

// DistanceClipper culls batches by distance from a view origin, one distance
// band per split. An instance is visible in a split when its box overlaps the
// split's band.
type DistanceClipper struct {
	origin [3]float32
	// nearSq/farSq hold squared band limits, indexed by split.
	nearSq []float32
	farSq  []float32
	bounds BoundsSource
}

var _ culling.Clipper[DistanceTester] = DistanceClipper{}

// NewDistanceClipper creates a DistanceClipper. At least one and at most
// culling.MaxSplits ranges are required, and every range must have
// 0 <= Near <= Far; NewDistanceClipper panics otherwise.
//
// Parameters:
//   - options: functional options supplying the origin, ranges and bounds
//
// Returns:
//   - DistanceClipper: the configured clipper
func NewDistanceClipper(options ...DistanceClipperBuilderOption) DistanceClipper {
	c := DistanceClipper{}
	for _, option := range options {
		option(&c)
	}
	if len(c.farSq) == 0 || len(c.farSq) > culling.MaxSplits {
		panic(fmt.Sprintf("clipper: NewDistanceClipper requires 1..%d distance ranges, got %d", culling.MaxSplits, len(c.farSq)))
	}
	for i := range c.farSq {
		if c.nearSq[i] < 0 || c.nearSq[i] > c.farSq[i] {
			panic(fmt.Sprintf("clipper: NewDistanceClipper range %d is inverted", i))
		}
	}
	return c
}

// SplitCount returns the number of distance ranges.
func (c DistanceClipper) SplitCount() int {
	return len(c.farSq)
}

// Cull compares the chunk's nearest and farthest distances from the origin with
// every split band.
func (c DistanceClipper) Cull(b *culling.VisibilityBatch) culling.Verdict {
	bb, ok := lookupBounds(c.bounds, b.ID)
	if !ok {
		return culling.VerdictPerInstance
	}

	nearest := bb.Chunk.NearestDistanceSq(c.origin)
	farthest := bb.Chunk.FarthestDistanceSq(c.origin)

	anyIn, allInside := false, true
	for i := range c.farSq {
		overlaps := nearest <= c.farSq[i] && farthest >= c.nearSq[i]
		contained := nearest >= c.nearSq[i] && farthest <= c.farSq[i]
		anyIn = anyIn || overlaps
		allInside = allInside && contained
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

// CreateTester builds a DistanceTester over the batch's instance bounds.
func (c DistanceClipper) CreateTester(b *culling.VisibilityBatch) (DistanceTester, error) {
	instances, err := instanceBounds(c.bounds, b)
	if err != nil {
		return DistanceTester{}, err
	}
	return DistanceTester{clipper: &c, instances: instances}, nil
}

// DistanceTester tests one batch's instance boxes against the split bands.
type DistanceTester struct {
	clipper   *DistanceClipper
	instances []common.AABB
}

// Test reports whether the instance box overlaps the split's distance band.
func (t DistanceTester) Test(instance, split int) bool {
	c := t.clipper
	if split >= len(c.farSq) {
		return false
	}
	box := t.instances[instance]
	return box.NearestDistanceSq(c.origin) <= c.farSq[split] &&
		box.FarthestDistanceSq(c.origin) >= c.nearSq[split]
}
