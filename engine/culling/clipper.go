package culling

// Verdict is a Clipper's coarse decision for a whole batch.
type Verdict uint8

const (
	// VerdictVisible trusts the batch's current bitmask as-is. Nothing is mutated.
	VerdictVisible Verdict = iota

	// VerdictInvisible forces both visibility words to zero. Split masks are left
	// untouched since a batch with no visible bits is skipped downstream anyway.
	VerdictInvisible

	// VerdictPerInstance runs the per-instance, per-split update with a Tester
	// created for the batch.
	VerdictPerInstance
)

// String returns a readable name for the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictVisible:
		return "visible"
	case VerdictInvisible:
		return "invisible"
	case VerdictPerInstance:
		return "per-instance"
	default:
		return "unknown"
	}
}

// Tester answers a single per-instance, per-split visibility query for the
// batch it was created for.
//
// Test must have no side effects and must return the same answer for the same
// arguments within a pass; it may be called in any order. A Tester that cannot
// answer should panic, which aborts the pass.
type Tester interface {
	// Test reports whether the instance is visible in the split.
	//
	// Parameters:
	//   - instance: instance index within the batch (0..127)
	//   - split: split index (0..MaxSplits-1)
	//
	// Returns:
	//   - bool: true if the instance is visible in the split
	Test(instance, split int) bool
}

// Clipper is the per-pass culling policy. It decides per batch whether
// per-instance testing is needed and, if so, builds the Tester for it.
//
// A Clipper is copied into every unit of parallel work, so it must only carry
// read-only data (or references to read-only data).
type Clipper[T Tester] interface {
	// Cull returns the coarse verdict for the batch. It must not mutate the
	// batch and is called exactly once per batch per pass.
	//
	// Parameters:
	//   - b: the batch being culled
	//
	// Returns:
	//   - Verdict: Visible, Invisible or PerInstance
	Cull(b *VisibilityBatch) Verdict

	// CreateTester builds a Tester scoped to the batch. It is only called after
	// Cull returned VerdictPerInstance.
	//
	// Parameters:
	//   - b: the batch being culled
	//
	// Returns:
	//   - T: the tester for this batch
	//   - error: non-nil if the tester cannot be built; this aborts the pass
	CreateTester(b *VisibilityBatch) (T, error)
}
