package clipper

import "github.com/Carmen-Shannon/oxy-cull/engine/culling"

// CullFunc classifies a whole batch.
type CullFunc func(b *culling.VisibilityBatch) culling.Verdict

// TestFunc reports whether one instance of a batch is visible in a split.
type TestFunc func(batchID, instance, split int) bool

// PredicateClipper adapts plain functions to the clipper contract. It backs
// custom views that have no geometric volume, such as editor selection or
// occlusion results read back from a previous frame.
type PredicateClipper struct {
	cull CullFunc
	test TestFunc
}

var _ culling.Clipper[PredicateTester] = PredicateClipper{}

// NewPredicateClipper creates a PredicateClipper. A nil cull always defers to
// the tester; test must not be nil.
//
// Parameters:
//   - cull: the batch-level classification, may be nil
//   - test: the per-instance predicate
//
// Returns:
//   - PredicateClipper: the configured clipper
func NewPredicateClipper(cull CullFunc, test TestFunc) PredicateClipper {
	if test == nil {
		panic("clipper: NewPredicateClipper requires a non-nil test func")
	}
	return PredicateClipper{cull: cull, test: test}
}

// Cull delegates to the cull func, or returns VerdictPerInstance without one.
func (c PredicateClipper) Cull(b *culling.VisibilityBatch) culling.Verdict {
	if c.cull == nil {
		return culling.VerdictPerInstance
	}
	return c.cull(b)
}

// CreateTester binds the test func to the batch ID.
func (c PredicateClipper) CreateTester(b *culling.VisibilityBatch) (PredicateTester, error) {
	return PredicateTester{batchID: b.ID, test: c.test}, nil
}

// PredicateTester evaluates the test func for one batch.
type PredicateTester struct {
	batchID int
	test    TestFunc
}

// Test calls the test func with the bound batch ID.
func (t PredicateTester) Test(instance, split int) bool {
	return t.test(t.batchID, instance, split)
}
