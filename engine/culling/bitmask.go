package culling

import "math/bits"

// UpdateVisibility narrows a batch's visibility bitmask and split masks using
// the tester. Only instances whose visibility bit is set are visited, in
// ascending order, so the scan costs O(popcount) per word.
//
// For each visited instance every split below splitCount is evaluated, except
// that light views skip splits the instance's split mask already excludes. The
// first failing split clears the instance's visibility bit; every failing split
// clears its own bit in the split mask, and evaluation stops early once the
// split mask reaches zero.
//
// splitCount must be in [1, MaxSplits]; callers validate it up front.
//
// Parameters:
//   - b: the batch to mutate in place
//   - view: the pass view type
//   - splitCount: number of splits to evaluate
//   - tester: the per-instance, per-split predicate for this batch
//
// Returns:
//   - int: the number of tester calls made
func UpdateVisibility[T Tester](b *VisibilityBatch, view ViewType, splitCount int, tester T) int {
	calls := 0
	light := view == ViewTypeLight

	for word := 0; word < 2; word++ {
		pending := b.Visibility[word]
		updated := pending

		for pending != 0 {
			bit := bits.TrailingZeros64(pending)
			instance := word<<6 | bit
			splitMask := b.SplitMasks[instance]

			for split := 0; split < splitCount; split++ {
				if light && (splitMask>>split)&1 == 0 {
					continue
				}
				calls++
				if !tester.Test(instance, split) {
					updated &^= uint64(1) << bit
					splitMask &^= uint8(1) << split
					if splitMask == 0 {
						break
					}
				}
			}

			b.SplitMasks[instance] = splitMask
			// Resolved regardless of outcome; guarantees the loop terminates.
			pending ^= uint64(1) << bit
		}

		b.Visibility[word] = updated
	}

	return calls
}

// BatchResult summarises what one batch went through during a pass.
type BatchResult struct {
	Verdict     Verdict
	TesterCalls int
	VisibleIn   int // visible instances before the pass
	VisibleOut  int // visible instances after the pass
}

// CullBatch runs the clipper against a single batch and applies its verdict.
// It is the per-task body of Dispatch and can be called directly for
// synchronous culling of a single batch.
//
// Parameters:
//   - b: the batch to mutate in place
//   - pass: the pass view type and split count (Batches is not read)
//   - clipper: the culling policy
//
// Returns:
//   - BatchResult: verdict and counters for pass statistics
//   - error: validation or tester construction failure; the batch is left untouched
func CullBatch[T Tester, C Clipper[T]](b *VisibilityBatch, pass PassContext, clipper C) (BatchResult, error) {
	if b == nil {
		return BatchResult{}, ErrNilBatch
	}
	if err := b.Validate(); err != nil {
		return BatchResult{}, err
	}

	res := BatchResult{VisibleIn: b.VisibleCount()}
	res.Verdict = clipper.Cull(b)

	switch res.Verdict {
	case VerdictVisible:
	case VerdictInvisible:
		b.Visibility[0], b.Visibility[1] = 0, 0
	case VerdictPerInstance:
		if b.Empty() {
			break
		}
		tester, err := clipper.CreateTester(b)
		if err != nil {
			return res, err
		}
		res.TesterCalls = UpdateVisibility(b, pass.ViewType, pass.SplitCount, tester)
	}

	res.VisibleOut = b.VisibleCount()
	return res, nil
}
