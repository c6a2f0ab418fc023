package culling

import (
	"fmt"
	"time"
)

// Dispatch schedules a culling pass: once dependsOn resolves, every batch in
// pass.Batches is run through the clipper and, where the verdict requires it,
// through UpdateVisibility, in parallel on d. Batches are mutated in place.
//
// The pass context is validated before anything is scheduled. The batch list
// length is read only after dependsOn resolves, so the producing stage may
// still be filling it when Dispatch is called. Each work item receives its own
// copy of the clipper.
//
// The tester type comes first so callers can instantiate with only the tester:
//
//	done, err := culling.Dispatch[clipper.FrustumTester](d, pass, frustumClipper, frustumDone)
//
// Parameters:
//   - d: the dispatcher to run on
//   - pass: view type, split count and batch list
//   - clipper: the culling policy
//   - dependsOn: the stage producing the batch list (nil starts immediately)
//
// Returns:
//   - *Completion: resolves once every batch has been processed; carries PassStats
//   - error: a precondition violation; nothing was scheduled
func Dispatch[T Tester, C Clipper[T]](d Dispatcher, pass PassContext, clipper C, dependsOn *Completion) (*Completion, error) {
	return DispatchObserved[T](d, pass, clipper, dependsOn, nil)
}

// BatchObserver receives the result of one batch from the worker that culled
// it. Calls for different batches may run concurrently.
type BatchObserver func(batch int, r BatchResult)

// DispatchObserved is Dispatch with a per-batch observer. The observer runs in
// the pass body after the batch is mutated, so consumers can record verdicts
// without the clipper carrying mutable state.
//
// Parameters:
//   - d: the dispatcher to run on
//   - pass: view type, split count and batch list
//   - clipper: the culling policy
//   - dependsOn: the stage producing the batch list (nil starts immediately)
//   - observe: called with each batch index and result; may be nil
//
// Returns:
//   - *Completion: resolves once every batch has been processed; carries PassStats
//   - error: a precondition violation; nothing was scheduled
func DispatchObserved[T Tester, C Clipper[T]](d Dispatcher, pass PassContext, clipper C, dependsOn *Completion, observe BatchObserver) (*Completion, error) {
	if d == nil {
		return nil, fmt.Errorf("culling: Dispatch requires a non-nil Dispatcher")
	}
	if err := pass.Validate(); err != nil {
		return nil, err
	}

	counters := &passCounters{}
	batches := pass.Batches

	return d.Schedule(dependsOn, ParallelFor{
		Count: func() (int, error) {
			return batches.Len(), nil
		},
		Body: func(i int) error {
			b := batches.Batch(i)
			if b == nil {
				return fmt.Errorf("culling: batch index %d: %w", i, ErrNilBatch)
			}
			c := clipper
			res, err := CullBatch[T](b, pass, c)
			if err != nil {
				return err
			}
			counters.record(res)
			if observe != nil {
				observe(i, res)
			}
			return nil
		},
		Finish: func(elapsed time.Duration) PassStats {
			return counters.snapshot(elapsed)
		},
	}), nil
}

// Pass is a culling pass that can be chained into a frame. Implementations
// schedule their work on d after dependsOn and return the pass completion.
type Pass interface {
	// Schedule validates and schedules the pass.
	//
	// Parameters:
	//   - d: the dispatcher to run on
	//   - dependsOn: the previous stage's completion
	//
	// Returns:
	//   - *Completion: resolves when the pass has finished
	//   - error: a precondition violation; nothing was scheduled
	Schedule(d Dispatcher, dependsOn *Completion) (*Completion, error)
}

// ClipperPass binds a pass context source and a clipper source into a Pass.
// Both sources are evaluated on every Schedule call, so per-frame state such as
// camera frustums can be refreshed between frames.
type ClipperPass[T Tester, C Clipper[T]] struct {
	context func() PassContext
	clipper func() C
}

// NewPass creates a Pass from per-frame context and clipper sources.
//
// Parameters:
//   - context: returns the pass context for the current frame
//   - clipper: returns the clipper for the current frame
//
// Returns:
//   - *ClipperPass[T, C]: the pass
func NewPass[T Tester, C Clipper[T]](context func() PassContext, clipper func() C) *ClipperPass[T, C] {
	if context == nil || clipper == nil {
		panic("culling: NewPass requires non-nil context and clipper sources")
	}
	return &ClipperPass[T, C]{context: context, clipper: clipper}
}

// Schedule evaluates the sources and dispatches the pass.
func (p *ClipperPass[T, C]) Schedule(d Dispatcher, dependsOn *Completion) (*Completion, error) {
	return Dispatch[T](d, p.context(), p.clipper(), dependsOn)
}
