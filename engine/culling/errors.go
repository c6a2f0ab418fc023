package culling

import "errors"

var (
	// ErrInvalidSplitCount is returned when a pass requests fewer than 1 or more than MaxSplits splits.
	ErrInvalidSplitCount = errors.New("split count out of range")

	// ErrInvalidViewType is returned when a pass carries an unknown view type.
	ErrInvalidViewType = errors.New("unknown view type")

	// ErrNilBatchList is returned when a pass has no batch list to iterate.
	ErrNilBatchList = errors.New("nil batch list")

	// ErrNilBatch is returned when a batch list yields a nil batch.
	ErrNilBatch = errors.New("nil batch")

	// ErrBatchOverflow is returned when a batch describes more than MaxBatchInstances instances.
	ErrBatchOverflow = errors.New("batch exceeds instance capacity")

	// ErrDispatcherClosed is returned by passes scheduled after the dispatcher was closed.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// ErrJobPanicked wraps a panic recovered from a unit of parallel work.
var ErrJobPanicked = errors.New("job panicked")
