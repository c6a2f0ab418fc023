package culling

import "sync"

// BatchList is the externally owned list of batches for one pass. Its length is
// read only after the pass dependency completes, so a producing stage may keep
// appending until it signals completion.
type BatchList interface {
	// Len returns the number of batches in the list.
	Len() int

	// Batch returns the batch at index i.
	Batch(i int) *VisibilityBatch
}

// BatchSlice adapts a plain slice to the BatchList interface.
type BatchSlice []*VisibilityBatch

// Len returns the number of batches in the slice.
func (s BatchSlice) Len() int { return len(s) }

// Batch returns the batch at index i.
func (s BatchSlice) Batch(i int) *VisibilityBatch { return s[i] }

// BatchBuffer is a BatchList that a producing stage fills concurrently with
// the dispatcher being scheduled. The dispatcher only reads it after the
// producer's Completion resolves.
type BatchBuffer struct {
	mu      sync.RWMutex
	batches []*VisibilityBatch
}

// NewBatchBuffer creates an empty buffer with room for capacity batches.
//
// Parameters:
//   - capacity: initial capacity hint
//
// Returns:
//   - *BatchBuffer: the empty buffer
func NewBatchBuffer(capacity int) *BatchBuffer {
	return &BatchBuffer{batches: make([]*VisibilityBatch, 0, max(capacity, 0))}
}

// Append adds batches to the end of the buffer.
//
// Parameters:
//   - batches: the batches to add
func (b *BatchBuffer) Append(batches ...*VisibilityBatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, batches...)
}

// Reset empties the buffer while keeping its storage for the next frame.
func (b *BatchBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.batches)
	b.batches = b.batches[:0]
}

// Len returns the number of batches appended so far.
func (b *BatchBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.batches)
}

// Batch returns the batch at index i.
func (b *BatchBuffer) Batch(i int) *VisibilityBatch {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.batches[i]
}
