// Package culling updates per-instance visibility bitmasks for instance
// batches once per frame. A Clipper gives each batch a coarse verdict; batches
// that need finer work are narrowed instance by instance and split by split
// through a Tester, in parallel across batches on a Dispatcher.
package culling

import (
	"fmt"
	"math/bits"
)

// MaxBatchInstances is the number of instances a single VisibilityBatch can
// describe: two 64-bit visibility words.
const MaxBatchInstances = 128

// MaxSplits is the number of simultaneous splits representable by the 8-bit
// per-instance split mask.
const MaxSplits = 8

// AllSplits is a split mask with every representable split active.
const AllSplits uint8 = 0xFF

// VisibilityBatch is one unit of culling work: up to 128 instances, a two-word
// visibility bitmask and one split mask per instance.
//
// Bit i of Visibility[w] means instance w*64+i is currently visible. Bit j of
// SplitMasks[i] means instance i is still active for split j. During a pass a
// visibility bit only ever goes from 1 to 0.
//
// The batch is owned by the caller. Exactly one worker mutates it while a pass
// is running, so it must not be read until the pass Completion resolves.
type VisibilityBatch struct {
	// ID identifies the batch to Clipper implementations, which use it to
	// look up externally owned per-batch data such as bounds or transforms.
	ID int

	// InstanceCount is the number of live instances in the batch (<= 128).
	InstanceCount int

	// Visibility holds the two visibility words.
	Visibility [2]uint64

	// SplitMasks holds the per-instance split mask. Entries at or beyond
	// InstanceCount are ignored.
	SplitMasks [MaxBatchInstances]uint8
}

// NewVisibilityBatch creates a batch with the first count instances marked
// visible and active in every split, which is the state a batch has before
// any culling stage has run.
//
// Parameters:
//   - id: the batch identifier handed to clippers
//   - count: number of instances (clamped to [0, 128])
//
// Returns:
//   - *VisibilityBatch: the populated batch
func NewVisibilityBatch(id, count int) *VisibilityBatch {
	count = min(max(count, 0), MaxBatchInstances)
	b := &VisibilityBatch{ID: id, InstanceCount: count}
	b.Visibility = visibilityWordsFor(count)
	for i := 0; i < count; i++ {
		b.SplitMasks[i] = AllSplits
	}
	return b
}

// visibilityWordsFor returns the visibility words with the low count bits set.
func visibilityWordsFor(count int) [2]uint64 {
	var w [2]uint64
	switch {
	case count >= MaxBatchInstances:
		w[0], w[1] = ^uint64(0), ^uint64(0)
	case count > 64:
		w[0] = ^uint64(0)
		w[1] = (uint64(1) << (count - 64)) - 1
	case count == 64:
		w[0] = ^uint64(0)
	case count > 0:
		w[0] = (uint64(1) << count) - 1
	}
	return w
}

// IsVisible reports whether the instance's visibility bit is set.
//
// Parameters:
//   - instance: instance index within the batch (0..127)
//
// Returns:
//   - bool: true if the instance is visible
func (b *VisibilityBatch) IsVisible(instance int) bool {
	return b.Visibility[instance>>6]&(uint64(1)<<(instance&63)) != 0
}

// SetVisible sets the instance's visibility bit. Upstream stages use this while
// populating a batch; culling passes never call it.
//
// Parameters:
//   - instance: instance index within the batch (0..127)
func (b *VisibilityBatch) SetVisible(instance int) {
	b.Visibility[instance>>6] |= uint64(1) << (instance & 63)
}

// ClearVisible clears the instance's visibility bit.
//
// Parameters:
//   - instance: instance index within the batch (0..127)
func (b *VisibilityBatch) ClearVisible(instance int) {
	b.Visibility[instance>>6] &^= uint64(1) << (instance & 63)
}

// VisibleCount returns the number of set visibility bits.
func (b *VisibilityBatch) VisibleCount() int {
	return bits.OnesCount64(b.Visibility[0]) + bits.OnesCount64(b.Visibility[1])
}

// Empty reports whether no instance in the batch is visible.
func (b *VisibilityBatch) Empty() bool {
	return b.Visibility[0]|b.Visibility[1] == 0
}

// ForEachVisible calls fn with the index of every visible instance in
// ascending order.
//
// Parameters:
//   - fn: callback receiving the instance index
func (b *VisibilityBatch) ForEachVisible(fn func(instance int)) {
	for word := 0; word < 2; word++ {
		pending := b.Visibility[word]
		for pending != 0 {
			bit := bits.TrailingZeros64(pending)
			fn(word<<6 | bit)
			pending &= pending - 1
		}
	}
}

// Validate checks the batch against the fixed-capacity contract: the instance
// count fits in two words and no visibility bit is set past the last instance.
//
// Returns:
//   - error: a wrapped ErrBatchOverflow if the contract is violated, nil otherwise
func (b *VisibilityBatch) Validate() error {
	if b.InstanceCount < 0 || b.InstanceCount > MaxBatchInstances {
		return fmt.Errorf("culling: batch %d reports %d instances: %w", b.ID, b.InstanceCount, ErrBatchOverflow)
	}
	live := visibilityWordsFor(b.InstanceCount)
	if b.Visibility[0]&^live[0] != 0 || b.Visibility[1]&^live[1] != 0 {
		return fmt.Errorf("culling: batch %d has visibility bits beyond instance %d: %w", b.ID, b.InstanceCount, ErrBatchOverflow)
	}
	return nil
}
