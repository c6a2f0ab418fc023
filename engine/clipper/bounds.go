// Package clipper provides Clipper and Tester implementations for the culling
// package: frustum tests against camera or cascade frustums, distance range
// tests, and user predicates for custom visibility backends.
package clipper

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
)

// ErrMissingBounds is returned when a batch ID has no bounds, or fewer
// instance bounds than the batch reports instances.
var ErrMissingBounds = errors.New("missing batch bounds")

// BatchBounds holds the world-space bounds for one batch.
type BatchBounds struct {
	// Chunk encloses every instance in the batch.
	Chunk common.AABB

	// Instances holds one box per instance, indexed like the batch.
	Instances []common.AABB
}

// NewBatchBounds builds BatchBounds from per-instance boxes, computing the
// enclosing chunk box.
//
// Parameters:
//   - instances: per-instance world-space boxes
//
// Returns:
//   - BatchBounds: the bounds with Chunk set to the union of instances
func NewBatchBounds(instances []common.AABB) BatchBounds {
	return BatchBounds{
		Chunk:     common.BoundsOf(instances),
		Instances: instances,
	}
}

// BoundsSource resolves a batch ID to its bounds. Clippers consult it while a
// pass runs, so a source that is refilled by an earlier stage of the frame (for
// example through a *BoundsTable) is read only after that stage completes.
type BoundsSource interface {
	Lookup(id int) (*BatchBounds, bool)
}

// BoundsTable maps batch IDs (used as indices) to their bounds. It is owned by
// the caller and must not change while a pass is running.
type BoundsTable []BatchBounds

var _ BoundsSource = BoundsTable{}

// Lookup returns the bounds for a batch ID.
//
// Parameters:
//   - id: the batch ID
//
// Returns:
//   - *BatchBounds: the bounds, or nil if the ID is out of range
//   - bool: true if the ID has bounds
func (t BoundsTable) Lookup(id int) (*BatchBounds, bool) {
	if id < 0 || id >= len(t) {
		return nil, false
	}
	return &t[id], true
}

// lookupBounds resolves an ID against an optional source.
func lookupBounds(src BoundsSource, id int) (*BatchBounds, bool) {
	if src == nil {
		return nil, false
	}
	return src.Lookup(id)
}

// instanceBounds returns the per-instance boxes for a batch, checking they
// cover every instance the batch reports.
func instanceBounds(src BoundsSource, b *culling.VisibilityBatch) ([]common.AABB, error) {
	bb, ok := lookupBounds(src, b.ID)
	if !ok {
		return nil, fmt.Errorf("clipper: batch %d: %w", b.ID, ErrMissingBounds)
	}
	if len(bb.Instances) < b.InstanceCount {
		return nil, fmt.Errorf("clipper: batch %d has %d instance bounds for %d instances: %w",
			b.ID, len(bb.Instances), b.InstanceCount, ErrMissingBounds)
	}
	return bb.Instances, nil
}
