package culling

import "fmt"

// ViewType identifies the kind of view a pass culls for.
type ViewType uint8

const (
	// ViewTypeCamera is a regular camera view. Every split is always tested.
	ViewTypeCamera ViewType = iota

	// ViewTypeLight is a shadow-casting light view. Split masks carry cascade
	// assignment, so splits an instance is already culled from are skipped.
	ViewTypeLight

	// ViewTypeCustom is any other view (reflection probes, custom passes).
	// Like cameras, every split is always tested.
	ViewTypeCustom
)

// String returns a readable name for the view type.
func (v ViewType) String() string {
	switch v {
	case ViewTypeCamera:
		return "camera"
	case ViewTypeLight:
		return "light"
	case ViewTypeCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// PassContext describes one culling pass over a list of batches.
type PassContext struct {
	// ViewType selects whether split masks pre-filter the splits tested.
	ViewType ViewType

	// SplitCount is the number of splits to evaluate (1..MaxSplits).
	SplitCount int

	// Batches is the list of batches to cull. Its length is read only once the
	// pass dependency has completed.
	Batches BatchList
}

// Validate checks the pass preconditions that can be verified before the
// batch list is populated.
//
// Returns:
//   - error: a wrapped sentinel error describing the first violation, or nil
func (p PassContext) Validate() error {
	if p.SplitCount < 1 || p.SplitCount > MaxSplits {
		return fmt.Errorf("culling: split count %d not in [1, %d]: %w", p.SplitCount, MaxSplits, ErrInvalidSplitCount)
	}
	if p.ViewType > ViewTypeCustom {
		return fmt.Errorf("culling: view type %d: %w", p.ViewType, ErrInvalidViewType)
	}
	if p.Batches == nil {
		return fmt.Errorf("culling: %w", ErrNilBatchList)
	}
	return nil
}
