package culling

import (
	"sync/atomic"
)

// funcTester answers from a function and counts its calls.
type funcTester struct {
	fn    func(instance, split int) bool
	calls *atomic.Int64
}

func (t funcTester) Test(instance, split int) bool {
	if t.calls != nil {
		t.calls.Add(1)
	}
	return t.fn(instance, split)
}

func newFuncTester(fn func(instance, split int) bool) funcTester {
	return funcTester{fn: fn, calls: &atomic.Int64{}}
}

// tableTester answers from an explicit (instance, split) table; missing
// entries are visible.
type tableTester struct {
	results map[[2]int]bool
	calls   *[][2]int
}

func (t tableTester) Test(instance, split int) bool {
	*t.calls = append(*t.calls, [2]int{instance, split})
	v, ok := t.results[[2]int{instance, split}]
	return !ok || v
}

// stubClipper returns a fixed verdict and tester.
type stubClipper struct {
	verdict Verdict
	tester  funcTester
	err     error
	created *atomic.Int64
}

func (c stubClipper) Cull(*VisibilityBatch) Verdict { return c.verdict }

func (c stubClipper) CreateTester(*VisibilityBatch) (funcTester, error) {
	if c.created != nil {
		c.created.Add(1)
	}
	return c.tester, c.err
}

// hashClipper derives verdicts and answers from the batch ID so results are
// deterministic regardless of scheduling.
type hashClipper struct{}

type hashTester struct{ id int }

func (t hashTester) Test(instance, split int) bool {
	return mix(t.id, instance, split)%3 != 0
}

func (hashClipper) Cull(b *VisibilityBatch) Verdict {
	switch b.ID % 5 {
	case 0:
		return VerdictVisible
	case 1:
		return VerdictInvisible
	default:
		return VerdictPerInstance
	}
}

func (hashClipper) CreateTester(b *VisibilityBatch) (hashTester, error) {
	return hashTester{id: b.ID}, nil
}

func mix(a, b, c int) uint64 {
	h := uint64(a)*0x9E3779B97F4A7C15 ^ uint64(b)*0xBF58476D1CE4E5B9 ^ uint64(c)*0x94D049BB133111EB
	h ^= h >> 31
	h *= 0xD6E8FEB86659FD93
	h ^= h >> 32
	return h
}

// randomBatch builds a batch with pseudo-random visibility and split masks
// restricted to its instance count.
func randomBatch(id int) *VisibilityBatch {
	count := int(mix(id, 1, 1) % (MaxBatchInstances + 1))
	b := NewVisibilityBatch(id, count)
	for i := 0; i < count; i++ {
		if mix(id, i, 2)%4 == 0 {
			b.ClearVisible(i)
		}
		b.SplitMasks[i] = uint8(mix(id, i, 3))
	}
	return b
}

func cloneBatch(b *VisibilityBatch) *VisibilityBatch {
	c := *b
	return &c
}
