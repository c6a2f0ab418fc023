package culling

import (
	"sync/atomic"
	"time"
)

// PassStats aggregates what a culling pass did across all of its batches.
type PassStats struct {
	Batches      int
	Visible      int // batches with VerdictVisible
	Invisible    int // batches with VerdictInvisible
	PerInstance  int // batches with VerdictPerInstance
	TesterCalls  int
	InstancesIn  int // visible instances before the pass
	InstancesOut int // visible instances after the pass
	Duration     time.Duration
}

// Culled returns the number of instances the pass turned invisible.
func (s PassStats) Culled() int {
	return s.InstancesIn - s.InstancesOut
}

// Add accumulates o into s. Durations are summed.
//
// Parameters:
//   - o: the stats to add
func (s *PassStats) Add(o PassStats) {
	s.Batches += o.Batches
	s.Visible += o.Visible
	s.Invisible += o.Invisible
	s.PerInstance += o.PerInstance
	s.TesterCalls += o.TesterCalls
	s.InstancesIn += o.InstancesIn
	s.InstancesOut += o.InstancesOut
	s.Duration += o.Duration
}

// passCounters collects per-batch results from concurrent workers.
type passCounters struct {
	batches      atomic.Int64
	visible      atomic.Int64
	invisible    atomic.Int64
	perInstance  atomic.Int64
	testerCalls  atomic.Int64
	instancesIn  atomic.Int64
	instancesOut atomic.Int64
}

func (c *passCounters) record(r BatchResult) {
	c.batches.Add(1)
	switch r.Verdict {
	case VerdictVisible:
		c.visible.Add(1)
	case VerdictInvisible:
		c.invisible.Add(1)
	case VerdictPerInstance:
		c.perInstance.Add(1)
	}
	c.testerCalls.Add(int64(r.TesterCalls))
	c.instancesIn.Add(int64(r.VisibleIn))
	c.instancesOut.Add(int64(r.VisibleOut))
}

func (c *passCounters) snapshot(d time.Duration) PassStats {
	return PassStats{
		Batches:      int(c.batches.Load()),
		Visible:      int(c.visible.Load()),
		Invisible:    int(c.invisible.Load()),
		PerInstance:  int(c.perInstance.Load()),
		TesterCalls:  int(c.testerCalls.Load()),
		InstancesIn:  int(c.instancesIn.Load()),
		InstancesOut: int(c.instancesOut.Load()),
		Duration:     d,
	}
}
