package profiler

import (
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
)

// Profiler tracks frame rate, memory statistics and per-pass culling totals
// for performance monitoring. Outputs stats to the log at a configurable interval.
//
// Tick is called by the frame loop; Record may be called from any goroutine.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	passes map[string]*culling.PassStats
	logf   func(format string, args ...any)
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options for profiler configuration
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		passes:         make(map[string]*culling.PassStats),
		logf:           log.Printf,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Record adds one pass's statistics to the running totals for its label.
//
// Parameters:
//   - label: the pass name
//   - stats: the statistics reported by the pass's Completion
func (p *Profiler) Record(label string, stats culling.PassStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	total, ok := p.passes[label]
	if !ok {
		total = &culling.PassStats{}
		p.passes[label] = total
	}
	total.Add(stats)
}

// Passes returns a copy of the pass totals accumulated since the last log.
//
// Returns:
//   - map[string]culling.PassStats: totals keyed by pass label
func (p *Profiler) Passes() map[string]culling.PassStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]culling.PassStats, len(p.passes))
	for k, v := range p.passes {
		out[k] = *v
	}
	return out
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times,
// total memory, and for every recorded pass the culled share and average time.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.logf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	labels := make([]string, 0, len(p.passes))
	for label := range p.passes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		s := p.passes[label]
		var culledPct float64
		if s.InstancesIn > 0 {
			culledPct = 100 * float64(s.Culled()) / float64(s.InstancesIn)
		}
		p.logf("[Profiler] pass %s | frames: %d | culled: %.1f%% | batches: %d (visible %d, invisible %d, tested %d) | tester calls: %d | avg: %s",
			label, p.frameCount, culledPct, s.Batches, s.Visible, s.Invisible, s.PerInstance, s.TesterCalls,
			s.Duration/time.Duration(max(p.frameCount, 1)))
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	clear(p.passes)
	return true
}
