package culling

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-cull/common"
)

// ParallelFor describes data-parallel work whose size is only known once its
// dependency has completed.
type ParallelFor struct {
	// Count resolves the number of work items. It is called after the
	// dependency completes and before any item runs. A nil Count means zero items.
	Count func() (int, error)

	// Body processes item i. Items run in any order and on any goroutine.
	Body func(i int) error

	// Finish, when set, produces the stats attached to the returned
	// Completion. It runs after every item has finished.
	Finish func(elapsed time.Duration) PassStats
}

// Dispatcher runs deferred, indirectly-sized parallel-for work on a persistent
// pool of workers. Work items of one ParallelFor share no mutable state, so
// no locking happens between them.
type Dispatcher interface {
	// Schedule queues work to start once dependsOn resolves and returns
	// immediately. The returned Completion resolves after every item has run,
	// carrying the first item error. If dependsOn fails the work never runs and
	// the returned Completion carries the dependency error.
	//
	// Parameters:
	//   - dependsOn: the stage that must finish first (nil starts immediately)
	//   - work: the item count resolver and per-item body
	//
	// Returns:
	//   - *Completion: resolves when all items have been processed
	Schedule(dependsOn *Completion, work ParallelFor) *Completion

	// Workers returns the number of pool workers. Zero means every pass runs
	// serially on its scheduling goroutine.
	//
	// Returns:
	//   - int: the configured worker count
	Workers() int

	// Close stops the worker pool once the passes already fanning out have
	// finished. Work scheduled afterwards, and scheduled work whose dependency
	// resolves afterwards, fails with ErrDispatcherClosed.
	Close()
}

type dispatcher struct {
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup // passes past the closed check

	label           string
	workers         int
	queueSize       int
	idleTimeout     time.Duration
	inlineThreshold int
	frameBudget     time.Duration

	// pool is a bounded set of goroutines reused across frames, avoiding
	// per-frame goroutine spawn/teardown. Nil when workers is zero.
	pool   worker.DynamicWorkerPool
	taskID atomic.Int64
}

var _ Dispatcher = &dispatcher{}

// NewDispatcher creates a Dispatcher backed by a dynamic worker pool.
// Defaults: NumCPU-1 workers (at least one), a 256-entry task queue, a one
// second idle timeout, and inline execution for single-item passes.
//
// Parameters:
//   - options: functional options to configure the dispatcher
//
// Returns:
//   - Dispatcher: the newly created dispatcher
func NewDispatcher(options ...DispatcherBuilderOption) Dispatcher {
	d := &dispatcher{
		workers:         max(runtime.NumCPU()-1, 1),
		queueSize:       256,
		idleTimeout:     1 * time.Second,
		inlineThreshold: 1,
	}

	for _, option := range options {
		option(d)
	}
	d.label = common.Coalesce(d.label, "culling")

	// Initialize the pool after options so WithWorkers can override the default.
	if d.workers > 0 {
		d.pool = worker.NewDynamicWorkerPool(d.workers, max(d.queueSize, 1), d.idleTimeout)
	}

	return d
}

func (d *dispatcher) Workers() int {
	return d.workers
}

func (d *dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	// No pass can start fanning out past this point.
	d.inflight.Wait()
	if d.pool != nil {
		d.pool.Stop()
	}
}

// enter registers a pass about to fan out. It reports false once the
// dispatcher is closed.
func (d *dispatcher) enter() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	d.inflight.Add(1)
	return true
}

func (d *dispatcher) Schedule(dependsOn *Completion, work ParallelFor) *Completion {
	out := &Completion{done: make(chan struct{})}

	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		out.resolve(fmt.Errorf("culling: %s: %w", d.label, ErrDispatcherClosed), PassStats{})
		return out
	}

	go d.run(dependsOn, work, out)
	return out
}

// run waits for the dependency, resolves the item count and fans the items
// out. It owns out and always resolves it.
func (d *dispatcher) run(dependsOn *Completion, work ParallelFor, out *Completion) {
	if err := dependsOn.Wait(); err != nil {
		out.resolve(fmt.Errorf("culling: %s: dependency failed: %w", d.label, err), PassStats{})
		return
	}
	if !d.enter() {
		out.resolve(fmt.Errorf("culling: %s: %w", d.label, ErrDispatcherClosed), PassStats{})
		return
	}
	defer d.inflight.Done()

	start := time.Now()
	n := 0
	var err error
	if work.Count != nil {
		n, err = work.Count()
	}
	if err == nil {
		err = d.fanOut(n, work.Body)
	}
	elapsed := time.Since(start)

	if d.frameBudget > 0 && elapsed > d.frameBudget {
		log.Printf("[Dispatcher] %s: pass over %d items took %s (budget %s)", d.label, n, elapsed, d.frameBudget)
	}

	var stats PassStats
	if work.Finish != nil {
		stats = work.Finish(elapsed)
	}
	out.resolve(err, stats)
}

// fanOut runs body for every item in [0, n). Small passes, and every pass on a
// zero-worker dispatcher, run serially on the calling goroutine. Larger passes
// are submitted to the pool with a WaitGroup as the barrier; pool.Wait() would
// block until workers idle out, which does not suit per-frame work.
func (d *dispatcher) fanOut(n int, body func(i int) error) error {
	if n <= 0 || body == nil {
		return nil
	}

	if d.pool == nil || n <= d.inlineThreshold {
		for i := 0; i < n; i++ {
			if err := runItem(body, i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg   sync.WaitGroup
		fail firstError
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		idx := i // capture for closure
		d.pool.SubmitTask(worker.Task{
			ID:      int(d.taskID.Add(1)),
			Payload: idx,
			Do: func() (any, error) {
				defer wg.Done()
				// The pass is already invalid; skip the remaining items.
				if fail.failed() {
					return nil, nil
				}
				if err := runItem(body, idx); err != nil {
					fail.set(err)
					return nil, err
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	return fail.get()
}

// runItem calls body and converts a panic into an error so a failing tester
// aborts the pass instead of killing a pool worker.
func runItem(body func(i int) error, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatcher] recovered from panic in item %d: %v", i, r)
			err = fmt.Errorf("culling: item %d: %w: %v", i, ErrJobPanicked, r)
		}
	}()
	return body(i)
}

// firstError records the first error reported by concurrent items.
type firstError struct {
	mu  sync.Mutex
	hit atomic.Bool
	err error
}

func (f *firstError) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
		f.hit.Store(true)
	}
}

func (f *firstError) failed() bool {
	return f.hit.Load()
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
