package culling

import "time"

// DispatcherBuilderOption is a functional option for configuring a Dispatcher.
type DispatcherBuilderOption func(*dispatcher)

// WithWorkers sets the number of pool workers. Zero disables the pool and runs
// every pass serially on its scheduling goroutine. Negative values are treated
// as zero.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithWorkers(n int) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.workers = max(n, 0)
	}
}

// WithQueueSize sets the capacity of the pool's task queue. Submitting more
// items than the queue holds blocks the scheduling goroutine, never the caller
// of Schedule.
//
// Parameters:
//   - n: queue capacity (minimum 1)
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithQueueSize(n int) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.queueSize = max(n, 1)
	}
}

// WithIdleTimeout sets how long an idle pool worker waits before exiting.
//
// Parameters:
//   - timeout: the idle timeout
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithIdleTimeout(timeout time.Duration) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.idleTimeout = timeout
	}
}

// WithInlineThreshold sets the item count at or below which a pass runs
// serially on its scheduling goroutine instead of going through the pool.
//
// Parameters:
//   - n: the threshold (0 sends every non-empty pass to the pool)
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithInlineThreshold(n int) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.inlineThreshold = max(n, 0)
	}
}

// WithFrameBudget sets the duration a single pass is expected to fit in. Passes
// that run longer are logged; they still run to completion.
//
// Parameters:
//   - budget: the per-pass budget (0 disables the check)
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithFrameBudget(budget time.Duration) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.frameBudget = budget
	}
}

// WithLabel names the dispatcher in log output and errors.
//
// Parameters:
//   - label: the dispatcher name
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithLabel(label string) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.label = label
	}
}
