package culling

import (
	"errors"
	"sync"
)

// closedChan is returned by Done on a nil Completion.
var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Completion is the signal a pipeline stage resolves once its work is done.
// Downstream stages pass it as their dependency; consumers of a pass's output
// must wait on it before reading any batch. A nil *Completion is treated as
// already resolved without error.
type Completion struct {
	done  chan struct{}
	once  sync.Once
	err   error
	stats PassStats
}

// CompleteFunc resolves the Completion it was created with. Only the first
// call has an effect.
type CompleteFunc func(err error)

// NewCompletion creates a pending Completion and the function that resolves it.
// Upstream stages use this to hand a dependency to Dispatch before their own
// output is ready.
//
// Returns:
//   - *Completion: the pending completion
//   - CompleteFunc: resolves the completion with the given error (nil on success)
func NewCompletion() (*Completion, CompleteFunc) {
	c := &Completion{done: make(chan struct{})}
	return c, func(err error) { c.resolve(err, PassStats{}) }
}

// Completed returns a Completion that is already resolved without error.
func Completed() *Completion {
	c := &Completion{done: make(chan struct{})}
	c.resolve(nil, PassStats{})
	return c
}

// Failed returns a Completion that is already resolved with err.
//
// Parameters:
//   - err: the failure to carry
//
// Returns:
//   - *Completion: the resolved completion
func Failed(err error) *Completion {
	c := &Completion{done: make(chan struct{})}
	c.resolve(err, PassStats{})
	return c
}

func (c *Completion) resolve(err error, stats PassStats) {
	c.once.Do(func() {
		c.err = err
		c.stats = stats
		close(c.done)
	})
}

// Done returns a channel closed once the completion resolves.
func (c *Completion) Done() <-chan struct{} {
	if c == nil {
		return closedChan
	}
	return c.done
}

// IsDone reports whether the completion has resolved, without blocking.
func (c *Completion) IsDone() bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

// Wait blocks until the completion resolves and returns its error.
//
// Returns:
//   - error: nil on success, otherwise the error that aborted the stage
func (c *Completion) Wait() error {
	if c == nil {
		return nil
	}
	<-c.done
	return c.err
}

// Err returns the stage error if the completion has resolved, or nil while it
// is still pending.
func (c *Completion) Err() error {
	if c == nil || !c.IsDone() {
		return nil
	}
	return c.err
}

// Stats returns the statistics recorded by a culling pass. It returns the zero
// value while the pass is pending and for completions not produced by Dispatch.
func (c *Completion) Stats() PassStats {
	if c == nil || !c.IsDone() {
		return PassStats{}
	}
	return c.stats
}

// WaitAll blocks until every completion resolves.
//
// Parameters:
//   - cs: the completions to wait on (nil entries are ignored)
//
// Returns:
//   - error: the joined errors of every failed completion, or nil
func WaitAll(cs ...*Completion) error {
	var errs []error
	for _, c := range cs {
		if err := c.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Join returns a Completion that resolves once every input has resolved. Its
// error is the join of the inputs' errors and its stats are their sum.
//
// Parameters:
//   - cs: the completions to combine
//
// Returns:
//   - *Completion: the combined completion
func Join(cs ...*Completion) *Completion {
	out := &Completion{done: make(chan struct{})}
	go func() {
		err := WaitAll(cs...)
		var stats PassStats
		for _, c := range cs {
			stats.Add(c.Stats())
		}
		out.resolve(err, stats)
	}()
	return out
}
