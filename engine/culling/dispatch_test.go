package culling

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, options ...DispatcherBuilderOption) Dispatcher {
	t.Helper()
	d := NewDispatcher(append([]DispatcherBuilderOption{WithWorkers(4), WithInlineThreshold(0)}, options...)...)
	t.Cleanup(d.Close)
	return d
}

func TestDispatch_MatchesIsolatedBatches(t *testing.T) {
	const n = 300
	parallel := make(BatchSlice, n)
	isolated := make([]*VisibilityBatch, n)
	for i := range parallel {
		parallel[i] = randomBatch(i)
		isolated[i] = cloneBatch(parallel[i])
	}

	for _, view := range []ViewType{ViewTypeCamera, ViewTypeLight} {
		pass := PassContext{ViewType: view, SplitCount: 4, Batches: parallel}
		done, err := Dispatch[hashTester](newTestDispatcher(t), pass, hashClipper{}, nil)
		require.NoError(t, err)
		require.NoError(t, done.Wait())

		for i := range isolated {
			_, err := CullBatch[hashTester](isolated[i], pass, hashClipper{})
			require.NoError(t, err)
		}
		for i := range parallel {
			require.Equal(t, *isolated[i], *parallel[i], "batch %d differs for %s view", i, view)
		}
	}
}

func TestDispatch_ZeroWorkers(t *testing.T) {
	d := NewDispatcher(WithWorkers(0))
	defer d.Close()
	assert.Zero(t, d.Workers())

	batches := BatchSlice{randomBatch(2), randomBatch(3), randomBatch(4)}
	expect := make([]VisibilityBatch, len(batches))
	for i, b := range batches {
		c := cloneBatch(b)
		_, err := CullBatch[hashTester](c, PassContext{SplitCount: 2}, hashClipper{})
		require.NoError(t, err)
		expect[i] = *c
	}

	done, err := Dispatch[hashTester](d, PassContext{SplitCount: 2, Batches: batches}, hashClipper{}, nil)
	require.NoError(t, err)
	require.NoError(t, done.Wait())
	for i, b := range batches {
		assert.Equal(t, expect[i], *b)
	}
}

func TestDispatch_DefersCountUntilDependencyCompletes(t *testing.T) {
	d := newTestDispatcher(t)
	buf := NewBatchBuffer(8)
	upstream, complete := NewCompletion()

	done, err := Dispatch[funcTester](d, PassContext{SplitCount: 1, Batches: buf}, stubClipper{verdict: VerdictInvisible}, upstream)
	require.NoError(t, err)

	// The producing stage appends after the pass was scheduled.
	for i := 0; i < 8; i++ {
		buf.Append(NewVisibilityBatch(i, 128))
	}
	assert.False(t, done.IsDone())
	complete(nil)

	require.NoError(t, done.Wait())
	for i := 0; i < buf.Len(); i++ {
		assert.True(t, buf.Batch(i).Empty(), "batch %d was not processed", i)
	}
	stats := done.Stats()
	assert.Equal(t, 8, stats.Batches)
	assert.Equal(t, 8, stats.Invisible)
	assert.Equal(t, 8*128, stats.Culled())
}

func TestDispatch_DependencyFailureSkipsPass(t *testing.T) {
	d := newTestDispatcher(t)
	b := NewVisibilityBatch(0, 32)
	upstreamErr := errors.New("frustum stage failed")

	done, err := Dispatch[funcTester](d, PassContext{SplitCount: 1, Batches: BatchSlice{b}}, stubClipper{verdict: VerdictInvisible}, Failed(upstreamErr))
	require.NoError(t, err)

	require.ErrorIs(t, done.Wait(), upstreamErr)
	assert.Equal(t, 32, b.VisibleCount())
	assert.Zero(t, done.Stats().Batches)
}

func TestDispatch_TesterPanicAbortsPass(t *testing.T) {
	d := newTestDispatcher(t)
	batches := make(BatchSlice, 64)
	for i := range batches {
		batches[i] = NewVisibilityBatch(i, 128)
	}
	tester := newFuncTester(func(instance, split int) bool {
		if instance == 17 {
			panic("depth pyramid unavailable")
		}
		return true
	})

	done, err := Dispatch[funcTester](d, PassContext{SplitCount: 1, Batches: batches}, stubClipper{
		verdict: VerdictPerInstance,
		tester:  tester,
	}, nil)
	require.NoError(t, err)

	err = done.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobPanicked)
	assert.Contains(t, err.Error(), "depth pyramid unavailable")
}

func TestDispatch_CreateTesterErrorAbortsPass(t *testing.T) {
	d := newTestDispatcher(t)
	boom := errors.New("no occlusion buffer")

	done, err := Dispatch[funcTester](d, PassContext{SplitCount: 1, Batches: BatchSlice{NewVisibilityBatch(0, 1), NewVisibilityBatch(1, 1)}},
		stubClipper{verdict: VerdictPerInstance, err: boom}, nil)
	require.NoError(t, err)
	require.ErrorIs(t, done.Wait(), boom)
}

func TestDispatch_NilBatchInList(t *testing.T) {
	d := newTestDispatcher(t)

	done, err := Dispatch[funcTester](d, PassContext{SplitCount: 1, Batches: BatchSlice{NewVisibilityBatch(0, 1), nil}},
		stubClipper{verdict: VerdictVisible}, nil)
	require.NoError(t, err)
	require.ErrorIs(t, done.Wait(), ErrNilBatch)
}

func TestDispatch_ValidatesPassContext(t *testing.T) {
	d := newTestDispatcher(t)
	batches := BatchSlice{NewVisibilityBatch(0, 1)}

	tests := []struct {
		name string
		pass PassContext
		want error
	}{
		{"zero splits", PassContext{SplitCount: 0, Batches: batches}, ErrInvalidSplitCount},
		{"too many splits", PassContext{SplitCount: MaxSplits + 1, Batches: batches}, ErrInvalidSplitCount},
		{"unknown view", PassContext{SplitCount: 1, ViewType: ViewType(9), Batches: batches}, ErrInvalidViewType},
		{"nil batches", PassContext{SplitCount: 1}, ErrNilBatchList},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			done, err := Dispatch[funcTester](d, tc.pass, stubClipper{verdict: VerdictInvisible}, nil)
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, done)
		})
	}
	assert.Equal(t, 1, batches[0].VisibleCount())

	_, err := Dispatch[funcTester](nil, PassContext{SplitCount: 1, Batches: batches}, stubClipper{}, nil)
	require.Error(t, err)
}

func TestDispatch_Stats(t *testing.T) {
	d := newTestDispatcher(t)
	batches := BatchSlice{NewVisibilityBatch(0, 10), NewVisibilityBatch(1, 20)}
	tester := newFuncTester(func(instance, _ int) bool { return instance%2 == 0 })

	done, err := Dispatch[funcTester](d, PassContext{SplitCount: 1, Batches: batches}, stubClipper{
		verdict: VerdictPerInstance,
		tester:  tester,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, done.Wait())

	stats := done.Stats()
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 2, stats.PerInstance)
	assert.Equal(t, 30, stats.TesterCalls)
	assert.Equal(t, 30, stats.InstancesIn)
	assert.Equal(t, 15, stats.InstancesOut)
	assert.Equal(t, 15, stats.Culled())
	assert.Equal(t, int64(30), tester.calls.Load())
}

func TestDispatch_EmptyList(t *testing.T) {
	d := newTestDispatcher(t)
	done, err := Dispatch[funcTester](d, PassContext{SplitCount: 1, Batches: BatchSlice{}}, stubClipper{}, nil)
	require.NoError(t, err)
	require.NoError(t, done.Wait())
	assert.Zero(t, done.Stats().Batches)
}

func TestDispatcher_ClosedRejectsWork(t *testing.T) {
	d := NewDispatcher(WithWorkers(2), WithLabel("shadow"))
	d.Close()
	d.Close()

	done := d.Schedule(nil, ParallelFor{Count: func() (int, error) { return 1, nil }, Body: func(int) error { return nil }})
	err := done.Wait()
	require.ErrorIs(t, err, ErrDispatcherClosed)
	assert.Contains(t, err.Error(), "shadow")
}

func TestDispatcher_CloseFailsPassesWaitingOnDependency(t *testing.T) {
	d := NewDispatcher(WithWorkers(2), WithInlineThreshold(0))
	dep, complete := NewCompletion()
	var ran atomic.Int64

	done := d.Schedule(dep, ParallelFor{
		Count: func() (int, error) { return 8, nil },
		Body: func(int) error {
			ran.Add(1)
			return nil
		},
	})
	d.Close()
	complete(nil)

	select {
	case <-done.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pass scheduled before Close never resolved")
	}
	require.ErrorIs(t, done.Err(), ErrDispatcherClosed)
	assert.Zero(t, ran.Load())
}

func TestDispatcher_CloseWaitsForRunningPass(t *testing.T) {
	d := NewDispatcher(WithWorkers(2), WithInlineThreshold(0))
	started := make(chan struct{})
	release := make(chan struct{})
	var ran atomic.Int64

	done := d.Schedule(nil, ParallelFor{
		Count: func() (int, error) {
			close(started)
			<-release
			return 4, nil
		},
		Body: func(int) error {
			ran.Add(1)
			return nil
		},
	})
	<-started

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	close(release)

	require.NoError(t, done.Wait())
	<-closed
	assert.Equal(t, int64(4), ran.Load())
}

func TestDispatchObserved_ReportsEveryBatch(t *testing.T) {
	const n = 64
	batches := make(BatchSlice, n)
	expect := make([]BatchResult, n)
	for i := range batches {
		batches[i] = randomBatch(i)
		c := cloneBatch(batches[i])
		res, err := CullBatch[hashTester](c, PassContext{ViewType: ViewTypeLight, SplitCount: 3}, hashClipper{})
		require.NoError(t, err)
		expect[i] = res
	}

	got := make([]BatchResult, n)
	var calls atomic.Int64
	pass := PassContext{ViewType: ViewTypeLight, SplitCount: 3, Batches: batches}
	done, err := DispatchObserved[hashTester](newTestDispatcher(t), pass, hashClipper{}, nil, func(batch int, r BatchResult) {
		calls.Add(1)
		got[batch] = r
	})
	require.NoError(t, err)
	require.NoError(t, done.Wait())

	assert.Equal(t, int64(n), calls.Load())
	assert.Equal(t, expect, got)
}

func TestDispatcher_ScheduleCountError(t *testing.T) {
	d := newTestDispatcher(t)
	boom := errors.New("count unavailable")
	var ran atomic.Int64

	done := d.Schedule(nil, ParallelFor{
		Count: func() (int, error) { return 0, boom },
		Body: func(int) error {
			ran.Add(1)
			return nil
		},
	})
	require.ErrorIs(t, done.Wait(), boom)
	assert.Zero(t, ran.Load())
}

func TestDispatcher_RunsEveryItemOnce(t *testing.T) {
	d := newTestDispatcher(t, WithQueueSize(4), WithFrameBudget(time.Hour))
	const n = 1000
	seen := make([]atomic.Int32, n)

	done := d.Schedule(nil, ParallelFor{
		Count: func() (int, error) { return n, nil },
		Body: func(i int) error {
			seen[i].Add(1)
			return nil
		},
	})
	require.NoError(t, done.Wait())
	for i := range seen {
		require.Equal(t, int32(1), seen[i].Load(), "item %d", i)
	}
}

func TestClipperPass_ChainsOnDependency(t *testing.T) {
	d := newTestDispatcher(t)
	batches := BatchSlice{NewVisibilityBatch(0, 64), NewVisibilityBatch(1, 64)}
	var frames atomic.Int64

	first := NewPass[funcTester](
		func() PassContext { return PassContext{SplitCount: 1, Batches: batches} },
		func() stubClipper {
			frames.Add(1)
			return stubClipper{verdict: VerdictPerInstance, tester: newFuncTester(func(i, _ int) bool { return i < 32 })}
		},
	)
	second := NewPass[funcTester](
		func() PassContext { return PassContext{SplitCount: 1, Batches: batches} },
		func() stubClipper {
			return stubClipper{verdict: VerdictPerInstance, tester: newFuncTester(func(i, _ int) bool { return i < 48 })}
		},
	)

	c1, err := first.Schedule(d, nil)
	require.NoError(t, err)
	c2, err := second.Schedule(d, c1)
	require.NoError(t, err)
	require.NoError(t, c2.Wait())

	assert.Equal(t, int64(1), frames.Load())
	for _, b := range batches {
		assert.Equal(t, 32, b.VisibleCount())
	}
	// The second pass only sees what the first left visible.
	assert.Equal(t, 64, c2.Stats().InstancesIn)

	assert.Panics(t, func() { NewPass[funcTester, stubClipper](nil, nil) })
}
