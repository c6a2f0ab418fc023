package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cull/engine/clipper"
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
	"github.com/Carmen-Shannon/oxy-cull/engine/profiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderPass appends its name to a shared log when its work starts.
type orderPass struct {
	name string
	mu   *sync.Mutex
	log  *[]string
	fail error
}

func (p *orderPass) Schedule(d culling.Dispatcher, dependsOn *culling.Completion) (*culling.Completion, error) {
	return d.Schedule(dependsOn, culling.ParallelFor{
		Count: func() (int, error) {
			p.mu.Lock()
			*p.log = append(*p.log, p.name)
			p.mu.Unlock()
			if p.fail != nil {
				return 0, p.fail
			}
			return 4, nil
		},
		Body: func(int) error { return nil },
	}), nil
}

// rejectPass fails before scheduling anything.
type rejectPass struct{}

func (rejectPass) Schedule(culling.Dispatcher, *culling.Completion) (*culling.Completion, error) {
	return nil, culling.ErrInvalidSplitCount
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	d := culling.NewDispatcher(culling.WithWorkers(2))
	t.Cleanup(d.Close)
	return NewEngine(append([]EngineBuilderOption{WithDispatcher(d)}, options...)...)
}

func TestEngine_RunFrameChainsPassesInKeyOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	pass := func(name string) culling.Pass { return &orderPass{name: name, mu: &mu, log: &order} }

	var submitted atomic.Int32
	e := newTestEngine(t,
		WithPass(20, "shadow", pass("shadow")),
		WithPass(-5, "prepass", pass("prepass")),
		WithSubmitCallback(func(float32) { submitted.Add(1) }),
	)
	e.AddPass(10, "camera", pass("camera"))

	require.NoError(t, e.RunFrame(0.016))
	assert.Equal(t, []string{"prepass", "camera", "shadow"}, order)
	assert.Equal(t, int32(1), submitted.Load())
}

func TestEngine_FailedPassSkipsLaterPassesAndSubmit(t *testing.T) {
	var mu sync.Mutex
	var order []string
	boom := errors.New("boom")

	var submitted atomic.Int32
	e := newTestEngine(t,
		WithPass(1, "first", &orderPass{name: "first", mu: &mu, log: &order, fail: boom}),
		WithPass(2, "second", &orderPass{name: "second", mu: &mu, log: &order}),
		WithSubmitCallback(func(float32) { submitted.Add(1) }),
	)

	err := e.RunFrame(0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, order)
	assert.Zero(t, submitted.Load())
}

func TestEngine_ScheduleErrorIsReturned(t *testing.T) {
	var mu sync.Mutex
	var order []string
	e := newTestEngine(t,
		WithPass(1, "first", &orderPass{name: "first", mu: &mu, log: &order}),
		WithPass(2, "broken", rejectPass{}),
	)

	err := e.RunFrame(0)
	assert.ErrorIs(t, err, culling.ErrInvalidSplitCount)
	assert.Equal(t, []string{"first"}, order, "passes scheduled before the error still finish")
}

func TestEngine_ScheduleFrameWithoutPasses(t *testing.T) {
	e := newTestEngine(t)

	done, err := e.ScheduleFrame(nil)
	require.NoError(t, err)
	assert.True(t, done.IsDone())
}

func TestEngine_PassRegistry(t *testing.T) {
	e := newTestEngine(t)
	p := rejectPass{}

	e.AddPass(3, "x", p)
	assert.Equal(t, culling.Pass(p), e.Pass(3))
	assert.Len(t, e.Passes(), 1)

	e.RemovePass(3)
	assert.Nil(t, e.Pass(3))
	assert.Empty(t, e.Passes())

	assert.Panics(t, func() { e.AddPass(1, "nil", nil) })
}

func TestEngine_ProfilerReceivesPassStats(t *testing.T) {
	batches := culling.BatchSlice{culling.NewVisibilityBatch(0, 64), culling.NewVisibilityBatch(1, 64)}
	pass := culling.NewPass[clipper.PredicateTester](
		func() culling.PassContext {
			return culling.PassContext{ViewType: culling.ViewTypeCamera, SplitCount: 1, Batches: batches}
		},
		func() clipper.PredicateClipper {
			return clipper.NewPredicateClipper(nil, func(_, instance, _ int) bool { return instance < 16 })
		},
	)

	p := profiler.NewProfiler(profiler.WithInterval(time.Hour), profiler.WithLogger(func(string, ...any) {}))
	e := newTestEngine(t, WithProfiling(true), WithProfiler(p), WithPass(0, "camera", pass))

	require.NoError(t, e.RunFrame(0))

	stats := p.Passes()["camera"]
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 128, stats.InstancesIn)
	assert.Equal(t, 32, stats.InstancesOut)
	assert.Equal(t, 16, batches[1].VisibleCount())
}

func TestEngine_RunUntilQuit(t *testing.T) {
	var frames atomic.Int32
	e := NewEngine(WithRenderFrameLimit(500), WithTickRate(1000))
	e.SetSubmitCallback(func(float32) {
		if frames.Add(1) == 3 {
			e.Quit()
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after Quit")
	}
	assert.GreaterOrEqual(t, frames.Load(), int32(3))

	// The engine owned its dispatcher and closed it on shutdown.
	c := e.Dispatcher().Schedule(nil, culling.ParallelFor{})
	assert.ErrorIs(t, c.Wait(), culling.ErrDispatcherClosed)
	e.Quit()
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Equal(t, 10*time.Millisecond, frameDuration(100))
}
