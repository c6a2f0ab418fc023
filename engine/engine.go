package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
	"github.com/Carmen-Shannon/oxy-cull/engine/profiler"
)

// framePass is a registered culling pass and the label its stats are reported under.
type framePass struct {
	label string
	pass  culling.Pass
}

// engine implements the Engine interface.
// Coordinates the tick goroutine and the frame goroutine.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	dispatcher     culling.Dispatcher
	ownsDispatcher bool

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	submitCallback func(deltaTime float32)

	passes     map[int]framePass
	frameCount atomic.Uint64

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for per-frame culling.
// It owns the culling Dispatcher and an ordered set of culling passes. Every
// frame the passes are chained so that each one starts when the previous one
// completes, and the submit callback runs once the last pass is done.
type Engine interface {
	// Dispatcher returns the dispatcher every pass is scheduled on.
	//
	// Returns:
	//   - culling.Dispatcher: the dispatcher
	Dispatcher() culling.Dispatcher

	// Profiler returns the profiler that receives pass statistics.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic such as moving cameras and lights.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetSubmitCallback registers the function called after every frame whose
	// passes all completed. Use this to upload visibility masks and draw.
	//
	// Parameters:
	//   - callback: function to call each successful frame, receiving the delta time in seconds
	SetSubmitCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddPass registers a culling pass at the given order key, replacing any
	// pass already registered there. Passes run in ascending key order.
	//
	// Parameters:
	//   - key: the order of the pass within a frame (lower runs first)
	//   - label: the name the pass's statistics are reported under
	//   - p: the pass to register
	AddPass(key int, label string, p culling.Pass)

	// RemovePass removes the pass at the given order key.
	//
	// Parameters:
	//   - key: the order key of the pass to remove
	RemovePass(key int)

	// Pass retrieves the pass registered at the given order key.
	// Returns nil if no pass exists at that key.
	//
	// Parameters:
	//   - key: the order key of the pass to retrieve
	//
	// Returns:
	//   - culling.Pass: the pass at the key, or nil if not found
	Pass(key int) culling.Pass

	// Passes returns a copy of all registered passes keyed by order.
	//
	// Returns:
	//   - map[int]culling.Pass: a copy of the passes map
	Passes() map[int]culling.Pass

	// ScheduleFrame chains every registered pass onto the dispatcher and
	// returns without waiting.
	//
	// Parameters:
	//   - dependsOn: the stage the first pass waits for (nil starts immediately)
	//
	// Returns:
	//   - *culling.Completion: resolves when the last pass completes
	//   - error: non-nil if a pass rejected its inputs before scheduling
	ScheduleFrame(dependsOn *culling.Completion) (*culling.Completion, error)

	// RunFrame schedules one frame, waits for it, records pass statistics and,
	// on success, calls the submit callback.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame, handed to the submit callback
	//
	// Returns:
	//   - error: the first pass error of the frame
	RunFrame(deltaTime float32) error

	// Run starts the tick and frame loops and blocks until Quit is called.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Without WithDispatcher the engine creates, and on shutdown closes, a default dispatcher.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, passes, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		passes:          make(map[int]framePass),
		wg:              sync.WaitGroup{},
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.dispatcher == nil {
		e.dispatcher = culling.NewDispatcher(culling.WithLabel("engine"))
		e.ownsDispatcher = true
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	return e
}

func (e *engine) Dispatcher() culling.Dispatcher {
	return e.dispatcher
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Run() {
	e.running.Store(true)
	e.handle()
	e.wg.Wait()
	e.running.Store(false)

	if e.ownsDispatcher {
		e.dispatcher.Close()
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handle launches the tick and frame goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleFrames()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.mu.Lock()
			callback := e.tickCallback
			e.mu.Unlock()
			if callback != nil {
				callback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// handleFrames runs the uncapped (or frame-limited) frame loop in its own goroutine.
// A failed frame is logged and the loop moves on to the next one.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] frame goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastFrame := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastFrame).Seconds())
			lastFrame = now

			_ = e.RunFrame(dt)

			e.mu.Lock()
			limit := e.renderFrameLimit
			e.mu.Unlock()
			if limit > 0 {
				elapsed := time.Since(lastFrame)
				if remaining := limit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

func (e *engine) ScheduleFrame(dependsOn *culling.Completion) (*culling.Completion, error) {
	done, _, err := e.scheduleFrame(dependsOn)
	return done, err
}

// scheduleFrame chains the registered passes in key order. It returns the final
// Completion and every pass's Completion alongside its label.
func (e *engine) scheduleFrame(dependsOn *culling.Completion) (*culling.Completion, []labeledCompletion, error) {
	ordered := e.orderedPasses()

	scheduled := make([]labeledCompletion, 0, len(ordered))
	prev := dependsOn
	for _, fp := range ordered {
		c, err := fp.pass.Schedule(e.dispatcher, prev)
		if err != nil {
			return nil, scheduled, fmt.Errorf("engine: pass %s: %w", fp.label, err)
		}
		scheduled = append(scheduled, labeledCompletion{label: fp.label, completion: c})
		prev = c
	}

	if prev == nil {
		return culling.Completed(), scheduled, nil
	}
	return prev, scheduled, nil
}

type labeledCompletion struct {
	label      string
	completion *culling.Completion
}

func (e *engine) RunFrame(deltaTime float32) error {
	frame := e.frameCount.Add(1)

	done, scheduled, err := e.scheduleFrame(nil)
	if err == nil {
		err = done.Wait()
	}
	// Passes scheduled before a scheduling error still run; wait them out so
	// none is left mutating batches during the next frame.
	for _, lc := range scheduled {
		_ = lc.completion.Wait()
	}

	profiling := e.profilingEnabled.Load()
	if profiling {
		for _, lc := range scheduled {
			if lc.completion.Err() == nil {
				e.profiler.Record(lc.label, lc.completion.Stats())
			}
		}
	}

	if err != nil {
		log.Printf("[Engine] frame %d failed: %v", frame, err)
	} else {
		e.mu.Lock()
		callback := e.submitCallback
		e.mu.Unlock()
		if callback != nil {
			callback(deltaTime)
		}
	}

	if profiling {
		e.profiler.Tick()
	}
	return err
}

// orderedPasses snapshots the registered passes in ascending key order.
func (e *engine) orderedPasses() []framePass {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]int, 0, len(e.passes))
	for k := range e.passes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]framePass, len(keys))
	for i, k := range keys {
		out[i] = e.passes[k]
	}
	return out
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.mu.Lock()
		e.engineTickRate = newRate
		e.mu.Unlock()
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

// SetSubmitCallback registers the function called after each successful frame.
func (e *engine) SetSubmitCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitCallback = callback
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the frame loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) AddPass(key int, label string, p culling.Pass) {
	if p == nil {
		panic("engine: AddPass requires a non-nil pass")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passes[key] = framePass{label: label, pass: p}
}

func (e *engine) RemovePass(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.passes, key)
}

func (e *engine) Pass(key int) culling.Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.passes[key].pass
}

func (e *engine) Passes() map[int]culling.Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]culling.Pass, len(e.passes))
	for k, v := range e.passes {
		cp[k] = v.pass
	}
	return cp
}

// frameDuration converts a frame rate to a per-frame duration; fps <= 0 means uncapped.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
