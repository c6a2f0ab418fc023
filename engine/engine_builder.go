package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
	"github.com/Carmen-Shannon/oxy-cull/engine/profiler"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler sets the profiler that receives pass statistics, in place of
// the default one-second profiler.
//
// Parameters:
//   - p: the profiler to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithDispatcher sets a pre-configured dispatcher for the engine to schedule
// passes on. The caller keeps ownership and closes it.
//
// Parameters:
//   - d: the dispatcher to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDispatcher(d culling.Dispatcher) EngineBuilderOption {
	return func(e *engine) {
		e.dispatcher = d
	}
}

// WithPass registers a culling pass at the given order key during engine construction.
// Passes run in ascending key order every frame.
//
// Parameters:
//   - key: the order of the pass within a frame (lower runs first)
//   - label: the name the pass's statistics are reported under
//   - p: the pass to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPass(key int, label string, p culling.Pass) EngineBuilderOption {
	if p == nil {
		panic("engine: WithPass requires a non-nil pass")
	}
	return func(e *engine) {
		e.passes[key] = framePass{label: label, pass: p}
	}
}

// WithSubmitCallback registers the function called after each successful frame.
//
// Parameters:
//   - callback: function receiving the frame's delta time in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSubmitCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.submitCallback = callback
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}
