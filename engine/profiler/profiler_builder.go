package profiler

import "time"

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are logged.
// Values <= 0 log on every tick.
//
// Parameters:
//   - interval: time between log lines
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = max(interval, 0)
	}
}

// WithLogger replaces log.Printf as the output sink.
//
// Parameters:
//   - logf: printf-style function receiving every profiler line
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(logf func(format string, args ...any)) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logf != nil {
			p.logf = logf
		}
	}
}
