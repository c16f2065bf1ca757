package handoff

import (
	"time"

	"github.com/BaSui01/agentrelay/internal/metrics"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxHops bounds the handoff chain when no limit is configured.
	DefaultMaxHops = 10
	// DefaultMaxRetries is the retry budget for a failing agent.
	DefaultMaxRetries = 1
)

// RunOptions bound a single Execute call.
type RunOptions struct {
	// MaxHops is the maximum number of agent invocations, collaboration
	// hops included. Values <= 0 mean DefaultMaxHops.
	MaxHops int `json:"max_hops" yaml:"max_hops"`
	// Timeout is the overall deadline for the run, composed with the
	// caller's context. Zero means no extra deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// MaxRetries is how many times a failing agent is re-run against the
	// same task snapshot. Negative values mean no retry.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DefaultRunOptions returns the options used when nothing is configured.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		MaxHops:    DefaultMaxHops,
		MaxRetries: DefaultMaxRetries,
	}
}

func (o RunOptions) normalized() RunOptions {
	if o.MaxHops <= 0 {
		o.MaxHops = DefaultMaxHops
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// RunOption overrides orchestrator defaults for one Execute call.
type RunOption func(*RunOptions)

// WithMaxHops sets the hop limit. n <= 0 keeps the current value.
func WithMaxHops(n int) RunOption {
	return func(o *RunOptions) {
		if n > 0 {
			o.MaxHops = n
		}
	}
}

// WithTimeout sets the overall run deadline.
func WithTimeout(d time.Duration) RunOption {
	return func(o *RunOptions) {
		o.Timeout = d
	}
}

// WithMaxRetries sets the per-agent retry budget. n < 0 keeps the current value.
func WithMaxRetries(n int) RunOption {
	return func(o *RunOptions) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDefaults sets the run options applied before per-call RunOptions.
func WithDefaults(opts RunOptions) Option {
	return func(o *Orchestrator) {
		o.defaults = opts.normalized()
	}
}

// WithMerger replaces the ProvenanceMerger used for collaboration.
func WithMerger(m Merger) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.merger = m
		}
	}
}

// WithMetrics records runs and hops into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// WithTracerProvider sets the provider for run and hop spans.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithRetryDelay sets the initial backoff between agent retries.
// Retries are immediate by default.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
