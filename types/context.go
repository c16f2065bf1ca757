package types

import "context"

type ctxKey int

const (
	runKey ctxKey = iota
	hopKey
)

// HopScope identifies the agent invocation a context belongs to.
type HopScope struct {
	RunID string
	Agent string
	// Index is zero-based within the run.
	Index int
	// CollaboratorOf names the requesting agent when this hop answers a
	// collaborate decision. Empty otherwise.
	CollaboratorOf string
}

// Collaborating reports whether the hop was requested by another agent.
func (s HopScope) Collaborating() bool { return s.CollaboratorOf != "" }

// WithRunID tags ctx with the orchestrator run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runKey, runID)
}

// RunID returns the run tag set by WithRunID. Empty IDs count as missing.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runKey).(string)
	return v, ok && v != ""
}

// WithHopScope tags ctx with the hop being executed. A scope without
// RunID inherits the one already on ctx.
func WithHopScope(ctx context.Context, scope HopScope) context.Context {
	if scope.RunID == "" {
		scope.RunID, _ = RunID(ctx)
	}
	return context.WithValue(ctx, hopKey, scope)
}

// CurrentHop returns the scope set by WithHopScope.
func CurrentHop(ctx context.Context) (HopScope, bool) {
	v, ok := ctx.Value(hopKey).(HopScope)
	return v, ok
}
