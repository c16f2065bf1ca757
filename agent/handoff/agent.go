package handoff

import "context"

// Agent is a specialized executor. Run performs the work, publishes results
// through task.Context(), and decides whether the task should move on.
// A non-nil error is an agent failure, not a decision; the orchestrator may
// retry it against the same task snapshot.
//
// Agents must be stateless across tasks: the same instance serves many runs,
// possibly concurrently.
type Agent interface {
	Capabilities() []string
	Run(ctx context.Context, task *Task) (Value, Decision, error)
}

// AgentFunc adapts a function to Agent with no declared capabilities.
type AgentFunc func(ctx context.Context, task *Task) (Value, Decision, error)

// Capabilities implements Agent.
func (f AgentFunc) Capabilities() []string { return nil }

// Run implements Agent.
func (f AgentFunc) Run(ctx context.Context, task *Task) (Value, Decision, error) {
	return f(ctx, task)
}
