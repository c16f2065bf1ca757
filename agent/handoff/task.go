package handoff

import "github.com/google/uuid"

// Task is the unit of work routed through the orchestrator. ID and
// description are fixed at creation; the context bag is shared by every
// agent that touches the task during one run.
type Task struct {
	id          string
	description string
	ctx         *Context
}

// TaskOption configures a Task at creation.
type TaskOption func(*Task)

// WithID overrides the generated task ID.
func WithID(id string) TaskOption {
	return func(t *Task) {
		if id != "" {
			t.id = id
		}
	}
}

// WithSeed pre-populates a caller-owned context entry.
func WithSeed(key string, v Value) TaskOption {
	return func(t *Task) {
		if key != "" {
			t.ctx.entries[key] = entry{value: v, owner: CallerOwner}
		}
	}
}

// NewTask creates a task with a fresh UUID.
func NewTask(description string, opts ...TaskOption) *Task {
	t := &Task{
		id:          uuid.NewString(),
		description: description,
		ctx:         newContext(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// Description returns the free-text instruction.
func (t *Task) Description() string { return t.description }

// Context returns the shared context bag.
func (t *Task) Context() *Context { return t.ctx }

// TaskSnapshot is a point-in-time copy of a task.
type TaskSnapshot struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Context     map[string]Value `json:"context"`
}

// Snapshot copies the task, including its current context entries.
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		ID:          t.id,
		Description: t.description,
		Context:     t.ctx.Snapshot(),
	}
}
