package handoff

import (
	"time"

	"github.com/BaSui01/agentrelay/types"
)

// ExecutionRecord is one hop of the handoff chain. Records are appended in
// invocation order and never modified afterwards.
type ExecutionRecord struct {
	Sequence int          `json:"sequence"`
	Agent    string       `json:"agent"`
	Input    TaskSnapshot `json:"input"`
	Output   Value        `json:"output"`
	Decision Decision     `json:"decision"`
	// Attempts counts the invocations needed for this hop; failed attempts
	// that were retried are not recorded separately.
	Attempts int `json:"attempts"`
	// CollaboratorOf names the agent that requested this hop through a
	// collaborate decision.
	CollaboratorOf string        `json:"collaborator_of,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	// Timestamp is when the record was appended.
	Timestamp time.Time `json:"timestamp"`
}

// State is the lifecycle state of a run.
type State string

const (
	StateRunning                    State = "running"
	StateCompleted                  State = "completed"
	StateCompletedWithCollaboration State = "completed_with_collaboration"
	StateAbortedMaxHopsExceeded     State = "aborted_max_hops_exceeded"
	StateAbortedUnknownTarget       State = "aborted_unknown_target"
	StateAbortedAgentFailure        State = "aborted_agent_failure"
	StateAbortedTimeout             State = "aborted_timeout"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s != StateRunning && s != ""
}

// Aborted reports whether s is a terminal error state.
func (s State) Aborted() bool {
	switch s {
	case StateAbortedMaxHopsExceeded, StateAbortedUnknownTarget, StateAbortedAgentFailure, StateAbortedTimeout:
		return true
	}
	return false
}

// Result is returned by Orchestrator.Execute. Aborted runs still carry
// every record appended before the abort.
type Result struct {
	RunID    string            `json:"run_id"`
	TaskID   string            `json:"task_id"`
	Output   Value             `json:"output"`
	History  []ExecutionRecord `json:"history"`
	State    State             `json:"state"`
	Err      *types.Error      `json:"error,omitempty"`
	Hops     int               `json:"hops"`
	Duration time.Duration     `json:"duration"`
}

// OK reports whether the run completed, with or without collaboration.
func (r *Result) OK() bool {
	return r.State == StateCompleted || r.State == StateCompletedWithCollaboration
}

// Error returns Err as a plain error, nil when the run succeeded.
func (r *Result) Error() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// Last returns the most recent record.
func (r *Result) Last() (ExecutionRecord, bool) {
	if len(r.History) == 0 {
		return ExecutionRecord{}, false
	}
	return r.History[len(r.History)-1], true
}

// Agents returns the agent names in chain order.
func (r *Result) Agents() []string {
	names := make([]string, len(r.History))
	for i, rec := range r.History {
		names[i] = rec.Agent
	}
	return names
}
