package handoff

import (
	"fmt"

	"github.com/BaSui01/agentrelay/types"
)

// DecisionKind is an agent's verdict on who should own the task next.
type DecisionKind string

const (
	// DecisionComplete ends the run with the agent's output.
	DecisionComplete DecisionKind = "complete"
	// DecisionForward hands the task to a peer specialist.
	DecisionForward DecisionKind = "forward"
	// DecisionEscalate hands the task to a more capable agent.
	DecisionEscalate DecisionKind = "escalate"
	// DecisionCollaborate asks another agent to contribute to the same result.
	DecisionCollaborate DecisionKind = "collaborate"
)

// Valid reports whether k is one of the four known kinds.
func (k DecisionKind) Valid() bool {
	switch k {
	case DecisionComplete, DecisionForward, DecisionEscalate, DecisionCollaborate:
		return true
	}
	return false
}

// Handoff reports whether k transfers ownership of the task.
func (k DecisionKind) Handoff() bool {
	return k == DecisionForward || k == DecisionEscalate
}

// Decision is returned by an agent alongside its output.
type Decision struct {
	Kind   DecisionKind `json:"kind"`
	Target string       `json:"target,omitempty"`
	Reason string       `json:"reason"`
}

// Complete ends the run.
func Complete(reason string) Decision {
	return Decision{Kind: DecisionComplete, Reason: reason}
}

// Forward hands the task to target.
func Forward(target, reason string) Decision {
	return Decision{Kind: DecisionForward, Target: target, Reason: reason}
}

// Escalate hands the task to a more capable target.
func Escalate(target, reason string) Decision {
	return Decision{Kind: DecisionEscalate, Target: target, Reason: reason}
}

// Collaborate asks target to run against the same task and merges both outputs.
func Collaborate(target, reason string) Decision {
	return Decision{Kind: DecisionCollaborate, Target: target, Reason: reason}
}

// Validate checks the shape of the decision. Whether Target is registered
// is checked by the orchestrator.
func (d Decision) Validate() error {
	if !d.Kind.Valid() {
		return types.Errorf(types.ErrInvalidDecision, "unknown decision kind %q", d.Kind)
	}
	if d.Reason == "" {
		return types.Errorf(types.ErrInvalidDecision, "%s decision has no reason", d.Kind)
	}
	if d.Kind == DecisionComplete {
		if d.Target != "" {
			return types.Errorf(types.ErrInvalidDecision, "complete decision must not name a target (got %q)", d.Target)
		}
		return nil
	}
	if d.Target == "" {
		return types.Errorf(types.ErrInvalidDecision, "%s decision requires a target", d.Kind)
	}
	return nil
}

// String renders the decision for logs.
func (d Decision) String() string {
	if d.Target == "" {
		return fmt.Sprintf("%s (%s)", d.Kind, d.Reason)
	}
	return fmt.Sprintf("%s -> %s (%s)", d.Kind, d.Target, d.Reason)
}
