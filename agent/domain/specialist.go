package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentrelay/agent/classify"
	"github.com/BaSui01/agentrelay/agent/handoff"
	"github.com/BaSui01/agentrelay/types"
	"go.uber.org/zap"
)

// Route sends tasks carrying Label to the agent named Target.
type Route struct {
	Label  string
	Target string
}

// Profile describes one specialty and its routing rules.
type Profile struct {
	// Name is the registered agent name and its own context key.
	Name string
	// Label is the classifier label of the agent's own specialty.
	Label        string
	Capabilities []string
	// Escalations route capability tiers the agent cannot serve to a more
	// capable agent. Checked first, in order.
	Escalations []Route
	// Delegations route tiers better served by a peer. Checked second.
	Delegations []Route
	// Peers map the other specialties to the agents that own them.
	Peers []Route
}

// Specialist is a handoff.Agent that calls its collaborator, publishes the
// answer under its own name and then classifies the task to decide where it
// goes next. It holds no per-task state.
type Specialist struct {
	profile    Profile
	invoker    Invoker
	classifier classify.Classifier
	logger     *zap.Logger
}

// NewSpecialist creates a specialist. A nil invoker answers with
// StaticInvoker; a nil classifier uses classify.NewDefault.
func NewSpecialist(p Profile, inv Invoker, c classify.Classifier, logger *zap.Logger) *Specialist {
	if inv == nil {
		inv = StaticInvoker(p.Name)
	}
	if c == nil {
		c = classify.NewDefault()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Specialist{
		profile:    p,
		invoker:    inv,
		classifier: c,
		logger:     logger.With(zap.String("component", "specialist"), zap.String("agent", p.Name)),
	}
}

// Name returns the agent name.
func (s *Specialist) Name() string { return s.profile.Name }

// Profile returns the routing profile.
func (s *Specialist) Profile() Profile { return s.profile }

// Capabilities implements handoff.Agent.
func (s *Specialist) Capabilities() []string {
	return append([]string(nil), s.profile.Capabilities...)
}

// Run implements handoff.Agent.
func (s *Specialist) Run(ctx context.Context, task *handoff.Task) (handoff.Value, handoff.Decision, error) {
	out, err := s.invoker.Invoke(ctx, task.Description(), task.Context().Snapshot())
	if err != nil {
		return handoff.Value{}, handoff.Decision{}, types.Errorf(types.ErrUpstreamError, "%s collaborator failed", s.profile.Name).
			WithAgent(s.profile.Name).
			WithCause(err).
			WithRetryable(true)
	}

	output := handoff.String(out)
	if err := task.Context().SetOwn(output); err != nil {
		return handoff.Value{}, handoff.Decision{}, err
	}

	cls, err := s.classifier.Classify(ctx, task.Description())
	if err != nil {
		return handoff.Value{}, handoff.Decision{}, fmt.Errorf("classify task: %w", err)
	}

	decision := s.decide(task, cls)
	s.logger.Debug("routing decided",
		zap.Strings("labels", cls.Labels()),
		zap.String("decision", decision.String()),
	)
	return output, decision, nil
}

func (s *Specialist) decide(task *handoff.Task, cls classify.Classification) handoff.Decision {
	p := s.profile

	for _, r := range p.Escalations {
		if sig, ok := cls.Strongest(r.Label); ok {
			return handoff.Escalate(r.Target, fmt.Sprintf("task needs %s (%s)", r.Label, strings.Join(sig.Terms, ", ")))
		}
	}
	for _, r := range p.Delegations {
		if sig, ok := cls.Strongest(r.Label); ok {
			return handoff.Forward(r.Target, fmt.Sprintf("%s is better served by %s (%s)", r.Label, r.Target, strings.Join(sig.Terms, ", ")))
		}
	}

	peerLabels := make([]string, len(p.Peers))
	for i, r := range p.Peers {
		peerLabels[i] = r.Label
	}
	if sig, ok := cls.Strongest(peerLabels...); ok {
		target := peerTarget(p.Peers, sig.Label)
		terms := strings.Join(sig.Terms, ", ")
		if !cls.Has(p.Label) {
			return handoff.Forward(target, fmt.Sprintf("task is %s work (%s)", sig.Label, terms))
		}
		if owner, ok := task.Context().Owner(target); ok && owner == target {
			return handoff.Complete(fmt.Sprintf("%s part done, %s already contributed", p.Label, target))
		}
		return handoff.Collaborate(target, fmt.Sprintf("task also needs %s (%s)", sig.Label, terms))
	}

	if cls.Has(p.Label) {
		return handoff.Complete(fmt.Sprintf("%s task handled", p.Label))
	}
	return handoff.Complete("no other specialty implicated")
}

func peerTarget(peers []Route, label string) string {
	for _, r := range peers {
		if r.Label == label {
			return r.Target
		}
	}
	return ""
}
