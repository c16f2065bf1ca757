package handoff

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/agentrelay/internal/metrics"
	"github.com/BaSui01/agentrelay/internal/retry"
	"github.com/BaSui01/agentrelay/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName    = "github.com/BaSui01/agentrelay/agent/handoff"
	maxRetryDelay = 5 * time.Second
)

// Orchestrator owns an agent registry and drives tasks through it.
//
// The registry is written during setup and only read by Execute, so one
// Orchestrator may serve concurrent runs as long as each run has its own Task.
type Orchestrator struct {
	mu     sync.RWMutex
	agents map[string]Agent

	defaults   RunOptions
	merger     Merger
	metrics    *metrics.Collector
	tracer     trace.Tracer
	retryDelay time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// New creates an orchestrator with an empty registry.
func New(logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		agents:   make(map[string]Agent),
		defaults: DefaultRunOptions(),
		merger:   ProvenanceMerger{},
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		now:      time.Now,
		logger:   logger.With(zap.String("component", "handoff_orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterAgent adds agent under name. Names are unique per orchestrator.
func (o *Orchestrator) RegisterAgent(name string, agent Agent) error {
	if name == "" {
		return types.NewError(types.ErrInvalidAgent, "agent name must not be empty")
	}
	if agent == nil {
		return types.Errorf(types.ErrInvalidAgent, "agent %q is nil", name).WithAgent(name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.agents[name]; exists {
		return types.Errorf(types.ErrDuplicateAgent, "agent %q is already registered", name).WithAgent(name)
	}
	o.agents[name] = agent

	o.logger.Info("registered agent",
		zap.String("agent", name),
		zap.Strings("capabilities", agent.Capabilities()),
	)
	return nil
}

// MustRegisterAgent is like RegisterAgent but panics on error.
func (o *Orchestrator) MustRegisterAgent(name string, agent Agent) {
	if err := o.RegisterAgent(name, agent); err != nil {
		panic(err)
	}
}

// Agent returns the agent registered under name.
func (o *Orchestrator) Agent(name string) (Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[name]
	return a, ok
}

// Agents returns the registered names in sorted order.
func (o *Orchestrator) Agents() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.agents))
	for name := range o.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute routes task through the registry starting at startAgent and
// returns once the run reaches a terminal state. Run failures are reported
// in Result.Err together with the history recorded so far.
//
// Execute panics if task is nil.
func (o *Orchestrator) Execute(ctx context.Context, task *Task, startAgent string, opts ...RunOption) *Result {
	if task == nil {
		panic("handoff: Execute called with nil task")
	}

	runOpts := o.defaults
	for _, opt := range opts {
		opt(&runOpts)
	}
	runOpts = runOpts.normalized()

	runID := uuid.NewString()
	ctx = types.WithRunID(ctx, runID)
	if runOpts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runOpts.Timeout)
		defer cancel()
	}

	ctx, span := o.tracer.Start(ctx, "handoff.execute", trace.WithAttributes(
		attribute.String("handoff.run_id", runID),
		attribute.String("handoff.task_id", task.ID()),
		attribute.String("handoff.start_agent", startAgent),
		attribute.Int("handoff.max_hops", runOpts.MaxHops),
	))
	defer span.End()

	r := &run{
		o:       o,
		task:    task,
		opts:    runOpts,
		started: o.now(),
		logger: o.logger.With(
			zap.String("run_id", runID),
			zap.String("task_id", task.ID()),
		),
		result: &Result{
			RunID:   runID,
			TaskID:  task.ID(),
			State:   StateRunning,
			History: make([]ExecutionRecord, 0, runOpts.MaxHops),
		},
	}

	r.logger.Info("run started",
		zap.String("start_agent", startAgent),
		zap.Int("max_hops", runOpts.MaxHops),
		zap.Int("max_retries", runOpts.MaxRetries),
		zap.Duration("timeout", runOpts.Timeout),
	)

	r.loop(ctx, startAgent)
	task.ctx.bind(CallerOwner)

	res := r.result
	res.Hops = len(res.History)
	res.Duration = o.now().Sub(r.started)

	span.SetAttributes(
		attribute.String("handoff.state", string(res.State)),
		attribute.Int("handoff.hops", res.Hops),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Message)
	}
	o.metrics.RecordRun(startAgent, string(res.State), res.Duration, res.Hops)

	r.logger.Info("run finished",
		zap.String("state", string(res.State)),
		zap.Int("hops", res.Hops),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// run is the state of one Execute call.
type run struct {
	o       *Orchestrator
	task    *Task
	opts    RunOptions
	started time.Time
	logger  *zap.Logger
	result  *Result
}

func (r *run) loop(ctx context.Context, name string) {
	for {
		agent, ok := r.lookup(name)
		if !ok {
			return
		}
		rec, ok := r.step(ctx, name, agent, "")
		if !ok || r.hopLimitReached(rec) {
			return
		}

		switch rec.Decision.Kind {
		case DecisionComplete:
			r.finish(StateCompleted, rec.Output)
			return
		case DecisionForward, DecisionEscalate:
			name = rec.Decision.Target
		case DecisionCollaborate:
			next, cont := r.collaborate(ctx, rec)
			if !cont {
				return
			}
			name = next
		}
	}
}

// lookup resolves name, aborting the run when it is not registered.
func (r *run) lookup(name string) (Agent, bool) {
	agent, ok := r.o.Agent(name)
	if ok {
		return agent, true
	}

	err := types.Errorf(types.ErrUnknownTarget, "starting agent %q is not registered", name).WithAgent(name)
	if last, hasLast := r.result.Last(); hasLast {
		err = types.Errorf(types.ErrUnknownTarget, "agent %q named unregistered target %q", last.Agent, name).
			WithAgent(last.Agent)
	}
	r.abort(StateAbortedUnknownTarget, err)
	return nil, false
}

// step invokes one agent, retrying failures against the same context
// snapshot, and appends its record.
func (r *run) step(ctx context.Context, name string, agent Agent, collaboratorOf string) (ExecutionRecord, bool) {
	if err := ctx.Err(); err != nil {
		r.abort(StateAbortedTimeout, types.Errorf(types.ErrTimeout, "run deadline reached before invoking agent %q", name).
			WithAgent(name).
			WithCause(err))
		return ExecutionRecord{}, false
	}

	hop := len(r.result.History)
	ctx, span := r.o.tracer.Start(ctx, "handoff.hop", trace.WithAttributes(
		attribute.String("handoff.agent", name),
		attribute.Int("handoff.hop", hop),
		attribute.String("handoff.collaborator_of", collaboratorOf),
	))
	defer span.End()
	ctx = types.WithHopScope(ctx, types.HopScope{
		Agent:          name,
		Index:          hop,
		CollaboratorOf: collaboratorOf,
	})

	bag := r.task.ctx
	bag.bind(name)
	input := r.task.Snapshot()
	cp := bag.checkpoint()
	started := r.o.now()

	var (
		output   Value
		decision Decision
	)
	attempts, lastErr := retry.Run(ctx, retry.Policy{
		Retries:    r.opts.MaxRetries,
		BaseDelay:  r.o.retryDelay,
		MaxDelay:   maxRetryDelay,
		Multiplier: 2.0,
		Retryable: func(error) bool {
			return ctx.Err() == nil
		},
		OnRetry: func(n int, err error, delay time.Duration) {
			r.o.metrics.RecordRetry(name)
			r.logger.Warn("agent failed, retrying",
				zap.String("agent", name),
				zap.Int("hop", hop),
				zap.Int("retry", n),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
	}, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			bag.restore(cp)
		}
		out, dec, err := safeRun(ctx, agent, r.task)
		if err != nil {
			return err
		}
		output, decision = out, dec
		return nil
	})

	if lastErr != nil {
		bag.restore(cp)
		r.o.metrics.RecordAgentFailure(name)
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, "agent failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.abort(StateAbortedTimeout, types.Errorf(types.ErrTimeout, "run deadline reached while agent %q was running", name).
				WithAgent(name).
				WithCause(lastErr))
			return ExecutionRecord{}, false
		}
		r.abort(StateAbortedAgentFailure, types.Errorf(types.ErrAgentFailure, "agent %q failed after %d attempt(s)", name, attempts).
			WithAgent(name).
			WithCause(lastErr))
		return ExecutionRecord{}, false
	}

	if err := decision.Validate(); err != nil {
		bag.restore(cp)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid decision")
		r.abort(StateAbortedAgentFailure, types.Errorf(types.ErrInvalidDecision, "agent %q returned an invalid decision", name).
			WithAgent(name).
			WithCause(err))
		return ExecutionRecord{}, false
	}

	end := r.o.now()
	rec := ExecutionRecord{
		Sequence:       hop,
		Agent:          name,
		Input:          input,
		Output:         output,
		Decision:       decision,
		Attempts:       attempts,
		CollaboratorOf: collaboratorOf,
		StartedAt:      started,
		Duration:       end.Sub(started),
		Timestamp:      end,
	}
	r.result.History = append(r.result.History, rec)
	r.o.metrics.RecordHop(name, string(decision.Kind))

	span.SetAttributes(
		attribute.String("handoff.decision", string(decision.Kind)),
		attribute.String("handoff.target", decision.Target),
		attribute.Int("handoff.attempts", attempts),
	)
	r.logger.Debug("hop recorded",
		zap.Int("hop", hop),
		zap.String("agent", name),
		zap.String("decision", string(decision.Kind)),
		zap.String("target", decision.Target),
		zap.String("reason", decision.Reason),
		zap.Int("attempts", attempts),
	)
	return rec, true
}

// collaborate runs the collaborator named by rec and merges both outputs.
// It returns the next agent when the collaborator hands the task on.
func (r *run) collaborate(ctx context.Context, rec ExecutionRecord) (string, bool) {
	target := rec.Decision.Target
	agent, ok := r.lookup(target)
	if !ok {
		return "", false
	}
	crec, ok := r.step(ctx, target, agent, rec.Agent)
	if !ok {
		return "", false
	}

	if crec.Decision.Kind.Handoff() {
		if r.hopLimitReached(crec) {
			return "", false
		}
		r.logger.Debug("collaborator handed off, chain continues",
			zap.String("collaborator", crec.Agent),
			zap.String("target", crec.Decision.Target),
		)
		return crec.Decision.Target, true
	}

	// A nested collaborate is not followed; the pair is merged as is.
	merged := r.o.merger.Merge(
		Contribution{Agent: rec.Agent, Output: rec.Output},
		Contribution{Agent: crec.Agent, Output: crec.Output},
	)
	r.finish(StateCompletedWithCollaboration, merged)
	return "", false
}

func (r *run) hopLimitReached(rec ExecutionRecord) bool {
	if rec.Decision.Kind == DecisionComplete || len(r.result.History) < r.opts.MaxHops {
		return false
	}
	r.abort(StateAbortedMaxHopsExceeded, types.Errorf(types.ErrMaxHopsExceeded,
		"hop limit %d reached without completion, last decision: %s", r.opts.MaxHops, rec.Decision).
		WithAgent(rec.Agent))
	return true
}

func (r *run) finish(state State, output Value) {
	r.result.State = state
	r.result.Output = output
}

func (r *run) abort(state State, err *types.Error) {
	r.result.State = state
	r.result.Output = Value{}
	r.result.Err = err

	fields := []zap.Field{
		zap.String("state", string(state)),
		zap.String("agent", err.Agent),
		zap.Int("hop", len(r.result.History)),
		zap.Error(err),
	}
	if state == StateAbortedAgentFailure {
		r.logger.Error("run aborted", fields...)
		return
	}
	r.logger.Warn("run aborted", fields...)
}

// safeRun converts an agent panic into an error.
func safeRun(ctx context.Context, agent Agent, task *Task) (out Value, dec Decision, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = types.NewError(types.ErrInternalError, fmt.Sprintf("agent panicked: %v", p))
		}
	}()
	return agent.Run(ctx, task)
}
