package handoff_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/BaSui01/agentrelay/agent/handoff"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

var decisionKinds = []handoff.DecisionKind{
	handoff.DecisionComplete,
	handoff.DecisionForward,
	handoff.DecisionEscalate,
	handoff.DecisionCollaborate,
}

// scriptedRegistry registers n agents whose decisions are drawn up front.
// Each agent publishes its call count under its own name.
func scriptedRegistry(rt *rapid.T, o *handoff.Orchestrator, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("agent-%d", i)
	}
	targets := append(append([]string(nil), names...), "ghost")

	for _, name := range names {
		script := make([]handoff.Decision, rapid.IntRange(1, 6).Draw(rt, name+"_script_len"))
		for i := range script {
			kind := rapid.SampledFrom(decisionKinds).Draw(rt, fmt.Sprintf("%s_kind_%d", name, i))
			if kind == handoff.DecisionComplete {
				script[i] = handoff.Complete("done")
				continue
			}
			target := rapid.SampledFrom(targets).Draw(rt, fmt.Sprintf("%s_target_%d", name, i))
			script[i] = handoff.Decision{Kind: kind, Target: target, Reason: "generated"}
		}

		calls := 0
		o.MustRegisterAgent(name, handoff.AgentFunc(func(ctx context.Context, task *handoff.Task) (handoff.Value, handoff.Decision, error) {
			d := script[calls%len(script)]
			calls++
			out := handoff.Number(float64(calls))
			if err := task.Context().SetOwn(out); err != nil {
				return handoff.Value{}, handoff.Decision{}, err
			}
			return out, d, nil
		}))
	}
	return names
}

// TestProperty_Orchestrator_Termination checks that any registry and any
// decision script finish in a terminal state within the hop limit, with a
// gap-free history.
func TestProperty_Orchestrator_Termination(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := handoff.New(zap.NewNop())
		names := scriptedRegistry(rt, o, rapid.IntRange(1, 5).Draw(rt, "agents"))
		maxHops := rapid.IntRange(1, 12).Draw(rt, "maxHops")
		start := rapid.SampledFrom(names).Draw(rt, "start")

		res := o.Execute(context.Background(), handoff.NewTask("generated"), start, handoff.WithMaxHops(maxHops))

		require.True(rt, res.State.Terminal(), "state %s", res.State)
		assert.LessOrEqual(rt, len(res.History), maxHops)
		assert.Equal(rt, len(res.History), res.Hops)
		for i, rec := range res.History {
			assert.Equal(rt, i, rec.Sequence)
		}
		if res.State.Aborted() {
			require.NotNil(rt, res.Err)
			assert.True(rt, res.Output.IsNull())
		} else {
			assert.Nil(rt, res.Err)
		}
	})
}

// TestProperty_Orchestrator_DecisionValidity checks that every record that
// led to another hop named a registered agent.
func TestProperty_Orchestrator_DecisionValidity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := handoff.New(zap.NewNop())
		names := scriptedRegistry(rt, o, rapid.IntRange(1, 4).Draw(rt, "agents"))
		start := rapid.SampledFrom(names).Draw(rt, "start")

		res := o.Execute(context.Background(), handoff.NewTask("generated"), start)

		for i := 0; i+1 < len(res.History); i++ {
			rec := res.History[i]
			require.NotEqual(rt, handoff.DecisionComplete, rec.Decision.Kind)
			_, ok := o.Agent(rec.Decision.Target)
			assert.True(rt, ok, "record %d targets unregistered %q", i, rec.Decision.Target)
			assert.Equal(rt, rec.Decision.Target, res.History[i+1].Agent)
		}
		if res.State == handoff.StateAbortedUnknownTarget && len(res.History) > 0 {
			last, _ := res.Last()
			_, ok := o.Agent(last.Decision.Target)
			assert.False(rt, ok)
		}
	})
}

// TestProperty_Orchestrator_ContextMonotonicity checks that keys visible to
// one hop are still visible to every later hop and that caller seeds never
// change.
func TestProperty_Orchestrator_ContextMonotonicity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := handoff.New(zap.NewNop())
		names := scriptedRegistry(rt, o, rapid.IntRange(1, 4).Draw(rt, "agents"))
		start := rapid.SampledFrom(names).Draw(rt, "start")
		seed := rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "seed")

		task := handoff.NewTask("generated", handoff.WithSeed("seed", handoff.String(seed)))
		res := o.Execute(context.Background(), task, start, handoff.WithMaxHops(8))

		for i := 1; i < len(res.History); i++ {
			prev := res.History[i-1].Input.Context
			cur := res.History[i].Input.Context
			for k := range prev {
				_, ok := cur[k]
				assert.True(rt, ok, "key %q vanished at hop %d", k, i)
			}
			assert.Equal(rt, seed, cur["seed"].String())
		}
		v, ok := task.Context().Get("seed")
		require.True(rt, ok)
		assert.Equal(rt, seed, v.String())
	})
}

// TestProperty_Orchestrator_ForwardChainLength checks that a linear chain of
// k agents completes when k fits in the hop limit and aborts at exactly the
// limit otherwise.
func TestProperty_Orchestrator_ForwardChainLength(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("linear chains stop at min(k, maxHops)", prop.ForAll(
		func(k, maxHops int) bool {
			o := handoff.New(zap.NewNop())
			for i := 0; i < k; i++ {
				name := fmt.Sprintf("c%d", i)
				d := handoff.Forward(fmt.Sprintf("c%d", i+1), "next in line")
				if i == k-1 {
					d = handoff.Complete("end of line")
				}
				o.MustRegisterAgent(name, handoff.AgentFunc(func(ctx context.Context, task *handoff.Task) (handoff.Value, handoff.Decision, error) {
					return handoff.String(name), d, nil
				}))
			}

			res := o.Execute(context.Background(), handoff.NewTask("chain"), "c0", handoff.WithMaxHops(maxHops))

			if k <= maxHops {
				return res.State == handoff.StateCompleted &&
					len(res.History) == k &&
					res.Output.String() == fmt.Sprintf("c%d", k-1)
			}
			return res.State == handoff.StateAbortedMaxHopsExceeded && len(res.History) == maxHops
		},
		gen.IntRange(1, 15),
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t)
}
