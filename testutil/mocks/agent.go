// =============================================================================
// 🤖 MockAgent - 可编排的 Agent 模拟实现
// =============================================================================
// 用于测试编排器的 Agent 模拟，支持按调用顺序脚本化输出与决策、错误注入
//
// 使用方法:
//
//	a := mocks.NewMockAgent("retrieval").
//		WithOutput(handoff.String("hotels")).
//		WithDecision(handoff.Forward("analytics", "needs stats"))
//	orch.MustRegisterAgent("retrieval", a)
// =============================================================================
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/agentrelay/agent/handoff"
)

// Step 描述一次调用的行为
type Step struct {
	Output   handoff.Value
	Decision handoff.Decision
	Err      error
	// Panic 非空时 Run 以该值 panic
	Panic any
	// Delay 在返回前等待，期间响应 ctx 取消
	Delay time.Duration
	// Writes 以 Agent 身份写入上下文的额外键
	Writes map[string]handoff.Value
}

// Call 记录一次 Run 调用
type Call struct {
	Task   handoff.TaskSnapshot
	Writer string
}

// MockAgent 是 handoff.Agent 的模拟实现
type MockAgent struct {
	mu sync.Mutex

	name         string
	capabilities []string
	steps        []Step
	fallback     Step
	failFirst    int
	failErr      error
	publish      bool
	runFunc      func(ctx context.Context, task *handoff.Task) (handoff.Value, handoff.Decision, error)

	calls []Call
}

// =============================================================================
// 🔧 构造函数和 Builder 方法
// =============================================================================

// NewMockAgent 创建默认输出 "<name> done" 并 complete 的 MockAgent
func NewMockAgent(name string) *MockAgent {
	return &MockAgent{
		name:    name,
		publish: true,
		fallback: Step{
			Output:   handoff.String(name + " done"),
			Decision: handoff.Complete("mock complete"),
		},
	}
}

// WithCapabilities 设置能力标签
func (m *MockAgent) WithCapabilities(caps ...string) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capabilities = append([]string(nil), caps...)
	return m
}

// WithOutput 设置默认输出
func (m *MockAgent) WithOutput(v handoff.Value) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback.Output = v
	return m
}

// WithDecision 设置默认决策
func (m *MockAgent) WithDecision(d handoff.Decision) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback.Decision = d
	return m
}

// WithScript 按调用顺序设置行为，脚本耗尽后使用默认行为
func (m *MockAgent) WithScript(steps ...Step) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append([]Step(nil), steps...)
	return m
}

// WithFailures 前 n 次调用返回 err
func (m *MockAgent) WithFailures(n int, err error) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFirst = n
	m.failErr = err
	return m
}

// WithPublish 控制是否将输出写入以 Agent 名为键的上下文条目
func (m *MockAgent) WithPublish(publish bool) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish = publish
	return m
}

// WithRunFunc 完全接管 Run 行为
func (m *MockAgent) WithRunFunc(fn func(ctx context.Context, task *handoff.Task) (handoff.Value, handoff.Decision, error)) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runFunc = fn
	return m
}

// =============================================================================
// 🎯 handoff.Agent 接口实现
// =============================================================================

// Capabilities 返回能力标签
func (m *MockAgent) Capabilities() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.capabilities...)
}

// Run 按脚本执行一次调用
func (m *MockAgent) Run(ctx context.Context, task *handoff.Task) (handoff.Value, handoff.Decision, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, Call{Task: task.Snapshot(), Writer: task.Context().Writer()})
	runFunc := m.runFunc
	step := m.fallback
	if n < len(m.steps) {
		step = m.steps[n]
	}
	if n < m.failFirst {
		step = Step{Err: m.failErr}
	}
	publish := m.publish
	m.mu.Unlock()

	if runFunc != nil {
		return runFunc(ctx, task)
	}

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return handoff.Value{}, handoff.Decision{}, ctx.Err()
		case <-timer.C:
		}
	}
	if step.Panic != nil {
		panic(step.Panic)
	}

	for k, v := range step.Writes {
		if err := task.Context().Set(k, v); err != nil {
			return handoff.Value{}, handoff.Decision{}, err
		}
	}
	if step.Err != nil {
		return handoff.Value{}, handoff.Decision{}, step.Err
	}
	if publish {
		if err := task.Context().SetOwn(step.Output); err != nil {
			return handoff.Value{}, handoff.Decision{}, err
		}
	}
	return step.Output, step.Decision, nil
}

// =============================================================================
// 📊 调用记录
// =============================================================================

// CallCount 返回 Run 调用次数
func (m *MockAgent) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls 返回所有调用记录的副本
func (m *MockAgent) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Name 返回构造时的名称
func (m *MockAgent) Name() string { return m.name }

// Reset 清空调用记录
func (m *MockAgent) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
