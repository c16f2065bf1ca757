// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	testutil.AssertChain(t, result, "retrieval", "workflow-automation")
// =============================================================================
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/agentrelay/agent/handoff"
	"github.com/BaSui01/agentrelay/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 交接链断言
// =============================================================================

// AssertChain 断言交接链按顺序经过给定 Agent，且序号从 0 连续递增
func AssertChain(t *testing.T, res *handoff.Result, agents ...string) {
	t.Helper()

	if res == nil {
		t.Fatal("result is nil")
	}
	got := res.Agents()
	if len(got) != len(agents) {
		t.Errorf("chain length mismatch: expected %v, got %v", agents, got)
		return
	}
	for i := range agents {
		if got[i] != agents[i] {
			t.Errorf("chain[%d] mismatch: expected %q, got %q (chain %v)", i, agents[i], got[i], got)
		}
	}
	AssertSequential(t, res)
}

// AssertSequential 断言记录序号恰为 0..N-1
func AssertSequential(t *testing.T, res *handoff.Result) {
	t.Helper()
	for i, rec := range res.History {
		if rec.Sequence != i {
			t.Errorf("record[%d] has sequence %d", i, rec.Sequence)
		}
	}
	if res.Hops != len(res.History) {
		t.Errorf("hops %d does not match history length %d", res.Hops, len(res.History))
	}
}

// AssertState 断言运行终止状态，失败状态同时校验错误码
func AssertState(t *testing.T, res *handoff.Result, state handoff.State, code ...types.ErrorCode) {
	t.Helper()
	if res.State != state {
		t.Errorf("state mismatch: expected %s, got %s (err: %v)", state, res.State, res.Err)
	}
	if len(code) == 0 {
		if state.Aborted() && res.Err == nil {
			t.Errorf("aborted run %s carries no error", state)
		}
		return
	}
	if res.Err == nil {
		t.Errorf("expected error code %s, got nil error", code[0])
		return
	}
	if res.Err.Code != code[0] {
		t.Errorf("error code mismatch: expected %s, got %s", code[0], res.Err.Code)
	}
}

// =============================================================================
// 🔍 通用断言
// =============================================================================

// AssertContains 断言字符串包含子串
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
