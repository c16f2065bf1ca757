// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentrelay 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 交接链断言: AssertChain / AssertSequential / AssertState，
    校验 Agent 顺序、序号连续性与终止状态
  - 通用断言: AssertContains

# 子包

  - testutil/mocks: MockAgent，支持按调用脚本化输出与决策、
    前 N 次失败、panic 注入与延迟
  - testutil/fixtures: 覆盖领域路由规则的任务描述与任务工厂

# 使用示例

	ctx := testutil.TestContext(t)
	a := mocks.NewMockAgent("a").WithDecision(handoff.Forward("b", "peer"))
	res := orch.Execute(ctx, task, "a")
	testutil.AssertChain(t, res, "a", "b")
*/
package testutil
