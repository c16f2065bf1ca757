// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentrelay 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent/handoff、
agent/domain、config 等上层模块提供统一的错误码与上下文键。

# 核心类型

  - Error / ErrorCode：结构化错误体系，含 Retryable 与 Agent 归属标记
  - WithRunID / WithHopScope / CurrentHop：运行与单跳范围的 context.Context 传播

# 错误码

编排相关错误码包括 UNKNOWN_TARGET、AGENT_FAILURE、MAX_HOPS_EXCEEDED、
TIMEOUT 与 INVALID_DECISION。IsCode 基于 errors.As 判断错误链中的错误码。
*/
package types
