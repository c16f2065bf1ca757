// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 handoff 提供多 Agent 任务交接编排器与交接决策协议。

# 概述

handoff 解决的核心问题是：一个任务在一组专长不同的 Agent 之间流转时，
由每个 Agent 自行判断是否完成任务，或将任务转交、升级给其他 Agent，
或请求另一个 Agent 协作，同时保证运行必然终止、上下文持续累积、
每一跳都可被完整追溯。

# 核心模型

  - Task：不可变的 ID 与描述，加上在整个运行中共享的上下文 Context
  - Context：带写入者归属的键值袋，Agent 只能新增或覆盖自己写入的键
  - Value：上下文中的类型化取值（字符串、数字、布尔、记录）
  - Agent：声明能力标签并执行任务，返回输出与 Decision
  - Decision：complete / forward / escalate / collaborate 四种裁决
  - ExecutionRecord：交接链中的一行记录，只追加、不修改
  - Orchestrator：持有 Agent 注册表，驱动状态机并返回 Result

# 状态机

每一步依次执行：查找当前 Agent（缺失则 aborted_unknown_target）、
检查截止时间（已过期则 aborted_timeout）、调用 Agent（失败时以同一
上下文快照重试，默认 1 次，耗尽后 aborted_agent_failure）、追加记录，
然后在非 complete 裁决且跳数达到上限时 aborted_max_hops_exceeded。
collaborate 会在同一任务上同步调用目标 Agent（额外计一跳），并通过
Merger 合并两份输出，结果为 completed_with_collaboration；若协作者
继续 forward/escalate，则交接链从协作者处继续。

跳数上限（默认 10）是唯一的循环保护，不做基于已访问集合的环检测，
A -> B -> A 这样的回访是合法的。

# 可观测性

Orchestrator 使用 zap 记录运行与每一跳的日志，通过 OpenTelemetry
为运行（handoff.execute）与每一跳（handoff.hop）创建 span，
并可选地将运行、跳转、失败与重试写入 internal/metrics 的 Prometheus 指标。
*/
package handoff
