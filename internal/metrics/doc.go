// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的编排指标采集能力，覆盖
运行、跳转、重试与缓存四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用
promauto.With(registerer) 注册到调用方提供的 Registry（为空时使用
默认 Registry）。所有指标按 namespace 隔离，nil *Collector 为合法值，
记录操作直接忽略，便于在未启用指标时省略判空。

# 主要能力

  - 运行指标：runs_total、run_duration_seconds、run_hops，
    按起始 Agent 与终止状态分组。
  - 跳转指标：hops_total 按 agent/decision 分组；
    agent_failures_total 与 agent_retries_total 按 agent 分组。
  - 缓存指标：协作服务响应缓存的命中与未命中计数，按 namespace 分组。
*/
package metrics
