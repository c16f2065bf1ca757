// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 config 提供 agentrelay 的配置加载功能。

# 概述

配置按 默认值 → YAML 文件 → 环境变量 的优先级叠加，环境变量名由
前缀（默认 AGENTRELAY）与字段的 env 标签拼接而成，例如
AGENTRELAY_ORCHESTRATOR_MAX_HOPS。空值视为未设置；Loader.Overrides
返回最近一次 Load 中生效的变量名。classifier.rules 只能来自 YAML。

# 配置分区

  - orchestrator：跳数上限、运行超时、重试次数与间隔、协作合并策略
  - classifier：关键词分类规则，为空时使用内置规则
  - cache：协作者响应的 Redis 缓存
  - rate_limit：协作者调用的令牌桶限流
  - log / telemetry / metrics：zap 日志、OpenTelemetry 与 Prometheus
*/
package config
