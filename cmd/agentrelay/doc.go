// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 agentrelay 命令行程序入口。

# 概述

cmd/agentrelay 加载 YAML 配置与环境变量，装配编排器与四个专家 Agent
（retrieval、workflow-automation、analytics、data-science），运行一个
任务并将完整的交接链以 JSON 输出到标准输出，日志写入标准错误。

# 主要能力

  - 子命令：run（运行任务）、batch（并发运行任务文件）、agents（列出 Agent）、
    purge（清除协作者响应缓存）、version、help
  - 协作者调用可选地经过 Redis 响应缓存与令牌桶限流
  - OpenTelemetry 追踪按 telemetry 配置启用
  - --metrics 在运行结束后以 Prometheus 文本格式输出指标
  - 退出码：0 完成，1 参数或配置错误，2 运行中止
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
