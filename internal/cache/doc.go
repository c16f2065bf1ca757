// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的协作方响应缓存。

# 概述

领域 Agent 调用外部协作方（检索、工作流、分析服务）的结果可以按
描述与上下文缓存，避免重复调用。Manager 封装 go-redis 客户端，
负责连接生命周期、键前缀、默认 TTL 与后台健康检查。

# 核心类型

  - Manager：缓存管理器，提供 Get/Set/Purge/Ping/Close，
    以及读穿透方法 Do
  - Config：地址、密码、数据库编号、键前缀、默认 TTL、连接池、
    单次操作超时与健康检查间隔

# 主要能力

  - 读穿透：Do 未命中时调用回调并写回，同一键的并发未命中通过
    singleflight 合并为一次调用
  - 降级：Redis 出错后进入旁路状态，Do 直接调用回调；
    后台探测或显式 Ping 成功后恢复。调用方取消不计为故障
  - 清理：Purge 以 SCAN + DEL 分批删除前缀内匹配的键
  - 指标：通过 WithMetrics 将命中与未命中写入 Prometheus
  - 错误语义：ErrCacheMiss / ErrClosed 哨兵错误与 IsCacheMiss 判断函数
*/
package cache
