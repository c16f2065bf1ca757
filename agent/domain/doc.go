// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 domain 提供四个示例领域 Agent：retrieval、workflow-automation、
analytics 与 data-science，用于演练交接协议的路由规则。

# 概述

每个 Specialist 先通过 Invoker 调用外部协作方（搜索索引、工作流触发器、
分析引擎等，核心不关心其认证与协议），将结果以自己的名字写入任务上下文，
再用注入的 classify.Classifier 对任务描述分类并给出决策：

 1. 命中升级层级（如 analytics 遇到 advanced-analytics）则 Escalate
 2. 命中委派层级（如 data-science 遇到 basic-statistics）则 Forward
 3. 命中其他专长：自身专长也命中则 Collaborate（对方已在上下文中
    留下结果时直接 Complete），否则 Forward
 4. 其余情况 Complete

# Invoker 装饰器

  - WithCache：按描述与上下文哈希在 Redis 中缓存协作方结果，
    并发未命中合并为一次调用
  - WithRateLimit：基于 golang.org/x/time/rate 的调用限流
*/
package domain
