// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 classify 提供可插拔的任务意图分类策略。

# 概述

领域 Agent 通过 Classifier 判断任务描述命中了哪些专长或能力层级，
从而决定完成、转交、升级或请求协作。分类策略以接口形式注入，
关键词规则、向量相似度或规则引擎都可以替换实现而不改动 Agent。

# 核心类型

  - Classifier：Classify(ctx, description) 返回 Classification
  - Classification：按得分降序排列的 Signal 列表，提供 Score / Has / Strongest
  - Keyword：基于关键词规则的默认实现，按词边界、大小写不敏感匹配，
    支持多词短语，得分为命中的不同词条数乘以规则权重
  - DefaultRules：四个专长标签（retrieval、workflow-automation、
    analytics、data-science）与两个能力层级标签
    （advanced-analytics、basic-statistics）的内置规则
*/
package classify
