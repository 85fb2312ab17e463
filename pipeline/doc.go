// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 pipeline 把具体的问答步骤装配到 workflow 执行器上。

# 步骤

  - entry：校验输入，记录历史，首轮根据关键词推断检索时间窗口
  - search：由 Querier 生成三条检索语句并行检索，只在首轮执行
  - answer：调用 Generator 生成回答，决定是否继续下一轮
  - review：由 Querier 审阅回答并给出修正版
  - report：渲染 Markdown 报告并写入 Sink，写入失败不会中断运行
  - notify：可选，把报告投递到 Webhook

answer 与 review 的错误会终止运行；检索、报告写入与投递的失败都被
吸收进状态字段。
*/
package pipeline
