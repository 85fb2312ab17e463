// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package agent 封装外部智能体命令行工具，提供查询生成、结果审阅与
WebSearch 兜底检索所需的 Querier 能力。

# 概述

CLIQuerier 以 --output-format stream-json 启动智能体 CLI，逐行解析其
标准输出：文本块直接拼接，工具调用与工具结果以标记行的形式插入，最终
得到一段完整文本。子进程的启动、超时与退出码处理由 internal/procexec
负责。

# 核心类型

  - Querier：Query(ctx, prompt, Options) 接口
  - CLIQuerier：基于子进程的实现
  - Options：系统提示词、最大轮数、允许的工具
  - WebSearchFallback：将 Querier 适配为 search.Fallback
*/
package agent
