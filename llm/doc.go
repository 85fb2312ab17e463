// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供回答步骤使用的语言模型接入。

# 核心接口

  - [Generator]：Generate(ctx, prompt) 返回完整文本，不做流式输出。
  - [OllamaClient]：基于 Ollama HTTP API 的实现，调用 /api/generate
    （stream=false），并通过 /api/tags 检查模型是否已拉取。

# 错误语义

HTTP 错误统一映射为 types.Error：5xx 与连接错误为 UPSTREAM_ERROR
且可重试，4xx 不可重试，超时映射为 UPSTREAM_TIMEOUT。
*/
package llm
