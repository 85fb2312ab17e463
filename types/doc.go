// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 askflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 workflow、search、notify、
llm、agent 等上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode：结构化错误体系，含 Step、Retryable 标记与 Cause 链

# 主要能力

  - 错误工具链：NewError / WithCause / WithStep / WithRetryable
  - 判定工具：IsRetryable / GetErrorCode / IsErrorCode
  - 常用错误构造：NewInvalidInputError / NewUpstreamError / NewTimeoutError
*/
package types
