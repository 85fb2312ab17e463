// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package retry 提供通用的指数退避重试器。

# 概述

Retrier 以固定的最大尝试次数执行一个可能失败的操作，并将每次尝试的
结果归为三类：成功（立即返回）、终止性失败（立即停止，不再尝试）与
可重试失败（休眠后再次尝试）。休眠时长从 InitialDelay 开始按 Multiplier
倍增，只发生在两次可重试失败之间，最后一次尝试之后不再休眠。

# 核心类型

  - Policy：重试策略（MaxAttempts / InitialDelay / Multiplier / MaxDelay）
  - Retrier：重试器，Do(ctx, op) 返回 Result，不向上抛出错误
  - Attempt：单次尝试记录（序号、分类、耗时、错误）
  - Class：尝试分类：Success / Retryable / Terminal

# 错误分类

操作返回 nil 表示成功；返回 Terminal(err) 包装的错误表示终止性失败；
其余错误均视为可重试失败。
*/
package retry
