// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 askflow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现相似的
测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 日志辅助: TestLogger 把 zap 日志输出到 t.Log
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue
  - 时间工具: WaitFor / WaitForChannel / FakeClock
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockGenerator（语言模型）、MockQuerier（智能体）、
    MockSearchRunner（并行检索）、MockDeliverer（投递）与 MemorySink
    （报告存储），均支持 Builder 模式与错误注入
  - testutil/fixtures: 查询生成、审阅、检索输出与 stream-json 的样例文本

# 使用示例

	ctx := testutil.TestContext(t)
	gen := mocks.NewMockGenerator().WithResponse("hello")
	out, err := gen.Generate(ctx, "prompt")
*/
package testutil
