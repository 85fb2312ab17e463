// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 notify 负责把运行报告投递到 Webhook 端点。

# 投递流程

 1. ValidateURL 校验地址：缺失或前缀不匹配时直接跳过，不会调用重试器；
 2. BuildPayload 按报告长度（按 rune 计）选择完整正文或摘要；
 3. 通过 retry.Retrier 发送，HTTP 200 视为成功，400/404 为终止性失败，
    其余状态码、超时和连接错误都可重试；
 4. 发送前经过 rate.Limiter，避免触发端点限流。

投递结果以 Result 返回，调用方把它折叠进工作流状态，从不返回 error。
*/
package notify
