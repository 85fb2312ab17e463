// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 askflow 命令行入口。

# 概述

cmd/askflow 把问题交给固定的 QA 流程：检索、回答、审阅、生成报告，
可选地把报告投递到 Webhook。程序支持 YAML 配置文件与 ASKFLOW_ 前缀的
环境变量、结构化日志（zap）、可选的 OpenTelemetry 导出，以及运行期间
附带的 Prometheus /metrics 端点。

# 子命令

  - run：执行一次流程，问题来自 --question 或标准输入
  - health：检查模型是否已拉取、外部工具是否可用
  - version、help

# 退出码

  - 0：流程完成
  - 1：输入无效、步骤失败或配置错误
  - 130：收到中断信号
*/
package main
