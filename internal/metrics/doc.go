// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖工作流、检索、
投递、LLM 与缓存五个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离，测试中可通过
NewCollectorWithRegistry 注册到独立的 Registry。

Collector 同时实现 workflow.StepRecorder、search.TaskRecorder、
search.CacheRecorder、notify.DeliveryRecorder 与 llm.RequestRecorder，
由 cmd/askflow 注入各组件。

# 主要能力

  - 工作流指标：运行总数与耗时（按 status），步骤执行次数与耗时（按 step）。
  - 检索指标：任务总数与耗时（按 outcome），兜底检索次数（按 result）。
  - 投递指标：每次尝试的分类（success/retryable/terminal）与最终结果。
  - LLM 指标：请求总数与耗时，按 model 分组。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
*/
package metrics
