// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 search 提供单次检索执行器与有界并发的扇出引擎。

# 概述

Executor 负责执行一次检索：为每个任务施加独立超时，并将结果归类为
成功、超时（timeout）、进程错误（process-error）或非零退出
（non-zero-exit）。超时只记录，不重试。

Fanout 在固定数量的 worker 上并发执行 K 个任务，超出 worker 数的
任务排队等待。结果按完成顺序聚合，每条输出都带有任务的 1 起始序号，
因此无论完成顺序如何都能还原来源。全部失败时恰好调用一次 Fallback
做一次宽泛检索；Fallback 也失败时返回失败汇总。Run 从不返回错误。

# 核心类型

  - Filter：时间窗口（是否只要近期结果，以及窗口长度）
  - Task / Outcome / Stats：任务、单次结果与汇总统计
  - Searcher：检索能力接口；CommandSearcher 通过 psearch 命令实现
  - CachedSearcher：基于 Redis 的结果缓存装饰器
  - Fallback：全部失败时的宽泛检索能力
  - TaskRecorder：指标记录接口，由 internal/metrics 实现
*/
package search
