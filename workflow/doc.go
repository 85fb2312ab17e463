// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供固定拓扑的步骤图执行器。

# 概述

Executor 把一个类型化的 State 依次传过若干命名步骤：

	entry → search → answer → (route) → review → report → [notify →] end

answer 之后是唯一的条件边：Router 返回 RouteContinue 时回到 entry，
返回 RouteReview 时进入 review。notify 是否存在由 Topology.Notify 在构造时
决定，运行期间不会改变。边表只在 NewExecutor 中构建一次。

# 状态与合并

每个步骤按值接收 State，返回一个 Update（指针字段，nil 表示不变）。
State.Apply 是唯一修改状态的地方：逐字段后写覆盖；History 只追加，
唯一允许的原地修改是补全最新一轮空的 Answer；Continue 一旦为 false
就不会再被置为 true。

# 终止与错误

  - 输入非法：entry 返回 INVALID_INPUT，原样返回给调用方；
  - 其他步骤错误：包装为 *StepFailedError{Step, Cause} 并中止；
  - 经过 entry 的次数超过 Topology.MaxPasses：StepFailedError{entry,
    ErrPassLimitExceeded}；
  - 上下文取消或超时：在下一个步骤开始前中止。

每个步骤都会创建 OpenTelemetry span（workflow.step/<name>），
并通过 StepRecorder 记录耗时与结果。
*/
package workflow
