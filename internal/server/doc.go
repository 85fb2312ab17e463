// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 askflow 运行期间附带的 HTTP 端点生命周期，
即 Prometheus /metrics 与 /healthz。

# 概述

Manager 封装 net/http.Server，负责监听、服务、关闭与错误传播。
Serve 绑定到 context：context 结束时在配置的超时内优雅关闭，
适合与流程运行一起放入 errgroup。

# 核心类型

  - Manager：HTTP 服务器管理器，提供 Start/Serve/Shutdown。
  - Config：监听地址、读写超时与优雅关闭超时。
  - NewMetricsHandler：组装 /metrics 与 /healthz 路由。
*/
package server
