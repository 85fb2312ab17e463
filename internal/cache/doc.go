// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的搜索结果缓存。

# 概述

本包封装 go-redis 客户端，为搜索步骤提供可选的结果缓存，
避免同一问题在短时间内重复调用外部搜索工具。
键统一加上 KeyPrefix 前缀，值带 TTL，过期后自动失效。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端，提供 Get/Set/Delete
    以及 GetJSON/SetJSON 便捷序列化方法。
  - Config：地址、密码、连接池、默认 TTL、键前缀与健康检查间隔。

# 错误语义

未命中返回 ErrCacheMiss，可用 IsCacheMiss 判断；
其余错误均为 Redis 通信错误，调用方应当降级为直接搜索。
*/
package cache
