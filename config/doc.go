// Package config 提供 askflow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 环境变量统一使用 ASKFLOW 前缀，例如 ASKFLOW_NOTIFY_WEBHOOK_URL。
package config
