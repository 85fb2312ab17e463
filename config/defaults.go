// =============================================================================
// 📦 askflow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"github.com/BaSui01/askflow/agent"
	"github.com/BaSui01/askflow/internal/cache"
	"github.com/BaSui01/askflow/llm"
	"github.com/BaSui01/askflow/notify"
	"github.com/BaSui01/askflow/pipeline"
	"github.com/BaSui01/askflow/search"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Pipeline:  pipeline.DefaultConfig(),
		Search:    DefaultSearchConfig(),
		Agent:     agent.DefaultCLIConfig(),
		LLM:       llm.DefaultOllamaConfig(),
		Report:    DefaultReportConfig(),
		Notify:    notify.DefaultConfig(),
		Cache:     cache.DefaultConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultSearchConfig 返回默认检索配置
func DefaultSearchConfig() SearchConfig {
	fan := search.DefaultFanoutConfig()
	return SearchConfig{
		Command:     search.DefaultCommandConfig(),
		Workers:     fan.Workers,
		ResultLimit: fan.ResultLimit,
		TaskTimeout: search.DefaultTaskTimeout,
		Fallback:    true,
	}
}

// DefaultReportConfig 返回默认报告配置
func DefaultReportConfig() ReportConfig {
	return ReportConfig{Dir: "reports"}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "askflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		ListenAddr: ":9091",
		Namespace:  "askflow",
	}
}
