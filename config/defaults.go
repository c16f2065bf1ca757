// =============================================================================
// 📦 agentrelay 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: DefaultOrchestratorConfig(),
		Cache:        DefaultCacheConfig(),
		RateLimit:    DefaultRateLimitConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
		Metrics:      DefaultMetricsConfig(),
	}
}

// DefaultOrchestratorConfig 返回默认编排器配置
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxHops:    10,
		MaxRetries: 1,
		RetryDelay: 100 * time.Millisecond,
		Merge:      MergeProvenance,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:   false,
		Addr:      "localhost:6379",
		KeyPrefix: "agentrelay",
		TTL:       5 * time.Minute,
	}
}

// DefaultRateLimitConfig 返回默认限流配置（不限流）
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:   0,
		Burst: 1,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentrelay",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Namespace: "agentrelay"}
}
