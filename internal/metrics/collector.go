// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器. A nil *Collector is valid and records nothing.
type Collector struct {
	// 编排指标
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runHops     *prometheus.HistogramVec

	// 跳转指标
	hopsTotal     *prometheus.CounterVec
	agentFailures *prometheus.CounterVec
	agentRetries  *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器. A nil registerer uses the Prometheus default.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of orchestration runs by terminal state",
		},
		[]string{"start_agent", "state"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Orchestration run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"state"},
	)

	c.runHops = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_hops",
			Help:      "Number of agent invocations per run",
			Buckets:   prometheus.LinearBuckets(1, 1, 12),
		},
		[]string{"state"},
	)

	c.hopsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hops_total",
			Help:      "Total number of recorded hops by agent and decision",
		},
		[]string{"agent", "decision"},
	)

	c.agentFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_failures_total",
			Help:      "Total number of agent failures that aborted a run",
		},
		[]string{"agent"},
	)

	c.agentRetries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_retries_total",
			Help:      "Total number of agent invocation retries",
		},
		[]string{"agent"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"namespace"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"namespace"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎭 编排指标记录
// =============================================================================

// RecordRun 记录一次编排运行
func (c *Collector) RecordRun(startAgent, state string, duration time.Duration, hops int) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(startAgent, state).Inc()
	c.runDuration.WithLabelValues(state).Observe(duration.Seconds())
	c.runHops.WithLabelValues(state).Observe(float64(hops))
}

// RecordHop 记录一次跳转
func (c *Collector) RecordHop(agent, decision string) {
	if c == nil {
		return
	}
	c.hopsTotal.WithLabelValues(agent, decision).Inc()
}

// RecordAgentFailure 记录 Agent 失败
func (c *Collector) RecordAgentFailure(agent string) {
	if c == nil {
		return
	}
	c.agentFailures.WithLabelValues(agent).Inc()
}

// RecordRetry 记录 Agent 重试
func (c *Collector) RecordRetry(agent string) {
	if c == nil {
		return
	}
	c.agentRetries.WithLabelValues(agent).Inc()
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(namespace string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(namespace string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(namespace).Inc()
}
