package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentrelay/agent/classify"
	"github.com/BaSui01/agentrelay/agent/domain"
	"github.com/BaSui01/agentrelay/agent/handoff"
	"github.com/BaSui01/agentrelay/config"
	"github.com/BaSui01/agentrelay/internal/cache"
	"github.com/BaSui01/agentrelay/internal/metrics"
	"github.com/BaSui01/agentrelay/internal/telemetry"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 持有一次进程生命周期内的全部组件
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	orch      *handoff.Orchestrator
	registry  *prometheus.Registry
	cache     *cache.Manager
	telemetry *telemetry.Providers
}

// newApp 按配置装配编排器与四个专家 Agent
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	collector := metrics.NewCollector(cfg.Metrics.Namespace, a.registry, logger)

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.telemetry = providers

	if cfg.Cache.Enabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = cfg.Cache.Addr
		cacheCfg.Password = cfg.Cache.Password
		cacheCfg.DB = cfg.Cache.DB
		cacheCfg.KeyPrefix = cfg.Cache.KeyPrefix
		cacheCfg.DefaultTTL = cfg.Cache.TTL
		cacheCfg.HealthCheckInterval = 0

		m, err := cache.NewManager(cacheCfg, logger, cache.WithMetrics(collector))
		if err != nil {
			// 缓存不可用时直接调用协作者
			logger.Warn("collaborator cache disabled", zap.Error(err))
		} else {
			a.cache = m
		}
	}

	classifier, err := buildClassifier(cfg.Classifier)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	a.orch = handoff.New(logger,
		handoff.WithDefaults(handoff.RunOptions{
			MaxHops:    cfg.Orchestrator.MaxHops,
			Timeout:    cfg.Orchestrator.Timeout,
			MaxRetries: cfg.Orchestrator.MaxRetries,
		}),
		handoff.WithRetryDelay(cfg.Orchestrator.RetryDelay),
		handoff.WithMerger(buildMerger(cfg.Orchestrator.Merge)),
		handoff.WithMetrics(collector),
		handoff.WithTracerProvider(providers.TracerProvider()),
	)

	if err := domain.RegisterAll(a.orch, a.buildInvokers(), classifier, logger); err != nil {
		_ = a.Close(context.Background())
		return nil, fmt.Errorf("register specialists: %w", err)
	}
	return a, nil
}

// buildInvokers 为每个专家包装限流与缓存，缓存命中不消耗令牌
func (a *app) buildInvokers() map[string]domain.Invoker {
	var limiter *rate.Limiter
	if a.cfg.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), a.cfg.RateLimit.Burst)
	}

	invokers := make(map[string]domain.Invoker)
	for _, p := range domain.Profiles() {
		inv := domain.WithRateLimit(domain.StaticInvoker(p.Name), limiter)
		if a.cache != nil {
			inv = domain.WithCache(inv, a.cache, a.cfg.Cache.TTL, p.Name)
		}
		invokers[p.Name] = inv
	}
	return invokers
}

func buildClassifier(cfg config.ClassifierConfig) (classify.Classifier, error) {
	if len(cfg.Rules) == 0 {
		return classify.NewDefault(), nil
	}
	rules := make([]classify.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, classify.Rule{Label: r.Label, Terms: r.Terms, Weight: r.Weight})
	}
	k, err := classify.NewKeyword(rules)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return k, nil
}

func buildMerger(name string) handoff.Merger {
	if name == config.MergeRecord {
		return handoff.RecordMerger{}
	}
	return handoff.ProvenanceMerger{}
}

// writeMetrics 以 Prometheus 文本格式输出本进程的指标
func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}

// Close 释放缓存连接并刷新遥测数据
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
