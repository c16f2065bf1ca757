// Package cache provides the Redis-backed response cache used by
// collaborator invocations.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentrelay/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrCacheMiss 缓存未命中
	ErrCacheMiss = errors.New("cache miss")
	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("cache manager is closed")
)

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Config 缓存配置
type Config struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix 命名空间，所有键写入为 <prefix>:<key>
	KeyPrefix string

	// DefaultTTL 用于 ttl 为 0 的写入
	DefaultTTL time.Duration

	MaxRetries int
	PoolSize   int

	// OpTimeout 单次 Redis 操作的上限，慢缓存不拖慢交接运行
	OpTimeout time.Duration

	// FlightTimeout 约束合并后的共享回调，<=0 时不设上限
	FlightTimeout time.Duration

	// HealthCheckInterval 为 0 时不做后台探测，
	// 失败后 Manager 保持旁路直到 Ping 成功
	HealthCheckInterval time.Duration
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		KeyPrefix:           "agentrelay",
		DefaultTTL:          5 * time.Minute,
		MaxRetries:          3,
		PoolSize:            10,
		OpTimeout:           500 * time.Millisecond,
		FlightTimeout:       30 * time.Second,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Option 配置 Manager
type Option func(*Manager)

// WithMetrics 记录命中与未命中
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// =============================================================================
// 💾 Manager
// =============================================================================

// Manager 封装协作方响应的读穿透缓存。
// Redis 出错后进入旁路状态：Do 直接调用回调，不再访问 Redis。
type Manager struct {
	rdb     *redis.Client
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Collector
	flight  singleflight.Group

	healthy atomic.Bool
	closed  atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewManager 连接 Redis 并在 Ping 成功后返回
func NewManager(cfg Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.MaxRetries,
		PoolSize:   cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "cache")),
		stop:   make(chan struct{}),
	}
	m.healthy.Store(true)
	for _, opt := range opts {
		opt(m)
	}

	if cfg.HealthCheckInterval > 0 {
		m.wg.Add(1)
		go m.healthLoop(cfg.HealthCheckInterval)
	}

	m.logger.Info("cache manager initialized",
		zap.String("addr", cfg.Addr),
		zap.String("key_prefix", cfg.KeyPrefix),
		zap.Duration("default_ttl", cfg.DefaultTTL),
		zap.Duration("health_check_interval", cfg.HealthCheckInterval),
	)
	return m, nil
}

// Healthy 报告最近一次 Redis 访问是否成功
func (m *Manager) Healthy() bool {
	return m.healthy.Load()
}

// Get 读取缓存值，未命中时返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	if m.closed.Load() {
		return "", ErrClosed
	}
	opCtx, cancel := m.opContext(ctx)
	defer cancel()

	val, err := m.rdb.Get(opCtx, m.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheMiss
	case err != nil:
		m.markDown(ctx, "get", err)
		return "", fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

// Set 写入缓存值，ttl 为 0 时使用 DefaultTTL
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if ttl == 0 {
		ttl = m.cfg.DefaultTTL
	}
	opCtx, cancel := m.opContext(ctx)
	defer cancel()

	if err := m.rdb.Set(opCtx, m.key(key), value, ttl).Err(); err != nil {
		m.markDown(ctx, "set", err)
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Purge 删除前缀内匹配 pattern（Redis glob）的键，返回删除数量。
// 前缀之外的键不受影响。
func (m *Manager) Purge(ctx context.Context, pattern string) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	const batch = 100
	var (
		deleted int
		pending []string
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := m.rdb.Del(ctx, pending...).Result()
		if err != nil {
			return err
		}
		deleted += int(n)
		pending = pending[:0]
		return nil
	}

	iter := m.rdb.Scan(ctx, 0, m.key(pattern), batch).Iterator()
	for iter.Next(ctx) {
		pending = append(pending, iter.Val())
		if len(pending) >= batch {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("cache purge failed: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache purge failed: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("cache purge failed: %w", err)
	}

	m.logger.Info("cache purged", zap.String("pattern", pattern), zap.Int("deleted", deleted))
	return deleted, nil
}

// Do 返回 key 的缓存值；未命中时调用 fn 并写回。
// 同一 key 的并发未命中只执行一次 fn，hit 表示结果来自缓存。
// 共享调用不随任何一个调用方取消，受 FlightTimeout 约束；
// 调用方自身的 ctx 结束时立即返回 ctx.Err()。
// 旁路状态下直接调用 fn。fn 的错误不会被缓存。
func (m *Manager) Do(ctx context.Context, namespace, key string, ttl time.Duration, fn func(ctx context.Context) (string, error)) (val string, hit bool, err error) {
	if !m.Healthy() {
		m.metrics.RecordCacheMiss(namespace)
		val, err = fn(ctx)
		return val, false, err
	}

	val, err = m.Get(ctx, key)
	if err == nil {
		m.metrics.RecordCacheHit(namespace)
		return val, true, nil
	}
	m.metrics.RecordCacheMiss(namespace)

	ch := m.flight.DoChan(key, func() (any, error) {
		callCtx, cancel := m.flightContext(ctx)
		defer cancel()

		out, err := fn(callCtx)
		if err != nil {
			return "", err
		}
		if m.Healthy() {
			if err := m.Set(callCtx, key, out, ttl); err != nil {
				m.logger.Warn("cache write-back failed", zap.String("key", key), zap.Error(err))
			}
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", false, r.Err
		}
		return r.Val.(string), false, nil
	}
}

// flightContext 保留 ctx 的值（span、运行标识），去掉其取消信号
func (m *Manager) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if m.cfg.FlightTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, m.cfg.FlightTimeout)
}

// Ping 检查 Redis 连接并更新健康状态
func (m *Manager) Ping(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	opCtx, cancel := m.opContext(ctx)
	defer cancel()

	if err := m.rdb.Ping(opCtx).Err(); err != nil {
		m.markDown(ctx, "ping", err)
		return err
	}
	if m.healthy.CompareAndSwap(false, true) {
		m.logger.Info("cache recovered, serving from redis again")
	}
	return nil
}

// Close 停止健康探测并关闭连接，可重复调用
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.stop)
	m.wg.Wait()
	m.logger.Info("closing cache manager")
	return m.rdb.Close()
}

func (m *Manager) healthLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			_ = m.Ping(context.Background())
		}
	}
}

// markDown 进入旁路状态；调用方自身取消或超时不计为 Redis 故障
func (m *Manager) markDown(ctx context.Context, op string, err error) {
	if ctx.Err() != nil {
		return
	}
	if m.healthy.CompareAndSwap(true, false) {
		m.logger.Warn("cache unavailable, calling collaborators directly",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (m *Manager) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.OpTimeout)
}

func (m *Manager) key(k string) string {
	if m.cfg.KeyPrefix == "" {
		return k
	}
	return m.cfg.KeyPrefix + ":" + k
}
