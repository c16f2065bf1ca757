// Package retry re-runs a failing step with capped exponential backoff.
// This package is internal and should not be imported by external projects.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy 定义一个步骤失败后的重试方式
type Policy struct {
	// Retries 首次尝试之后的最大重试次数，负数视为 0
	Retries int
	// BaseDelay 第一次重试前的等待，0 表示立即重试
	BaseDelay time.Duration
	// MaxDelay 单次等待上限，<=0 时为 30s
	MaxDelay time.Duration
	// Multiplier 指数退避倍数，<1 时为 2
	Multiplier float64
	// Jitter 随机抖动比例，取值 [0,1]，0.25 表示 ±25%
	Jitter float64
	// Retryable 为 nil 时所有错误都重试
	Retryable func(err error) bool
	// OnRetry 在每次等待前调用，retry 从 1 开始
	OnRetry func(retry int, err error, delay time.Duration)
}

func (p Policy) normalized() Policy {
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	p.Jitter = math.Min(math.Max(p.Jitter, 0), 1)
	return p
}

// Delay 返回第 retry 次重试前的等待：BaseDelay * Multiplier^(retry-1)，
// 封顶 MaxDelay，抖动后仍落在 [BaseDelay, MaxDelay] 内。
func (p Policy) Delay(retry int) time.Duration {
	p = p.normalized()
	if p.BaseDelay == 0 || retry < 1 {
		return 0
	}

	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(retry-1))
	d = math.Min(d, float64(p.MaxDelay))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * p.Jitter * d
	}
	d = math.Max(d, float64(p.BaseDelay))
	d = math.Min(d, float64(p.MaxDelay))
	return time.Duration(d)
}

// Run 调用 fn 直到成功、错误不可重试、重试用尽或 ctx 结束。
// fn 收到从 1 开始的尝试序号。返回实际尝试次数与最后一次 fn 的错误；
// 等待期间 ctx 结束时同样返回最后一次 fn 的错误，由调用方检查 ctx.Err()。
func Run(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	p = p.normalized()

	var err error
	attempt := 0
	for {
		attempt++
		if err = fn(ctx, attempt); err == nil {
			return attempt, nil
		}
		if attempt > p.Retries || (p.Retryable != nil && !p.Retryable(err)) {
			return attempt, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if sleep(ctx, delay) != nil {
			return attempt, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
