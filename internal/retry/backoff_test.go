package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var errFlaky = errors.New("flaky")

func TestRun_FirstAttemptSucceeds(t *testing.T) {
	var seen []int
	n, err := Run(context.Background(), Policy{Retries: 3}, func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1}, seen)
}

func TestRun_RecoversAfterFailures(t *testing.T) {
	var retries []int
	p := Policy{
		Retries:   3,
		BaseDelay: time.Millisecond,
		OnRetry: func(retry int, err error, delay time.Duration) {
			assert.ErrorIs(t, err, errFlaky)
			assert.GreaterOrEqual(t, delay, time.Millisecond)
			retries = append(retries, retry)
		},
	}

	n, err := Run(context.Background(), p, func(ctx context.Context, attempt int) error {
		if attempt < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRun_Exhausted(t *testing.T) {
	tests := []struct {
		name    string
		retries int
		want    int
	}{
		{"no retries", 0, 1},
		{"negative means none", -2, 1},
		{"two retries", 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Run(context.Background(), Policy{Retries: tt.retries}, func(context.Context, int) error {
				return errFlaky
			})
			assert.Equal(t, tt.want, n)
			assert.Same(t, errFlaky, err, "the last error is returned unwrapped")
		})
	}
}

func TestRun_NotRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	n, err := Run(context.Background(), Policy{
		Retries:   5,
		Retryable: func(err error) bool { return !errors.Is(err, fatal) },
	}, func(ctx context.Context, attempt int) error {
		if attempt == 2 {
			return fatal
		}
		return errFlaky
	})

	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, fatal)
}

func TestRun_ContextEndsDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	n, err := Run(ctx, Policy{Retries: 3, BaseDelay: time.Second}, func(context.Context, int) error {
		return errFlaky
	})

	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, errFlaky)
	assert.Error(t, ctx.Err())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Zero(t, p.Delay(0))
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, time.Second, p.Delay(10))

	assert.Zero(t, Policy{}.Delay(3), "zero base delay retries immediately")
	assert.Equal(t, 30*time.Second, Policy{BaseDelay: time.Minute}.Delay(1), "default cap")
}

func TestPolicy_DelayStaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Duration(rapid.Int64Range(1, int64(time.Second)).Draw(rt, "base"))
		maxDelay := base + time.Duration(rapid.Int64Range(0, int64(10*time.Second)).Draw(rt, "extra"))
		p := Policy{
			BaseDelay:  base,
			MaxDelay:   maxDelay,
			Multiplier: rapid.Float64Range(0, 4).Draw(rt, "multiplier"),
			Jitter:     rapid.Float64Range(-1, 2).Draw(rt, "jitter"),
		}
		retry := rapid.IntRange(1, 40).Draw(rt, "retry")

		d := p.Delay(retry)
		if d < base || d > maxDelay {
			rt.Fatalf("delay %v outside [%v, %v]", d, base, maxDelay)
		}
	})
}
