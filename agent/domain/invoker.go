package domain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/BaSui01/agentrelay/agent/handoff"
	"github.com/BaSui01/agentrelay/internal/cache"
	"github.com/BaSui01/agentrelay/types"
	"golang.org/x/time/rate"
)

// Invoker is the opaque external collaborator behind a specialist: a search
// index, a workflow trigger, an analytics engine. Authentication and wire
// formats are the implementation's concern.
type Invoker interface {
	Invoke(ctx context.Context, description string, taskContext map[string]handoff.Value) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, description string, taskContext map[string]handoff.Value) (string, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, description string, taskContext map[string]handoff.Value) (string, error) {
	return f(ctx, description, taskContext)
}

// StaticInvoker returns a collaborator that answers every request with a
// deterministic acknowledgement. It stands in for real services in demos
// and tests.
func StaticInvoker(name string) Invoker {
	return InvokerFunc(func(ctx context.Context, description string, _ map[string]handoff.Value) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s handled %q", name, description), nil
	})
}

// WithCache serves repeated requests from Redis. The key covers the
// description and every context entry, so a request made with different
// prior results is not served from cache. A context that cannot be encoded
// is passed straight to inv.
func WithCache(inv Invoker, m *cache.Manager, ttl time.Duration, namespace string) Invoker {
	if m == nil {
		return inv
	}
	return InvokerFunc(func(ctx context.Context, description string, taskContext map[string]handoff.Value) (string, error) {
		key, err := cacheKey(namespace, description, taskContext)
		if err != nil {
			return inv.Invoke(ctx, description, taskContext)
		}
		out, _, err := m.Do(ctx, namespace, key, ttl, func(ctx context.Context) (string, error) {
			return inv.Invoke(ctx, description, taskContext)
		})
		return out, err
	})
}

// cacheKey hashes length-prefixed fields: the description, then each
// context key with its tagged JSON encoding, in key order.
func cacheKey(namespace, description string, taskContext map[string]handoff.Value) (string, error) {
	keys := make([]string, 0, len(taskContext))
	for k := range taskContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	field := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	field([]byte(description))
	for _, k := range keys {
		enc, err := taskContext[k].MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("encode context entry %q: %w", k, err)
		}
		field([]byte(k))
		field(enc)
	}
	return cacheKeyPrefix + namespace + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

const cacheKeyPrefix = "invoke:"

// CachePattern matches the keys WithCache writes for namespace, or for
// every namespace when it is empty.
func CachePattern(namespace string) string {
	if namespace == "" {
		return cacheKeyPrefix + "*"
	}
	return cacheKeyPrefix + namespace + ":*"
}

// WithRateLimit waits for l before each call. A wait that cannot finish
// before ctx expires fails with RATE_LIMITED.
func WithRateLimit(inv Invoker, l *rate.Limiter) Invoker {
	if l == nil {
		return inv
	}
	return InvokerFunc(func(ctx context.Context, description string, taskContext map[string]handoff.Value) (string, error) {
		if err := l.Wait(ctx); err != nil {
			return "", types.NewError(types.ErrRateLimited, "collaborator rate limit").
				WithCause(err).
				WithRetryable(true)
		}
		return inv.Invoke(ctx, description, taskContext)
	})
}
