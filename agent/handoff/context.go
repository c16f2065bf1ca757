package handoff

import (
	"errors"
	"sort"
	"sync"

	"github.com/BaSui01/agentrelay/types"
)

// CallerOwner is the owner recorded for keys written outside a run step,
// i.e. seeded by the caller before Execute or written after it returns.
const CallerOwner = ""

// ErrForeignKey is the cause of a write to a context key owned by another writer.
var ErrForeignKey = errors.New("context key owned by another writer")

type entry struct {
	value Value
	owner string
}

// Context is the shared data bag carried by a Task across hops.
//
// Every key remembers the writer that created it. While an agent runs, the
// orchestrator binds the bag to that agent's registered name: the agent may
// add keys and overwrite keys it owns, but never a key written by the caller
// or by another agent.
type Context struct {
	mu      sync.RWMutex
	entries map[string]entry
	writer  string
}

func newContext() *Context {
	return &Context{entries: make(map[string]entry)}
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// Owner returns the writer that owns key.
func (c *Context) Owner(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.owner, ok
}

// Keys returns all keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Writer returns the name of the agent currently bound to the bag, or
// CallerOwner outside a run step.
func (c *Context) Writer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writer
}

// Snapshot returns a copy of all entries.
func (c *Context) Snapshot() map[string]Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Value, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.value
	}
	return out
}

// Set stores v under key on behalf of the bound writer.
func (c *Context) Set(key string, v Value) error {
	if key == "" {
		return types.NewError(types.ErrInvalidRequest, "context key must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.owner != c.writer {
		return types.Errorf(types.ErrForeignKey, "key %q is owned by %s", key, describeOwner(e.owner)).
			WithAgent(c.writer).
			WithCause(ErrForeignKey)
	}
	c.entries[key] = entry{value: v, owner: c.writer}
	return nil
}

// SetOwn stores v under the bound agent's own name, the conventional key
// for publishing an agent's result to later hops.
func (c *Context) SetOwn(v Value) error {
	writer := c.Writer()
	if writer == CallerOwner {
		return types.NewError(types.ErrInvalidRequest, "SetOwn requires an agent-bound context")
	}
	return c.Set(writer, v)
}

func (c *Context) bind(writer string) {
	c.mu.Lock()
	c.writer = writer
	c.mu.Unlock()
}

func (c *Context) checkpoint() map[string]entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make(map[string]entry, len(c.entries))
	for k, e := range c.entries {
		cp[k] = e
	}
	return cp
}

func (c *Context) restore(cp map[string]entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry, len(cp))
	for k, e := range cp {
		c.entries[k] = e
	}
}

func describeOwner(owner string) string {
	if owner == CallerOwner {
		return "the caller"
	}
	return "agent " + owner
}
