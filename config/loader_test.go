// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.Orchestrator.MaxHops)
	assert.Equal(t, 1, cfg.Orchestrator.MaxRetries)
	assert.Zero(t, cfg.Orchestrator.Timeout)
	assert.Equal(t, MergeProvenance, cfg.Orchestrator.Merge)

	assert.Empty(t, cfg.Classifier.Rules)

	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)

	assert.Zero(t, cfg.RateLimit.RPS)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"stderr"}, cfg.Log.OutputPaths)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "agentrelay", cfg.Telemetry.ServiceName)
	assert.Equal(t, "agentrelay", cfg.Metrics.Namespace)

	require.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "agentrelay.yaml")

	yamlContent := `
orchestrator:
  max_hops: 4
  timeout: 30s
  max_retries: 2
  retry_delay: 250ms
  merge: record

classifier:
  rules:
    - label: retrieval
      terms: ["find", "lookup"]
      weight: 1.5
    - label: analytics
      terms: ["report"]

cache:
  enabled: true
  addr: "redis.example.com:6379"
  password: "secret"
  db: 2
  ttl: 1m

rate_limit:
  rps: 5
  burst: 10

log:
  level: "debug"
  format: "console"

metrics:
  namespace: relay
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Orchestrator.MaxHops)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.Timeout)
	assert.Equal(t, 2, cfg.Orchestrator.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Orchestrator.RetryDelay)
	assert.Equal(t, MergeRecord, cfg.Orchestrator.Merge)

	require.Len(t, cfg.Classifier.Rules, 2)
	assert.Equal(t, ClassifierRule{Label: "retrieval", Terms: []string{"find", "lookup"}, Weight: 1.5}, cfg.Classifier.Rules[0])
	assert.Equal(t, []string{"report"}, cfg.Classifier.Rules[1].Terms)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis.example.com:6379", cfg.Cache.Addr)
	assert.Equal(t, "secret", cfg.Cache.Password)
	assert.Equal(t, 2, cfg.Cache.DB)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	// 未出现在 YAML 中的字段保留默认值
	assert.Equal(t, "agentrelay", cfg.Cache.KeyPrefix)

	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "relay", cfg.Metrics.Namespace)

	require.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "7")
	t.Setenv("AGENTRELAY_ORCHESTRATOR_TIMEOUT", "2s")
	t.Setenv("AGENTRELAY_CACHE_ENABLED", "true")
	t.Setenv("AGENTRELAY_RATE_LIMIT_RPS", "2.5")
	t.Setenv("AGENTRELAY_LOG_OUTPUT_PATHS", "stdout, /tmp/relay.log")
	t.Setenv("AGENTRELAY_TELEMETRY_SAMPLE_RATE", "0.5")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Orchestrator.MaxHops)
	assert.Equal(t, 2*time.Second, cfg.Orchestrator.Timeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, []string{"stdout", "/tmp/relay.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
}

func TestLoader_Overrides(t *testing.T) {
	t.Setenv("AGENTRELAY_LOG_OUTPUT_PATHS", "stdout,,stderr,")
	t.Setenv("AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "4")
	t.Setenv("AGENTRELAY_CACHE_ADDR", "")

	l := NewLoader()
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "AGENTRELAY_LOG_OUTPUT_PATHS"}, l.Overrides())
	assert.Equal(t, []string{"stdout", "stderr"}, cfg.Log.OutputPaths)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr, "empty variables keep the current value")

	// a second load starts a fresh record
	t.Setenv("AGENTRELAY_LOG_OUTPUT_PATHS", "")
	_, err = l.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"AGENTRELAY_ORCHESTRATOR_MAX_HOPS"}, l.Overrides())
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "agentrelay.yaml")
	yamlContent := `
orchestrator:
  max_hops: 3
  merge: record
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))
	t.Setenv("AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "9")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Orchestrator.MaxHops)
	assert.Equal(t, MergeRecord, cfg.Orchestrator.Merge)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYRELAY_ORCHESTRATOR_MAX_HOPS", "6")
	t.Setenv("AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "99")

	cfg, err := NewLoader().WithEnvPrefix("MYRELAY").Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Orchestrator.MaxHops)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"int", "AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "many"},
		{"duration", "AGENTRELAY_ORCHESTRATOR_TIMEOUT", "soon"},
		{"bool", "AGENTRELAY_CACHE_ENABLED", "perhaps"},
		{"float", "AGENTRELAY_RATE_LIMIT_RPS", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := NewLoader().Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestParseInto_Unsupported(t *testing.T) {
	var target struct {
		Labels map[string]string
		Ports  []int
	}
	v := reflect.ValueOf(&target).Elem()

	assert.ErrorContains(t, parseInto(v.Field(0), "a=b"), "unsupported field kind map")
	assert.ErrorContains(t, parseInto(v.Field(1), "1,2"), "unsupported slice of int")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "0")

	_, err := NewLoader().
		WithValidator(func(cfg *Config) error { return cfg.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_hops")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/non/existent/agentrelay.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Orchestrator.MaxHops)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("orchestrator: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestMustLoad_Panics(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("orchestrator: [unclosed"), 0644))

	assert.Panics(t, func() { MustLoad(configPath) })
	assert.NotPanics(t, func() { MustLoad("") })
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero max hops", func(c *Config) { c.Orchestrator.MaxHops = 0 }, "max_hops"},
		{"negative retries", func(c *Config) { c.Orchestrator.MaxRetries = -1 }, "max_retries"},
		{"negative timeout", func(c *Config) { c.Orchestrator.Timeout = -time.Second }, "timeout"},
		{"unknown merge", func(c *Config) { c.Orchestrator.Merge = "zip" }, "merge"},
		{"empty merge", func(c *Config) { c.Orchestrator.Merge = "" }, ""},
		{"rule without label", func(c *Config) {
			c.Classifier.Rules = []ClassifierRule{{Terms: []string{"x"}}}
		}, "no label"},
		{"rule without terms", func(c *Config) {
			c.Classifier.Rules = []ClassifierRule{{Label: "x"}}
		}, "no terms"},
		{"cache without addr", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Addr = ""
		}, "cache.addr"},
		{"disabled cache ignores addr", func(c *Config) { c.Cache.Addr = "" }, ""},
		{"rps without burst", func(c *Config) {
			c.RateLimit.RPS = 1
			c.RateLimit.Burst = 0
		}, "burst"},
		{"sample rate above one", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
