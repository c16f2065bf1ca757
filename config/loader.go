// =============================================================================
// 📦 agentrelay 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("agentrelay.yaml").
//	    WithEnvPrefix("AGENTRELAY").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 agentrelay 的完整配置结构
type Config struct {
	// Orchestrator 编排器运行参数
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`

	// Classifier 关键词分类规则
	Classifier ClassifierConfig `yaml:"classifier" env:"CLASSIFIER"`

	// Cache 协作者响应缓存
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// RateLimit 协作者调用限流
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// 协作输出合并策略
const (
	MergeProvenance = "provenance"
	MergeRecord     = "record"
)

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	// 每次运行的最大跳数
	MaxHops int `yaml:"max_hops" env:"MAX_HOPS"`
	// 整次运行的超时，0 表示不限
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每跳失败后的重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 首次重试前的等待
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	// 合并策略: provenance, record
	Merge string `yaml:"merge" env:"MERGE"`
}

// ClassifierConfig 分类器配置
type ClassifierConfig struct {
	// 为空时使用内置规则
	Rules []ClassifierRule `yaml:"rules" env:"-"`
}

// ClassifierRule 一条关键词规则
type ClassifierRule struct {
	Label  string   `yaml:"label"`
	Terms  []string `yaml:"terms"`
	Weight float64  `yaml:"weight"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Redis 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 响应缓存时长
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 每秒请求数，0 表示不限流
	RPS float64 `yaml:"rps" env:"RPS"`
	// 突发容量
	Burst int `yaml:"burst" env:"BURST"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Prometheus 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
	overrides  []string
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTRELAY"}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器，在环境变量覆盖之后按添加顺序执行
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Overrides 返回最近一次 Load 中实际生效的环境变量名，按字段顺序排列
func (l *Loader) Overrides() []string {
	return append([]string(nil), l.overrides...)
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.overrides = l.overrides[:0]

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.applyEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnv 按 env 标签递归覆盖字段，变量名为 PREFIX_SECTION_FIELD。
// 标签为空或 "-" 的字段（如分类规则列表）只能来自 YAML。
func (l *Loader) applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := range v.NumField() {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnv(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		if err := parseInto(field, raw); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		l.overrides = append(l.overrides, key)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// parseInto 将环境变量文本解析为字段类型；
// 切片按逗号拆分，time.Duration 使用 time.ParseDuration。
func parseInto(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem())
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Orchestrator.MaxHops <= 0 {
		errs = append(errs, "orchestrator.max_hops must be positive")
	}
	if c.Orchestrator.MaxRetries < 0 {
		errs = append(errs, "orchestrator.max_retries must not be negative")
	}
	if c.Orchestrator.Timeout < 0 {
		errs = append(errs, "orchestrator.timeout must not be negative")
	}
	if c.Orchestrator.RetryDelay < 0 {
		errs = append(errs, "orchestrator.retry_delay must not be negative")
	}
	switch c.Orchestrator.Merge {
	case "", MergeProvenance, MergeRecord:
	default:
		errs = append(errs, fmt.Sprintf("unknown orchestrator.merge %q", c.Orchestrator.Merge))
	}

	for i, r := range c.Classifier.Rules {
		if r.Label == "" {
			errs = append(errs, fmt.Sprintf("classifier.rules[%d] has no label", i))
		}
		if len(r.Terms) == 0 {
			errs = append(errs, fmt.Sprintf("classifier.rules[%d] has no terms", i))
		}
		if r.Weight < 0 {
			errs = append(errs, fmt.Sprintf("classifier.rules[%d] weight must not be negative", i))
		}
	}

	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			errs = append(errs, "cache.addr is required when cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			errs = append(errs, "cache.ttl must be positive")
		}
	}

	if c.RateLimit.RPS < 0 {
		errs = append(errs, "rate_limit.rps must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, "rate_limit.burst must be positive when rps is set")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
