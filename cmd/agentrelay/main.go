// =============================================================================
// agentrelay 主入口
// =============================================================================
// 加载配置、装配四个专家 Agent，运行一个任务并输出交接链
//
// 使用方法:
//
//	agentrelay run "find hotels in Lisbon"               # 从 retrieval 开始
//	agentrelay run --agent analytics "forecast demand"   # 指定起始 Agent
//	agentrelay run --config agentrelay.yaml --metrics "report trips"
//	agentrelay batch --file tasks.yaml --workers 8       # 并发运行任务文件
//	agentrelay agents                                    # 列出已注册 Agent
//	agentrelay purge --agent retrieval                   # 清除协作者响应缓存
//	agentrelay version                                   # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentrelay/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK      = 0
	exitError   = 1
	exitAborted = 2
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(dispatch(os.Args[1:], os.Stdout, os.Stderr))
}

func dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitError
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:], stdout, stderr)
	case "batch":
		return batchCommand(args[1:], stdout, stderr)
	case "agents":
		return agentsCommand(args[1:], stdout, stderr)
	case "purge":
		return purgeCommand(args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return exitOK
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitError
	}
}

func runCommand(args []string, stdout, stderr io.Writer) int {
	req, err := parseRunArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		if errors.Is(err, errUsage) {
			printUsage(stderr)
		}
		return exitError
	}

	a, code := bootstrap(req.configPath, stderr)
	if a == nil {
		return code
	}
	defer shutdown(a)

	res, err := a.execute(context.Background(), req, stdout)
	if err != nil {
		a.logger.Error("run failed", zap.Error(err))
		return exitError
	}
	if req.dumpMetrics {
		if err := a.writeMetrics(stderr); err != nil {
			a.logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	if res.State.Aborted() {
		return exitAborted
	}
	return exitOK
}

func agentsCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("agents", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	a, code := bootstrap(*configPath, stderr)
	if a == nil {
		return code
	}
	defer shutdown(a)

	for _, name := range a.orch.Agents() {
		agent, _ := a.orch.Agent(name)
		fmt.Fprintf(stdout, "%s\t%s\n", name, strings.Join(agent.Capabilities(), ","))
	}
	return exitOK
}

// bootstrap 加载并验证配置，初始化日志与全部组件
func bootstrap(configPath string, stderr io.Writer) (*app, int) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return nil, exitError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return nil, exitError
	}

	logger := initLogger(cfg.Log)
	logger.Debug("starting agentrelay",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.Strings("env_overrides", loader.Overrides()),
	)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to build orchestrator", zap.Error(err))
		_ = logger.Sync()
		return nil, exitError
	}
	return a, exitOK
}

func shutdown(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.logger.Warn("shutdown incomplete", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "agentrelay %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `agentrelay - multi-agent task handoff

Usage:
  agentrelay <command> [options]

Commands:
  run       Run one task through the specialists and print the chain as JSON
  batch     Run the tasks listed in a YAML file concurrently
  agents    List registered agents and their capabilities
  purge     Delete cached collaborator responses (requires cache.enabled)
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>     Path to configuration file (YAML)
  --agent <name>      Starting agent (default: retrieval)
  --id <id>           Task ID (generated when empty)
  --seed key=value    Caller context entry, repeatable
  --max-hops <n>      Override orchestrator.max_hops
  --timeout <d>       Override orchestrator.timeout
  --metrics           Write Prometheus metrics to stderr after the run

Options for 'batch':
  --config <path>     Path to configuration file (YAML)
  --file <path>       YAML list of tasks (id, description, agent, seeds)
  --workers <n>       Runs executed concurrently (default: 4)
  --metrics           Write Prometheus metrics to stderr after the batch

Options for 'purge':
  --config <path>     Path to configuration file (YAML)
  --agent <name>      Only purge this agent's responses (default: all)

Exit codes:
  0  completed
  1  invalid usage or configuration
  2  run aborted (any run, for batch)

Examples:
  agentrelay run "find hotels in Lisbon and notify the team"
  agentrelay run --agent analytics --seed region=EU "forecast revenue with a complex model"
  agentrelay batch --file tasks.yaml --workers 8
  agentrelay agents --config /etc/agentrelay/config.yaml`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
