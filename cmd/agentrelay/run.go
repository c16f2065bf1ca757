package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/agent/domain"
	"github.com/BaSui01/agentrelay/agent/handoff"
)

// =============================================================================
// ▶️ run 命令
// =============================================================================

// runRequest 是 run 子命令解析后的参数
type runRequest struct {
	configPath  string
	startAgent  string
	taskID      string
	description string
	seeds       map[string]handoff.Value
	maxHops     int
	timeout     time.Duration
	dumpMetrics bool
}

// errUsage 表示参数错误，调用方应打印用法
var errUsage = errors.New("usage error")

func parseRunArgs(args []string, stderr io.Writer) (*runRequest, error) {
	req := &runRequest{seeds: make(map[string]handoff.Value)}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&req.configPath, "config", "", "Path to config file")
	fs.StringVar(&req.startAgent, "agent", domain.Retrieval, "Agent that receives the task first")
	fs.StringVar(&req.taskID, "id", "", "Task ID (generated when empty)")
	fs.IntVar(&req.maxHops, "max-hops", 0, "Override orchestrator.max_hops")
	fs.DurationVar(&req.timeout, "timeout", 0, "Override orchestrator.timeout")
	fs.BoolVar(&req.dumpMetrics, "metrics", false, "Write Prometheus metrics to stderr after the run")
	fs.Func("seed", "Caller context entry key=value (repeatable)", func(s string) error {
		key, raw, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return fmt.Errorf("seed %q is not key=value", s)
		}
		req.seeds[key] = parseSeedValue(raw)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	req.description = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if req.description == "" {
		return nil, fmt.Errorf("%w: task description is required", errUsage)
	}
	if req.maxHops < 0 {
		return nil, fmt.Errorf("%w: --max-hops must not be negative", errUsage)
	}
	return req, nil
}

// parseSeedValue 将命令行取值解析为布尔、数字或字符串
func parseSeedValue(raw string) handoff.Value {
	switch raw {
	case "true":
		return handoff.Bool(true)
	case "false":
		return handoff.Bool(false)
	}
	// NaN and Inf spellings stay strings
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return handoff.Number(f)
	}
	return handoff.String(raw)
}

func (r *runRequest) task() *handoff.Task {
	opts := make([]handoff.TaskOption, 0, len(r.seeds)+1)
	if r.taskID != "" {
		opts = append(opts, handoff.WithID(r.taskID))
	}
	for k, v := range r.seeds {
		opts = append(opts, handoff.WithSeed(k, v))
	}
	return handoff.NewTask(r.description, opts...)
}

func (r *runRequest) runOptions() []handoff.RunOption {
	var opts []handoff.RunOption
	if r.maxHops > 0 {
		opts = append(opts, handoff.WithMaxHops(r.maxHops))
	}
	if r.timeout > 0 {
		opts = append(opts, handoff.WithTimeout(r.timeout))
	}
	return opts
}

// execute 运行一个任务并将结果以 JSON 写入 stdout
func (a *app) execute(ctx context.Context, req *runRequest, stdout io.Writer) (*handoff.Result, error) {
	res := a.orch.Execute(ctx, req.task(), req.startAgent, req.runOptions()...)

	a.logger.Info("run finished",
		zap.String("run_id", res.RunID),
		zap.String("state", string(res.State)),
		zap.Strings("chain", res.Agents()),
		zap.Int("hops", res.Hops),
	)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return res, fmt.Errorf("encode result: %w", err)
	}
	return res, nil
}
