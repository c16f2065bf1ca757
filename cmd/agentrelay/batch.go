package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentrelay/agent/domain"
	"github.com/BaSui01/agentrelay/agent/handoff"
)

// =============================================================================
// 📚 batch 命令
// =============================================================================
// 从 YAML 文件读取多个任务并发运行，结果按输入顺序输出为 JSON 数组
//
//	- id: t-1
//	  description: find hotels in Austin
//	- description: run a complex ML forecast
//	  agent: analytics
//	  seeds:
//	    region: EU
//	    limit: 3
// =============================================================================

// batchTask 是任务文件中的一项
type batchTask struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	Agent       string         `yaml:"agent"`
	Seeds       map[string]any `yaml:"seeds"`
}

type batchRequest struct {
	configPath  string
	file        string
	workers     int
	dumpMetrics bool
}

func parseBatchArgs(args []string, stderr io.Writer) (*batchRequest, error) {
	req := &batchRequest{}
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&req.configPath, "config", "", "Path to config file")
	fs.StringVar(&req.file, "file", "", "YAML file with the tasks to run")
	fs.IntVar(&req.workers, "workers", 4, "Runs executed concurrently")
	fs.BoolVar(&req.dumpMetrics, "metrics", false, "Write Prometheus metrics to stderr after the batch")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if req.file == "" {
		return nil, fmt.Errorf("%w: --file is required", errUsage)
	}
	if req.workers <= 0 {
		return nil, fmt.Errorf("%w: --workers must be positive", errUsage)
	}
	return req, nil
}

// loadBatch 读取任务文件并转换为 runRequest
func loadBatch(path string) ([]*runRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var items []batchTask
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("batch file has no tasks")
	}

	reqs := make([]*runRequest, 0, len(items))
	for i, item := range items {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			return nil, fmt.Errorf("task %d has no description", i)
		}
		req := &runRequest{
			startAgent:  item.Agent,
			taskID:      item.ID,
			description: desc,
			seeds:       make(map[string]handoff.Value, len(item.Seeds)),
		}
		if req.startAgent == "" {
			req.startAgent = domain.Retrieval
		}
		for k, raw := range item.Seeds {
			v, err := toValue(raw)
			if err != nil {
				return nil, fmt.Errorf("task %d seed %q: %w", i, k, err)
			}
			req.seeds[k] = v
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// toValue 将 YAML 解码出的标量或映射转换为上下文取值
func toValue(raw any) (handoff.Value, error) {
	switch v := raw.(type) {
	case string:
		return handoff.String(v), nil
	case bool:
		return handoff.Bool(v), nil
	case int:
		return handoff.Number(float64(v)), nil
	case float64:
		return handoff.Number(v), nil
	case map[string]any:
		fields := make(map[string]handoff.Value, len(v))
		for k, inner := range v {
			fv, err := toValue(inner)
			if err != nil {
				return handoff.Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = fv
		}
		return handoff.Record(fields), nil
	default:
		return handoff.Value{}, fmt.Errorf("unsupported seed type %T", raw)
	}
}

// executeBatch 以最多 workers 个并发运行全部任务
func (a *app) executeBatch(ctx context.Context, reqs []*runRequest, workers int, stdout io.Writer) ([]*handoff.Result, error) {
	results := make([]*handoff.Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = a.orch.Execute(gctx, req.task(), req.startAgent, req.runOptions()...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	aborted := 0
	for _, res := range results {
		if res.State.Aborted() {
			aborted++
		}
	}
	a.logger.Info("batch finished",
		zap.Int("tasks", len(results)),
		zap.Int("aborted", aborted),
		zap.Int("workers", workers),
	)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return results, fmt.Errorf("encode results: %w", err)
	}
	return results, nil
}

func batchCommand(args []string, stdout, stderr io.Writer) int {
	req, err := parseBatchArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		printUsage(stderr)
		return exitError
	}
	reqs, err := loadBatch(req.file)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid batch: %v\n", err)
		return exitError
	}

	a, code := bootstrap(req.configPath, stderr)
	if a == nil {
		return code
	}
	defer shutdown(a)

	results, err := a.executeBatch(context.Background(), reqs, req.workers, stdout)
	if err != nil {
		a.logger.Error("batch failed", zap.Error(err))
		return exitError
	}
	if req.dumpMetrics {
		if err := a.writeMetrics(stderr); err != nil {
			a.logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	for _, res := range results {
		if res.State.Aborted() {
			return exitAborted
		}
	}
	return exitOK
}
