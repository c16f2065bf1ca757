package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/agent/domain"
	"github.com/BaSui01/agentrelay/agent/handoff"
	"github.com/BaSui01/agentrelay/config"
	"github.com/BaSui01/agentrelay/testutil/fixtures"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func runJSON(t *testing.T, a *app, args ...string) (*handoff.Result, map[string]any) {
	t.Helper()
	req, err := parseRunArgs(args, &bytes.Buffer{})
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := a.execute(context.Background(), req, &out)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	return res, decoded
}

// --- 参数解析 ---

func TestParseRunArgs(t *testing.T) {
	req, err := parseRunArgs([]string{
		"--agent", "analytics",
		"--id", "task-7",
		"--seed", "region=EU",
		"--seed", "limit=3",
		"--max-hops", "4",
		"--timeout", "2s",
		"--metrics",
		"report", "the", "trips",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "analytics", req.startAgent)
	assert.Equal(t, "task-7", req.taskID)
	assert.Equal(t, "report the trips", req.description)
	assert.Equal(t, 4, req.maxHops)
	assert.Equal(t, 2*time.Second, req.timeout)
	assert.True(t, req.dumpMetrics)
	assert.True(t, handoff.String("EU").Equal(req.seeds["region"]))
	assert.True(t, handoff.Number(3).Equal(req.seeds["limit"]))

	task := req.task()
	assert.Equal(t, "task-7", task.ID())
	assert.Equal(t, 2, task.Context().Len())
	assert.Len(t, req.runOptions(), 2)
}

func TestParseRunArgs_Defaults(t *testing.T) {
	req, err := parseRunArgs([]string{fixtures.HotelSearch}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, domain.Retrieval, req.startAgent)
	assert.Empty(t, req.runOptions())
	assert.NotEmpty(t, req.task().ID())
}

func TestParseRunArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no description", []string{"--agent", "analytics"}},
		{"blank description", []string{"   "}},
		{"malformed seed", []string{"--seed", "novalue", "task"}},
		{"empty seed key", []string{"--seed", "=x", "task"}},
		{"negative hops", []string{"--max-hops", "-1", "task"}},
		{"unknown flag", []string{"--nope", "task"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRunArgs(tt.args, &bytes.Buffer{})
			assert.ErrorIs(t, err, errUsage)
		})
	}
}

func TestParseSeedValue(t *testing.T) {
	tests := []struct {
		raw  string
		want handoff.Value
	}{
		{"true", handoff.Bool(true)},
		{"false", handoff.Bool(false)},
		{"42", handoff.Number(42)},
		{"-1.5", handoff.Number(-1.5)},
		{"Lisbon", handoff.String("Lisbon")},
		{"", handoff.String("")},
		{"NaN", handoff.String("NaN")},
		{"Inf", handoff.String("Inf")},
		{"-infinity", handoff.String("-infinity")},
		{"1e999", handoff.String("1e999")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseSeedValue(tt.raw)), "got %v", parseSeedValue(tt.raw))
		})
	}
}

// --- 装配与运行 ---

func TestApp_ExecuteKeepsNonFiniteSeeds(t *testing.T) {
	a := newTestApp(t, nil)

	res, decoded := runJSON(t, a, "--seed", "x=NaN", "--seed", "y=+Inf", fixtures.HotelSearch)

	assert.Equal(t, handoff.StateCompleted, res.State)
	assert.NotEmpty(t, decoded["history"])
	x, ok := res.History[0].Input.Context["x"].AsString()
	require.True(t, ok)
	assert.Equal(t, "NaN", x)
}

func TestApp_RegistersSpecialists(t *testing.T) {
	a := newTestApp(t, nil)

	assert.Equal(t, []string{
		domain.Analytics, domain.DataScience, domain.Retrieval, domain.WorkflowAutomation,
	}, a.orch.Agents())
	assert.Nil(t, a.cache)
}

func TestApp_ExecuteWritesResultJSON(t *testing.T) {
	a := newTestApp(t, nil)

	res, decoded := runJSON(t, a, "--id", "t-1", fixtures.HotelSearch)

	assert.Equal(t, handoff.StateCompleted, res.State)
	assert.Equal(t, "completed", decoded["state"])
	assert.Equal(t, "t-1", decoded["task_id"])
	assert.Equal(t, res.RunID, decoded["run_id"])
	history, ok := decoded["history"].([]any)
	require.True(t, ok)
	assert.Len(t, history, 1)
}

func TestApp_MaxHopsOverride(t *testing.T) {
	a := newTestApp(t, nil)

	res, decoded := runJSON(t, a, "--agent", domain.Analytics, "--max-hops", "3", fixtures.PingPong)

	assert.Equal(t, handoff.StateAbortedMaxHopsExceeded, res.State)
	assert.Equal(t, 3, res.Hops)
	assert.NotNil(t, decoded["error"])
}

func TestApp_RecordMerger(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Orchestrator.Merge = config.MergeRecord })

	res, _ := runJSON(t, a, fixtures.HotelSearchAndNotify)

	require.Equal(t, handoff.StateCompletedWithCollaboration, res.State)
	fields, ok := res.Output.AsRecord()
	require.True(t, ok)
	assert.Contains(t, fields, domain.Retrieval)
	assert.Contains(t, fields, domain.WorkflowAutomation)
}

func TestApp_CustomClassifierRules(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Classifier.Rules = []config.ClassifierRule{
			{Label: "retrieval", Terms: []string{"fetch"}},
		}
	})

	// 自定义规则下 "find" 不再命中，retrieval 直接完成
	res, _ := runJSON(t, a, fixtures.HotelSearchAndNotify)
	assert.Equal(t, handoff.StateCompleted, res.State)
	assert.Equal(t, []string{domain.Retrieval}, res.Agents())
}

func TestApp_InvalidClassifierRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Classifier.Rules = []config.ClassifierRule{{Label: "retrieval", Terms: []string{"!!!"}}}

	_, err := newApp(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build classifier")
}

func TestApp_CacheBackedCollaborators(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newTestApp(t, func(c *config.Config) {
		c.Cache.Enabled = true
		c.Cache.Addr = mr.Addr()
		c.Cache.KeyPrefix = "relay-test"
	})
	require.NotNil(t, a.cache)

	first, _ := runJSON(t, a, fixtures.HotelSearchAndNotify)
	keys := mr.Keys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "relay-test:invoke:"), k)
	}

	second, _ := runJSON(t, a, fixtures.HotelSearchAndNotify)
	assert.Equal(t, keys, mr.Keys())
	assert.True(t, first.Output.Equal(second.Output))

	var metrics bytes.Buffer
	require.NoError(t, a.writeMetrics(&metrics))
	assert.Contains(t, metrics.String(), "agentrelay_cache_hits_total")
}

func TestApp_CacheUnavailableFallsBack(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Cache.Enabled = true
		c.Cache.Addr = "127.0.0.1:1"
	})

	assert.Nil(t, a.cache)
	res, _ := runJSON(t, a, fixtures.HotelSearch)
	assert.Equal(t, handoff.StateCompleted, res.State)
}

func TestApp_RateLimitedInvokers(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.RateLimit.RPS = 1000
		c.RateLimit.Burst = 10
	})

	res, _ := runJSON(t, a, "--agent", domain.Analytics, fixtures.ComplexForecast)
	assert.Equal(t, handoff.StateCompleted, res.State)
	assert.Equal(t, []string{domain.Analytics, domain.DataScience}, res.Agents())
}

func TestApp_WriteMetrics(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Metrics.Namespace = "relaycli" })

	runJSON(t, a, fixtures.HotelSearch)

	var out bytes.Buffer
	require.NoError(t, a.writeMetrics(&out))
	assert.Contains(t, out.String(), "relaycli_runs_total")
	assert.Contains(t, out.String(), `state="completed"`)
}

// --- 子命令 ---

func TestDispatch(t *testing.T) {
	t.Setenv("AGENTRELAY_LOG_LEVEL", "error")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"no args", nil, exitError, "", "Usage:"},
		{"unknown", []string{"serve"}, exitError, "", "Unknown command: serve"},
		{"help", []string{"help"}, exitOK, "Commands:", ""},
		{"version", []string{"version"}, exitOK, "agentrelay dev", ""},
		{"run completes", []string{"run", fixtures.HotelSearch}, exitOK, `"state": "completed"`, ""},
		{"run aborted", []string{"run", "--agent", "billing", fixtures.Unmatched}, exitAborted, `"state": "aborted_unknown_target"`, ""},
		{"run usage", []string{"run"}, exitError, "", "task description is required"},
		{"run metrics", []string{"run", "--metrics", fixtures.HotelSearch}, exitOK, "", "agentrelay_runs_total"},
		{"agents", []string{"agents"}, exitOK, "workflow-automation\t", ""},
		{"bad config", []string{"agents", "--config", "/non/existent.yaml"}, exitOK, "retrieval\t", ""},
		{"purge without cache", []string{"purge"}, exitError, "", "Cache is disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := dispatch(tt.args, &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code, "stderr: %s", stderr.String())
			if tt.wantOut != "" {
				assert.Contains(t, stdout.String(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestDispatch_Purge(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("AGENTRELAY_LOG_LEVEL", "error")
	t.Setenv("AGENTRELAY_CACHE_ENABLED", "true")
	t.Setenv("AGENTRELAY_CACHE_ADDR", mr.Addr())
	require.NoError(t, mr.Set("agentrelay:invoke:retrieval:aaa", "x"))
	require.NoError(t, mr.Set("agentrelay:invoke:analytics:bbb", "y"))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitError, dispatch([]string{"purge", "--agent", "billing"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown agent: billing")

	assert.Equal(t, exitOK, dispatch([]string{"purge", "--agent", domain.Retrieval}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "purged 1 cached responses")
	assert.Equal(t, []string{"agentrelay:invoke:analytics:bbb"}, mr.Keys())

	stdout.Reset()
	assert.Equal(t, exitOK, dispatch([]string{"purge"}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "purged 1 cached responses")
	assert.Empty(t, mr.Keys())
}

func TestDispatch_InvalidConfig(t *testing.T) {
	t.Setenv("AGENTRELAY_ORCHESTRATOR_MAX_HOPS", "0")

	var stdout, stderr bytes.Buffer
	code := dispatch([]string{"agents"}, &stdout, &stderr)

	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "Invalid config")
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger := initLogger(config.LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
		require.NotNil(t, logger)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}
	logger := initLogger(config.LogConfig{Level: "bogus"})
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}
