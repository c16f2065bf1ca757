package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/agent/domain"
)

// purgeCommand 删除协作者响应缓存，--agent 为空时清空全部专家
func purgeCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	agent := fs.String("agent", "", "Only purge responses cached for this agent")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	a, code := bootstrap(*configPath, stderr)
	if a == nil {
		return code
	}
	defer shutdown(a)

	if a.cache == nil {
		fmt.Fprintln(stderr, "Cache is disabled or unreachable; nothing to purge")
		return exitError
	}
	if *agent != "" {
		if _, ok := a.orch.Agent(*agent); !ok {
			fmt.Fprintf(stderr, "Unknown agent: %s\n", *agent)
			return exitError
		}
	}

	n, err := a.cache.Purge(context.Background(), domain.CachePattern(*agent))
	if err != nil {
		a.logger.Error("purge failed", zap.Error(err))
		return exitError
	}
	fmt.Fprintf(stdout, "purged %d cached responses\n", n)
	return exitOK
}
