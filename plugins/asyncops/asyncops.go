// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package asyncops is the demo plugin for suspending executors:
// simulated delays, a timestamp source, and a fake network fetch.
package asyncops

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/agentbridge/agentbridge/internal/dispatch"
	"github.com/agentbridge/agentbridge/internal/runtime"
	"github.com/agentbridge/agentbridge/internal/schema"
)

type computeArgs struct {
	DurationMS uint64 `json:"duration_ms"`
}

type requestArgs struct {
	URL string `json:"url"`
}

type emptyArgs struct{}

// AsyncPlugin counts every request it serves.
type AsyncPlugin struct {
	requests atomic.Uint64
}

// New creates a plugin with a zero request counter.
func New() *AsyncPlugin {
	return &AsyncPlugin{}
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AsyncPlugin) asyncCompute(ctx context.Context, a computeArgs) (string, error) {
	n := p.requests.Add(1)
	if err := sleep(ctx, time.Duration(a.DurationMS)*time.Millisecond); err != nil {
		return "", err
	}
	return fmt.Sprintf("Async computation completed after %dms (request #%d)", a.DurationMS, n), nil
}

func (p *AsyncPlugin) timestamp(_ context.Context, _ emptyArgs) (string, error) {
	n := p.requests.Add(1)
	return fmt.Sprintf("Current timestamp: %d (request #%d)", time.Now().Unix(), n), nil
}

func (p *AsyncPlugin) networkRequest(ctx context.Context, a requestArgs) (string, error) {
	n := p.requests.Add(1)
	if err := sleep(ctx, 500*time.Millisecond); err != nil {
		return "", err
	}
	if !strings.HasPrefix(a.URL, "https://") {
		return "", oops.New("Invalid URL: must start with https://")
	}
	return fmt.Sprintf("Successfully fetched data from %s (request #%d)", a.URL, n), nil
}

func (p *AsyncPlugin) stats(_ context.Context, _ emptyArgs) (map[string]any, error) {
	return map[string]any{
		"total_requests": p.requests.Load(),
		"plugin_name":    "AsyncPlugin",
		"status":         "active",
	}, nil
}

// Plugin returns the registerable plugin definition bound to this
// instance's counter.
func (p *AsyncPlugin) Plugin() runtime.PluginDefinition {
	return runtime.PluginDefinition{
		Name:        "AsyncPlugin",
		Description: "Demonstrates async AI functions with external requests",
		Version:     "1.0.0",
		Functions: []runtime.FunctionDef{
			{
				Name:        "async_compute",
				Description: "Simulate async computation",
				Schema: schema.NewFunction("async_compute", "Simulate async computation").
					Param("duration_ms", schema.TypeInteger, "How long to compute, in milliseconds").
					MustJSON(),
				Executor: dispatch.Value(p.asyncCompute),
			},
			{
				Name:        "timestamp",
				Description: "Get current timestamp",
				Schema:      schema.NewFunction("timestamp", "Get current timestamp").MustJSON(),
				Executor:    dispatch.Value(p.timestamp),
			},
			{
				Name:        "network_request",
				Description: "Simulate network request",
				Schema: schema.NewFunction("network_request", "Simulate network request").
					Param("url", schema.TypeString, "URL to fetch; must use https").
					MustJSON(),
				Executor: dispatch.Fallible(p.networkRequest),
			},
			{
				Name:        "get_stats",
				Description: "Get request statistics",
				Schema:      schema.NewFunction("get_stats", "Get request statistics").MustJSON(),
				Executor:    dispatch.Value(p.stats),
			},
		},
	}
}
