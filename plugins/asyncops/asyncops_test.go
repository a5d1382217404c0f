// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package asyncops_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/agentbridge/internal/dispatch"
	"github.com/agentbridge/agentbridge/plugins/asyncops"
)

func executors(t *testing.T) map[string]dispatch.Executor {
	t.Helper()
	def := asyncops.New().Plugin()
	out := make(map[string]dispatch.Executor, len(def.Functions))
	for _, fn := range def.Functions {
		out[fn.Name] = fn.Executor
	}
	return out
}

func TestAsyncCompute(t *testing.T) {
	ex := executors(t)

	result, err := ex["async_compute"](context.Background(), `{"duration_ms":10}`)
	require.NoError(t, err)
	assert.Contains(t, result, "10ms")
	assert.Contains(t, result, "request #1")
}

func TestAsyncComputeHonorsCancellation(t *testing.T) {
	ex := executors(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ex["async_compute"](ctx, `{"duration_ms":10000}`)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTimestampCountsRequests(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	result, err := ex["timestamp"](ctx, "{}")
	require.NoError(t, err)
	assert.Contains(t, result, "Current timestamp")
	assert.Contains(t, result, "request #1")

	result, err = ex["timestamp"](ctx, "{}")
	require.NoError(t, err)
	assert.Contains(t, result, "request #2")
}

func TestNetworkRequestRequiresHTTPS(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	result, err := ex["network_request"](ctx, `{"url":"https://example.com"}`)
	require.NoError(t, err)
	assert.Contains(t, result, `"Ok"`)
	assert.Contains(t, result, "example.com")

	result, err = ex["network_request"](ctx, `{"url":"http://example.com"}`)
	require.NoError(t, err, "a rejected URL is a domain failure")
	assert.JSONEq(t, `{"Err":"Invalid URL: must start with https://"}`, result)
}

func TestStats(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	_, err := ex["timestamp"](ctx, "{}")
	require.NoError(t, err)

	result, err := ex["get_stats"](ctx, "{}")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &stats))
	assert.Equal(t, float64(1), stats["total_requests"])
	assert.Equal(t, "AsyncPlugin", stats["plugin_name"])
	assert.Equal(t, "active", stats["status"])
}
