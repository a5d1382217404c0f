// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package inproc_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/agentbridge/internal/boundary"
	"github.com/agentbridge/agentbridge/internal/boundary/inproc"
	"github.com/agentbridge/agentbridge/internal/pluginctx"
)

func createContext(t *testing.T, host *inproc.Host, cfg pluginctx.Configuration) boundary.Ref {
	t.Helper()
	raw, err := cfg.ToJSON()
	require.NoError(t, err)
	ref, err := host.CreateContext(context.Background(), raw)
	require.NoError(t, err)
	require.NotEqual(t, boundary.Ref(0), ref)
	return ref
}

func TestFilterResolvesTemplates(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()
	host.RegisterFunctions("Greeter", inproc.HostFunction{
		Name:        "greet",
		Description: "Greet {name} in {language}",
	})

	cfg, err := pluginctx.NewConfiguration("Greeter", "greeting").
		WithProperty("name", "Ada")
	require.NoError(t, err)
	cfg, err = cfg.WithProperty("language", "French")
	require.NoError(t, err)
	ref := createContext(t, host, cfg)

	buf, err := host.FilterFunctions(ctx, "Greeter", ref)
	require.NoError(t, err)
	defer buf.Release()

	var fns []pluginctx.FunctionMetadata
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fns))
	require.Len(t, fns, 1)
	assert.Equal(t, "Greet Ada in French", fns[0].ResolvedDescription)
}

func TestFilterUnknownPlaceholderKept(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()
	host.RegisterFunctions("Greeter", inproc.HostFunction{
		Name:        "greet",
		Description: "Greet {missing}",
	})

	ref := createContext(t, host, pluginctx.NewConfiguration("Greeter", "greeting"))

	buf, err := host.FilterFunctions(ctx, "Greeter", ref)
	require.NoError(t, err)
	defer buf.Release()

	var fns []pluginctx.FunctionMetadata
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fns))
	assert.Equal(t, "Greet {missing}", fns[0].ResolvedDescription)
}

func TestEmptyAllowListPermitsAll(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()
	host.RegisterFunctions("P",
		inproc.HostFunction{Name: "a"},
		inproc.HostFunction{Name: "b"},
	)

	ref := createContext(t, host, pluginctx.NewConfiguration("P", "t"))

	ok, err := host.EvaluateCondition(ctx, "P", "a", ref)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = host.EvaluateCondition(ctx, "P", "b", ref)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnknownRefErrors(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()

	_, err := host.EvaluateCondition(ctx, "P", "fn", boundary.Ref(42))
	assert.Error(t, err)

	_, err = host.FilterFunctions(ctx, "P", boundary.Ref(42))
	assert.Error(t, err)

	ok, err := host.UpdateContext(ctx, boundary.Ref(42), `{"pluginName":"P","contextType":"t","properties":{}}`)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestUpdateReplacesConfiguration(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()

	cfg, err := pluginctx.NewConfiguration("P", "t").WithProperty("mode", "old")
	require.NoError(t, err)
	ref := createContext(t, host, cfg)

	next, err := pluginctx.NewConfiguration("P", "t").WithProperty("mode", "new")
	require.NoError(t, err)
	raw, err := next.ToJSON()
	require.NoError(t, err)

	ok, err := host.UpdateContext(ctx, ref, raw)
	require.NoError(t, err)
	require.True(t, ok)

	stored, found := host.ContextConfiguration(ref)
	require.True(t, found)
	assert.Equal(t, "new", stored.Properties["mode"])
}

func TestCountersTrackLifecycle(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()

	ref := createContext(t, host, pluginctx.NewConfiguration("P", "t"))
	require.NoError(t, host.DestroyContext(ctx, ref))

	c := host.Counters()
	assert.Equal(t, 1, c.ContextCreates)
	assert.Equal(t, 1, c.ContextDestroys)
}
