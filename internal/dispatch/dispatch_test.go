// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package dispatch_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/agentbridge/internal/dispatch"
	"github.com/agentbridge/agentbridge/pkg/errutil"
)

func TestRegisterAndExecute(t *testing.T) {
	r := dispatch.New()

	require.NoError(t, r.Register("echo", func(_ context.Context, argsJSON string) (string, error) {
		return argsJSON, nil
	}))

	result, err := r.Execute(context.Background(), "echo", `{"x":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, result)
}

func TestExecuteNotFound(t *testing.T) {
	r := dispatch.New()

	_, err := r.Execute(context.Background(), "missing", "{}")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, dispatch.CodeNotFound)
	assert.Contains(t, err.Error(), `"missing"`)
	assert.Contains(t, err.Error(), "not found in executor registry")
}

func TestExecutorErrorWrapped(t *testing.T) {
	r := dispatch.New()

	require.NoError(t, r.Register("fails", func(context.Context, string) (string, error) {
		return "", oops.New("script exploded")
	}))

	_, err := r.Execute(context.Background(), "fails", "{}")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, dispatch.CodeExecutor)
	errutil.AssertErrorContext(t, err, "function", "fails")
}

func TestRegisterValidation(t *testing.T) {
	r := dispatch.New()

	err := r.Register("", func(context.Context, string) (string, error) { return "", nil })
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, dispatch.CodeInvalid)

	err = r.Register("fn", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, dispatch.CodeInvalid)
}

func TestReRegisterShadowsPrevious(t *testing.T) {
	r := dispatch.New()

	require.NoError(t, r.Register("fn", func(context.Context, string) (string, error) {
		return "first", nil
	}))
	require.NoError(t, r.Register("fn", func(context.Context, string) (string, error) {
		return "second", nil
	}))

	result, err := r.Execute(context.Background(), "fn", "{}")
	require.NoError(t, err)
	assert.Equal(t, "second", result)
}

func TestNames(t *testing.T) {
	r := dispatch.New()
	require.NoError(t, r.Register("a", func(context.Context, string) (string, error) { return "", nil }))
	require.NoError(t, r.Register("b", func(context.Context, string) (string, error) { return "", nil }))

	names, err := r.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestDispatchMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	r := dispatch.New(dispatch.WithMetrics(promReg))

	require.NoError(t, r.Register("ok", func(context.Context, string) (string, error) {
		return "{}", nil
	}))

	_, err := r.Execute(context.Background(), "ok", "{}")
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), "missing", "{}")
	require.Error(t, err)

	families, err := promReg.Gather()
	require.NoError(t, err)

	var samples int
	for _, f := range families {
		if f.GetName() == "agentbridge_dispatch_total" {
			samples = len(f.GetMetric())
		}
	}
	assert.Equal(t, 2, samples, "expected one series per function/outcome pair")
}
