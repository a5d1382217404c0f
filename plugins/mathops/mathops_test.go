// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package mathops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/agentbridge/internal/dispatch"
	"github.com/agentbridge/agentbridge/plugins/mathops"
)

func executors(t *testing.T) map[string]dispatch.Executor {
	t.Helper()
	def := mathops.Plugin()
	out := make(map[string]dispatch.Executor, len(def.Functions))
	for _, fn := range def.Functions {
		out[fn.Name] = fn.Executor
	}
	return out
}

func TestPluginDefinition(t *testing.T) {
	def := mathops.Plugin()
	assert.Equal(t, "MathPlugin", def.Name)
	assert.Len(t, def.Functions, 8)
	for _, fn := range def.Functions {
		assert.NotEmpty(t, fn.Schema, "function %s needs a schema", fn.Name)
	}
}

func TestArithmetic(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	tests := []struct {
		fn   string
		args string
		want string
	}{
		{"add", `{"a":156.0,"b":847.0}`, "1003"},
		{"subtract", `{"a":10.0,"b":4.0}`, "6"},
		{"multiply", `{"a":4.0,"b":5.0}`, "20"},
		{"power", `{"base":2.0,"exponent":8.0}`, "256"},
	}
	for _, tt := range tests {
		result, err := ex[tt.fn](ctx, tt.args)
		require.NoError(t, err, tt.fn)
		assert.Equal(t, tt.want, result, tt.fn)
	}
}

func TestDivide(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	result, err := ex["divide"](ctx, `{"a":10.0,"b":4.0}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":2.5}`, result)

	result, err = ex["divide"](ctx, `{"a":10.0,"b":0.0}`)
	require.NoError(t, err, "division by zero is a domain failure, not a dispatch failure")
	assert.JSONEq(t, `{"Err":"Division by zero"}`, result)
}

func TestSqrt(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	result, err := ex["sqrt"](ctx, `{"number":16.0}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":4}`, result)

	result, err = ex["sqrt"](ctx, `{"number":-1.0}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Err":"Cannot calculate square root of negative number"}`, result)
}

func TestFactorial(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	result, err := ex["factorial"](ctx, `{"n":5}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":120}`, result)

	result, err = ex["factorial"](ctx, `{"n":0}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":1}`, result)

	result, err = ex["factorial"](ctx, `{"n":21}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Err":"Factorial too large (max 20)"}`, result)
}

func TestIsPrime(t *testing.T) {
	ex := executors(t)
	ctx := context.Background()

	tests := []struct {
		n    string
		want string
	}{
		{"0", "false"},
		{"1", "false"},
		{"2", "true"},
		{"16", "false"},
		{"17", "true"},
		{"7919", "true"},
	}
	for _, tt := range tests {
		result, err := ex["is_prime"](ctx, `{"number":`+tt.n+`}`)
		require.NoError(t, err)
		assert.Equal(t, tt.want, result, "is_prime(%s)", tt.n)
	}
}
