// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package dispatch_test

import (
	"context"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/agentbridge/internal/dispatch"
)

type pair struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func TestValueBareScalar(t *testing.T) {
	ex := dispatch.Value(func(_ context.Context, p pair) (float64, error) {
		return p.A + p.B, nil
	})

	result, err := ex(context.Background(), `{"a":156.0,"b":847.0}`)
	require.NoError(t, err)
	assert.Equal(t, "1003", result)
}

func TestValueString(t *testing.T) {
	ex := dispatch.Value(func(_ context.Context, p struct {
		Text string `json:"text"`
	}) (string, error) {
		return p.Text, nil
	})

	result, err := ex(context.Background(), `{"text":"hello"}`)
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, result)
}

func TestValueEmptyArgsDefaultsToObject(t *testing.T) {
	ex := dispatch.Value(func(_ context.Context, _ struct{}) (bool, error) {
		return true, nil
	})

	result, err := ex(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "true", result)
}

func TestValueUnparseableArgs(t *testing.T) {
	ex := dispatch.Value(func(_ context.Context, p pair) (float64, error) {
		return 0, nil
	})

	_, err := ex(context.Background(), `{broken`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestFallibleOkEnvelope(t *testing.T) {
	ex := dispatch.Fallible(func(_ context.Context, p pair) (float64, error) {
		return p.A / p.B, nil
	})

	result, err := ex(context.Background(), `{"a":10.0,"b":4.0}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":2.5}`, result)
}

func TestFallibleErrEnvelope(t *testing.T) {
	ex := dispatch.Fallible(func(_ context.Context, p pair) (float64, error) {
		if p.B == 0 {
			return 0, oops.New("Division by zero")
		}
		return p.A / p.B, nil
	})

	// Domain failure is a successful dispatch carrying an Err payload.
	result, err := ex(context.Background(), `{"a":10.0,"b":0.0}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Err":"Division by zero"}`, result)
}
