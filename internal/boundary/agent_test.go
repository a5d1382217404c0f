// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package boundary_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/agentbridge/internal/boundary"
	"github.com/agentbridge/agentbridge/internal/boundary/inproc"
	"github.com/agentbridge/agentbridge/internal/pluginctx"
	"github.com/agentbridge/agentbridge/pkg/errutil"
)

func TestAgentConfigWireFormat(t *testing.T) {
	key := "sk-test"
	cfg := boundary.DefaultAgentConfig("demo")
	cfg.Provider = &boundary.ProviderConfig{
		Provider:  boundary.ProviderOpenRouter,
		ModelName: "gpt-4o",
		APIKey:    &key,
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "demo", decoded["name"])
	assert.Equal(t, "You are a helpful assistant.", decoded["systemInstructions"])
	assert.Equal(t, float64(10), decoded["maxFunctionCalls"])
	assert.Equal(t, float64(20), decoded["maxConversationHistory"])
	assert.NotContains(t, decoded, "pluginConfigurations", "empty map must be omitted")

	provider, ok := decoded["provider"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), provider["provider"], "provider serializes as its numeric value")
	assert.Equal(t, "gpt-4o", provider["modelName"])
}

func TestAgentBuilderLifecycle(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()

	agent, err := boundary.NewAgentBuilder("demo").
		WithInstructions("You are a calculation assistant.").
		WithMaxFunctionCalls(5).
		WithOllama("llama3").
		WithPlugins(pluginctx.FunctionInfo{
			Name:                "add",
			Description:         "Add two numbers together",
			WrapperFunctionName: "execute_add",
		}).
		WithDynamicPluginContext("MathPlugin", "calculator", map[string]any{
			"precision": "high",
		}).
		Build(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, 1, host.Counters().AgentCreates)

	require.NoError(t, agent.Close(ctx))
	assert.Equal(t, 1, host.Counters().AgentDestroys)

	require.NoError(t, agent.Close(ctx))
	assert.Equal(t, 1, host.Counters().AgentDestroys, "close is idempotent")
}

// recordingHost captures the raw agent-creation payloads.
type recordingHost struct {
	*inproc.Host
	pluginsJSON string
}

func (r *recordingHost) CreateAgent(ctx context.Context, configJSON, pluginsJSON string) (boundary.Ref, error) {
	r.pluginsJSON = pluginsJSON
	return r.Host.CreateAgent(ctx, configJSON, pluginsJSON)
}

func TestAgentBuilderEmptyPluginListIsArray(t *testing.T) {
	ctx := context.Background()
	host := &recordingHost{Host: inproc.New()}

	agent, err := boundary.NewAgentBuilder("empty").Build(ctx, host)
	require.NoError(t, err)
	defer func() { _ = agent.Close(ctx) }()

	assert.Equal(t, "[]", host.pluginsJSON, "no plugins must serialize as an empty array, not null")
}

func TestAgentBuilderCreateRefused(t *testing.T) {
	ctx := context.Background()
	host := inproc.New()
	host.RefuseCreates(true)

	_, err := boundary.NewAgentBuilder("demo").Build(ctx, host)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, boundary.CodeCreateFailed)
}

func TestProviderEnumValues(t *testing.T) {
	assert.Equal(t, boundary.Provider(0), boundary.ProviderOpenAI)
	assert.Equal(t, boundary.Provider(1), boundary.ProviderAzureOpenAI)
	assert.Equal(t, boundary.Provider(2), boundary.ProviderOpenRouter)
	assert.Equal(t, boundary.Provider(3), boundary.ProviderAppleIntelligence)
	assert.Equal(t, boundary.Provider(4), boundary.ProviderOllama)
}
