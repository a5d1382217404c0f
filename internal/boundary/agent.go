// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package boundary

import (
	"context"
	"encoding/json"

	"github.com/samber/oops"

	"github.com/agentbridge/agentbridge/internal/pluginctx"
)

// Provider identifies a chat provider. Serialized as its numeric value;
// the ordering is wire format shared with the host.
type Provider uint32

// Chat providers.
const (
	ProviderOpenAI Provider = iota
	ProviderAzureOpenAI
	ProviderOpenRouter
	ProviderAppleIntelligence
	ProviderOllama
)

// ProviderConfig selects the model backend the host should use.
type ProviderConfig struct {
	Provider  Provider `json:"provider"`
	ModelName string   `json:"modelName"`
	APIKey    *string  `json:"apiKey"`
	Endpoint  *string  `json:"endpoint"`
}

// AgentConfig is the agent-level configuration transmitted at agent
// creation. Field names are wire format.
type AgentConfig struct {
	Name                   string          `json:"name"`
	SystemInstructions     string          `json:"systemInstructions"`
	MaxFunctionCalls       int             `json:"maxFunctionCalls"`
	MaxConversationHistory int             `json:"maxConversationHistory"`
	Provider               *ProviderConfig `json:"provider"`

	// PluginConfigurations keys plugin name to its context
	// configuration; included on the wire only when non-empty.
	PluginConfigurations map[string]pluginctx.Configuration `json:"pluginConfigurations,omitempty"`
}

// DefaultAgentConfig mirrors the host's defaults.
func DefaultAgentConfig(name string) AgentConfig {
	return AgentConfig{
		Name:                   name,
		SystemInstructions:     "You are a helpful assistant.",
		MaxFunctionCalls:       10,
		MaxConversationHistory: 20,
	}
}

// Agent owns one host-side agent resource, destroyed exactly once.
type Agent struct {
	b Boundary
	d destroyOnce
}

// Close destroys the host-side agent. Idempotent.
func (a *Agent) Close(ctx context.Context) error {
	ref := a.d.take()
	if ref == 0 {
		return nil
	}
	if err := a.b.DestroyAgent(ctx, ref); err != nil {
		return oops.In("boundary").Code(CodeTransport).
			Wrapf(err, "destroy agent call failed")
	}
	return nil
}

// AgentBuilder assembles an agent configuration plus the flattened
// plugin function list, then creates the agent across the boundary.
type AgentBuilder struct {
	config  AgentConfig
	plugins []pluginctx.FunctionInfo
}

// NewAgentBuilder starts a builder with default configuration.
func NewAgentBuilder(name string) *AgentBuilder {
	return &AgentBuilder{config: DefaultAgentConfig(name)}
}

// WithPlugins appends function records the agent should expose.
func (b *AgentBuilder) WithPlugins(infos ...pluginctx.FunctionInfo) *AgentBuilder {
	b.plugins = append(b.plugins, infos...)
	return b
}

// WithInstructions sets the system instructions.
func (b *AgentBuilder) WithInstructions(instructions string) *AgentBuilder {
	b.config.SystemInstructions = instructions
	return b
}

// WithMaxFunctionCalls caps function calls per turn.
func (b *AgentBuilder) WithMaxFunctionCalls(maxCalls int) *AgentBuilder {
	b.config.MaxFunctionCalls = maxCalls
	return b
}

// WithMaxConversationHistory caps retained conversation length.
func (b *AgentBuilder) WithMaxConversationHistory(maxHistory int) *AgentBuilder {
	b.config.MaxConversationHistory = maxHistory
	return b
}

// WithProvider sets the provider configuration.
func (b *AgentBuilder) WithProvider(p ProviderConfig) *AgentBuilder {
	b.config.Provider = &p
	return b
}

// WithOpenAI selects OpenAI with a model and key.
func (b *AgentBuilder) WithOpenAI(modelName, apiKey string) *AgentBuilder {
	return b.WithProvider(ProviderConfig{
		Provider:  ProviderOpenAI,
		ModelName: modelName,
		APIKey:    &apiKey,
	})
}

// WithOpenRouter selects OpenRouter with a model and key.
func (b *AgentBuilder) WithOpenRouter(modelName, apiKey string) *AgentBuilder {
	return b.WithProvider(ProviderConfig{
		Provider:  ProviderOpenRouter,
		ModelName: modelName,
		APIKey:    &apiKey,
	})
}

// WithOllama selects a local Ollama model.
func (b *AgentBuilder) WithOllama(modelName string) *AgentBuilder {
	return b.WithProvider(ProviderConfig{
		Provider:  ProviderOllama,
		ModelName: modelName,
	})
}

// WithPluginConfig attaches a context configuration for one plugin.
func (b *AgentBuilder) WithPluginConfig(pluginName string, cfg pluginctx.Configuration) *AgentBuilder {
	if b.config.PluginConfigurations == nil {
		b.config.PluginConfigurations = make(map[string]pluginctx.Configuration)
	}
	b.config.PluginConfigurations[pluginName] = cfg
	return b
}

// WithPluginConfigs attaches several plugin configurations at once.
func (b *AgentBuilder) WithPluginConfigs(configs map[string]pluginctx.Configuration) *AgentBuilder {
	for name, cfg := range configs {
		b.WithPluginConfig(name, cfg)
	}
	return b
}

// WithDynamicPluginContext builds and attaches a configuration from a
// bare property map.
func (b *AgentBuilder) WithDynamicPluginContext(pluginName, contextType string, properties map[string]any) *AgentBuilder {
	cfg := pluginctx.Configuration{
		PluginName:  pluginName,
		ContextType: contextType,
		Properties:  properties,
	}
	return b.WithPluginConfig(pluginName, cfg)
}

// Build serializes the configuration and plugin list and creates the
// agent. A null reference from a reachable host fails with
// BOUNDARY_CREATE_FAILED.
func (b *AgentBuilder) Build(ctx context.Context, boundary Boundary) (*Agent, error) {
	configJSON, err := json.Marshal(b.config)
	if err != nil {
		return nil, oops.In("boundary").Code(CodeEncode).
			With("agent", b.config.Name).
			Wrapf(err, "failed to serialize agent config")
	}
	plugins := b.plugins
	if plugins == nil {
		plugins = []pluginctx.FunctionInfo{}
	}
	pluginsJSON, err := json.Marshal(plugins)
	if err != nil {
		return nil, oops.In("boundary").Code(CodeEncode).
			With("agent", b.config.Name).
			Wrapf(err, "failed to serialize plugin list")
	}
	if err := checkWireString("config", string(configJSON)); err != nil {
		return nil, err
	}
	if err := checkWireString("plugins", string(pluginsJSON)); err != nil {
		return nil, err
	}

	ref, err := boundary.CreateAgent(ctx, string(configJSON), string(pluginsJSON))
	if err != nil {
		return nil, oops.In("boundary").Code(CodeTransport).
			With("agent", b.config.Name).
			Wrapf(err, "create agent call failed")
	}
	if ref == 0 {
		return nil, oops.In("boundary").Code(CodeCreateFailed).
			With("agent", b.config.Name).
			New("host refused to create agent")
	}

	a := &Agent{b: boundary}
	a.d.ref = ref
	return a, nil
}
