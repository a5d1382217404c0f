// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package pluginctx defines the configuration and context types that
// cross the host boundary as JSON. Field names in the serialized forms
// are fixed wire format and must not change.
package pluginctx

import (
	"encoding/json"

	"github.com/samber/oops"
)

// CodeEncode is returned when a value cannot be represented as JSON.
const CodeEncode = "CONTEXT_ENCODE_FAILED"

// Configuration carries the dynamic per-plugin context the host uses to
// filter available functions. Built incrementally in a functional style;
// consumed into a ContextHandle once complete.
type Configuration struct {
	// PluginName names the plugin type this configuration targets.
	PluginName string `json:"pluginName"`

	// ContextType names the host-side context type used for validation.
	ContextType string `json:"contextType"`

	// Properties are the dynamic context values injected at runtime.
	Properties map[string]any `json:"properties"`

	// AvailableFunctions optionally narrows the callable set. Nil or
	// empty means all functions, subject to conditional filtering.
	AvailableFunctions []string `json:"availableFunctions,omitempty"`
}

// NewConfiguration creates a configuration with no properties.
func NewConfiguration(pluginName, contextType string) Configuration {
	return Configuration{
		PluginName:  pluginName,
		ContextType: contextType,
		Properties:  make(map[string]any),
	}
}

// WithProperty returns a copy of the configuration with the property
// added. The value is normalized through a JSON round trip so the
// in-memory form always equals its decoded wire form; values that
// cannot be represented as JSON fail here, before any boundary call.
func (c Configuration) WithProperty(name string, value any) (Configuration, error) {
	normalized, err := normalizeJSON(value)
	if err != nil {
		return c, oops.In("pluginctx").Code(CodeEncode).
			With("property", name).
			Wrapf(err, "property value cannot be represented as JSON")
	}

	out := c
	out.Properties = make(map[string]any, len(c.Properties)+1)
	for k, v := range c.Properties {
		out.Properties[k] = v
	}
	out.Properties[name] = normalized
	return out, nil
}

// WithAvailableFunctions returns a copy with the allow-list replaced.
func (c Configuration) WithAvailableFunctions(functions ...string) Configuration {
	out := c
	out.AvailableFunctions = append([]string(nil), functions...)
	return out
}

// ToJSON serializes the configuration in the fixed wire format.
func (c Configuration) ToJSON() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", oops.In("pluginctx").Code(CodeEncode).
			With("plugin", c.PluginName).
			Wrapf(err, "failed to serialize configuration")
	}
	return string(data), nil
}

// ConfigurationFromJSON parses a configuration from its wire form.
func ConfigurationFromJSON(raw string) (Configuration, error) {
	var c Configuration
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Configuration{}, oops.In("pluginctx").
			Wrapf(err, "failed to parse configuration")
	}
	if c.Properties == nil {
		c.Properties = make(map[string]any)
	}
	return c, nil
}

// normalizeJSON round-trips a value through encoding/json so that maps,
// structs, and numbers land in their canonical decoded representation.
func normalizeJSON(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
