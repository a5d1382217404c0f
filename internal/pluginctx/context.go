// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package pluginctx

import (
	"encoding/json"
	"sort"

	"github.com/samber/oops"
)

// Context is the runtime-only view of a configuration's properties,
// with typed access backed by JSON coercion.
type Context struct {
	properties map[string]any
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{properties: make(map[string]any)}
}

// ContextFromConfiguration copies a configuration's properties into a
// fresh context. Later mutation of the context never touches the
// configuration.
func ContextFromConfiguration(cfg Configuration) *Context {
	props := make(map[string]any, len(cfg.Properties))
	for k, v := range cfg.Properties {
		props[k] = v
	}
	return &Context{properties: props}
}

// SetProperty stores a property, normalizing it through JSON. Fails if
// the value cannot be represented as JSON.
func (c *Context) SetProperty(name string, value any) error {
	normalized, err := normalizeJSON(value)
	if err != nil {
		return oops.In("pluginctx").Code(CodeEncode).With("property", name).
			Wrapf(err, "property value cannot be represented as JSON")
	}
	c.properties[name] = normalized
	return nil
}

// HasProperty reports whether a property exists.
func (c *Context) HasProperty(name string) bool {
	_, ok := c.properties[name]
	return ok
}

// PropertyNames returns all property names, sorted for determinism.
func (c *Context) PropertyNames() []string {
	names := make([]string, 0, len(c.properties))
	for name := range c.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToJSON serializes just the property map.
func (c *Context) ToJSON() (string, error) {
	data, err := json.Marshal(c.properties)
	if err != nil {
		return "", oops.In("pluginctx").Code(CodeEncode).
			Wrapf(err, "failed to serialize context")
	}
	return string(data), nil
}

// ContextFromJSON parses a property map into a context.
func ContextFromJSON(raw string) (*Context, error) {
	var props map[string]any
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, oops.In("pluginctx").Wrapf(err, "failed to parse context")
	}
	if props == nil {
		props = make(map[string]any)
	}
	return &Context{properties: props}, nil
}

// Property reads a property with JSON type coercion. The second return
// is false when the property is absent or cannot convert to T.
func Property[T any](c *Context, name string) (T, bool) {
	var out T
	raw, ok := c.properties[name]
	if !ok {
		return out, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}
