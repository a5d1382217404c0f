// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package textops is the string-manipulation demo plugin. Unlike
// mathops it carries state: a counter of operations performed since
// construction or the last reset.
package textops

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/agentbridge/agentbridge/internal/dispatch"
	"github.com/agentbridge/agentbridge/internal/runtime"
	"github.com/agentbridge/agentbridge/internal/schema"
)

type textArgs struct {
	Text string `json:"text"`
}

type splitArgs struct {
	Text      string `json:"text"`
	Delimiter string `json:"delimiter"`
}

type emptyArgs struct{}

// StringPlugin counts its mutating operations.
type StringPlugin struct {
	operations atomic.Uint32
}

// New creates a plugin with a zero counter.
func New() *StringPlugin {
	return &StringPlugin{}
}

func (p *StringPlugin) toUpper(_ context.Context, a textArgs) (string, error) {
	p.operations.Add(1)
	return strings.ToUpper(a.Text), nil
}

func (p *StringPlugin) toLower(_ context.Context, a textArgs) (string, error) {
	p.operations.Add(1)
	return strings.ToLower(a.Text), nil
}

func (p *StringPlugin) reverse(_ context.Context, a textArgs) (string, error) {
	p.operations.Add(1)
	runes := []rune(a.Text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func (p *StringPlugin) charCount(_ context.Context, a textArgs) (int, error) {
	p.operations.Add(1)
	return len([]rune(a.Text)), nil
}

func (p *StringPlugin) split(_ context.Context, a splitArgs) ([]string, error) {
	p.operations.Add(1)
	return strings.Split(a.Text, a.Delimiter), nil
}

func (p *StringPlugin) getCount(_ context.Context, _ emptyArgs) (uint32, error) {
	return p.operations.Load(), nil
}

func (p *StringPlugin) resetCount(_ context.Context, _ emptyArgs) (string, error) {
	p.operations.Store(0)
	return "Counter reset to 0", nil
}

// Plugin returns the registerable plugin definition bound to this
// instance's counter.
func (p *StringPlugin) Plugin() runtime.PluginDefinition {
	text := func(name, desc string) string {
		return schema.NewFunction(name, desc).
			Param("text", schema.TypeString, "Input text").
			MustJSON()
	}
	noArgs := func(name, desc string) string {
		return schema.NewFunction(name, desc).MustJSON()
	}

	return runtime.PluginDefinition{
		Name:        "StringPlugin",
		Description: "A plugin for string manipulation operations",
		Version:     "1.0.0",
		Functions: []runtime.FunctionDef{
			{
				Name:        "to_upper",
				Description: "Convert string to uppercase",
				Schema:      text("to_upper", "Convert string to uppercase"),
				Executor:    dispatch.Value(p.toUpper),
			},
			{
				Name:        "to_lower",
				Description: "Convert string to lowercase",
				Schema:      text("to_lower", "Convert string to lowercase"),
				Executor:    dispatch.Value(p.toLower),
			},
			{
				Name:        "reverse",
				Description: "Reverse a string",
				Schema:      text("reverse", "Reverse a string"),
				Executor:    dispatch.Value(p.reverse),
			},
			{
				Name:        "char_count",
				Description: "Count characters in a string",
				Schema:      text("char_count", "Count characters in a string"),
				Executor:    dispatch.Value(p.charCount),
			},
			{
				Name:        "split",
				Description: "Split string by delimiter",
				Schema: schema.NewFunction("split", "Split string by delimiter").
					Param("text", schema.TypeString, "Input text").
					Param("delimiter", schema.TypeString, "Delimiter to split on").
					MustJSON(),
				Executor: dispatch.Value(p.split),
			},
			{
				Name:        "get_count",
				Description: "Get operations count",
				Schema:      noArgs("get_count", "Get operations count"),
				Executor:    dispatch.Value(p.getCount),
			},
			{
				Name:        "reset_count",
				Description: "Reset operations counter",
				Schema:      noArgs("reset_count", "Reset operations counter"),
				Executor:    dispatch.Value(p.resetCount),
			},
		},
	}
}
