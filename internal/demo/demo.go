// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package demo wires the demo plugins into a runtime and seeds hosts
// with their catalog. Shared by the CLI and the demo host binary.
package demo

import (
	"encoding/json"

	"github.com/agentbridge/agentbridge/internal/boundary/inproc"
	"github.com/agentbridge/agentbridge/internal/runtime"
	"github.com/agentbridge/agentbridge/plugins/asyncops"
	"github.com/agentbridge/agentbridge/plugins/mathops"
	"github.com/agentbridge/agentbridge/plugins/textops"
)

// Plugins returns fresh definitions for the demo plugin set. Stateful
// plugins get new counters on every call.
func Plugins() []runtime.PluginDefinition {
	return []runtime.PluginDefinition{
		mathops.Plugin(),
		textops.New().Plugin(),
		asyncops.New().Plugin(),
	}
}

// NewRuntime assembles a runtime with the demo plugins registered.
func NewRuntime(opts ...runtime.Option) (*runtime.Runtime, error) {
	rt := runtime.New(opts...)
	for _, def := range Plugins() {
		if err := rt.RegisterPlugin(def); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// SeedHost mirrors the runtime's catalog into an in-process host:
// function descriptors become host-side filter entries and the registry
// stats become the metadata document.
func SeedHost(host *inproc.Host, rt *runtime.Runtime) error {
	plugins, err := rt.Plugins.List()
	if err != nil {
		return err
	}
	infos := rt.FunctionInfos()

	for _, p := range plugins {
		for _, fn := range p.Functions {
			var description string
			for _, info := range infos {
				if info.Name == fn.Name {
					description = info.Description
					break
				}
			}

			var descriptor struct {
				Function struct {
					Parameters map[string]any `json:"parameters"`
				} `json:"function"`
			}
			if raw, ok := p.Schemas[fn.Name]; ok {
				if err := json.Unmarshal([]byte(raw), &descriptor); err != nil {
					return err
				}
			}

			host.RegisterFunctions(p.Name, inproc.HostFunction{
				Name:        fn.Name,
				Description: description,
				Schema:      descriptor.Function.Parameters,
			})
		}
	}

	stats, err := rt.Plugins.Stats()
	if err != nil {
		return err
	}
	metadata := make(map[string]any, stats.TotalPlugins)
	for _, p := range stats.Plugins {
		metadata[p.Name] = map[string]any{
			"description":    p.Description,
			"function_count": p.FunctionCount,
		}
	}
	host.SetMetadata(metadata)
	return nil
}
