// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package inproc provides an in-process host implementation of the
// boundary contract. It backs the demo CLI and the test suites, and
// instruments every call so resource-lifecycle invariants (one create,
// one destroy, one buffer release) are observable.
package inproc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/agentbridge/agentbridge/internal/boundary"
	"github.com/agentbridge/agentbridge/internal/pluginctx"
)

// Condition is one precompiled host-side predicate evaluated against
// the current context configuration.
type Condition func(cfg pluginctx.Configuration) bool

// HostFunction describes one function the host knows for a plugin
// type. The description may contain {property} placeholders resolved
// against context properties during filtering.
type HostFunction struct {
	Name               string
	Description        string
	Schema             map[string]any
	RequiresPermission bool
}

// Counters tracks boundary calls for lifecycle assertions.
type Counters struct {
	AgentCreates    int
	AgentDestroys   int
	ContextCreates  int
	ContextUpdates  int
	ContextDestroys int
	Evaluations     int
	Filters         int
	BufferReleases  int
}

type agentRecord struct {
	config  boundary.AgentConfig
	plugins []pluginctx.FunctionInfo
}

// Host is an in-process boundary. Safe for concurrent use.
type Host struct {
	mu         sync.Mutex
	nextRef    uint64
	agents     map[boundary.Ref]agentRecord
	contexts   map[boundary.Ref]pluginctx.Configuration
	functions  map[string][]HostFunction
	conditions map[string]Condition
	metadata   map[string]any
	counters   Counters

	refuseCreates bool
	failUpdates   int
}

// New creates an empty host.
func New() *Host {
	return &Host{
		agents:     make(map[boundary.Ref]agentRecord),
		contexts:   make(map[boundary.Ref]pluginctx.Configuration),
		functions:  make(map[string][]HostFunction),
		conditions: make(map[string]Condition),
		metadata:   make(map[string]any),
	}
}

// RegisterFunctions declares the functions the host knows for a plugin
// type; FilterFunctions reports availability over this set.
func (h *Host) RegisterFunctions(pluginType string, fns ...HostFunction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.functions[pluginType] = append(h.functions[pluginType], fns...)
}

// RegisterCondition installs a precompiled predicate for one plugin
// type + function name pair. Functions without a condition default to
// available.
func (h *Host) RegisterCondition(pluginType, functionName string, cond Condition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conditions[conditionKey(pluginType, functionName)] = cond
}

// SetMetadata sets the document served by PluginMetadata.
func (h *Host) SetMetadata(metadata map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metadata = metadata
}

// RefuseCreates makes subsequent create calls return the null
// reference, simulating a deliberate host refusal.
func (h *Host) RefuseCreates(refuse bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refuseCreates = refuse
}

// FailUpdates makes the next n updates return false without changing
// the stored configuration.
func (h *Host) FailUpdates(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failUpdates = n
}

// Counters returns a snapshot of the call counters.
func (h *Host) Counters() Counters {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counters
}

// ContextConfiguration returns the currently applied configuration for
// a context ref, for assertions on update semantics.
func (h *Host) ContextConfiguration(ref boundary.Ref) (pluginctx.Configuration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cfg, ok := h.contexts[ref]
	return cfg, ok
}

func conditionKey(pluginType, functionName string) string {
	return pluginType + "\x00" + functionName
}

// CreateAgent implements boundary.Boundary.
func (h *Host) CreateAgent(_ context.Context, configJSON, pluginsJSON string) (boundary.Ref, error) {
	var config boundary.AgentConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return 0, oops.In("inproc").Wrapf(err, "invalid agent config")
	}
	var plugins []pluginctx.FunctionInfo
	if err := json.Unmarshal([]byte(pluginsJSON), &plugins); err != nil {
		return 0, oops.In("inproc").Wrapf(err, "invalid plugin list")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters.AgentCreates++
	if h.refuseCreates {
		return 0, nil
	}
	h.nextRef++
	ref := boundary.Ref(h.nextRef)
	h.agents[ref] = agentRecord{config: config, plugins: plugins}
	return ref, nil
}

// DestroyAgent implements boundary.Boundary.
func (h *Host) DestroyAgent(_ context.Context, ref boundary.Ref) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters.AgentDestroys++
	delete(h.agents, ref)
	return nil
}

// CreateContext implements boundary.Boundary.
func (h *Host) CreateContext(_ context.Context, configJSON string) (boundary.Ref, error) {
	cfg, err := pluginctx.ConfigurationFromJSON(configJSON)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters.ContextCreates++
	if h.refuseCreates {
		return 0, nil
	}
	h.nextRef++
	ref := boundary.Ref(h.nextRef)
	h.contexts[ref] = cfg
	return ref, nil
}

// UpdateContext implements boundary.Boundary. A failed update leaves
// the previously applied configuration in place.
func (h *Host) UpdateContext(_ context.Context, ref boundary.Ref, configJSON string) (bool, error) {
	cfg, err := pluginctx.ConfigurationFromJSON(configJSON)
	if err != nil {
		return false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters.ContextUpdates++
	if _, ok := h.contexts[ref]; !ok {
		return false, oops.In("inproc").With("ref", uint64(ref)).New("unknown context reference")
	}
	if h.failUpdates > 0 {
		h.failUpdates--
		return false, nil
	}
	h.contexts[ref] = cfg
	return true, nil
}

// DestroyContext implements boundary.Boundary.
func (h *Host) DestroyContext(_ context.Context, ref boundary.Ref) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters.ContextDestroys++
	delete(h.contexts, ref)
	return nil
}

// EvaluateCondition implements boundary.Boundary. Functions without a
// registered condition are available by default, subject to the
// configuration's allow-list.
func (h *Host) EvaluateCondition(_ context.Context, pluginType, functionName string, ref boundary.Ref) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters.Evaluations++

	cfg, ok := h.contexts[ref]
	if !ok {
		return false, oops.In("inproc").With("ref", uint64(ref)).New("unknown context reference")
	}
	if !allowListed(cfg, functionName) {
		return false, nil
	}
	if cond, ok := h.conditions[conditionKey(pluginType, functionName)]; ok {
		return cond(cfg), nil
	}
	return true, nil
}

// FilterFunctions implements boundary.Boundary.
func (h *Host) FilterFunctions(_ context.Context, pluginType string, ref boundary.Ref) (*boundary.OwnedBuffer, error) {
	h.mu.Lock()
	cfg, ok := h.contexts[ref]
	if !ok {
		h.mu.Unlock()
		return nil, oops.In("inproc").With("ref", uint64(ref)).New("unknown context reference")
	}
	h.counters.Filters++

	fns := h.functions[pluginType]
	metadata := make([]pluginctx.FunctionMetadata, 0, len(fns))
	for _, fn := range fns {
		available := allowListed(cfg, fn.Name)
		if cond, ok := h.conditions[conditionKey(pluginType, fn.Name)]; ok && available {
			available = cond(cfg)
		}
		metadata = append(metadata, pluginctx.FunctionMetadata{
			Name:                fn.Name,
			ResolvedDescription: resolveTemplate(fn.Description, cfg.Properties),
			Schema:              fn.Schema,
			IsAvailable:         available,
			RequiresPermission:  fn.RequiresPermission,
		})
	}
	h.mu.Unlock()

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, oops.In("inproc").Wrapf(err, "failed to marshal function metadata")
	}
	return h.ownedBuffer(data), nil
}

// PluginMetadata implements boundary.Boundary.
func (h *Host) PluginMetadata(_ context.Context) (*boundary.OwnedBuffer, error) {
	h.mu.Lock()
	metadata := h.metadata
	h.mu.Unlock()

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, oops.In("inproc").Wrapf(err, "failed to marshal plugin metadata")
	}
	return h.ownedBuffer(data), nil
}

func (h *Host) ownedBuffer(data []byte) *boundary.OwnedBuffer {
	return boundary.NewOwnedBuffer(data, func() {
		h.mu.Lock()
		h.counters.BufferReleases++
		h.mu.Unlock()
	})
}

// allowListed reports whether the configuration's allow-list permits a
// function. An absent or empty list permits everything.
func allowListed(cfg pluginctx.Configuration, functionName string) bool {
	if len(cfg.AvailableFunctions) == 0 {
		return true
	}
	for _, name := range cfg.AvailableFunctions {
		if name == functionName {
			return true
		}
	}
	return false
}

// resolveTemplate substitutes {property} placeholders with property
// values. Unknown placeholders are left as-is.
func resolveTemplate(description string, properties map[string]any) string {
	if !strings.Contains(description, "{") {
		return description
	}
	pairs := make([]string, 0, len(properties)*2)
	for name, value := range properties {
		pairs = append(pairs, "{"+name+"}", fmt.Sprintf("%v", value))
	}
	return strings.NewReplacer(pairs...).Replace(description)
}

// Compile-time interface check.
var _ boundary.Boundary = (*Host)(nil)
