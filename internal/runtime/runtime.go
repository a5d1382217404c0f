// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package runtime assembles the bridge core: the plugin catalog, the
// executor registry, and the stream bridge, plus the single host-facing
// execution entry point that wraps every outcome in a response
// envelope.
package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/agentbridge/agentbridge/internal/dispatch"
	"github.com/agentbridge/agentbridge/internal/pluginctx"
	"github.com/agentbridge/agentbridge/internal/registry"
	"github.com/agentbridge/agentbridge/internal/schema"
	"github.com/agentbridge/agentbridge/internal/stream"
)

// FunctionDef declares one plugin function: its descriptor, its
// executor, and its permission flags.
type FunctionDef struct {
	Name        string
	Description string
	// WrapperName is the host-visible wrapper identifier. Defaults to
	// "execute_" + Name.
	WrapperName string
	// Schema is the function descriptor JSON, usually built with the
	// schema package.
	Schema   string
	Executor dispatch.Executor
	// ValidateArgs compiles Schema's parameters object and rejects
	// non-conforming arguments before the executor runs.
	ValidateArgs        bool
	RequiresPermission  bool
	RequiredPermissions []string
}

// PluginDefinition declares one plugin and its functions.
type PluginDefinition struct {
	Name        string
	Description string
	Version     string
	Functions   []FunctionDef
}

// Runtime is the assembled core. Construct with New; the zero value is
// not usable.
type Runtime struct {
	Plugins   *registry.Registry
	Executors *dispatch.Registry
	Streams   *stream.Bridge

	mu     sync.RWMutex
	infos  []pluginctx.FunctionInfo
	logger *slog.Logger
}

// Option configures a Runtime.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics prometheus.Registerer
}

// WithLogger sets the logger shared by the core components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers dispatch counters with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = reg }
}

// New assembles an empty runtime.
func New(opts ...Option) *Runtime {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(o.logger)}
	if o.metrics != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithMetrics(o.metrics))
	}

	return &Runtime{
		Plugins:   registry.New(registry.WithLogger(o.logger)),
		Executors: dispatch.New(dispatchOpts...),
		Streams:   stream.New(stream.WithLogger(o.logger)),
		logger:    o.logger,
	}
}

// RegisterPlugin records the plugin in the catalog and installs its
// executors. The catalog entry is written first so invalid definitions
// never leave partial executor state behind.
func (r *Runtime) RegisterPlugin(def PluginDefinition) error {
	reg := registry.Registration{
		Name:        def.Name,
		Description: def.Description,
		Version:     def.Version,
		Functions:   make([]registry.FunctionEntry, 0, len(def.Functions)),
		Schemas:     make(map[string]string, len(def.Functions)),
	}

	executors := make(map[string]dispatch.Executor, len(def.Functions))
	infos := make([]pluginctx.FunctionInfo, 0, len(def.Functions))
	for _, fn := range def.Functions {
		if fn.Executor == nil {
			return oops.In("runtime").
				With("plugin", def.Name).With("function", fn.Name).
				New("function has no executor")
		}
		wrapper := fn.WrapperName
		if wrapper == "" {
			wrapper = "execute_" + fn.Name
		}

		ex := fn.Executor
		if fn.ValidateArgs && fn.Schema != "" {
			compiled, err := schema.CompileParameters(fn.Schema)
			if err != nil {
				return oops.In("runtime").
					With("plugin", def.Name).With("function", fn.Name).
					Wrapf(err, "failed to compile argument schema")
			}
			inner := ex
			ex = func(ctx context.Context, argsJSON string) (string, error) {
				if err := schema.ValidateArgs(compiled, argsJSON); err != nil {
					return "", err
				}
				return inner(ctx, argsJSON)
			}
		}

		reg.Functions = append(reg.Functions, registry.FunctionEntry{Name: fn.Name, Wrapper: wrapper})
		if fn.Schema != "" {
			reg.Schemas[fn.Name] = fn.Schema
		}
		executors[fn.Name] = ex
		infos = append(infos, pluginctx.FunctionInfo{
			Name:                fn.Name,
			Description:         fn.Description,
			WrapperFunctionName: wrapper,
			Schema:              fn.Schema,
			RequiresPermission:  fn.RequiresPermission,
			RequiredPermissions: fn.RequiredPermissions,
		})
	}

	if err := r.Plugins.Register(reg); err != nil {
		return err
	}
	for name, ex := range executors {
		if err := r.Executors.Register(name, ex); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.infos = append(r.infos, infos...)
	r.mu.Unlock()

	r.logger.Info("plugin ready", "plugin", def.Name, "functions", len(def.Functions))
	return nil
}

// FunctionInfos returns the flattened function records for every
// registered plugin, in registration order.
func (r *Runtime) FunctionInfos() []pluginctx.FunctionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]pluginctx.FunctionInfo(nil), r.infos...)
}

// envelope is the host-facing response wire format.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HandleExecute dispatches a function and always returns an envelope,
// never an error: every failure mode, including an unknown function,
// becomes {"success": false, "error": ...}. Domain failures of fallible
// functions are successful envelopes carrying an {"Err": ...} result.
func (r *Runtime) HandleExecute(ctx context.Context, functionName, argsJSON string) string {
	result, err := r.Executors.Execute(ctx, functionName, argsJSON)
	if err != nil {
		return marshalEnvelope(envelope{Success: false, Error: err.Error()})
	}

	raw := json.RawMessage(result)
	if !json.Valid(raw) {
		// Executors return JSON; tolerate a bare string by quoting it.
		quoted, qerr := json.Marshal(result)
		if qerr != nil {
			return marshalEnvelope(envelope{Success: false, Error: "executor returned unencodable result"})
		}
		raw = quoted
	}
	return marshalEnvelope(envelope{Success: true, Result: raw})
}

func marshalEnvelope(e envelope) string {
	data, err := json.Marshal(e)
	if err != nil {
		// Envelope fields are strings and raw JSON; this cannot fail in
		// practice, but never return a non-JSON response.
		return `{"success":false,"error":"failed to serialize response envelope"}`
	}
	return string(data)
}

// DeliverStream pushes one event into a stream channel; a nil event
// terminates it. Suits the host callback signature directly.
func (r *Runtime) DeliverStream(key uint64, event []byte) {
	r.Streams.Deliver(key, event)
}
