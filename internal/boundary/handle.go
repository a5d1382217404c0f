// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package boundary

import (
	"context"
	"encoding/json"

	"github.com/samber/oops"

	"github.com/agentbridge/agentbridge/internal/pluginctx"
)

// ContextHandle owns one host-side context resource. A handle is never
// copied; the resource is destroyed exactly once, either implicitly by
// a replacing update on the host side or by Close. Concurrent Update
// calls on the same handle are a caller error (single owner at a time).
type ContextHandle struct {
	b Boundary
	d destroyOnce
}

// NewContextHandle serializes the configuration, transmits it, and
// wraps the returned resource. A null reference from a reachable host
// is a creation refusal, distinct from a transport failure.
func NewContextHandle(ctx context.Context, b Boundary, cfg pluginctx.Configuration) (*ContextHandle, error) {
	configJSON, err := cfg.ToJSON()
	if err != nil {
		return nil, err
	}
	if err := checkWireString("config", configJSON); err != nil {
		return nil, err
	}

	ref, err := b.CreateContext(ctx, configJSON)
	if err != nil {
		return nil, oops.In("boundary").Code(CodeTransport).
			With("plugin", cfg.PluginName).
			Wrapf(err, "create context call failed")
	}
	if ref == 0 {
		return nil, oops.In("boundary").Code(CodeCreateFailed).
			With("plugin", cfg.PluginName).
			New("host refused to create context handle")
	}

	h := &ContextHandle{b: b}
	h.d.ref = ref
	return h, nil
}

// Update replaces the resource's state with a new configuration. On
// failure the handle stays valid and the last successfully applied
// configuration remains in effect on the host.
func (h *ContextHandle) Update(ctx context.Context, cfg pluginctx.Configuration) error {
	ref := h.d.get()
	if ref == 0 {
		return oops.In("boundary").Code(CodeClosed).New("context handle is closed")
	}

	configJSON, err := cfg.ToJSON()
	if err != nil {
		return err
	}
	if err := checkWireString("config", configJSON); err != nil {
		return err
	}

	ok, err := h.b.UpdateContext(ctx, ref, configJSON)
	if err != nil {
		return oops.In("boundary").Code(CodeTransport).
			With("plugin", cfg.PluginName).
			Wrapf(err, "update context call failed")
	}
	if !ok {
		return oops.In("boundary").Code(CodeUpdateFailed).
			With("plugin", cfg.PluginName).
			New("host rejected context update; prior state remains in effect")
	}
	return nil
}

// EvaluateCondition delegates a single precompiled predicate to the
// host. Pure query: no local computation, no state change.
func (h *ContextHandle) EvaluateCondition(ctx context.Context, pluginType, functionName string) (bool, error) {
	ref := h.d.get()
	if ref == 0 {
		return false, oops.In("boundary").Code(CodeClosed).New("context handle is closed")
	}
	if err := checkWireString("plugin_type", pluginType); err != nil {
		return false, err
	}
	if err := checkWireString("function_name", functionName); err != nil {
		return false, err
	}

	result, err := h.b.EvaluateCondition(ctx, pluginType, functionName, ref)
	if err != nil {
		return false, oops.In("boundary").Code(CodeTransport).
			With("plugin_type", pluginType).
			With("function", functionName).
			Wrapf(err, "evaluate condition call failed")
	}
	return result, nil
}

// AvailableFunctions asks the host for the filtered function list. The
// host-owned response buffer is released exactly once, on every path.
func (h *ContextHandle) AvailableFunctions(ctx context.Context, pluginType string) ([]pluginctx.FunctionMetadata, error) {
	ref := h.d.get()
	if ref == 0 {
		return nil, oops.In("boundary").Code(CodeClosed).New("context handle is closed")
	}
	if err := checkWireString("plugin_type", pluginType); err != nil {
		return nil, err
	}

	buf, err := h.b.FilterFunctions(ctx, pluginType, ref)
	if err != nil {
		return nil, oops.In("boundary").Code(CodeTransport).
			With("plugin_type", pluginType).
			Wrapf(err, "filter functions call failed")
	}
	if buf == nil {
		return nil, oops.In("boundary").Code(CodeTransport).
			With("plugin_type", pluginType).
			New("host returned null function list")
	}

	var metadata []pluginctx.FunctionMetadata
	err = decodeOwned(buf, func(data []byte) error {
		if err := json.Unmarshal(data, &metadata); err != nil {
			return oops.In("boundary").With("plugin_type", pluginType).
				Wrapf(err, "failed to parse function metadata")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metadata, nil
}

// Close destroys the host-side resource. Idempotent: at most one
// destroy call ever reaches the host, and a closed handle is a no-op.
func (h *ContextHandle) Close(ctx context.Context) error {
	ref := h.d.take()
	if ref == 0 {
		return nil
	}
	if err := h.b.DestroyContext(ctx, ref); err != nil {
		return oops.In("boundary").Code(CodeTransport).
			Wrapf(err, "destroy context call failed")
	}
	return nil
}

// PluginMetadata fetches host-side metadata for all registered plugins,
// releasing the host-owned buffer exactly once.
func PluginMetadata(ctx context.Context, b Boundary) (map[string]any, error) {
	buf, err := b.PluginMetadata(ctx)
	if err != nil {
		return nil, oops.In("boundary").Code(CodeTransport).
			Wrapf(err, "plugin metadata call failed")
	}
	if buf == nil {
		return nil, oops.In("boundary").Code(CodeTransport).
			New("host returned null plugin metadata")
	}

	var metadata map[string]any
	err = decodeOwned(buf, func(data []byte) error {
		if err := json.Unmarshal(data, &metadata); err != nil {
			return oops.In("boundary").Wrapf(err, "failed to parse plugin metadata")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metadata, nil
}
