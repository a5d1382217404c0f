// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package hostproc

import (
	"context"
	"sync"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/agentbridge/agentbridge/internal/boundary"
	"github.com/agentbridge/agentbridge/pkg/hostapi"
)

// HostAdapter serves a boundary implementation to a remote core. It
// pins each response buffer under an ID until the core frees it,
// keeping the owned-string contract observable across the process gap.
type HostAdapter struct {
	b boundary.Boundary

	mu      sync.Mutex
	nextBuf uint64
	buffers map[uint64]*boundary.OwnedBuffer
	cb      hostapi.Callback
}

// NewHostAdapter wraps a boundary for serving.
func NewHostAdapter(b boundary.Boundary) *HostAdapter {
	return &HostAdapter{b: b, buffers: make(map[uint64]*boundary.OwnedBuffer)}
}

// Serve runs the go-plugin server for the adapter. Blocks for the life
// of the host process; call from main.
func Serve(b boundary.Boundary) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: hostapi.Handshake,
		Plugins: map[string]goplugin.Plugin{
			hostapi.PluginName: &hostapi.HostRPCPlugin{Impl: NewHostAdapter(b)},
		},
	})
}

// Callback returns the core callback once registered, or nil.
func (a *HostAdapter) Callback() hostapi.Callback {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cb
}

func (a *HostAdapter) CreateAgent(configJSON, pluginsJSON string) (uint64, error) {
	ref, err := a.b.CreateAgent(context.Background(), configJSON, pluginsJSON)
	return uint64(ref), err
}

func (a *HostAdapter) DestroyAgent(ref uint64) error {
	return a.b.DestroyAgent(context.Background(), boundary.Ref(ref))
}

func (a *HostAdapter) CreateContext(configJSON string) (uint64, error) {
	ref, err := a.b.CreateContext(context.Background(), configJSON)
	return uint64(ref), err
}

func (a *HostAdapter) UpdateContext(ref uint64, configJSON string) (bool, error) {
	return a.b.UpdateContext(context.Background(), boundary.Ref(ref), configJSON)
}

func (a *HostAdapter) DestroyContext(ref uint64) error {
	return a.b.DestroyContext(context.Background(), boundary.Ref(ref))
}

func (a *HostAdapter) EvaluateCondition(pluginType, functionName string, ref uint64) (bool, error) {
	return a.b.EvaluateCondition(context.Background(), pluginType, functionName, boundary.Ref(ref))
}

func (a *HostAdapter) FilterFunctions(pluginType string, ref uint64) (*hostapi.Buffer, error) {
	buf, err := a.b.FilterFunctions(context.Background(), pluginType, boundary.Ref(ref))
	if err != nil {
		return nil, err
	}
	return a.pin(buf), nil
}

func (a *HostAdapter) PluginMetadata() (*hostapi.Buffer, error) {
	buf, err := a.b.PluginMetadata(context.Background())
	if err != nil {
		return nil, err
	}
	return a.pin(buf), nil
}

// FreeString releases one pinned buffer. Unknown IDs are a no-op, so a
// defensive second free never faults.
func (a *HostAdapter) FreeString(bufID uint64) error {
	a.mu.Lock()
	buf, ok := a.buffers[bufID]
	delete(a.buffers, bufID)
	a.mu.Unlock()
	if ok {
		buf.Release()
	}
	return nil
}

func (a *HostAdapter) RegisterCallback(cb hostapi.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

// PinnedBuffers reports how many responses are awaiting FreeString.
func (a *HostAdapter) PinnedBuffers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}

func (a *HostAdapter) pin(buf *boundary.OwnedBuffer) *hostapi.Buffer {
	if buf == nil {
		return &hostapi.Buffer{Null: true}
	}
	a.mu.Lock()
	a.nextBuf++
	id := a.nextBuf
	a.buffers[id] = buf
	a.mu.Unlock()
	return &hostapi.Buffer{ID: id, Data: buf.Bytes()}
}

var _ hostapi.Host = (*HostAdapter)(nil)
