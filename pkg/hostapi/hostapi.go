// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package hostapi defines the wire contract between the bridge core and
// an out-of-process host built with HashiCorp go-plugin.
//
// Both sides must use identical handshake configuration; import it from
// here rather than redefining it to prevent drift. The protocol is
// go-plugin's net/rpc transport with gob-encoded argument structs, so
// hosts need no code generation step.
//
// Host responses that carry a JSON document return it as a Buffer: the
// host keeps the allocation alive under an ID until the core calls
// FreeString for it, mirroring an owned-string handoff.
package hostapi

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// Handshake is the go-plugin handshake configuration shared by the core
// and every host binary.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AGENTBRIDGE_HOST",
	MagicCookieValue: "agentbridge-v1",
}

// PluginName is the dispense key for the host service.
const PluginName = "host"

// Buffer is a host-owned JSON document. Null reports a JSON null
// response; otherwise Data holds the document and ID must be released
// with FreeString exactly once.
type Buffer struct {
	ID   uint64
	Data []byte
	Null bool
}

// Host is the service a host process exposes to the core.
type Host interface {
	CreateAgent(configJSON, pluginsJSON string) (uint64, error)
	DestroyAgent(ref uint64) error
	CreateContext(configJSON string) (uint64, error)
	UpdateContext(ref uint64, configJSON string) (bool, error)
	DestroyContext(ref uint64) error
	EvaluateCondition(pluginType, functionName string, ref uint64) (bool, error)
	FilterFunctions(pluginType string, ref uint64) (*Buffer, error)
	PluginMetadata() (*Buffer, error)

	// FreeString releases one buffer previously returned by this host.
	FreeString(bufID uint64) error

	// RegisterCallback hands the host a way to call back into the core:
	// function dispatch and stream delivery. Called at most once per
	// connection.
	RegisterCallback(cb Callback) error
}

// Callback is the core service a host may invoke.
type Callback interface {
	// Execute dispatches a registered function and returns the response
	// envelope JSON.
	Execute(functionName, argsJSON string) (string, error)

	// StreamDeliver pushes one event into a stream channel. End marks
	// stream termination; Event is ignored when End is set.
	StreamDeliver(key uint64, event []byte, end bool) error
}

// HostRPCPlugin implements go-plugin's Plugin interface over net/rpc.
// Impl is set on the host side only.
type HostRPCPlugin struct {
	Impl Host
}

// Server returns the RPC server for the host process.
func (p *HostRPCPlugin) Server(b *goplugin.MuxBroker) (any, error) {
	return &HostRPCServer{impl: p.Impl, broker: b}, nil
}

// Client returns the RPC client used by the core process.
func (p *HostRPCPlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &HostRPCClient{client: c, broker: b}, nil
}
