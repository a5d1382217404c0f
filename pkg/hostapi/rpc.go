// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package hostapi

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"
)

// Gob argument and response structs. net/rpc needs concrete types on
// both ends; keep these flat and versioned by the handshake only.

type CreateAgentArgs struct {
	ConfigJSON  string
	PluginsJSON string
}

type CreateContextArgs struct {
	ConfigJSON string
}

type UpdateContextArgs struct {
	Ref        uint64
	ConfigJSON string
}

type DestroyArgs struct {
	Ref uint64
}

type EvaluateArgs struct {
	PluginType   string
	FunctionName string
	Ref          uint64
}

type FilterArgs struct {
	PluginType string
	Ref        uint64
}

type FreeArgs struct {
	BufID uint64
}

type RegisterCallbackArgs struct {
	// BrokerID is the mux stream the host dials back on to reach the
	// core's callback service.
	BrokerID uint32
}

type RefResp struct {
	Ref uint64
}

type BoolResp struct {
	OK bool
}

type BufferResp struct {
	ID   uint64
	Data []byte
	Null bool
}

type ExecuteArgs struct {
	FunctionName string
	ArgsJSON     string
}

type ExecuteResp struct {
	ResultJSON string
}

type StreamDeliverArgs struct {
	Key   uint64
	Event []byte
	End   bool
}

type Empty struct{}

// HostRPCServer serves a Host implementation inside the host process.
type HostRPCServer struct {
	impl   Host
	broker *goplugin.MuxBroker
}

func (s *HostRPCServer) CreateAgent(args *CreateAgentArgs, resp *RefResp) error {
	ref, err := s.impl.CreateAgent(args.ConfigJSON, args.PluginsJSON)
	resp.Ref = ref
	return err
}

func (s *HostRPCServer) DestroyAgent(args *DestroyArgs, _ *Empty) error {
	return s.impl.DestroyAgent(args.Ref)
}

func (s *HostRPCServer) CreateContext(args *CreateContextArgs, resp *RefResp) error {
	ref, err := s.impl.CreateContext(args.ConfigJSON)
	resp.Ref = ref
	return err
}

func (s *HostRPCServer) UpdateContext(args *UpdateContextArgs, resp *BoolResp) error {
	ok, err := s.impl.UpdateContext(args.Ref, args.ConfigJSON)
	resp.OK = ok
	return err
}

func (s *HostRPCServer) DestroyContext(args *DestroyArgs, _ *Empty) error {
	return s.impl.DestroyContext(args.Ref)
}

func (s *HostRPCServer) EvaluateCondition(args *EvaluateArgs, resp *BoolResp) error {
	ok, err := s.impl.EvaluateCondition(args.PluginType, args.FunctionName, args.Ref)
	resp.OK = ok
	return err
}

func (s *HostRPCServer) FilterFunctions(args *FilterArgs, resp *BufferResp) error {
	buf, err := s.impl.FilterFunctions(args.PluginType, args.Ref)
	if err != nil {
		return err
	}
	fillBufferResp(resp, buf)
	return nil
}

func (s *HostRPCServer) PluginMetadata(_ *Empty, resp *BufferResp) error {
	buf, err := s.impl.PluginMetadata()
	if err != nil {
		return err
	}
	fillBufferResp(resp, buf)
	return nil
}

func (s *HostRPCServer) FreeString(args *FreeArgs, _ *Empty) error {
	return s.impl.FreeString(args.BufID)
}

// RegisterCallback dials the core's callback service over the mux
// broker and hands the host a live client for it.
func (s *HostRPCServer) RegisterCallback(args *RegisterCallbackArgs, _ *Empty) error {
	conn, err := s.broker.Dial(args.BrokerID)
	if err != nil {
		return oops.In("hostapi").Wrapf(err, "failed to dial callback channel")
	}
	return s.impl.RegisterCallback(&callbackClient{client: rpc.NewClient(conn)})
}

func fillBufferResp(resp *BufferResp, buf *Buffer) {
	if buf == nil || buf.Null {
		resp.Null = true
		return
	}
	resp.ID = buf.ID
	resp.Data = buf.Data
}

func bufferFromResp(resp *BufferResp) *Buffer {
	if resp.Null {
		return &Buffer{Null: true}
	}
	return &Buffer{ID: resp.ID, Data: resp.Data}
}

// HostRPCClient is the core-side client for a host service.
type HostRPCClient struct {
	client *rpc.Client
	broker *goplugin.MuxBroker
}

func (c *HostRPCClient) CreateAgent(configJSON, pluginsJSON string) (uint64, error) {
	var resp RefResp
	err := c.client.Call("Plugin.CreateAgent", &CreateAgentArgs{ConfigJSON: configJSON, PluginsJSON: pluginsJSON}, &resp)
	return resp.Ref, err
}

func (c *HostRPCClient) DestroyAgent(ref uint64) error {
	return c.client.Call("Plugin.DestroyAgent", &DestroyArgs{Ref: ref}, &Empty{})
}

func (c *HostRPCClient) CreateContext(configJSON string) (uint64, error) {
	var resp RefResp
	err := c.client.Call("Plugin.CreateContext", &CreateContextArgs{ConfigJSON: configJSON}, &resp)
	return resp.Ref, err
}

func (c *HostRPCClient) UpdateContext(ref uint64, configJSON string) (bool, error) {
	var resp BoolResp
	err := c.client.Call("Plugin.UpdateContext", &UpdateContextArgs{Ref: ref, ConfigJSON: configJSON}, &resp)
	return resp.OK, err
}

func (c *HostRPCClient) DestroyContext(ref uint64) error {
	return c.client.Call("Plugin.DestroyContext", &DestroyArgs{Ref: ref}, &Empty{})
}

func (c *HostRPCClient) EvaluateCondition(pluginType, functionName string, ref uint64) (bool, error) {
	var resp BoolResp
	err := c.client.Call("Plugin.EvaluateCondition", &EvaluateArgs{PluginType: pluginType, FunctionName: functionName, Ref: ref}, &resp)
	return resp.OK, err
}

func (c *HostRPCClient) FilterFunctions(pluginType string, ref uint64) (*Buffer, error) {
	var resp BufferResp
	if err := c.client.Call("Plugin.FilterFunctions", &FilterArgs{PluginType: pluginType, Ref: ref}, &resp); err != nil {
		return nil, err
	}
	return bufferFromResp(&resp), nil
}

func (c *HostRPCClient) PluginMetadata() (*Buffer, error) {
	var resp BufferResp
	if err := c.client.Call("Plugin.PluginMetadata", &Empty{}, &resp); err != nil {
		return nil, err
	}
	return bufferFromResp(&resp), nil
}

func (c *HostRPCClient) FreeString(bufID uint64) error {
	return c.client.Call("Plugin.FreeString", &FreeArgs{BufID: bufID}, &Empty{})
}

// RegisterCallback is served locally on the core side; a core process
// uses ServeCallback instead.
func (c *HostRPCClient) RegisterCallback(Callback) error {
	return oops.In("hostapi").New("RegisterCallback is host-side only; use ServeCallback")
}

// ServeCallback exposes cb to the host over a mux stream and tells the
// host to register it.
func (c *HostRPCClient) ServeCallback(cb Callback) error {
	id := c.broker.NextId()
	go c.broker.AcceptAndServe(id, &CallbackRPCServer{impl: cb})
	return c.client.Call("Plugin.RegisterCallback", &RegisterCallbackArgs{BrokerID: id}, &Empty{})
}

// Close tears down the underlying RPC client.
func (c *HostRPCClient) Close() error {
	return c.client.Close()
}

var _ Host = (*HostRPCClient)(nil)

// CallbackRPCServer serves the core's Callback over the broker stream.
type CallbackRPCServer struct {
	impl Callback
}

func (s *CallbackRPCServer) Execute(args *ExecuteArgs, resp *ExecuteResp) error {
	result, err := s.impl.Execute(args.FunctionName, args.ArgsJSON)
	resp.ResultJSON = result
	return err
}

func (s *CallbackRPCServer) StreamDeliver(args *StreamDeliverArgs, _ *Empty) error {
	return s.impl.StreamDeliver(args.Key, args.Event, args.End)
}

// callbackClient is the host-side view of the core callback service.
type callbackClient struct {
	client *rpc.Client
}

func (c *callbackClient) Execute(functionName, argsJSON string) (string, error) {
	var resp ExecuteResp
	err := c.client.Call("Plugin.Execute", &ExecuteArgs{FunctionName: functionName, ArgsJSON: argsJSON}, &resp)
	return resp.ResultJSON, err
}

func (c *callbackClient) StreamDeliver(key uint64, event []byte, end bool) error {
	return c.client.Call("Plugin.StreamDeliver", &StreamDeliverArgs{Key: key, Event: event, End: end}, &Empty{})
}

var _ Callback = (*callbackClient)(nil)
