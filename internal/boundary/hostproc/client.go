// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package hostproc connects the bridge core to an out-of-process host
// binary over go-plugin and presents it as a boundary.
package hostproc

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/agentbridge/agentbridge/internal/boundary"
	"github.com/agentbridge/agentbridge/pkg/hostapi"
)

// Callbacks routes host-initiated calls into the core. Either field may
// be nil, in which case the corresponding call is rejected.
type Callbacks struct {
	// Execute dispatches a registered function and returns the response
	// envelope JSON.
	Execute func(ctx context.Context, functionName, argsJSON string) (string, error)

	// Deliver pushes one stream event; a nil event terminates the
	// stream.
	Deliver func(key uint64, event []byte)
}

// Config describes how to launch and reach the host binary.
type Config struct {
	// Command is the host binary path. Required.
	Command string
	// Args are passed to the host binary.
	Args []string
	// DialAttempts bounds the connection retries. Defaults to 5.
	DialAttempts int
	// Logger receives connection lifecycle logs.
	Logger *slog.Logger
}

// Client is a boundary backed by a host subprocess. Close kills the
// subprocess; in-flight calls fail with transport errors.
type Client struct {
	pc     *goplugin.Client
	host   *hostapi.HostRPCClient
	logger *slog.Logger
}

// Dial launches the host binary and connects, retrying the handshake
// with exponential backoff. The callbacks are registered before Dial
// returns, so the host can dispatch and stream immediately.
func Dial(ctx context.Context, cfg Config, cbs Callbacks) (*Client, error) {
	if cfg.Command == "" {
		return nil, oops.In("hostproc").New("host command is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.DialAttempts
	if attempts <= 0 {
		attempts = 5
	}

	pc := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: hostapi.Handshake,
		Plugins: map[string]goplugin.Plugin{
			hostapi.PluginName: &hostapi.HostRPCPlugin{},
		},
		Cmd: exec.Command(cfg.Command, cfg.Args...),
	})

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(100*time.Millisecond))
	var host *hostapi.HostRPCClient
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		rpcClient, err := pc.Client()
		if err != nil {
			return retry.RetryableError(err)
		}
		raw, err := rpcClient.Dispense(hostapi.PluginName)
		if err != nil {
			return retry.RetryableError(err)
		}
		var ok bool
		host, ok = raw.(*hostapi.HostRPCClient)
		if !ok {
			return oops.In("hostproc").With("type", raw).New("unexpected host client type")
		}
		return nil
	})
	if err != nil {
		pc.Kill()
		return nil, oops.In("hostproc").Code(boundary.CodeTransport).
			With("command", cfg.Command).
			Wrapf(err, "failed to connect to host")
	}

	if err := host.ServeCallback(&callback{cbs: cbs, logger: logger}); err != nil {
		pc.Kill()
		return nil, oops.In("hostproc").Code(boundary.CodeTransport).
			Wrapf(err, "failed to register core callback")
	}

	logger.Info("connected to host", "command", cfg.Command)
	return &Client{pc: pc, host: host, logger: logger}, nil
}

// Close kills the host subprocess. Idempotent.
func (c *Client) Close() {
	c.pc.Kill()
}

// Boundary calls are synchronous RPCs; the host controls completion and
// there is no cancellation once a call is in flight, so ctx gates only
// entry.

func (c *Client) CreateAgent(ctx context.Context, configJSON, pluginsJSON string) (boundary.Ref, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ref, err := c.host.CreateAgent(configJSON, pluginsJSON)
	return boundary.Ref(ref), err
}

func (c *Client) DestroyAgent(ctx context.Context, ref boundary.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.host.DestroyAgent(uint64(ref))
}

func (c *Client) CreateContext(ctx context.Context, configJSON string) (boundary.Ref, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ref, err := c.host.CreateContext(configJSON)
	return boundary.Ref(ref), err
}

func (c *Client) UpdateContext(ctx context.Context, ref boundary.Ref, configJSON string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.host.UpdateContext(uint64(ref), configJSON)
}

func (c *Client) DestroyContext(ctx context.Context, ref boundary.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.host.DestroyContext(uint64(ref))
}

func (c *Client) EvaluateCondition(ctx context.Context, pluginType, functionName string, ref boundary.Ref) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.host.EvaluateCondition(pluginType, functionName, uint64(ref))
}

func (c *Client) FilterFunctions(ctx context.Context, pluginType string, ref boundary.Ref) (*boundary.OwnedBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := c.host.FilterFunctions(pluginType, uint64(ref))
	if err != nil {
		return nil, err
	}
	return c.ownedBuffer(buf), nil
}

func (c *Client) PluginMetadata(ctx context.Context) (*boundary.OwnedBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := c.host.PluginMetadata()
	if err != nil {
		return nil, err
	}
	return c.ownedBuffer(buf), nil
}

// ownedBuffer binds the host-side allocation to a release that frees it
// over RPC. A release failure only logs: the host reclaims leaked
// buffers when the connection drops.
func (c *Client) ownedBuffer(buf *hostapi.Buffer) *boundary.OwnedBuffer {
	if buf == nil || buf.Null {
		return nil
	}
	id := buf.ID
	return boundary.NewOwnedBuffer(buf.Data, func() {
		if err := c.host.FreeString(id); err != nil {
			c.logger.Warn("failed to free host buffer", "buf_id", id, "error", err)
		}
	})
}

var _ boundary.Boundary = (*Client)(nil)

// callback adapts Callbacks to the wire-level callback service.
type callback struct {
	cbs    Callbacks
	logger *slog.Logger
}

func (c *callback) Execute(functionName, argsJSON string) (string, error) {
	if c.cbs.Execute == nil {
		return "", oops.In("hostproc").New("no dispatch callback registered")
	}
	return c.cbs.Execute(context.Background(), functionName, argsJSON)
}

func (c *callback) StreamDeliver(key uint64, event []byte, end bool) error {
	if c.cbs.Deliver == nil {
		return oops.In("hostproc").New("no stream callback registered")
	}
	if end {
		c.cbs.Deliver(key, nil)
		return nil
	}
	c.cbs.Deliver(key, event)
	return nil
}

var _ hostapi.Callback = (*callback)(nil)
