// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge/internal/boundary"
	"github.com/agentbridge/agentbridge/internal/boundary/hostproc"
	"github.com/agentbridge/agentbridge/internal/boundary/inproc"
	"github.com/agentbridge/agentbridge/internal/config"
	"github.com/agentbridge/agentbridge/internal/demo"
	"github.com/agentbridge/agentbridge/internal/observability"
	"github.com/agentbridge/agentbridge/internal/pluginctx"
	"github.com/agentbridge/agentbridge/internal/runtime"
)

// NewDemoCmd creates the demo subcommand.
func NewDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the end-to-end bridge demo",
		Long: `Register the demo plugins, connect to a host (in-process unless
host.command is configured), create an agent and a plugin context, and
exercise dispatch, filtering, and streaming.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runDemo(cmd, cfg)
		},
	}
}

func runDemo(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rtOpts := []runtime.Option{runtime.WithLogger(slog.Default())}

	var obs *observability.Server
	if cfg.Metrics.Enabled {
		obs = observability.NewServer(cfg.Metrics.Listen, func() bool { return true })
		if _, err := obs.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(stopCtx)
		}()
		rtOpts = append(rtOpts, runtime.WithMetrics(obs.Registerer()))
	}

	rt, err := demo.NewRuntime(rtOpts...)
	if err != nil {
		return err
	}

	b, cleanup, err := connectHost(ctx, cfg, rt)
	if err != nil {
		return err
	}
	defer cleanup()

	agent, err := boundary.NewAgentBuilder("demo-agent").
		WithInstructions("You are a calculation assistant.").
		WithOllama("llama3").
		WithPlugins(rt.FunctionInfos()...).
		WithDynamicPluginContext("MathPlugin", "calculator", map[string]any{
			"precision": "high",
		}).
		Build(ctx, b)
	if err != nil {
		return err
	}
	defer func() { _ = agent.Close(ctx) }()

	pcfg, err := pluginctx.NewConfiguration("MathPlugin", "calculator").
		WithProperty("precision", "high")
	if err != nil {
		return err
	}
	pcfg = pcfg.WithAvailableFunctions("add", "power", "divide")

	handle, err := boundary.NewContextHandle(ctx, b, pcfg)
	if err != nil {
		return err
	}
	defer func() { _ = handle.Close(ctx) }()

	available, err := handle.AvailableFunctions(ctx, "MathPlugin")
	if err != nil {
		return err
	}
	cmd.Println("available functions under current context:")
	for _, fn := range available {
		cmd.Printf("  %-12s available=%-5v %s\n", fn.Name, fn.IsAvailable, fn.ResolvedDescription)
	}

	for _, call := range []struct{ name, args string }{
		{"add", `{"a":156.0,"b":847.0}`},
		{"power", `{"base":2.0,"exponent":8.0}`},
		{"divide", `{"a":10.0,"b":0.0}`},
		{"to_upper", `{"text":"hello agent"}`},
		{"get_stats", `{}`},
	} {
		cmd.Printf("execute %s(%s) -> %s\n", call.name, call.args, rt.HandleExecute(ctx, call.name, call.args))
	}

	stats, err := rt.Plugins.Stats()
	if err != nil {
		return err
	}
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	cmd.Printf("plugin stats:\n%s\n", statsJSON)

	return streamDemo(ctx, cmd, rt)
}

// streamDemo pushes a short event sequence through the stream bridge
// the way a host-driven callback would, then consumes it locally.
func streamDemo(ctx context.Context, cmd *cobra.Command, rt *runtime.Runtime) error {
	key, recv := rt.Streams.Create()
	defer recv.Close()

	go func() {
		for i := 1; i <= 3; i++ {
			rt.DeliverStream(key, fmt.Appendf(nil, "chunk %d", i))
		}
		rt.DeliverStream(key, nil)
	}()

	cmd.Printf("stream %d:\n", key)
	for {
		event, ok := recv.Recv(ctx)
		if !ok {
			break
		}
		cmd.Printf("  %s\n", event)
	}
	cmd.Println("stream terminated")
	return nil
}

// connectHost selects the boundary: a spawned host binary when
// configured, the seeded in-process host otherwise.
func connectHost(ctx context.Context, cfg config.Config, rt *runtime.Runtime) (boundary.Boundary, func(), error) {
	if cfg.Host.Command != "" {
		client, err := hostproc.Dial(ctx, hostproc.Config{
			Command:      cfg.Host.Command,
			Args:         cfg.Host.Args,
			DialAttempts: cfg.Host.DialAttempts,
			Logger:       slog.Default(),
		}, hostproc.Callbacks{
			Execute: func(ctx context.Context, name, args string) (string, error) {
				return rt.HandleExecute(ctx, name, args), nil
			},
			Deliver: rt.DeliverStream,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}

	host := inproc.New()
	if err := demo.SeedHost(host, rt); err != nil {
		return nil, nil, err
	}
	return host, func() {}, nil
}
