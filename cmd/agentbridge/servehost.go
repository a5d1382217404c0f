// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge/internal/boundary/hostproc"
	"github.com/agentbridge/agentbridge/internal/boundary/inproc"
	"github.com/agentbridge/agentbridge/internal/demo"
)

// NewServeHostCmd creates the serve-host subcommand. It serves the
// seeded reference host over the plugin protocol, so a bridge in
// another process can point host.command at this binary.
func NewServeHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-host",
		Short: "Serve the reference host over the plugin protocol",
		Long: `serve-host runs the in-process reference host behind the go-plugin
protocol on stdin/stdout. It is intended to be launched by a bridge
process (via --host.command), not interactively.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			rt, err := demo.NewRuntime()
			if err != nil {
				return err
			}

			host := inproc.New()
			if err := demo.SeedHost(host, rt); err != nil {
				return err
			}

			hostproc.Serve(host)
			return nil
		},
	}
}
