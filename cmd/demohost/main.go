// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Command demohost serves the in-process reference host over go-plugin
// so the bridge core can be exercised against a real process boundary.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agentbridge/agentbridge/internal/boundary/hostproc"
	"github.com/agentbridge/agentbridge/internal/boundary/inproc"
	"github.com/agentbridge/agentbridge/internal/demo"
	"github.com/agentbridge/agentbridge/internal/logging"
)

func main() {
	logging.SetDefault("demohost", "dev", "json", slog.LevelInfo)

	rt, err := demo.NewRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building demo runtime: %v\n", err)
		os.Exit(1)
	}

	host := inproc.New()
	if err := demo.SeedHost(host, rt); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding host: %v\n", err)
		os.Exit(1)
	}

	hostproc.Serve(host)
}
