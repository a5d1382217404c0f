// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge/internal/config"
	"github.com/agentbridge/agentbridge/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the agentbridge CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentbridge",
		Short: "AgentBridge - a bidirectional function-dispatch bridge",
		Long: `AgentBridge connects plugin-defined functions to an external agent
host: plugins register typed functions with JSON schemas, the host
dispatches calls back through a single execution entry point, and
context handles control which functions the agent may see.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log.format", "", "log format (text, json)")
	cmd.PersistentFlags().Bool("metrics.enabled", false, "serve metrics and health endpoints")
	cmd.PersistentFlags().String("metrics.listen", "", "metrics listen address")
	cmd.PersistentFlags().String("host.command", "", "host binary to launch; empty runs the in-process host")
	cmd.PersistentFlags().Int("host.dial_attempts", 0, "host connection attempts")

	cmd.AddCommand(NewDemoCmd())
	cmd.AddCommand(NewFunctionsCmd())
	cmd.AddCommand(NewServeHostCmd())

	return cmd
}

// loadConfig merges defaults, the config file, and any flags set on cmd,
// then installs the default logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return config.Config{}, err
	}
	logging.SetDefault("agentbridge", version, cfg.Log.Format, level)
	return cfg, nil
}
