// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package main

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/agentbridge/agentbridge/internal/demo"
	"github.com/agentbridge/agentbridge/internal/runtime"
)

// NewFunctionsCmd creates the functions subcommand.
func NewFunctionsCmd() *cobra.Command {
	var pattern string
	var showSchemas bool

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the registered demo functions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			rt, err := demo.NewRuntime(runtime.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			names, err := rt.Plugins.FindFunctions(pattern)
			if err != nil {
				return err
			}

			if !showSchemas {
				for _, name := range names {
					cmd.Println(name)
				}
				return nil
			}

			schemas, err := rt.Plugins.AllSchemas()
			if err != nil {
				return err
			}
			out := make(map[string]json.RawMessage, len(names))
			for _, name := range names {
				if sch, ok := schemas[name]; ok {
					out[name] = sch
				}
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "*", "glob pattern to match function names")
	cmd.Flags().BoolVar(&showSchemas, "schemas", false, "print function schemas as JSON")

	return cmd
}
