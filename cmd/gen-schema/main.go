// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Command gen-schema writes the demo plugins' function descriptors to a
// JSON file for host-side consumption.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentbridge/agentbridge/internal/demo"
)

func main() {
	rt, err := demo.NewRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building demo runtime: %v\n", err)
		os.Exit(1)
	}

	schemas, err := rt.Plugins.AllSchemas()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error collecting schemas: %v\n", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding schemas: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join("schemas", "functions.schema.json")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, append(data, '\n'), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
