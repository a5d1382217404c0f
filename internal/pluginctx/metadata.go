// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package pluginctx

// FunctionMetadata is the result of filtering one function against a
// context: a pure query result, never stored. Serialized form is part
// of the boundary wire format.
type FunctionMetadata struct {
	Name string `json:"name"`

	// ResolvedDescription is the description after the host's template
	// processing against the context properties.
	ResolvedDescription string `json:"resolvedDescription"`

	Schema map[string]any `json:"schema"`

	// IsAvailable reports whether the function is callable under the
	// current context.
	IsAvailable bool `json:"isAvailable"`

	RequiresPermission bool `json:"requiresPermission"`
}

// FunctionInfo is the flattened per-function record handed to the host
// when an agent is created.
type FunctionInfo struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	WrapperFunctionName string   `json:"wrapperFunctionName"`
	Schema              string   `json:"schema"`
	RequiresPermission  bool     `json:"requiresPermission"`
	RequiredPermissions []string `json:"requiredPermissions"`
}
