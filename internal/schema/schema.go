// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package schema builds the JSON-Schema-shaped function descriptors the
// host consumes. Descriptors are data-described constructions: the
// annotation-driven code generation of earlier designs is replaced by
// an explicit builder plus reflection for struct-typed parameters.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ParamType enumerates JSON Schema primitive types for parameters.
type ParamType string

// Parameter types.
const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// parameter is one entry in a function's parameter object.
type parameter struct {
	name        string
	typ         ParamType
	description string
	required    bool
	items       ParamType // element type when typ is TypeArray
}

// Function accumulates a function descriptor. Zero value is not usable;
// construct with NewFunction or Reflect.
type Function struct {
	name        string
	description string
	params      []parameter

	// reflected holds pre-built parameter properties when the schema
	// came from struct reflection.
	reflected map[string]any
	required  []string
}

// NewFunction starts a descriptor for a function.
func NewFunction(name, description string) *Function {
	return &Function{name: name, description: description}
}

// Param adds a required parameter.
func (f *Function) Param(name string, typ ParamType, description string) *Function {
	f.params = append(f.params, parameter{name: name, typ: typ, description: description, required: true})
	return f
}

// OptionalParam adds an optional parameter.
func (f *Function) OptionalParam(name string, typ ParamType, description string) *Function {
	f.params = append(f.params, parameter{name: name, typ: typ, description: description})
	return f
}

// ArrayParam adds a required array parameter with the given element type.
func (f *Function) ArrayParam(name string, items ParamType, description string) *Function {
	f.params = append(f.params, parameter{name: name, typ: TypeArray, description: description, required: true, items: items})
	return f
}

// Name returns the function name the descriptor was built for.
func (f *Function) Name() string { return f.name }

// build assembles the descriptor document.
func (f *Function) build() map[string]any {
	properties := f.reflected
	required := f.required

	if properties == nil {
		properties = make(map[string]any, len(f.params))
		required = nil
		for _, p := range f.params {
			prop := map[string]any{
				"type":        string(p.typ),
				"description": p.description,
			}
			if p.typ == TypeArray && p.items != "" {
				prop["items"] = map[string]any{"type": string(p.items)}
			}
			properties[p.name] = prop
			if p.required {
				required = append(required, p.name)
			}
		}
	}
	if required == nil {
		required = []string{}
	}

	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        f.name,
			"description": f.description,
			"parameters": map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// JSON serializes the descriptor.
func (f *Function) JSON() (string, error) {
	data, err := json.Marshal(f.build())
	if err != nil {
		return "", oops.In("schema").With("function", f.name).
			Wrapf(err, "failed to marshal function schema")
	}
	return string(data), nil
}

// MustJSON is JSON for static descriptors assembled at startup.
func (f *Function) MustJSON() string {
	s, err := f.JSON()
	if err != nil {
		panic(err)
	}
	return s
}

// Reflect derives the parameter object from a struct type's JSON shape.
// Field names follow the struct's json tags.
func Reflect[P any](name, description string) (*Function, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	var zero P
	reflected := r.Reflect(&zero)

	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, oops.In("schema").With("function", name).
			Wrapf(err, "failed to marshal reflected schema")
	}

	var doc struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.In("schema").With("function", name).
			Wrapf(err, "failed to decode reflected schema")
	}
	if doc.Properties == nil {
		doc.Properties = make(map[string]any)
	}

	return &Function{
		name:        name,
		description: description,
		reflected:   doc.Properties,
		required:    doc.Required,
	}, nil
}

// CompileParameters compiles the parameters subschema of a function
// descriptor into a validator for argument checking at dispatch time.
func CompileParameters(descriptorJSON string) (*jschema.Schema, error) {
	var doc struct {
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	}
	if err := json.Unmarshal([]byte(descriptorJSON), &doc); err != nil {
		return nil, oops.In("schema").Wrapf(err, "invalid function descriptor")
	}
	if doc.Function.Parameters == nil {
		return nil, oops.In("schema").With("function", doc.Function.Name).
			New("descriptor has no parameters object")
	}

	c := jschema.NewCompiler()
	resource := fmt.Sprintf("%s.parameters.json", doc.Function.Name)
	if err := c.AddResource(resource, doc.Function.Parameters); err != nil {
		return nil, oops.In("schema").With("function", doc.Function.Name).
			Wrapf(err, "failed to add schema resource")
	}
	sch, err := c.Compile(resource)
	if err != nil {
		return nil, oops.In("schema").With("function", doc.Function.Name).
			Wrapf(err, "failed to compile parameters schema")
	}
	return sch, nil
}

// ValidateArgs checks a JSON argument blob against a compiled
// parameters schema.
func ValidateArgs(sch *jschema.Schema, argsJSON string) error {
	var instance any
	if err := json.Unmarshal([]byte(argsJSON), &instance); err != nil {
		return oops.In("schema").Wrapf(err, "failed to parse arguments")
	}
	if err := sch.Validate(instance); err != nil {
		return oops.In("schema").Wrapf(err, "arguments do not match function schema")
	}
	return nil
}
