// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package mathops is the math demo plugin.
package mathops

import (
	"context"
	"math"

	"github.com/samber/oops"

	"github.com/agentbridge/agentbridge/internal/dispatch"
	"github.com/agentbridge/agentbridge/internal/runtime"
	"github.com/agentbridge/agentbridge/internal/schema"
)

type pairArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

type powerArgs struct {
	Base     float64 `json:"base"`
	Exponent float64 `json:"exponent"`
}

type numberArgs struct {
	Number float64 `json:"number"`
}

type factorialArgs struct {
	N uint64 `json:"n"`
}

type primeArgs struct {
	Number uint64 `json:"number"`
}

func add(_ context.Context, p pairArgs) (float64, error)      { return p.A + p.B, nil }
func subtract(_ context.Context, p pairArgs) (float64, error) { return p.A - p.B, nil }
func multiply(_ context.Context, p pairArgs) (float64, error) { return p.A * p.B, nil }

func divide(_ context.Context, p pairArgs) (float64, error) {
	if p.B == 0 {
		return 0, oops.New("Division by zero")
	}
	return p.A / p.B, nil
}

func power(_ context.Context, p powerArgs) (float64, error) {
	return math.Pow(p.Base, p.Exponent), nil
}

func squareRoot(_ context.Context, p numberArgs) (float64, error) {
	if p.Number < 0 {
		return 0, oops.New("Cannot calculate square root of negative number")
	}
	return math.Sqrt(p.Number), nil
}

func factorial(_ context.Context, p factorialArgs) (uint64, error) {
	if p.N > 20 {
		return 0, oops.New("Factorial too large (max 20)")
	}
	result := uint64(1)
	for i := uint64(1); i <= p.N; i++ {
		result *= i
	}
	return result, nil
}

func isPrime(_ context.Context, p primeArgs) (bool, error) {
	if p.Number < 2 {
		return false, nil
	}
	for i := uint64(2); i <= uint64(math.Sqrt(float64(p.Number))); i++ {
		if p.Number%i == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Plugin returns the registerable plugin definition.
func Plugin() runtime.PluginDefinition {
	pair := func(name, desc string) string {
		return schema.NewFunction(name, desc).
			Param("a", schema.TypeNumber, "First number").
			Param("b", schema.TypeNumber, "Second number").
			MustJSON()
	}

	return runtime.PluginDefinition{
		Name:        "MathPlugin",
		Description: "A plugin that provides advanced mathematical operations",
		Version:     "1.0.0",
		Functions: []runtime.FunctionDef{
			{
				Name:        "add",
				Description: "Add two numbers together",
				Schema:      pair("add", "Add two numbers together"),
				Executor:    dispatch.Value(add),
			},
			{
				Name:        "subtract",
				Description: "Subtract two numbers",
				Schema:      pair("subtract", "Subtract two numbers"),
				Executor:    dispatch.Value(subtract),
			},
			{
				Name:        "multiply",
				Description: "Multiply two numbers",
				Schema:      pair("multiply", "Multiply two numbers"),
				Executor:    dispatch.Value(multiply),
			},
			{
				Name:        "divide",
				Description: "Divide two numbers",
				Schema:      pair("divide", "Divide two numbers"),
				Executor:    dispatch.Fallible(divide),
			},
			{
				Name:        "power",
				Description: "Calculate the power of a number",
				Schema: schema.NewFunction("power", "Calculate the power of a number").
					Param("base", schema.TypeNumber, "Base value").
					Param("exponent", schema.TypeNumber, "Exponent value").
					MustJSON(),
				Executor: dispatch.Value(power),
			},
			{
				Name:        "sqrt",
				Description: "Calculate square root",
				Schema: schema.NewFunction("sqrt", "Calculate square root").
					Param("number", schema.TypeNumber, "Number to take the square root of").
					MustJSON(),
				Executor: dispatch.Fallible(squareRoot),
			},
			{
				Name:        "factorial",
				Description: "Calculate factorial",
				Schema: schema.NewFunction("factorial", "Calculate factorial").
					Param("n", schema.TypeInteger, "Number to compute the factorial of").
					MustJSON(),
				Executor: dispatch.Fallible(factorial),
			},
			{
				Name:        "is_prime",
				Description: "Check if a number is prime",
				Schema: schema.NewFunction("is_prime", "Check if a number is prime").
					Param("number", schema.TypeInteger, "Number to test").
					MustJSON(),
				Executor: dispatch.Value(isPrime),
			},
		},
	}
}
