// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/samber/oops"
)

// The wrapper constructors below replace the wrapper code generation of
// the annotation-driven registration scheme: plugin authors write a
// typed handler and the wrapper owns argument decoding and result
// serialization.
//
// Serialization convention, load-bearing for host-side parsing:
// numeric, boolean, and string results serialize as bare JSON scalars;
// fallible results serialize as {"Ok": value} on success and
// {"Err": message} on domain failure.

// Value adapts a handler whose result is always a plain value. A non-nil
// error from the handler is an executor failure, not a domain error.
func Value[P, R any](fn func(ctx context.Context, params P) (R, error)) Executor {
	return func(ctx context.Context, argsJSON string) (string, error) {
		params, err := decodeArgs[P](argsJSON)
		if err != nil {
			return "", err
		}
		result, err := fn(ctx, params)
		if err != nil {
			return "", oops.In("dispatch").Wrap(err)
		}
		return encodeResult(result)
	}
}

// Fallible adapts a handler with domain failure modes. The handler's
// error becomes a successful {"Err": message} payload; the dispatch
// itself only fails when arguments cannot be decoded or the result
// cannot be serialized.
func Fallible[P, R any](fn func(ctx context.Context, params P) (R, error)) Executor {
	return func(ctx context.Context, argsJSON string) (string, error) {
		params, err := decodeArgs[P](argsJSON)
		if err != nil {
			return "", err
		}
		result, err := fn(ctx, params)
		if err != nil {
			return encodeResult(map[string]string{"Err": err.Error()})
		}
		return encodeResult(map[string]any{"Ok": result})
	}
}

func decodeArgs[P any](argsJSON string) (P, error) {
	var params P
	if strings.TrimSpace(argsJSON) == "" {
		argsJSON = "{}"
	}
	if err := json.Unmarshal([]byte(argsJSON), &params); err != nil {
		return params, oops.In("dispatch").With("args", argsJSON).
			Wrapf(err, "failed to parse arguments")
	}
	return params, nil
}

func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", oops.In("dispatch").Wrapf(err, "failed to serialize result")
	}
	return string(data), nil
}
