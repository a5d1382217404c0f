// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package dispatch maps function names to asynchronous executors and
// provides the single execution entry point used by native callers and
// the boundary layer.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

// Error codes returned by dispatch operations.
const (
	CodeNotFound = "DISPATCH_NOT_FOUND"
	CodeExecutor = "DISPATCH_EXECUTOR_FAILED"
	CodePoisoned = "DISPATCH_REGISTRY_POISONED"
	CodeInvalid  = "DISPATCH_INVALID_EXECUTOR"
)

// Executor performs one plugin function's work. It receives the raw JSON
// argument blob and returns the result serialized as JSON. Domain
// failures of fallible functions are NOT executor errors: they come back
// as a successful {"Err": ...} payload. An executor error means the call
// itself could not be performed (unparseable arguments, broken script).
type Executor func(ctx context.Context, argsJSON string) (string, error)

// Registry maps function names to executors. The lock covers lookup and
// mutation only; executors run after the lock is released since they may
// block or suspend.
type Registry struct {
	mu        sync.RWMutex
	poisoned  atomic.Bool
	executors map[string]Executor
	logger    *slog.Logger

	dispatches *prometheus.CounterVec
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dispatch events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics registers dispatch counters with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Registry) {
		r.dispatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentbridge_dispatch_total",
				Help: "Total function dispatches by function and outcome",
			},
			[]string{"function", "outcome"},
		)
		reg.MustRegister(r.dispatches)
	}
}

// New creates an empty executor registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		executors: make(map[string]Executor),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) guard() {
	if p := recover(); p != nil {
		r.poisoned.Store(true)
		panic(p)
	}
}

func (r *Registry) poisonedErr() error {
	return oops.In("dispatch").Code(CodePoisoned).
		New("executor registry poisoned by earlier panic; dispatch state cannot be trusted")
}

// Register inserts an executor for a function name. A later registration
// for the same name shadows the earlier one; the overwrite is logged so
// it never happens silently.
func (r *Registry) Register(name string, ex Executor) error {
	if name == "" {
		return oops.In("dispatch").Code(CodeInvalid).New("function name cannot be empty")
	}
	if ex == nil {
		return oops.In("dispatch").Code(CodeInvalid).With("function", name).
			New("executor cannot be nil")
	}
	if r.poisoned.Load() {
		return r.poisonedErr()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.guard()

	if _, exists := r.executors[name]; exists {
		r.logger.Warn("executor re-registered; previous executor is shadowed",
			"function", name)
	}
	r.executors[name] = ex
	return nil
}

// Names returns registered function names. Order is unspecified.
func (r *Registry) Names() ([]string, error) {
	if r.poisoned.Load() {
		return nil, r.poisonedErr()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	defer r.guard()

	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	return names, nil
}

// Execute resolves the executor under the read lock, releases it, then
// invokes. The lock scope is strictly "find handle", never "run handle":
// executors may block on the boundary or on I/O, and holding the
// registry lock across that would serialize every dispatch in the
// process.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	if r.poisoned.Load() {
		r.count(name, "lock_failure")
		return "", r.poisonedErr()
	}

	r.mu.RLock()
	ex, ok := r.executors[name]
	r.mu.RUnlock()

	if !ok {
		r.count(name, "not_found")
		return "", oops.In("dispatch").Code(CodeNotFound).With("function", name).
			Errorf("function %q not found in executor registry", name)
	}

	invocationID := ulid.Make()
	r.logger.Debug("dispatching function",
		"function", name,
		"invocation_id", invocationID.String())

	result, err := ex(ctx, argsJSON)
	if err != nil {
		r.count(name, "executor_error")
		return "", oops.In("dispatch").Code(CodeExecutor).
			With("function", name).
			With("invocation_id", invocationID.String()).
			Wrap(err)
	}

	r.count(name, "ok")
	return result, nil
}

func (r *Registry) count(function, outcome string) {
	if r.dispatches != nil {
		r.dispatches.WithLabelValues(function, outcome).Inc()
	}
}
