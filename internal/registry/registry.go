// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package registry holds the process catalog of plugin registrations.
package registry

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Error codes returned by registry operations.
const (
	CodePoisoned       = "REGISTRY_POISONED"
	CodeInvalidPlugin  = "REGISTRY_INVALID_PLUGIN"
	CodeInvalidPattern = "REGISTRY_INVALID_PATTERN"
)

// FunctionEntry pairs a callable function name with the name of the
// generated wrapper the host invokes for it.
type FunctionEntry struct {
	Name    string
	Wrapper string
}

// Registration describes one loaded plugin. Created once at plugin load
// time and immutable afterwards; the registry hands out copies only.
type Registration struct {
	Name        string
	Description string
	// Version is optional; when set it must be valid semver.
	Version string
	// Functions preserves declaration order. Names are unique per plugin.
	Functions []FunctionEntry
	// Schemas maps function name to its JSON-Schema-shaped descriptor.
	Schemas map[string]string
}

// clone returns a deep copy so callers can never mutate registry state.
func (r Registration) clone() Registration {
	out := r
	out.Functions = append([]FunctionEntry(nil), r.Functions...)
	out.Schemas = make(map[string]string, len(r.Schemas))
	for k, v := range r.Schemas {
		out.Schemas[k] = v
	}
	return out
}

// namePattern validates plugin names: a letter followed by letters,
// digits, underscores, or hyphens.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// PluginSummary is one entry in Stats.
type PluginSummary struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	FunctionCount int    `json:"function_count"`
}

// Stats summarizes the catalog. Field names are part of the wire format.
type Stats struct {
	TotalPlugins   int             `json:"total_plugins"`
	TotalFunctions int             `json:"total_functions"`
	Plugins        []PluginSummary `json:"plugins"`
}

// Registry is the process-wide plugin catalog. Instances are injectable
// so tests run against isolated catalogs rather than shared globals.
type Registry struct {
	mu       sync.RWMutex
	poisoned atomic.Bool
	plugins  []Registration
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// guard marks the registry poisoned when a panic unwinds out of a
// critical section, then re-raises it. A poisoned catalog cannot be
// trusted and every later operation fails loudly instead of returning
// empty data.
func (r *Registry) guard() {
	if p := recover(); p != nil {
		r.poisoned.Store(true)
		panic(p)
	}
}

func (r *Registry) poisonedErr() error {
	return oops.In("registry").Code(CodePoisoned).
		New("plugin registry poisoned by earlier panic; catalog state cannot be trusted")
}

// Register appends a registration to the catalog. Duplicate names are
// allowed and coexist; Get returns the first match. A duplicate is
// logged so shadowing is observable.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" || !namePattern.MatchString(reg.Name) {
		return oops.In("registry").Code(CodeInvalidPlugin).With("plugin", reg.Name).
			New("plugin name must start with a letter and contain only letters, digits, underscores, or hyphens")
	}
	if reg.Version != "" {
		if _, err := semver.NewVersion(reg.Version); err != nil {
			return oops.In("registry").Code(CodeInvalidPlugin).
				With("plugin", reg.Name).With("version", reg.Version).
				Hint("version must be valid semver").Wrap(err)
		}
	}
	seen := make(map[string]bool, len(reg.Functions))
	for _, fn := range reg.Functions {
		if seen[fn.Name] {
			return oops.In("registry").Code(CodeInvalidPlugin).
				With("plugin", reg.Name).With("function", fn.Name).
				New("duplicate function name within plugin")
		}
		seen[fn.Name] = true
	}

	if r.poisoned.Load() {
		return r.poisonedErr()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.guard()

	for _, existing := range r.plugins {
		if existing.Name == reg.Name {
			r.logger.Warn("duplicate plugin registration; both entries will coexist",
				"plugin", reg.Name)
			break
		}
	}

	r.plugins = append(r.plugins, reg.clone())
	r.logger.Info("registered plugin",
		"plugin", reg.Name,
		"functions", len(reg.Functions))
	return nil
}

// List returns a point-in-time snapshot of all registrations.
func (r *Registry) List() ([]Registration, error) {
	if r.poisoned.Load() {
		return nil, r.poisonedErr()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	defer r.guard()

	out := make([]Registration, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p.clone())
	}
	return out, nil
}

// Get returns the first registration matching name, or nil.
func (r *Registry) Get(name string) (*Registration, error) {
	if r.poisoned.Load() {
		return nil, r.poisonedErr()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	defer r.guard()

	for _, p := range r.plugins {
		if p.Name == name {
			c := p.clone()
			return &c, nil
		}
	}
	return nil, nil
}

// AllSchemas flattens every plugin's function schemas into one map of
// parsed schema documents. On a cross-plugin function-name collision the
// plugin registered last wins. Schema strings that fail to parse are
// skipped.
func (r *Registry) AllSchemas() (map[string]json.RawMessage, error) {
	plugins, err := r.List()
	if err != nil {
		return nil, err
	}

	all := make(map[string]json.RawMessage)
	for _, p := range plugins {
		for name, schemaStr := range p.Schemas {
			if !json.Valid([]byte(schemaStr)) {
				r.logger.Warn("skipping invalid schema",
					"plugin", p.Name,
					"function", name)
				continue
			}
			all[name] = json.RawMessage(schemaStr)
		}
	}
	return all, nil
}

// ListFunctions returns every registered function name in plugin
// registration order.
func (r *Registry) ListFunctions() ([]string, error) {
	plugins, err := r.List()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, p := range plugins {
		for _, fn := range p.Functions {
			names = append(names, fn.Name)
		}
	}
	return names, nil
}

// FindFunctions returns registered function names matching a glob
// pattern, e.g. "to_*" or "*_count".
func (r *Registry) FindFunctions(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.In("registry").Code(CodeInvalidPattern).
			With("pattern", pattern).Wrap(err)
	}

	names, err := r.ListFunctions()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, name := range names {
		if g.Match(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// Stats returns catalog totals plus a per-plugin summary.
func (r *Registry) Stats() (Stats, error) {
	plugins, err := r.List()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalPlugins: len(plugins),
		Plugins:      make([]PluginSummary, 0, len(plugins)),
	}
	for _, p := range plugins {
		stats.TotalFunctions += len(p.Functions)
		stats.Plugins = append(stats.Plugins, PluginSummary{
			Name:          p.Name,
			Description:   p.Description,
			FunctionCount: len(p.Functions),
		})
	}
	return stats, nil
}
