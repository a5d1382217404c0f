// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package boundary defines the contract with the external host process
// and the owning wrappers around host-side resources. The core's job at
// this layer is correct marshaling and resource liveness; condition
// logic and agent orchestration belong to the host.
package boundary

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Error codes for boundary operations.
const (
	CodeEncode       = "BOUNDARY_ENCODE_FAILED"
	CodeTransport    = "BOUNDARY_TRANSPORT"
	CodeCreateFailed = "BOUNDARY_CREATE_FAILED"
	CodeUpdateFailed = "BOUNDARY_UPDATE_FAILED"
	CodeClosed       = "BOUNDARY_HANDLE_CLOSED"
)

// Ref is an opaque host-side resource reference. Zero is the null
// reference.
type Ref uint64

// Boundary is the call contract with the host. Payloads are UTF-8 JSON;
// a transport implementation may add framing but never changes payload
// semantics. All calls may suspend.
//
// A nil *OwnedBuffer with a nil error means the host returned null.
type Boundary interface {
	// CreateAgent registers an agent from its configuration and the
	// flattened plugin function list. Returns the null ref on refusal.
	CreateAgent(ctx context.Context, configJSON, pluginsJSON string) (Ref, error)

	// DestroyAgent releases an agent resource.
	DestroyAgent(ctx context.Context, ref Ref) error

	// CreateContext materializes a plugin context from configuration
	// JSON. Returns the null ref on refusal.
	CreateContext(ctx context.Context, configJSON string) (Ref, error)

	// UpdateContext replaces a context's state in place. A false return
	// means the host rejected the update; the prior state remains.
	UpdateContext(ctx context.Context, ref Ref, configJSON string) (bool, error)

	// DestroyContext releases a context resource.
	DestroyContext(ctx context.Context, ref Ref) error

	// EvaluateCondition evaluates one precompiled host-side predicate
	// keyed by plugin type and function name against a context.
	EvaluateCondition(ctx context.Context, pluginType, functionName string, ref Ref) (bool, error)

	// FilterFunctions returns the host-filtered function metadata list
	// for a plugin type as a host-owned JSON buffer.
	FilterFunctions(ctx context.Context, pluginType string, ref Ref) (*OwnedBuffer, error)

	// PluginMetadata returns host-side metadata for all registered
	// plugins as a host-owned JSON buffer.
	PluginMetadata(ctx context.Context) (*OwnedBuffer, error)
}

// OwnedBuffer wraps a host-owned string. Every successful boundary call
// returning one must be matched by exactly one Release; the buffer
// tracks that so a defensive second Release is a no-op rather than a
// double free.
type OwnedBuffer struct {
	data     []byte
	release  func()
	released atomic.Bool
}

// NewOwnedBuffer wraps host data with its release action.
func NewOwnedBuffer(data []byte, release func()) *OwnedBuffer {
	return &OwnedBuffer{data: data, release: release}
}

// Bytes returns the buffer contents. Invalid after Release.
func (b *OwnedBuffer) Bytes() []byte { return b.data }

// Release returns the buffer to the host. Exactly the first call
// reaches the host.
func (b *OwnedBuffer) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}
	b.data = nil
	if b.release != nil {
		b.release()
	}
}

// decodeOwned parses a host-owned buffer into out and always releases
// the buffer exactly once.
func decodeOwned(buf *OwnedBuffer, decode func(data []byte) error) error {
	defer buf.Release()

	data := buf.Bytes()
	if !utf8.Valid(data) {
		return oops.In("boundary").Code(CodeTransport).
			New("host returned a string that is not valid UTF-8")
	}
	return decode(data)
}

// checkWireString rejects strings the boundary's NUL-terminated format
// cannot carry. Checked before any transport is attempted.
func checkWireString(field, s string) error {
	if strings.ContainsRune(s, 0) {
		return oops.In("boundary").Code(CodeEncode).With("field", field).
			New("string contains an embedded NUL byte")
	}
	if !utf8.ValidString(s) {
		return oops.In("boundary").Code(CodeEncode).With("field", field).
			New("string is not valid UTF-8")
	}
	return nil
}

// destroyOnce guards single-destroy semantics shared by handles.
type destroyOnce struct {
	mu  sync.Mutex
	ref Ref
}

// take returns the current ref and nulls it, so the destroy call is
// issued at most once on every path. Returns 0 if already taken.
func (d *destroyOnce) take() Ref {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref := d.ref
	d.ref = 0
	return ref
}

// get returns the live ref, or 0 when the handle is closed.
func (d *destroyOnce) get() Ref {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ref
}
