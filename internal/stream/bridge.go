// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package stream routes event fragments pushed by the boundary into
// locally owned receivers, keyed by an opaque numeric stream key.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bridge is the process-wide stream table. Deliver may be called from a
// foreign execution context (a callback driven by the boundary's own
// thread) concurrently with local consumption.
type Bridge struct {
	mu      sync.Mutex
	senders map[uint64]*queue
	nextKey atomic.Uint64
	logger  *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates an empty bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		senders: make(map[uint64]*queue),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Create allocates a fresh stream key and its receiver. The key is
// handed to the boundary as the caller-supplied context token; the
// receiver stays with the local consumer. Keys increase monotonically
// and are never reused.
func (b *Bridge) Create() (uint64, *Receiver) {
	key := b.nextKey.Add(1)
	q := newQueue()

	b.mu.Lock()
	b.senders[key] = q
	b.mu.Unlock()

	return key, &Receiver{q: q}
}

// Deliver is the single ingress point invoked by the boundary. A nil
// event is the end-of-stream sentinel: the entry is removed and the
// receiver unblocks with stream termination. Delivery to an unknown key
// is silently dropped since the producer may race the consumer's
// teardown. Delivery to a dropped receiver removes the entry.
func (b *Bridge) Deliver(key uint64, event []byte) {
	if event == nil {
		b.mu.Lock()
		q, ok := b.senders[key]
		delete(b.senders, key)
		b.mu.Unlock()
		if ok {
			q.finish()
		}
		return
	}

	b.mu.Lock()
	q, ok := b.senders[key]
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("dropping event for unknown stream", "stream_key", key)
		return
	}

	if !q.push(string(event)) {
		// Receiver is gone; self-heal the table.
		b.mu.Lock()
		delete(b.senders, key)
		b.mu.Unlock()
	}
}

// Len reports the number of live stream entries.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.senders)
}

// Receiver is the consumer end of one stream.
type Receiver struct {
	q *queue
}

// Recv returns the next event in delivery order. ok is false once the
// stream has terminated and all buffered events were consumed, or when
// ctx is done.
func (r *Receiver) Recv(ctx context.Context) (event string, ok bool) {
	return r.q.pop(ctx)
}

// Close drops the consumer. Subsequent deliveries self-heal the bridge
// entry; buffered events are discarded.
func (r *Receiver) Close() {
	r.q.drop()
}

// queue is an unbounded FIFO: deliveries must never block the boundary
// callback and must never be lost while the consumer is alive.
type queue struct {
	mu       sync.Mutex
	items    []string
	finished bool
	dead     bool
	notify   chan struct{}
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(item string) bool {
	q.mu.Lock()
	if q.dead {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.wake()
	return true
}

func (q *queue) finish() {
	q.mu.Lock()
	q.finished = true
	q.mu.Unlock()
	q.wake()
}

func (q *queue) drop() {
	q.mu.Lock()
	q.dead = true
	q.items = nil
	q.mu.Unlock()
	q.wake()
}

func (q *queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *queue) pop(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		if q.finished || q.dead {
			q.mu.Unlock()
			return "", false
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-q.notify:
		}
	}
}
