// Package effects runs the secondary effects of an accepted receipt:
// cost ledger posts, finished-goods stock updates, damaged sub-records,
// and source synchronization. Effects are best-effort: the receipt is
// already committed when they run, so a failure never fails the request.
// Failed effects are parked in the outbox and retried by the relay.
package effects

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"goodsflow/pkg/logger"
)

// Kind identifies an effect handler.
type Kind string

const (
	KindLedgerPost      Kind = "ledger_post"
	KindLedgerReverse   Kind = "ledger_reverse"
	KindFinishedAdd     Kind = "finished_goods_add"
	KindFinishedDamaged Kind = "finished_goods_damaged"
	KindSourceSync      Kind = "source_sync"
)

// Handler processes one effect payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// OutboxWriter parks failed effects for later retry.
type OutboxWriter interface {
	Enqueue(ctx context.Context, kind string, payload []byte) error
}

// Dispatcher is the contract the receipt service depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind Kind, payload any)
}

// Engine routes effects to registered handlers.
type Engine struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	outbox   OutboxWriter
}

// NewEngine creates an engine. The outbox may be nil, in which case
// failed effects are only logged.
func NewEngine(outbox OutboxWriter) *Engine {
	return &Engine{
		handlers: make(map[Kind]Handler),
		outbox:   outbox,
	}
}

// Register installs the handler for a kind. Last registration wins.
func (e *Engine) Register(kind Kind, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[kind] = h
}

// Dispatch runs an effect best-effort. Failures are logged and parked in
// the outbox; they never propagate to the caller.
func (e *Engine) Dispatch(ctx context.Context, kind Kind, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error(ctx, "effect payload marshal failed",
			"kind", kind,
			"error", err,
		)
		return
	}

	if err := e.Handle(ctx, kind, raw); err != nil {
		logger.Error(ctx, "secondary effect failed, parking for retry",
			"kind", kind,
			"error", err,
		)
		e.park(ctx, kind, raw)
	}
}

// Handle runs an effect synchronously and reports the outcome.
// The relay uses it to retry parked effects.
func (e *Engine) Handle(ctx context.Context, kind Kind, payload json.RawMessage) error {
	e.mu.RLock()
	h, ok := e.handlers[kind]
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no handler registered for effect %q", kind)
	}
	return h(ctx, payload)
}

func (e *Engine) park(ctx context.Context, kind Kind, payload []byte) {
	if e.outbox == nil {
		return
	}
	if err := e.outbox.Enqueue(ctx, string(kind), payload); err != nil {
		logger.Error(ctx, "failed to park effect in outbox, effect is lost",
			"kind", kind,
			"error", err,
		)
	}
}
