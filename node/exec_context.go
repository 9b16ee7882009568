package node

import (
	"context"

	"github.com/nodeflowgo/nodeflow/socket"
)

// FeedbackKind classifies an EmitFeedback call.
type FeedbackKind int

const (
	FeedbackInfo FeedbackKind = iota
	FeedbackWarning
	FeedbackError
)

// ExecContext is the narrow interface a node body sees. The engine package
// implements it; node bodies only depend on this package, not on engine,
// avoiding an import cycle between node definitions and the engine that
// runs them.
type ExecContext interface {
	// Context returns the per-run context; node bodies must honour its
	// cancellation at any blocking point.
	Context() context.Context

	// NodeID returns the id of the node instance currently executing.
	NodeID() string

	// GetInput resolves a declared input socket's value, lazily pulling
	// from an upstream producer if necessary.
	GetInput(name string) (socket.Value, error)

	// SetOutput writes a data output socket's value into the active scope.
	SetOutput(name string, v socket.Value)

	// Trigger signals an execution output socket. Signals are recorded in
	// call order; the engine propagates them in that order once the node
	// body returns.
	Trigger(execOutput string)

	// Emit streams one item on a stream triplet's item socket: it writes
	// the value, signals the triplet's on-item execution socket, and
	// (depending on the engine's stream mode) may block until downstream
	// execution of this item has finished.
	Emit(itemSocket string, v socket.Value) error

	// GetVariable/SetVariable read and write the per-run variable map,
	// which is shared read-through across nested scopes. Unlike socket
	// values, variables are not JSON-boxed: a variable may hold a plain
	// value or a reference to a shared, externally-synchronised object
	// (e.g. the "thread-safe aggregator pre-seeded by the user" pattern
	// used by Parallel ForEach), since read-through composition makes the
	// same reference visible to every nested iteration scope.
	GetVariable(name string) (any, bool)
	SetVariable(name string, v any)

	// EmitFeedback publishes a human-facing message on the event bus.
	EmitFeedback(kind FeedbackKind, message string, tag string)
}

// Executor is a node body: a function invoked once per trigger of the
// node's execution input (or once, for a pure data pull of an initiator).
type Executor func(ctx ExecContext) error
