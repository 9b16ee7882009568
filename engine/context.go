package engine

import (
	"context"
	"sync"
	"time"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/runtime"
	"github.com/nodeflowgo/nodeflow/socket"
)

// BodyRunner is implemented by the engine's node.ExecContext for any node
// instance that carries a nested subgraph (node.Data.Group != nil). Loop
// control nodes (builtin.For, ForEach, While, ...) type-assert their
// node.ExecContext to this interface to run their body once per iteration,
// each time in a fresh child storage scope.
type BodyRunner interface {
	// RunBody executes this node's Group body once in a new child storage
	// layer seeded from seed (by the Group's InputMappings), then copies
	// the Group's OutputMappings back into the caller's own scope.
	RunBody(seed map[string]socket.Value) error
}

// nodeCtx is the concrete node.ExecContext the engine hands to every
// Executor invocation.
type nodeCtx struct {
	background context.Context
	run        *run
	storage    runtime.Storage
	data       *node.Data

	triggered []string

	streamWG    sync.WaitGroup
	streamErrMu sync.Mutex
	streamErr   error
}

// ConditionRefresher is implemented by the engine's node.ExecContext for
// any node that must re-evaluate a data input's producer on each pass
// instead of reusing the first resolved value — a While/DoWhile/
// RepeatUntil condition, typically. RefreshInput clears the input's
// producer from the active scope (its executed mark and its published
// socket value) before pulling it again, so a producer whose result
// depends on state the loop body just mutated (a counter variable, an
// externally-wired comparison node) is re-run rather than memoised.
type ConditionRefresher interface {
	RefreshInput(name string) (socket.Value, error)
}

var _ node.ExecContext = (*nodeCtx)(nil)
var _ BodyRunner = (*nodeCtx)(nil)
var _ ConditionRefresher = (*nodeCtx)(nil)

func (c *nodeCtx) Context() context.Context { return c.background }

func (c *nodeCtx) NodeID() string { return c.data.ID }

func (c *nodeCtx) GetInput(name string) (socket.Value, error) {
	return c.run.resolveInput(c.background, c.storage, c.data, name)
}

func (c *nodeCtx) SetOutput(name string, v socket.Value) {
	c.storage.SetSocketValue(runtime.Key{NodeID: c.data.ID, Socket: name}, v)
}

func (c *nodeCtx) Trigger(execOutput string) {
	c.triggered = append(c.triggered, execOutput)
}

func (c *nodeCtx) Emit(itemSocket string, v socket.Value) error {
	def, ok := c.run.engine.registry.Get(c.data.DefinitionID)
	if !ok {
		return nodeFailure(c.data.ID, errUnknownDefinition(c.data.DefinitionID))
	}
	triplet, ok := def.StreamTripletFor(itemSocket)
	if !ok {
		return nodeFailure(c.data.ID, errNotAStreamSocket(itemSocket))
	}

	c.storage.SetSocketValue(runtime.Key{NodeID: c.data.ID, Socket: itemSocket}, v)
	c.storage.EventBus().Publish(runtime.Event{
		Kind: runtime.Streamed, NodeID: c.data.ID, Socket: itemSocket, Value: v, Timestamp: time.Now(),
	})

	deliver := func() error {
		return c.run.propagate(c.background, c.storage, c.data, []string{triplet.OnItemExec})
	}

	if c.run.opts.StreamMode == StreamFireAndForget {
		c.streamWG.Add(1)
		go func() {
			defer c.streamWG.Done()
			if err := deliver(); err != nil {
				c.streamErrMu.Lock()
				if c.streamErr == nil {
					c.streamErr = err
				}
				c.streamErrMu.Unlock()
				c.run.cancel()
			}
		}()
		return nil
	}
	return deliver()
}

func (c *nodeCtx) GetVariable(name string) (any, bool) {
	return c.storage.GetVariable(name)
}

func (c *nodeCtx) SetVariable(name string, v any) {
	c.storage.SetVariable(name, v)
}

func (c *nodeCtx) EmitFeedback(kind node.FeedbackKind, message, tag string) {
	c.storage.EventBus().Publish(runtime.Event{
		Kind: runtime.Feedback, NodeID: c.data.ID, FeedbackKind: kind,
		Message: message, Tag: tag, Timestamp: time.Now(),
	})
}

// RefreshInput implements ConditionRefresher.
func (c *nodeCtx) RefreshInput(name string) (socket.Value, error) {
	if conns := c.run.plan.IncomingFor(c.data.ID, name); len(conns) > 0 {
		conn := conns[0]
		c.storage.ClearNodeExecuted([]string{conn.OutputNode})
		c.storage.DeleteSocketValue(runtime.Key{NodeID: conn.OutputNode, Socket: conn.OutputSocket})
	}
	return c.GetInput(name)
}

// RunBody implements BodyRunner.
func (c *nodeCtx) RunBody(seed map[string]socket.Value) error {
	if c.data.Group == nil {
		return nodeFailure(c.data.ID, errNoGroupBody(c.data.ID))
	}
	resolve := func(name string) (socket.Value, error) {
		if v, ok := seed[name]; ok {
			return v, nil
		}
		if sock, ok := c.data.FindInput(name); ok {
			return sock.Default, nil
		}
		return socket.Null, nil
	}
	return c.run.executeGroupBody(c.background, c.storage, c.data, resolve)
}
