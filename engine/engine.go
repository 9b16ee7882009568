// Package engine drives execution of a planned node graph: it resolves data
// inputs lazily (pulling upstream producers on demand), propagates signalled
// execution outputs along the plan's connections, and runs nested group and
// loop bodies in their own storage scope.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/nodeflowgo/nodeflow/log"
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/plan"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/runtime"
	"github.com/nodeflowgo/nodeflow/socket"
)

func errUnknownDefinition(id string) error {
	return fmt.Errorf("engine: unknown node definition %q", id)
}

func errNotAStreamSocket(name string) error {
	return fmt.Errorf("engine: socket %q is not a stream item socket", name)
}

func errNoGroupBody(id string) error {
	return fmt.Errorf("engine: node %q has no group body to run", id)
}

// Engine executes graphs built from definitions in a Registry.
type Engine struct {
	registry *registry.Registry
	logger   *log.Logger
}

// New creates an Engine that resolves node behaviour from reg.
func New(reg *registry.Registry) *Engine {
	return &Engine{registry: reg, logger: log.Default()}
}

// WithLogger returns a copy of e using l for diagnostic logging.
func (e *Engine) WithLogger(l *log.Logger) *Engine {
	cp := *e
	cp.logger = l
	return &cp
}

// Execute plans and runs nodes/connections against storage, honouring opts.
// It blocks until every reachable execution chain has finished, the context
// is cancelled, or a node returns an error.
func (e *Engine) Execute(ctx context.Context, nodes []*node.Data, connections []node.Connection, storage runtime.Storage, opts Options) error {
	nodeMap := make(map[string]*node.Data, len(nodes))
	for _, n := range nodes {
		nodeMap[n.ID] = n
	}
	if err := node.ValidateConnections(nodeMap, connections); err != nil {
		return err
	}

	p, err := plan.BuildWithTopology(nodes, connections)
	if err != nil {
		return err
	}

	opts = opts.normalize()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		engine:     e,
		plan:       p,
		opts:       opts,
		cancelFn:   cancel,
		inProgress: make(map[runtime.Storage]map[string]bool),
	}
	if opts.Mode == Parallel {
		r.sem = make(chan struct{}, opts.MaxParallelism)
	}

	return r.runAllInitiators(runCtx, storage)
}

// ExecuteGroup runs group's nested subgraph directly against parentStorage,
// without it being reached through an outer plan's execution edges. Group's
// own input sockets are resolved from whatever is already set at
// (group.ID, socketName) in parentStorage, falling back to each socket's
// declared default. Resolved outputs are written back the same way.
func (e *Engine) ExecuteGroup(ctx context.Context, group *node.Data, parentStorage runtime.Storage, opts Options) error {
	if group.Group == nil {
		return errNoGroupBody(group.ID)
	}
	opts = opts.normalize()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		engine:     e,
		opts:       opts,
		cancelFn:   cancel,
		inProgress: make(map[runtime.Storage]map[string]bool),
	}
	if opts.Mode == Parallel {
		r.sem = make(chan struct{}, opts.MaxParallelism)
	}

	resolve := func(name string) (socket.Value, error) {
		if v, ok := parentStorage.GetSocketValue(runtime.Key{NodeID: group.ID, Socket: name}); ok {
			return v.(socket.Value), nil
		}
		if sock, ok := group.FindInput(name); ok {
			return sock.Default, nil
		}
		return socket.Null, nil
	}
	return r.executeGroupBody(runCtx, parentStorage, group, resolve)
}

// run holds the state of a single Execute/ExecuteGroup invocation: the plan
// being walked, the scheduling options, and the in-progress guard that
// detects a data cycle discovered only at execution time (the planner's
// topological check covers static cycles; a dynamic one can still arise
// inside a loop body, which is replanned on every iteration).
type run struct {
	engine   *Engine
	plan     *plan.Plan
	opts     Options
	cancelFn context.CancelFunc

	mu         sync.Mutex
	inProgress map[runtime.Storage]map[string]bool

	sem chan struct{} // Parallel mode concurrency bound; nil in Sequential mode
}

func (r *run) cancel() {
	if r.cancelFn != nil {
		r.cancelFn()
	}
}

func (r *run) waitGate(ctx context.Context, nodeID string) error {
	if r.opts.Gate == nil {
		return nil
	}
	if err := r.opts.Gate.Wait(ctx); err != nil {
		return gateAborted(nodeID, err)
	}
	return nil
}

func (r *run) acquire() {
	if r.sem != nil {
		r.sem <- struct{}{}
	}
}

func (r *run) release() {
	if r.sem != nil {
		<-r.sem
	}
}

// runAllInitiators runs every initiator in r.plan, in declaration order for
// Sequential mode or concurrently (bounded by r.sem) for Parallel mode.
func (r *run) runAllInitiators(ctx context.Context, storage runtime.Storage) error {
	if r.opts.Mode != Parallel {
		for _, id := range r.plan.Initiators {
			n, err := r.plan.NodeDataFor(id)
			if err != nil {
				return err
			}
			if err := r.waitGate(ctx, id); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return cancelled(id, ctx.Err())
			}
			if err := r.invokeNode(ctx, storage, n); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	for _, id := range r.plan.Initiators {
		id := id
		n, err := r.plan.NodeDataFor(id)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.acquire()
			defer r.release()
			if err := r.waitGate(ctx, id); err != nil {
				errOnce.Do(func() { firstErr = err; r.cancel() })
				return
			}
			if ctx.Err() != nil {
				errOnce.Do(func() { firstErr = cancelled(id, ctx.Err()); r.cancel() })
				return
			}
			if err := r.invokeNode(ctx, storage, n); err != nil {
				errOnce.Do(func() { firstErr = err; r.cancel() })
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// invokeNode runs n's body once (a group's nested subgraph if n.IsGroup(),
// otherwise its registered Executor), publishes lifecycle events, then
// propagates whichever execution outputs were signalled.
func (r *run) invokeNode(ctx context.Context, storage runtime.Storage, n *node.Data) error {
	def, ok := r.engine.registry.Get(n.DefinitionID)
	if !ok && !n.IsGroup() {
		return nodeFailure(n.ID, errUnknownDefinition(n.DefinitionID))
	}

	nc := &nodeCtx{background: ctx, run: r, storage: storage, data: n}
	storage.EventBus().Publish(runtime.Event{Kind: runtime.NodeStarted, NodeID: n.ID})

	// A node with both a Group body and a registered Executor is a loop
	// control node: its Executor decides how many times (and with what
	// per-iteration seed) to run the body, via the BodyRunner interface on
	// nc. A node with a Group but no Executor is a plain Group container:
	// the engine runs its body exactly once and, when the node is Callable,
	// auto-signals Exit.
	var err error
	switch {
	case ok && def.Executor != nil:
		err = def.Executor(nc)
	case n.IsGroup():
		err = r.executeGroupBody(ctx, storage, n, func(name string) (socket.Value, error) {
			return r.resolveInput(ctx, storage, n, name)
		})
		if err == nil && n.Callable {
			nc.triggered = append(nc.triggered, "Exit")
		}
	}

	if err == nil {
		nc.streamWG.Wait()
		nc.streamErrMu.Lock()
		err = nc.streamErr
		nc.streamErrMu.Unlock()
	}

	if err != nil {
		storage.EventBus().Publish(runtime.Event{Kind: runtime.NodeCompleted, NodeID: n.ID, Err: err})
		return r.classifyError(ctx, n.ID, err)
	}

	if ok {
		for _, t := range def.StreamTriplets {
			if t.HasCompletedExec {
				nc.triggered = append(nc.triggered, t.CompletedExec)
			}
		}
	}
	storage.EventBus().Publish(runtime.Event{Kind: runtime.NodeCompleted, NodeID: n.ID})

	return r.propagate(ctx, storage, n, nc.triggered)
}

// propagate follows every execution connection leaving n's signalled
// outputs (in signal order), invoking each downstream target.
func (r *run) propagate(ctx context.Context, storage runtime.Storage, n *node.Data, outputs []string) error {
	if r.opts.Mode != Parallel {
		for _, out := range outputs {
			for _, c := range r.plan.OutgoingFor(n.ID, out) {
				if !c.IsExecution {
					continue
				}
				target, err := r.plan.NodeDataFor(c.InputNode)
				if err != nil {
					return err
				}
				if err := r.waitGate(ctx, target.ID); err != nil {
					return err
				}
				if ctx.Err() != nil {
					return cancelled(target.ID, ctx.Err())
				}
				if err := r.invokeNode(ctx, storage, target); err != nil {
					return err
				}
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	for _, out := range outputs {
		for _, c := range r.plan.OutgoingFor(n.ID, out) {
			if !c.IsExecution {
				continue
			}
			c := c
			target, err := r.plan.NodeDataFor(c.InputNode)
			if err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.acquire()
				defer r.release()
				if err := r.waitGate(ctx, target.ID); err != nil {
					errOnce.Do(func() { firstErr = err; r.cancel() })
					return
				}
				if ctx.Err() != nil {
					errOnce.Do(func() { firstErr = cancelled(target.ID, ctx.Err()); r.cancel() })
					return
				}
				if err := r.invokeNode(ctx, storage, target); err != nil {
					errOnce.Do(func() { firstErr = err; r.cancel() })
				}
			}()
		}
	}
	wg.Wait()
	return firstErr
}

// resolveInput resolves a data input socket's value: the memoised/default
// path first, then a lazy pull of its producer if neither applies.
func (r *run) resolveInput(ctx context.Context, storage runtime.Storage, n *node.Data, socketName string) (socket.Value, error) {
	if v, ok := storage.GetSocketValue(runtime.Key{NodeID: n.ID, Socket: socketName}); ok {
		return v.(socket.Value), nil
	}
	conns := r.plan.IncomingFor(n.ID, socketName)
	if len(conns) == 0 {
		if sock, ok := n.FindInput(socketName); ok {
			return sock.Default, nil
		}
		return socket.Null, nil
	}
	conn := conns[0] // node.ValidateConnections enforces at most one inbound data connection
	return r.pullData(ctx, storage, conn.OutputNode, conn.OutputSocket)
}

// pullData resolves a producer's data output, running the producer purely
// for its data (no execution propagation) if it has not already executed
// in the given storage scope.
func (r *run) pullData(ctx context.Context, storage runtime.Storage, producerID, producerSocket string) (socket.Value, error) {
	key := runtime.Key{NodeID: producerID, Socket: producerSocket}
	if v, ok := storage.GetSocketValue(key); ok {
		return v.(socket.Value), nil
	}
	if storage.IsNodeExecuted(producerID) {
		return socket.Null, nil
	}

	r.mu.Lock()
	scope, ok := r.inProgress[storage]
	if !ok {
		scope = make(map[string]bool)
		r.inProgress[storage] = scope
	}
	if scope[producerID] {
		r.mu.Unlock()
		return socket.Null, &plan.Error{Kind: plan.DataCycle, Message: fmt.Sprintf(
			"engine: data cycle: %s has not published %s while already being resolved", producerID, producerSocket)}
	}
	scope[producerID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(scope, producerID)
		r.mu.Unlock()
	}()

	producer, err := r.plan.NodeDataFor(producerID)
	if err != nil {
		return socket.Null, err
	}
	if err := r.invokeNodeDataOnly(ctx, storage, producer); err != nil {
		return socket.Null, err
	}
	storage.MarkNodeExecuted(producerID)

	v, ok := storage.GetSocketValue(key)
	if !ok {
		return socket.Null, nil
	}
	return v.(socket.Value), nil
}

// invokeNodeDataOnly runs n's body to populate its outputs, without
// following any signalled execution outputs.
func (r *run) invokeNodeDataOnly(ctx context.Context, storage runtime.Storage, n *node.Data) error {
	def, ok := r.engine.registry.Get(n.DefinitionID)
	if !ok && !n.IsGroup() {
		return nodeFailure(n.ID, errUnknownDefinition(n.DefinitionID))
	}

	nc := &nodeCtx{background: ctx, run: r, storage: storage, data: n}
	storage.EventBus().Publish(runtime.Event{Kind: runtime.NodeStarted, NodeID: n.ID})

	var err error
	switch {
	case ok && def.Executor != nil:
		err = def.Executor(nc)
	case n.IsGroup():
		err = r.executeGroupBody(ctx, storage, n, func(name string) (socket.Value, error) {
			return r.resolveInput(ctx, storage, n, name)
		})
	}

	if err != nil {
		storage.EventBus().Publish(runtime.Event{Kind: runtime.NodeCompleted, NodeID: n.ID, Err: err})
		return r.classifyError(ctx, n.ID, err)
	}
	storage.EventBus().Publish(runtime.Event{Kind: runtime.NodeCompleted, NodeID: n.ID})
	return nil
}

// classifyError turns a node body's returned error into an *ExecError. A
// body that already returned one (e.g. a nested invokeNode's error bubbling
// up through a BodyRunner.RunBody call) is passed through unchanged. A body
// that returned a plain error while its context was already cancelled
// (e.g. a blocking node body that simply returns ctx.Err() from a select) is
// classified as Cancelled rather than a node failure, since that is what
// actually happened.
func (r *run) classifyError(ctx context.Context, nodeID string, err error) error {
	if ee, isExecErr := err.(*ExecError); isExecErr {
		return ee
	}
	if ctx.Err() != nil {
		return cancelled(nodeID, err)
	}
	return nodeFailure(nodeID, err)
}

// executeGroupBody runs n.Group's nested subgraph in a fresh child storage
// layer, seeding it via resolveInput and InputMappings, then copying
// OutputMappings results back into storage at (n.ID, outerSocket).
func (r *run) executeGroupBody(ctx context.Context, storage runtime.Storage, n *node.Data, resolveInput func(string) (socket.Value, error)) error {
	g := n.Group
	child := storage.CreateChild("group:" + n.ID)

	// Seed the body from InputMappings directly (not n.Inputs): a loop
	// control node's RunBody seeds per-iteration values, such as a loop
	// index, that the control node itself has no matching input socket
	// for, so the mapping keys are the only source of truth here.
	for socketName, mapping := range g.InputMappings {
		v, err := resolveInput(socketName)
		if err != nil {
			return err
		}
		child.SetSocketValue(runtime.Key{NodeID: mapping.NodeID, Socket: mapping.Socket}, v)
	}

	innerNodes := make([]*node.Data, 0, len(g.Nodes))
	for _, inner := range g.Nodes {
		innerNodes = append(innerNodes, inner)
	}
	innerPlan, err := plan.BuildWithTopology(innerNodes, g.Connections)
	if err != nil {
		return err
	}

	inner := &run{
		engine:     r.engine,
		plan:       innerPlan,
		opts:       r.opts,
		cancelFn:   r.cancelFn,
		inProgress: make(map[runtime.Storage]map[string]bool),
		sem:        r.sem,
	}
	if g.EntryNode != "" {
		entry, err := innerPlan.NodeDataFor(g.EntryNode)
		if err != nil {
			return err
		}
		if err := inner.invokeNode(ctx, child, entry); err != nil {
			return err
		}
	} else if err := inner.runAllInitiators(ctx, child); err != nil {
		return err
	}

	for outerSocket, mapping := range g.OutputMappings {
		if v, ok := child.GetSocketValue(runtime.Key{NodeID: mapping.NodeID, Socket: mapping.Socket}); ok {
			storage.SetSocketValue(runtime.Key{NodeID: n.ID, Socket: outerSocket}, v)
		}
	}
	return nil
}
