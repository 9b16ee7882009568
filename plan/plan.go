// Package plan builds the indexed lookups the engine needs to drive a
// (nodes, connections) graph: per-node/-socket incoming and outgoing edges,
// the set of execution initiators, and (for the parallel scheduler) a
// data-dependency topological pre-order.
package plan

import (
	"fmt"

	"github.com/nodeflowgo/nodeflow/node"
)

// Error reports a problem discovered while building a Plan, before any
// node runs.
type Error struct {
	Kind    Kind
	Message string
}

// Kind classifies a planning failure.
type Kind int

const (
	UnknownDefinition Kind = iota
	DuplicateNodeID
	OrphanConnection
	DataCycle
	InvalidStreamTriplet
)

func (e *Error) Error() string { return e.Message }

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// socketKey identifies a (node, socket) pair for connection indexing.
type socketKey struct {
	NodeID string
	Socket string
}

// Plan is the planner's output: precomputed indices the engine reuses for
// every node lookup and edge traversal during a run.
type Plan struct {
	Nodes map[string]*node.Data

	// Incoming/Outgoing index connections by their input/output endpoint.
	Incoming map[socketKey][]node.Connection
	Outgoing map[socketKey][]node.Connection

	// Initiators is the set of node ids with ExecutionInitiator = true.
	Initiators []string

	// DataOrder is a topological pre-order over the pure-data dependency
	// projection of the graph (execution edges excluded), for the parallel
	// scheduler. Empty if Build was called without topological ordering,
	// or if the caller only needs the index maps.
	DataOrder []string
}

// Build indexes nodes and connections and detects duplicate node ids and
// orphan connections. It does not compute DataOrder; call
// BuildWithTopology for that (e.g. from the parallel engine).
func Build(nodes []*node.Data, connections []node.Connection) (*Plan, error) {
	p := &Plan{
		Nodes:    make(map[string]*node.Data, len(nodes)),
		Incoming: make(map[socketKey][]node.Connection),
		Outgoing: make(map[socketKey][]node.Connection),
	}

	for _, n := range nodes {
		if _, dup := p.Nodes[n.ID]; dup {
			return nil, errf(DuplicateNodeID, "plan: duplicate node id %q", n.ID)
		}
		p.Nodes[n.ID] = n
		if n.ExecutionInitiator {
			p.Initiators = append(p.Initiators, n.ID)
		}
	}

	for _, c := range connections {
		if _, ok := p.Nodes[c.OutputNode]; !ok {
			return nil, errf(OrphanConnection, "plan: connection references unknown output node %q", c.OutputNode)
		}
		if _, ok := p.Nodes[c.InputNode]; !ok {
			return nil, errf(OrphanConnection, "plan: connection references unknown input node %q", c.InputNode)
		}
		outKey := socketKey{NodeID: c.OutputNode, Socket: c.OutputSocket}
		inKey := socketKey{NodeID: c.InputNode, Socket: c.InputSocket}
		p.Outgoing[outKey] = append(p.Outgoing[outKey], c)
		p.Incoming[inKey] = append(p.Incoming[inKey], c)
	}

	return p, nil
}

// BuildWithTopology is Build plus a Kahn's-algorithm topological pre-order
// over the data-dependency projection (data connections only). Execution
// edges may cycle freely (loops); a cycle found among data edges is
// reported as a DataCycle error, never silently dropped.
func BuildWithTopology(nodes []*node.Data, connections []node.Connection) (*Plan, error) {
	p, err := Build(nodes, connections)
	if err != nil {
		return nil, err
	}

	indegree := make(map[string]int, len(p.Nodes))
	adjacency := make(map[string][]string)
	for id := range p.Nodes {
		indegree[id] = 0
	}
	for _, c := range connections {
		if c.IsExecution {
			continue
		}
		adjacency[c.OutputNode] = append(adjacency[c.OutputNode], c.InputNode)
		indegree[c.InputNode]++
	}

	// Stable starting order: iterate nodes in the order they were given.
	var queue []string
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(p.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adjacency[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(p.Nodes) {
		return nil, errf(DataCycle, "plan: data dependency cycle detected")
	}

	p.DataOrder = order
	return p, nil
}

// IncomingFor returns the connections feeding the given (node, socket) input
// endpoint, in registration order.
func (p *Plan) IncomingFor(nodeID, socket string) []node.Connection {
	return p.Incoming[socketKey{NodeID: nodeID, Socket: socket}]
}

// OutgoingFor returns the connections leaving the given (node, socket)
// output endpoint, in registration order.
func (p *Plan) OutgoingFor(nodeID, socket string) []node.Connection {
	return p.Outgoing[socketKey{NodeID: nodeID, Socket: socket}]
}

// NodeDataFor returns the node for id, or an UnknownDefinition-kind error
// framed for plan-time use. Most callers instead just index Nodes
// directly; this helper exists for error-path clarity in the engine.
func (p *Plan) NodeDataFor(id string) (*node.Data, error) {
	n, ok := p.Nodes[id]
	if !ok {
		return nil, errf(UnknownDefinition, "plan: unknown node %q", id)
	}
	return n, nil
}
