// Package persist is the versioned graph-serialisation envelope: import and
// export of a node/connection/viewport/variable snapshot, with warnings
// for connections that no longer resolve rather than a hard failure. It is
// an interface plus a minimal, current-version envelope, not a full
// migration framework — importing an envelope from a future version fails
// with Unsupported; versions below current are expected to be handled by
// CurrentVersion-specific migration steps as they're added.
package persist

import (
	"encoding/json"
	"fmt"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
)

// CurrentVersion is the envelope version this package produces and
// understands without migration.
const CurrentVersion = 1

// Unsupported reports an envelope whose version is newer than this
// package knows how to read.
type Unsupported struct {
	Version int
}

func (e *Unsupported) Error() string {
	return fmt.Sprintf("persist: envelope version %d is newer than supported version %d", e.Version, CurrentVersion)
}

// NodeEnvelope is one node instance's persisted shape: just enough to
// rebuild a node.Data via its definition's Factory. Sockets themselves are
// never persisted — they're derived from the definition at import time, so
// a definition upgrade (e.g. a new optional input) takes effect on every
// existing graph automatically.
type NodeEnvelope struct {
	ID           string          `json:"id"`
	Name         string          `json:"name,omitempty"`
	DefinitionID string          `json:"definition_id"`
	Position     Position        `json:"position,omitempty"`
	Group        *GroupEnvelope  `json:"group,omitempty"`
}

// Position is editor viewport placement for a single node; opaque to the
// engine, carried only so a GUI host can restore layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GroupEnvelope is the persisted shape of a node.GroupData: a nested
// subgraph plus its boundary mappings.
type GroupEnvelope struct {
	Nodes          []NodeEnvelope       `json:"nodes"`
	Connections    []ConnectionEnvelope `json:"connections"`
	InputMappings  map[string]Endpoint  `json:"input_mappings,omitempty"`
	OutputMappings map[string]Endpoint  `json:"output_mappings,omitempty"`
	EntryNode      string               `json:"entry_node,omitempty"`
}

// Endpoint mirrors node.Endpoint in JSON.
type Endpoint struct {
	NodeID string `json:"node_id"`
	Socket string `json:"socket"`
}

// ConnectionEnvelope is the persisted shape of a node.Connection.
type ConnectionEnvelope struct {
	OutputNode   string `json:"output_node"`
	OutputSocket string `json:"output_socket"`
	InputNode    string `json:"input_node"`
	InputSocket  string `json:"input_socket"`
	IsExecution  bool   `json:"is_execution"`
}

// Variable is a persisted (name, JSON value) pair seeded into a fresh
// runtime.Storage before a loaded graph is executed.
type Variable struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Envelope is the full versioned snapshot of a graph.
type Envelope struct {
	Version     int                  `json:"version"`
	Nodes       []NodeEnvelope       `json:"nodes"`
	Connections []ConnectionEnvelope `json:"connections"`
	Viewport    map[string]any       `json:"viewport,omitempty"`
	Variables   []Variable           `json:"variables,omitempty"`
}

// Imported is the reconstructed, ready-to-execute graph plus its
// envelope-only metadata.
type Imported struct {
	Nodes       []*node.Data
	Connections []node.Connection
	Viewport    map[string]any
	Variables   []Variable
}

// Export builds a versioned envelope from a live node/connection set.
// Viewport and variables are caller-supplied opaque pass-through data; the
// engine itself has no notion of either.
func Export(nodes []*node.Data, connections []node.Connection, viewport map[string]any, variables []Variable) ([]byte, error) {
	env := Envelope{
		Version:     CurrentVersion,
		Nodes:       exportNodes(nodes),
		Connections: exportConnections(connections),
		Viewport:    viewport,
		Variables:   variables,
	}
	data, err := json.MarshalIndent(&env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("persist: failed to marshal envelope: %w", err)
	}
	return data, nil
}

func exportNodes(nodes []*node.Data) []NodeEnvelope {
	out := make([]NodeEnvelope, 0, len(nodes))
	for _, n := range nodes {
		ne := NodeEnvelope{ID: n.ID, Name: n.Name, DefinitionID: n.DefinitionID}
		if n.Group != nil {
			ne.Group = exportGroup(n.Group)
		}
		out = append(out, ne)
	}
	return out
}

func exportGroup(g *node.GroupData) *GroupEnvelope {
	inner := make([]*node.Data, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		inner = append(inner, n)
	}
	ge := &GroupEnvelope{
		Nodes:       exportNodes(inner),
		Connections: exportConnections(g.Connections),
		EntryNode:   g.EntryNode,
	}
	if len(g.InputMappings) > 0 {
		ge.InputMappings = make(map[string]Endpoint, len(g.InputMappings))
		for k, v := range g.InputMappings {
			ge.InputMappings[k] = Endpoint{NodeID: v.NodeID, Socket: v.Socket}
		}
	}
	if len(g.OutputMappings) > 0 {
		ge.OutputMappings = make(map[string]Endpoint, len(g.OutputMappings))
		for k, v := range g.OutputMappings {
			ge.OutputMappings[k] = Endpoint{NodeID: v.NodeID, Socket: v.Socket}
		}
	}
	return ge
}

func exportConnections(connections []node.Connection) []ConnectionEnvelope {
	out := make([]ConnectionEnvelope, 0, len(connections))
	for _, c := range connections {
		out = append(out, ConnectionEnvelope{
			OutputNode:   c.OutputNode,
			OutputSocket: c.OutputSocket,
			InputNode:    c.InputNode,
			InputSocket:  c.InputSocket,
			IsExecution:  c.IsExecution,
		})
	}
	return out
}

// Import parses and reconstructs a graph from a serialised envelope,
// resolving each node's definition against reg. Connections whose
// endpoints don't resolve to a real (node, socket) pair are dropped with a
// warning rather than failing the whole import — a graph saved against an
// older registry (a removed optional socket, a renamed node) should still
// load with the rest of its wiring intact.
func Import(data []byte, reg *registry.Registry) (*Imported, []string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("persist: failed to unmarshal envelope: %w", err)
	}
	if env.Version > CurrentVersion {
		return nil, nil, &Unsupported{Version: env.Version}
	}

	var warnings []string
	nodes, byID, err := importNodes(env.Nodes, reg, &warnings)
	if err != nil {
		return nil, nil, err
	}
	connections := filterConnections(env.Connections, byID, &warnings)

	return &Imported{
		Nodes:       nodes,
		Connections: connections,
		Viewport:    env.Viewport,
		Variables:   env.Variables,
	}, warnings, nil
}

func importNodes(envs []NodeEnvelope, reg *registry.Registry, warnings *[]string) ([]*node.Data, map[string]*node.Data, error) {
	nodes := make([]*node.Data, 0, len(envs))
	byID := make(map[string]*node.Data, len(envs))

	for _, ne := range envs {
		def, ok := reg.Get(ne.DefinitionID)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("node %q: unknown definition %q, dropped", ne.ID, ne.DefinitionID))
			continue
		}
		n := def.Factory()
		n.ID = ne.ID
		if ne.Name != "" {
			n.Name = ne.Name
		}
		if ne.Group != nil {
			innerNodes, innerByID, err := importNodes(ne.Group.Nodes, reg, warnings)
			if err != nil {
				return nil, nil, err
			}
			innerMap := make(map[string]*node.Data, len(innerNodes))
			for _, in := range innerNodes {
				innerMap[in.ID] = in
			}
			n.Group = &node.GroupData{
				Nodes:          innerMap,
				Connections:    filterConnections(ne.Group.Connections, innerByID, warnings),
				EntryNode:      ne.Group.EntryNode,
				InputMappings:  importEndpoints(ne.Group.InputMappings),
				OutputMappings: importEndpoints(ne.Group.OutputMappings),
			}
		}
		nodes = append(nodes, n)
		byID[n.ID] = n
	}
	return nodes, byID, nil
}

func importEndpoints(envs map[string]Endpoint) map[string]node.Endpoint {
	if len(envs) == 0 {
		return nil
	}
	out := make(map[string]node.Endpoint, len(envs))
	for k, v := range envs {
		out[k] = node.Endpoint{NodeID: v.NodeID, Socket: v.Socket}
	}
	return out
}

func filterConnections(envs []ConnectionEnvelope, byID map[string]*node.Data, warnings *[]string) []node.Connection {
	out := make([]node.Connection, 0, len(envs))
	for _, ce := range envs {
		outNode, ok := byID[ce.OutputNode]
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("connection %s.%s -> %s.%s: unknown output node, dropped", ce.OutputNode, ce.OutputSocket, ce.InputNode, ce.InputSocket))
			continue
		}
		inNode, ok := byID[ce.InputNode]
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("connection %s.%s -> %s.%s: unknown input node, dropped", ce.OutputNode, ce.OutputSocket, ce.InputNode, ce.InputSocket))
			continue
		}
		if _, ok := outNode.FindOutput(ce.OutputSocket); !ok {
			*warnings = append(*warnings, fmt.Sprintf("connection %s.%s -> %s.%s: unknown output socket, dropped", ce.OutputNode, ce.OutputSocket, ce.InputNode, ce.InputSocket))
			continue
		}
		if _, ok := inNode.FindInput(ce.InputSocket); !ok {
			*warnings = append(*warnings, fmt.Sprintf("connection %s.%s -> %s.%s: unknown input socket, dropped", ce.OutputNode, ce.OutputSocket, ce.InputNode, ce.InputSocket))
			continue
		}
		out = append(out, node.Connection{
			OutputNode:   ce.OutputNode,
			OutputSocket: ce.OutputSocket,
			InputNode:    ce.InputNode,
			InputSocket:  ce.InputSocket,
			IsExecution:  ce.IsExecution,
		})
	}
	return out
}
