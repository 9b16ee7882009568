package node

// Endpoint identifies a (node, socket) pair inside a group's inner graph.
type Endpoint struct {
	NodeID string
	Socket string
}

// GroupData carries a nested subgraph plus the mapping tables that bridge
// the group node's own outer sockets to sockets inside that subgraph.
type GroupData struct {
	// Nodes and Connections describe the inner graph, keyed the same way a
	// top-level graph would be.
	Nodes       map[string]*Data
	Connections []Connection

	// InputMappings maps an outer input socket name to the inner endpoint
	// that should receive its resolved value.
	InputMappings map[string]Endpoint

	// OutputMappings maps an outer output socket name to the inner
	// endpoint whose value should be copied out after the inner graph runs.
	OutputMappings map[string]Endpoint

	// EntryNode, if set, names the single inner node the engine invokes
	// directly to run this body, regardless of whether that node is an
	// ExecutionInitiator or a Callable node. Leave empty to run every inner
	// ExecutionInitiator instead, the usual case for a body with its own
	// internal control flow.
	EntryNode string
}
