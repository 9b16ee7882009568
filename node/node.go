package node

// Data is a node instance within a graph.
type Data struct {
	// ID is unique within a graph, including within a group's inner graph.
	ID string

	// Name is a human-readable label, not required to be unique.
	Name string

	// DefinitionID identifies the NodeDefinition this instance was built
	// from; the registry uses it to look up behaviour (executor, stream
	// table) at plan/execute time.
	DefinitionID string

	// Callable marks that the node accepts an execution input (has an
	// "Enter" socket, conventionally).
	Callable bool

	// ExecutionInitiator marks a node that begins an execution chain; such
	// nodes must have no execution input sockets.
	ExecutionInitiator bool

	// Inputs and Outputs are immutable socket arrays, usually copied
	// verbatim from the owning NodeDefinition's templates.
	Inputs  []Socket
	Outputs []Socket

	// Group is non-nil when this node is a Group variant carrying a nested
	// subgraph.
	Group *GroupData
}

// FindInput returns the named input socket.
func (d *Data) FindInput(name string) (Socket, bool) {
	for _, s := range d.Inputs {
		if s.Name == name {
			return s, true
		}
	}
	return Socket{}, false
}

// FindOutput returns the named output socket.
func (d *Data) FindOutput(name string) (Socket, bool) {
	for _, s := range d.Outputs {
		if s.Name == name {
			return s, true
		}
	}
	return Socket{}, false
}

// ExecutionInputs returns the names of this node's execution input sockets.
func (d *Data) ExecutionInputs() []string {
	var names []string
	for _, s := range d.Inputs {
		if s.IsExecution {
			names = append(names, s.Name)
		}
	}
	return names
}

// ExecutionOutputs returns the names of this node's execution output
// sockets, in declaration order. When one invocation signals more than one
// of them, the engine follows them in the order the body called Trigger.
func (d *Data) ExecutionOutputs() []string {
	var names []string
	for _, s := range d.Outputs {
		if s.IsExecution {
			names = append(names, s.Name)
		}
	}
	return names
}

// IsGroup reports whether this node carries a nested subgraph.
func (d *Data) IsGroup() bool { return d.Group != nil }
