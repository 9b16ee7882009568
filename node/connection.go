package node

import "fmt"

// Connection is a directed edge between two sockets. Both endpoints must
// agree on IsExecution: a data connection links two data sockets, an
// execution connection links two execution sockets.
type Connection struct {
	OutputNode   string
	OutputSocket string
	InputNode    string
	InputSocket  string
	IsExecution  bool
}

// ValidationError describes a structural problem with a graph's nodes or
// connections, discovered before any execution begins.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "node: " + e.Reason }

// ValidateConnections checks the structural invariants connections must
// satisfy:
//   - a data input socket has at most one inbound data connection
//   - a connection's endpoints match its IsExecution flag
//   - node ids referenced by a connection exist
//
// It does not check for data cycles; that is the planner's job.
func ValidateConnections(nodes map[string]*Data, connections []Connection) error {
	inboundData := make(map[string]bool) // "nodeID\x00socketName" -> seen

	for _, c := range connections {
		out, ok := nodes[c.OutputNode]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("connection references unknown output node %q", c.OutputNode)}
		}
		in, ok := nodes[c.InputNode]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("connection references unknown input node %q", c.InputNode)}
		}

		outSocket, ok := out.FindOutput(c.OutputSocket)
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("node %q has no output socket %q", c.OutputNode, c.OutputSocket)}
		}
		inSocket, ok := in.FindInput(c.InputSocket)
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("node %q has no input socket %q", c.InputNode, c.InputSocket)}
		}

		if outSocket.IsExecution != c.IsExecution || inSocket.IsExecution != c.IsExecution {
			return &ValidationError{Reason: fmt.Sprintf("connection %s.%s -> %s.%s disagrees with endpoint execution flags", c.OutputNode, c.OutputSocket, c.InputNode, c.InputSocket)}
		}

		if !c.IsExecution {
			key := c.InputNode + "\x00" + c.InputSocket
			if inboundData[key] {
				return &ValidationError{Reason: fmt.Sprintf("data input %s.%s has more than one inbound connection", c.InputNode, c.InputSocket)}
			}
			inboundData[key] = true
		}
	}
	return nil
}
