// Package node defines the immutable node/socket/connection data model:
// typed ports on a node, the edges between them, and the definitions nodes
// are instantiated from.
package node

import "github.com/nodeflowgo/nodeflow/socket"

// Socket is a named port on a node.
type Socket struct {
	// Name is unique within its side (inputs or outputs) of a node.
	Name string

	// TypeName is a fully qualified description of the value the socket
	// carries. Execution sockets use the reserved name "exec".
	TypeName string

	// IsInput distinguishes an input socket from an output socket.
	IsInput bool

	// IsExecution distinguishes a one-shot execution signal from a data
	// socket carrying a value.
	IsExecution bool

	// Default is the value returned when a data input has no inbound
	// connection. Unused for execution sockets.
	Default socket.Value
}

// ExecSocket is a convenience constructor for an execution socket.
func ExecSocket(name string, isInput bool) Socket {
	return Socket{Name: name, TypeName: "exec", IsInput: isInput, IsExecution: true}
}

// DataSocket is a convenience constructor for a data socket with no default.
func DataSocket(name, typeName string, isInput bool) Socket {
	return Socket{Name: name, TypeName: typeName, IsInput: isInput}
}

// DataSocketWithDefault is DataSocket with an explicit default value for an
// input socket.
func DataSocketWithDefault(name, typeName string, def socket.Value) Socket {
	return Socket{Name: name, TypeName: typeName, IsInput: true, Default: def}
}

// StreamTriplet groups a producer's item data output with its per-item and
// (optional) completion execution outputs.
type StreamTriplet struct {
	ItemSocket      string
	OnItemExec      string
	CompletedExec   string // empty if the producer never signals completion
	HasCompletedExec bool
}
