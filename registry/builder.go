package registry

import (
	"github.com/google/uuid"
	"github.com/nodeflowgo/nodeflow/node"
)

// Builder provides fluent construction of a node.Definition, mirroring the
// teacher's AddNode/AddEdge-style incremental graph construction but for a
// single node's shape rather than a whole graph.
type Builder struct {
	id          string
	name        string
	category    string
	description string

	callable  bool
	initiator bool

	inputs      []node.Socket
	inputSeen   map[string]bool
	outputs     []node.Socket
	outputSeen  map[string]bool

	triplets []node.StreamTriplet
	executor node.Executor
}

// NewBuilder starts building a definition. id defaults to name if empty
// when Build is called.
func NewBuilder(name, category, description string) *Builder {
	return &Builder{
		name:        name,
		category:    category,
		description: description,
		inputSeen:   make(map[string]bool),
		outputSeen:  make(map[string]bool),
	}
}

// ID overrides the generated definition id (defaults to name).
func (b *Builder) ID(id string) *Builder {
	b.id = id
	return b
}

// Callable marks the definition as accepting an execution input: an
// "Enter" execution input and an "Exit" execution output are injected.
func (b *Builder) Callable() *Builder {
	b.callable = true
	b.addInput(node.ExecSocket("Enter", true))
	b.addOutput(node.ExecSocket("Exit", false))
	return b
}

// ExecutionInitiator marks the definition as the root of an execution
// chain: only an "Exit" execution output is injected, never an execution
// input.
func (b *Builder) ExecutionInitiator() *Builder {
	b.initiator = true
	b.addOutput(node.ExecSocket("Exit", false))
	return b
}

// Input adds a data or execution input socket. A duplicate name is
// dropped; the first registration wins.
func (b *Builder) Input(s node.Socket) *Builder {
	s.IsInput = true
	b.addInput(s)
	return b
}

// Output adds a data or execution output socket. A duplicate name is
// dropped; the first registration wins.
func (b *Builder) Output(s node.Socket) *Builder {
	s.IsInput = false
	b.addOutput(s)
	return b
}

// StreamOutput adds one data output (itemSocket) plus one or two execution
// outputs (onItemExec, and completedExec if non-empty), and records the
// triplet so the engine can distinguish "signalled once per item" from
// "signalled once at the end".
func (b *Builder) StreamOutput(itemSocket, itemTypeName, onItemExec, completedExec string) *Builder {
	b.addOutput(node.DataSocket(itemSocket, itemTypeName, false))
	b.addOutput(node.ExecSocket(onItemExec, false))

	t := node.StreamTriplet{ItemSocket: itemSocket, OnItemExec: onItemExec}
	if completedExec != "" {
		b.addOutput(node.ExecSocket(completedExec, false))
		t.CompletedExec = completedExec
		t.HasCompletedExec = true
	}
	b.triplets = append(b.triplets, t)
	return b
}

// Executor sets the inline node body.
func (b *Builder) Executor(fn node.Executor) *Builder {
	b.executor = fn
	return b
}

func (b *Builder) addInput(s node.Socket) {
	if b.inputSeen[s.Name] {
		return
	}
	b.inputSeen[s.Name] = true
	b.inputs = append(b.inputs, s)
}

func (b *Builder) addOutput(s node.Socket) {
	if b.outputSeen[s.Name] {
		return
	}
	b.outputSeen[s.Name] = true
	b.outputs = append(b.outputs, s)
}

// Build produces the finished definition.
func (b *Builder) Build() *node.Definition {
	id := b.id
	if id == "" {
		id = b.name
	}
	return &node.Definition{
		ID:                 id,
		Name:               b.name,
		Category:           b.category,
		Description:        b.description,
		InputsTemplate:     b.inputs,
		OutputsTemplate:    b.outputs,
		Callable:           b.callable,
		ExecutionInitiator: b.initiator,
		StreamTriplets:     b.triplets,
		Executor:           b.executor,
	}
}

// NewInstanceID generates a fresh unique node instance id; exposed so
// builtin/plugin node factories that do not use node.Definition.Factory
// directly (e.g. test helpers) can still produce ids consistent with the
// rest of the system.
func NewInstanceID() string { return uuid.NewString() }
