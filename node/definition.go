package node

import "github.com/google/uuid"

// Definition describes a node's shape (sockets) and behaviour (executor),
// independent of any particular instance in a graph.
type Definition struct {
	ID          string
	Name        string
	Category    string
	Description string

	// InputsTemplate/OutputsTemplate are copied into each Data produced by
	// Factory.
	InputsTemplate  []Socket
	OutputsTemplate []Socket

	// Callable marks that instances accept an execution input.
	Callable bool

	// ExecutionInitiator marks that instances begin an execution chain
	// (no execution input sockets).
	ExecutionInitiator bool

	// StreamTriplets records this definition's producer stream sockets, if
	// any, so the engine knows which execution outputs are item/completion
	// signals rather than ordinary trigger targets.
	StreamTriplets []StreamTriplet

	// Executor is the inline node body. Built-in and plugin nodes almost
	// always set this; it is optional only for definitions whose instances
	// are Groups (the engine runs the nested graph instead).
	Executor Executor
}

// Factory produces a fresh Data instance with a new unique id, copying this
// definition's socket templates.
func (d *Definition) Factory() *Data {
	return &Data{
		ID:                  uuid.NewString(),
		Name:                d.Name,
		DefinitionID:        d.ID,
		Callable:            d.Callable,
		ExecutionInitiator:  d.ExecutionInitiator,
		Inputs:              append([]Socket(nil), d.InputsTemplate...),
		Outputs:             append([]Socket(nil), d.OutputsTemplate...),
	}
}

// StreamTripletFor returns the triplet whose item socket matches itemSocket, if any.
func (d *Definition) StreamTripletFor(itemSocket string) (StreamTriplet, bool) {
	for _, t := range d.StreamTriplets {
		if t.ItemSocket == itemSocket {
			return t, true
		}
	}
	return StreamTriplet{}, false
}
