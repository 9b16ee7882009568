package builtin

import (
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
)

// startDef is the trivial execution root: it carries no inputs and signals
// Exit immediately, for graphs that need an explicit entry point rather
// than relying on an arbitrary node being an initiator.
func startDef() *node.Definition {
	return registry.NewBuilder("Start", Category, "Begins an execution chain").
		ID("control.start").
		ExecutionInitiator().
		Executor(func(ctx node.ExecContext) error {
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}
