package builtin

import (
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
)

// consumeDef is a terminal sink: it pulls its one data input (lazily
// resolving the whole upstream data pipeline feeding it, with no execution
// wiring required) and records what it received for inspection. It is the
// typical initiator for a pure data pipeline such as Const -> Add -> Consume.
func consumeDef() *node.Definition {
	return registry.NewBuilder("Consume", Category, "Pulls and records a data pipeline's result").
		ID("control.consume").
		ExecutionInitiator().
		Input(node.DataSocket("Value", "any", true)).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("Value")
			if err != nil {
				return err
			}
			ctx.SetVariable("control.consume.last", v)
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}
