package builtin

import (
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/socket"
)

// branchDef signals True or False, never both, so only the live branch's
// downstream is ever scheduled.
func branchDef() *node.Definition {
	return registry.NewBuilder("Branch", Category, "Routes execution by a boolean condition").
		ID("control.branch").
		Callable().
		Input(node.DataSocket("Cond", "bool", true)).
		Output(node.ExecSocket("True", false)).
		Output(node.ExecSocket("False", false)).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("Cond")
			if err != nil {
				return err
			}
			cond, err := socket.To[bool](v)
			if err != nil {
				return err
			}
			if cond {
				ctx.Trigger("True")
			} else {
				ctx.Trigger("False")
			}
			return nil
		}).
		Build()
}
