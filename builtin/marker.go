package builtin

import (
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/socket"
)

// markerDef is a no-op probe: it emits an informational feedback event
// carrying its label (or node id, if no label was given) and passes
// execution straight through. Useful as a loop body or branch target in
// tests and as a breakpoint-style marker while authoring a graph.
func markerDef() *node.Definition {
	return registry.NewBuilder("Marker", Category, "No-op breakpoint/probe node").
		ID("control.marker").
		Callable().
		Input(node.DataSocketWithDefault("Label", "string", socket.Null)).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("Label")
			if err != nil {
				return err
			}
			label, err := socket.To[string](v)
			if err != nil {
				return err
			}
			if label == "" {
				label = ctx.NodeID()
			}
			ctx.EmitFeedback(node.FeedbackInfo, label, "marker")
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}
