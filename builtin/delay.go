package builtin

import (
	"time"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/socket"
)

// delayDef waits DurationMs milliseconds, or returns early if the run's
// context is cancelled first. A plain ctx.Err() return from a cancelled
// wait is reclassified by the engine as a Cancelled error, not a node
// failure, since the context was already done when the body returned it.
func delayDef() *node.Definition {
	return registry.NewBuilder("Delay", Category, "Waits a fixed duration before signalling Exit").
		ID("control.delay").
		Callable().
		Input(node.DataSocketWithDefault("DurationMs", "int", socket.MustFromValue(0))).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("DurationMs")
			if err != nil {
				return err
			}
			ms, err := socket.To[int](v)
			if err != nil {
				return err
			}
			timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Context().Done():
				return ctx.Context().Err()
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}
