// Package builtin registers the standard control-flow node definitions
// every graph is assembled from: Start, Branch, the loop family (For,
// ForEach, While, DoWhile, RepeatUntil, ForLoopStep, ParallelForEach),
// Delay, Marker, and Consume. Loop nodes drive their nested node.Data.Group
// body via engine.BodyRunner, one RunBody call per iteration, rather than
// being re-invoked by the engine itself.
package builtin

import "github.com/nodeflowgo/nodeflow/registry"

// Category is the registry category every definition in this package is
// registered under.
const Category = "control"

// Register adds every built-in control node definition to reg. Safe to call
// more than once, or alongside other Register calls on the same registry:
// Registry.Register keeps the first registration of a given id.
func Register(reg *registry.Registry) {
	reg.Register(startDef())
	reg.Register(branchDef())
	reg.Register(forDef())
	reg.Register(forEachDef())
	reg.Register(whileDef())
	reg.Register(doWhileDef())
	reg.Register(repeatUntilDef())
	reg.Register(forLoopStepDef())
	reg.Register(parallelForEachDef())
	reg.Register(delayDef())
	reg.Register(markerDef())
	reg.Register(consumeDef())
}
