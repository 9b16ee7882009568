package builtin

import (
	"fmt"
	"sync"

	"github.com/nodeflowgo/nodeflow/engine"
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/socket"
)

// bodyRunnerOf type-asserts ctx to engine.BodyRunner. Every loop control
// node's Group body is run this way: one RunBody call per iteration, each
// in a fresh child storage layer (see engine.BodyRunner's doc comment for
// why the engine never re-invokes the loop node's own Executor).
func bodyRunnerOf(ctx node.ExecContext) (engine.BodyRunner, error) {
	br, ok := ctx.(engine.BodyRunner)
	if !ok {
		return nil, fmt.Errorf("builtin: node %q has no loop body wired (missing node.Data.Group)", ctx.NodeID())
	}
	return br, nil
}

// forDef iterates Index from Start to End inclusive, step 1.
func forDef() *node.Definition {
	return registry.NewBuilder("For", Category, "Runs its body once for each index from Start to End inclusive").
		ID("control.for").
		Callable().
		Input(node.DataSocketWithDefault("Start", "int", socket.MustFromValue(0))).
		Input(node.DataSocketWithDefault("End", "int", socket.MustFromValue(0))).
		Executor(func(ctx node.ExecContext) error {
			br, err := bodyRunnerOf(ctx)
			if err != nil {
				return err
			}
			start, err := intInput(ctx, "Start")
			if err != nil {
				return err
			}
			end, err := intInput(ctx, "End")
			if err != nil {
				return err
			}
			for i := start; i <= end; i++ {
				if err := br.RunBody(map[string]socket.Value{"Index": socket.MustFromValue(i)}); err != nil {
					return err
				}
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// forLoopStepDef iterates Index from Start to End inclusive by Step, which
// may be negative to count down. A Step of 0 is treated as 1.
func forLoopStepDef() *node.Definition {
	return registry.NewBuilder("For Loop Step", Category, "Runs its body once for each index from Start to End inclusive, advancing by Step").
		ID("control.for_loop_step").
		Callable().
		Input(node.DataSocketWithDefault("Start", "int", socket.MustFromValue(0))).
		Input(node.DataSocketWithDefault("End", "int", socket.MustFromValue(0))).
		Input(node.DataSocketWithDefault("Step", "int", socket.MustFromValue(1))).
		Executor(func(ctx node.ExecContext) error {
			br, err := bodyRunnerOf(ctx)
			if err != nil {
				return err
			}
			start, err := intInput(ctx, "Start")
			if err != nil {
				return err
			}
			end, err := intInput(ctx, "End")
			if err != nil {
				return err
			}
			step, err := intInput(ctx, "Step")
			if err != nil {
				return err
			}
			if step == 0 {
				step = 1
			}
			if step > 0 {
				for i := start; i <= end; i += step {
					if err := br.RunBody(map[string]socket.Value{"Index": socket.MustFromValue(i)}); err != nil {
						return err
					}
				}
			} else {
				for i := start; i >= end; i += step {
					if err := br.RunBody(map[string]socket.Value{"Index": socket.MustFromValue(i)}); err != nil {
						return err
					}
				}
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// forEachDef iterates once per element of Items, seeding Item and Index.
func forEachDef() *node.Definition {
	return registry.NewBuilder("ForEach", Category, "Runs its body once for each element of Items").
		ID("control.foreach").
		Callable().
		Input(node.DataSocket("Items", "array", true)).
		Executor(func(ctx node.ExecContext) error {
			br, err := bodyRunnerOf(ctx)
			if err != nil {
				return err
			}
			items, err := arrayInput(ctx, "Items")
			if err != nil {
				return err
			}
			for i, item := range items {
				v, err := socket.FromValue(item)
				if err != nil {
					return err
				}
				seed := map[string]socket.Value{
					"Item":  v,
					"Index": socket.MustFromValue(i),
				}
				if err := br.RunBody(seed); err != nil {
					return err
				}
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// whileDef is a pre-condition loop: Cond is evaluated before every
// iteration (re-evaluated each time, never memoised from a prior pass) and
// the body runs only while it holds.
func whileDef() *node.Definition {
	return registry.NewBuilder("While", Category, "Runs its body while Cond holds, checked before each iteration").
		ID("control.while").
		Callable().
		Input(node.DataSocket("Cond", "bool", true)).
		Executor(func(ctx node.ExecContext) error {
			br, err := bodyRunnerOf(ctx)
			if err != nil {
				return err
			}
			for {
				cond, err := refreshBoolInput(ctx, "Cond")
				if err != nil {
					return err
				}
				if !cond {
					break
				}
				if err := br.RunBody(nil); err != nil {
					return err
				}
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// doWhileDef is a post-condition loop: the body always runs at least once,
// then Cond is re-evaluated to decide whether to run it again.
func doWhileDef() *node.Definition {
	return registry.NewBuilder("Do While", Category, "Runs its body, then repeats while Cond holds").
		ID("control.do_while").
		Callable().
		Input(node.DataSocket("Cond", "bool", true)).
		Executor(func(ctx node.ExecContext) error {
			br, err := bodyRunnerOf(ctx)
			if err != nil {
				return err
			}
			for {
				if err := br.RunBody(nil); err != nil {
					return err
				}
				cond, err := refreshBoolInput(ctx, "Cond")
				if err != nil {
					return err
				}
				if !cond {
					break
				}
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// repeatUntilDef is a post-condition loop that stops once Cond becomes
// true: the inverse of Do While's continuation test.
func repeatUntilDef() *node.Definition {
	return registry.NewBuilder("Repeat Until", Category, "Runs its body, then repeats until Cond holds").
		ID("control.repeat_until").
		Callable().
		Input(node.DataSocket("Cond", "bool", true)).
		Executor(func(ctx node.ExecContext) error {
			br, err := bodyRunnerOf(ctx)
			if err != nil {
				return err
			}
			for {
				if err := br.RunBody(nil); err != nil {
					return err
				}
				cond, err := refreshBoolInput(ctx, "Cond")
				if err != nil {
					return err
				}
				if cond {
					break
				}
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// parallelForEachDef spawns up to MaxParallelism concurrent iterations of
// its body over Items (clamped to >= 1 for a zero or negative value), each
// in its own child storage layer via RunBody. A thread-safe aggregator a
// graph author wants to collect into is expected to be pre-seeded as a
// variable (via ExecContext.SetVariable on an outer node) before this node
// runs: GetVariable's read-through composition makes the same underlying
// reference visible to every iteration's child scope.
func parallelForEachDef() *node.Definition {
	return registry.NewBuilder("Parallel ForEach", Category, "Runs its body concurrently for each element of Items").
		ID("control.parallel_foreach").
		Callable().
		Input(node.DataSocket("Items", "array", true)).
		Input(node.DataSocketWithDefault("MaxParallelism", "int", socket.MustFromValue(0))).
		Executor(func(ctx node.ExecContext) error {
			br, err := bodyRunnerOf(ctx)
			if err != nil {
				return err
			}
			items, err := arrayInput(ctx, "Items")
			if err != nil {
				return err
			}
			maxParallel, err := intInput(ctx, "MaxParallelism")
			if err != nil {
				return err
			}
			if maxParallel <= 0 {
				maxParallel = 1
			}

			sem := make(chan struct{}, maxParallel)
			var wg sync.WaitGroup
			var errOnce sync.Once
			var firstErr error

			for i, item := range items {
				v, err := socket.FromValue(item)
				if err != nil {
					return err
				}
				i, v := i, v
				wg.Add(1)
				sem <- struct{}{}
				go func() {
					defer wg.Done()
					defer func() { <-sem }()
					seed := map[string]socket.Value{"Item": v, "Index": socket.MustFromValue(i)}
					if err := br.RunBody(seed); err != nil {
						errOnce.Do(func() { firstErr = err })
					}
				}()
			}
			wg.Wait()
			if firstErr != nil {
				return firstErr
			}
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

func intInput(ctx node.ExecContext, name string) (int, error) {
	v, err := ctx.GetInput(name)
	if err != nil {
		return 0, err
	}
	return socket.To[int](v)
}

func arrayInput(ctx node.ExecContext, name string) ([]any, error) {
	v, err := ctx.GetInput(name)
	if err != nil {
		return nil, err
	}
	return socket.To[[]any](v)
}

// refreshBoolInput re-pulls a bool input's producer on every call (rather
// than returning the value memoised from a previous pull in this node's
// scope), so a While/Do-While/Repeat-Until condition reflects state the
// loop body just mutated.
func refreshBoolInput(ctx node.ExecContext, name string) (bool, error) {
	refresher, ok := ctx.(engine.ConditionRefresher)
	if !ok {
		return false, fmt.Errorf("builtin: node %q cannot refresh condition input %q", ctx.NodeID(), name)
	}
	v, err := refresher.RefreshInput(name)
	if err != nil {
		return false, err
	}
	return socket.To[bool](v)
}
