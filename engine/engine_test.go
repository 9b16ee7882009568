package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nodeflowgo/nodeflow/engine"
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/runtime"
	"github.com/nodeflowgo/nodeflow/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constDef(reg *registry.Registry, id string, value int) {
	reg.Register(registry.NewBuilder("Const", "test", "").ID(id).
		ExecutionInitiator().
		Output(node.DataSocket("Out", "int", false)).
		Executor(func(ctx node.ExecContext) error {
			ctx.SetOutput("Out", socket.MustFromValue(value))
			ctx.Trigger("Exit")
			return nil
		}).Build())
}

func addDef(reg *registry.Registry) {
	reg.Register(registry.NewBuilder("Add", "test", "").ID("test.add").
		Callable().
		Input(node.DataSocket("A", "int", true)).
		Input(node.DataSocket("B", "int", true)).
		Output(node.DataSocket("Sum", "int", false)).
		Executor(func(ctx node.ExecContext) error {
			a, err := ctx.GetInput("A")
			if err != nil {
				return err
			}
			b, err := ctx.GetInput("B")
			if err != nil {
				return err
			}
			av, _ := socket.To[int](a)
			bv, _ := socket.To[int](b)
			ctx.SetOutput("Sum", socket.MustFromValue(av+bv))
			ctx.Trigger("Exit")
			return nil
		}).Build())
}

func branchDef(reg *registry.Registry) {
	reg.Register(registry.NewBuilder("Branch", "test", "").ID("test.branch").
		Callable().
		Input(node.DataSocket("Cond", "bool", true)).
		Output(node.ExecSocket("True", false)).
		Output(node.ExecSocket("False", false)).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("Cond")
			if err != nil {
				return err
			}
			cond, _ := socket.To[bool](v)
			if cond {
				ctx.Trigger("True")
			} else {
				ctx.Trigger("False")
			}
			return nil
		}).Build())
}

// markerDef registers a node that appends its node id to a shared,
// mutex-protected log each time it runs.
func markerDef(reg *registry.Registry, id string, log *[]string, mu *sync.Mutex) {
	reg.Register(registry.NewBuilder("Marker", "test", "").ID(id).
		Callable().
		Executor(func(ctx node.ExecContext) error {
			mu.Lock()
			*log = append(*log, ctx.NodeID())
			mu.Unlock()
			ctx.Trigger("Exit")
			return nil
		}).Build())
}

func streamDef(reg *registry.Registry, items []int) {
	reg.Register(registry.NewBuilder("Range", "test", "").ID("test.range").
		ExecutionInitiator().
		StreamOutput("Item", "int", "OnItem", "Completed").
		Executor(func(ctx node.ExecContext) error {
			for _, v := range items {
				if err := ctx.Emit("Item", socket.MustFromValue(v)); err != nil {
					return err
				}
			}
			return nil
		}).Build())
}

func TestExecuteDataPipeline(t *testing.T) {
	reg := registry.New()
	constDef(reg, "test.const", 4)
	addDef(reg)
	e := engine.New(reg)

	constDefObj, _ := reg.Get("test.const")
	addDefObj, _ := reg.Get("test.add")

	c1 := constDefObj.Factory()
	c1.ID = "c1"
	c2 := constDefObj.Factory()
	c2.ID = "c2"
	add := addDefObj.Factory()
	add.ID = "add"
	add.ExecutionInitiator = true

	conns := []node.Connection{
		{OutputNode: "c1", OutputSocket: "Out", InputNode: "add", InputSocket: "A"},
		{OutputNode: "c2", OutputSocket: "Out", InputNode: "add", InputSocket: "B"},
	}

	storage := runtime.NewStorage()
	err := e.Execute(context.Background(), []*node.Data{c1, c2, add}, conns, storage, engine.DefaultOptions())
	require.NoError(t, err)

	v, ok := storage.GetSocketValue(runtime.Key{NodeID: "add", Socket: "Sum"})
	require.True(t, ok)
	sum, _ := socket.To[int](v.(socket.Value))
	assert.Equal(t, 8, sum)
}

func TestExecuteBranchFollowsSignalledOutputOnly(t *testing.T) {
	reg := registry.New()
	branchDef(reg)
	var log []string
	var mu sync.Mutex
	markerDef(reg, "onTrue", &log, &mu)
	markerDef(reg, "onFalse", &log, &mu)

	bdef, _ := reg.Get("test.branch")
	b := bdef.Factory()
	b.ID = "b"
	b.ExecutionInitiator = true // drive it directly for this test

	trueDef, _ := reg.Get("onTrue")
	falseDef, _ := reg.Get("onFalse")
	tNode := trueDef.Factory()
	tNode.ID = "t"
	fNode := falseDef.Factory()
	fNode.ID = "f"

	// Seed Cond via a const producer so it's a real data connection.
	constDef(reg, "test.condtrue", 1)
	condDef, _ := reg.Get("test.condtrue")
	cond := condDef.Factory()
	cond.ID = "cond"
	cond.Outputs[0] = node.DataSocket("Out", "bool", false)
	cond.ExecutionInitiator = false // referenced only as a data producer; its value is pre-seeded below

	conns := []node.Connection{
		{OutputNode: "cond", OutputSocket: "Out", InputNode: "b", InputSocket: "Cond"},
		{OutputNode: "b", OutputSocket: "True", InputNode: "t", InputSocket: "Enter", IsExecution: true},
		{OutputNode: "b", OutputSocket: "False", InputNode: "f", InputSocket: "Enter", IsExecution: true},
	}

	storage := runtime.NewStorage()
	storage.SetSocketValue(runtime.Key{NodeID: "cond", Socket: "Out"}, socket.MustFromValue(true))
	storage.MarkNodeExecuted("cond")

	err := engine.New(reg).Execute(context.Background(), []*node.Data{b, tNode, fNode, cond}, conns, storage, engine.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"t"}, log)
}

func TestExecuteParallelIndependentInitiators(t *testing.T) {
	var log []string
	var mu sync.Mutex
	reg := registry.New()

	for _, id := range []string{"m1", "m2", "m3"} {
		reg.Register(registry.NewBuilder("Marker", "test", "").ID(id).
			ExecutionInitiator().
			Executor(func(ctx node.ExecContext) error {
				mu.Lock()
				log = append(log, ctx.NodeID())
				mu.Unlock()
				ctx.Trigger("Exit")
				return nil
			}).Build())
	}

	var nodes []*node.Data
	for _, id := range []string{"m1", "m2", "m3"} {
		def, _ := reg.Get(id)
		n := def.Factory()
		n.ID = id
		nodes = append(nodes, n)
	}

	opts := engine.DefaultOptions()
	opts.Mode = engine.Parallel
	opts.MaxParallelism = 3

	storage := runtime.NewStorage()
	err := engine.New(reg).Execute(context.Background(), nodes, nil, storage, opts)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"m1", "m2", "m3"}, log)
}

func TestExecuteStreamingSequentialAwaitsEachItem(t *testing.T) {
	reg := registry.New()
	streamDef(reg, []int{1, 2, 3})
	var log []int
	var mu sync.Mutex
	reg.Register(registry.NewBuilder("Collect", "test", "").ID("test.collect").
		Callable().
		Input(node.DataSocket("Item", "int", true)).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("Item")
			if err != nil {
				return err
			}
			n, _ := socket.To[int](v)
			mu.Lock()
			log = append(log, n)
			mu.Unlock()
			ctx.Trigger("Exit")
			return nil
		}).Build())

	rangeDef, _ := reg.Get("test.range")
	r := rangeDef.Factory()
	r.ID = "r"
	collectDef, _ := reg.Get("test.collect")
	c := collectDef.Factory()
	c.ID = "c"

	conns := []node.Connection{
		{OutputNode: "r", OutputSocket: "Item", InputNode: "c", InputSocket: "Item"},
		{OutputNode: "r", OutputSocket: "OnItem", InputNode: "c", InputSocket: "Enter", IsExecution: true},
	}

	storage := runtime.NewStorage()
	err := engine.New(reg).Execute(context.Background(), []*node.Data{r, c}, conns, storage, engine.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, log)
}

func TestExecuteCancellationStopsBeforeNextNode(t *testing.T) {
	reg := registry.New()
	var ran []string
	var mu sync.Mutex
	ctx, cancel := context.WithCancel(context.Background())

	reg.Register(registry.NewBuilder("CancelFirst", "test", "").ID("first").
		ExecutionInitiator().
		Executor(func(nc node.ExecContext) error {
			mu.Lock()
			ran = append(ran, "first")
			mu.Unlock()
			cancel()
			nc.Trigger("Exit")
			return nil
		}).Build())
	reg.Register(registry.NewBuilder("Second", "test", "").ID("second").
		Callable().
		Executor(func(nc node.ExecContext) error {
			mu.Lock()
			ran = append(ran, "second")
			mu.Unlock()
			nc.Trigger("Exit")
			return nil
		}).Build())

	firstDef, _ := reg.Get("first")
	f := firstDef.Factory()
	f.ID = "f"
	secondDef, _ := reg.Get("second")
	s := secondDef.Factory()
	s.ID = "s"

	conns := []node.Connection{
		{OutputNode: "f", OutputSocket: "Exit", InputNode: "s", InputSocket: "Enter", IsExecution: true},
	}

	storage := runtime.NewStorage()
	err := engine.New(reg).Execute(ctx, []*node.Data{f, s}, conns, storage, engine.DefaultOptions())
	require.Error(t, err)
	assert.True(t, engine.IsCancelled(err))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first"}, ran)
}

func TestExecuteGroupSeedsChildAndCopiesOutputsBack(t *testing.T) {
	reg := registry.New()
	// A group's body is run by invoking its own initiators, so the inner
	// node must be an ExecutionInitiator, not a Callable one.
	reg.Register(registry.NewBuilder("AddInit", "test", "").ID("test.addinit").
		ExecutionInitiator().
		Input(node.DataSocket("A", "int", true)).
		Input(node.DataSocket("B", "int", true)).
		Output(node.DataSocket("Sum", "int", false)).
		Executor(func(ctx node.ExecContext) error {
			a, err := ctx.GetInput("A")
			if err != nil {
				return err
			}
			b, err := ctx.GetInput("B")
			if err != nil {
				return err
			}
			av, _ := socket.To[int](a)
			bv, _ := socket.To[int](b)
			ctx.SetOutput("Sum", socket.MustFromValue(av+bv))
			ctx.Trigger("Exit")
			return nil
		}).Build())
	addDefObj, _ := reg.Get("test.addinit")

	inner := addDefObj.Factory()
	inner.ID = "inner-add"

	group := &node.Data{
		ID:       "grp",
		Callable: true,
		Inputs: []node.Socket{
			node.ExecSocket("Enter", true),
			node.DataSocket("X", "int", true),
			node.DataSocket("Y", "int", true),
		},
		Outputs: []node.Socket{
			node.ExecSocket("Exit", false),
			node.DataSocket("Result", "int", false),
		},
		Group: &node.GroupData{
			Nodes: map[string]*node.Data{"inner-add": inner},
			InputMappings: map[string]node.Endpoint{
				"X": {NodeID: "inner-add", Socket: "A"},
				"Y": {NodeID: "inner-add", Socket: "B"},
			},
			OutputMappings: map[string]node.Endpoint{
				"Result": {NodeID: "inner-add", Socket: "Sum"},
			},
		},
	}

	storage := runtime.NewStorage()
	storage.SetSocketValue(runtime.Key{NodeID: "grp", Socket: "X"}, socket.MustFromValue(3))
	storage.SetSocketValue(runtime.Key{NodeID: "grp", Socket: "Y"}, socket.MustFromValue(5))

	err := engine.New(reg).ExecuteGroup(context.Background(), group, storage, engine.DefaultOptions())
	require.NoError(t, err)

	v, ok := storage.GetSocketValue(runtime.Key{NodeID: "grp", Socket: "Result"})
	require.True(t, ok)
	result, _ := socket.To[int](v.(socket.Value))
	assert.Equal(t, 8, result)
}

func TestBodyRunnerRunsLoopBodyPerIteration(t *testing.T) {
	// Mirrors how a builtin loop node (control.ForLoopStep) drives its
	// Group body: one RunBody call per iteration, each in a fresh child
	// storage scope, via the node.ExecContext -> engine.BodyRunner
	// assertion built-in loop executors use.
	reg := registry.New()
	var indices []int
	var mu sync.Mutex

	reg.Register(registry.NewBuilder("RecordIndex", "test", "").ID("record").
		ExecutionInitiator().
		Input(node.DataSocket("Index", "int", true)).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("Index")
			if err != nil {
				return err
			}
			n, _ := socket.To[int](v)
			mu.Lock()
			indices = append(indices, n)
			mu.Unlock()
			ctx.Trigger("Exit")
			return nil
		}).Build())

	recordDef, _ := reg.Get("record")
	body := recordDef.Factory()
	body.ID = "body"

	reg.Register(registry.NewBuilder("ForLoopStep", "control", "").ID("control.forstep").
		ExecutionInitiator().
		Executor(func(ctx node.ExecContext) error {
			br, ok := ctx.(engine.BodyRunner)
			require.True(t, ok)
			for i := 0; i <= 2; i++ {
				if err := br.RunBody(map[string]socket.Value{"Index": socket.MustFromValue(i)}); err != nil {
					return err
				}
			}
			ctx.Trigger("Exit")
			return nil
		}).Build())

	loopDef, _ := reg.Get("control.forstep")
	loop := loopDef.Factory()
	loop.ID = "loop"
	loop.Group = &node.GroupData{
		Nodes: map[string]*node.Data{"body": body},
		InputMappings: map[string]node.Endpoint{
			"Index": {NodeID: "body", Socket: "Index"},
		},
	}

	storage := runtime.NewStorage()
	err := engine.New(reg).Execute(context.Background(), []*node.Data{loop}, nil, storage, engine.DefaultOptions())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestResolveInputUsesDeclaredDefaultWhenUnconnected(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.NewBuilder("Default5", "test", "").ID("default5").
		ExecutionInitiator().
		Input(node.DataSocketWithDefault("N", "int", socket.MustFromValue(5))).
		Output(node.DataSocket("Out", "int", false)).
		Executor(func(ctx node.ExecContext) error {
			v, err := ctx.GetInput("N")
			if err != nil {
				return err
			}
			ctx.SetOutput("Out", v)
			ctx.Trigger("Exit")
			return nil
		}).Build())

	def, _ := reg.Get("default5")
	n := def.Factory()
	n.ID = "n"

	storage := runtime.NewStorage()
	err := engine.New(reg).Execute(context.Background(), []*node.Data{n}, nil, storage, engine.DefaultOptions())
	require.NoError(t, err)

	v, ok := storage.GetSocketValue(runtime.Key{NodeID: "n", Socket: "Out"})
	require.True(t, ok)
	got, _ := socket.To[int](v.(socket.Value))
	assert.Equal(t, 5, got)
}

func TestDataCycleIsRejectedAtPlanTime(t *testing.T) {
	a := &node.Data{ID: "a", Inputs: []node.Socket{node.DataSocket("In", "int", true)}, Outputs: []node.Socket{node.DataSocket("Out", "int", false)}}
	b := &node.Data{ID: "b", Inputs: []node.Socket{node.DataSocket("In", "int", true)}, Outputs: []node.Socket{node.DataSocket("Out", "int", false)}}
	conns := []node.Connection{
		{OutputNode: "a", OutputSocket: "Out", InputNode: "b", InputSocket: "In"},
		{OutputNode: "b", OutputSocket: "Out", InputNode: "a", InputSocket: "In"},
	}

	storage := runtime.NewStorage()
	err := engine.New(registry.New()).Execute(context.Background(), []*node.Data{a, b}, conns, storage, engine.DefaultOptions())
	require.Error(t, err)
}

func TestGateBlocksUntilStepped(t *testing.T) {
	reg := registry.New()
	var log []string
	var mu sync.Mutex

	record := func(label string) node.Executor {
		return func(ctx node.ExecContext) error {
			mu.Lock()
			log = append(log, label)
			mu.Unlock()
			ctx.Trigger("Exit")
			return nil
		}
	}
	reg.Register(registry.NewBuilder("Step1", "test", "").ID("s1").ExecutionInitiator().Executor(record("s1")).Build())
	reg.Register(registry.NewBuilder("Step2", "test", "").ID("s2").Callable().Executor(record("s2")).Build())

	s1Def, _ := reg.Get("s1")
	s1 := s1Def.Factory()
	s1.ID = "s1"
	s2Def, _ := reg.Get("s2")
	s2 := s2Def.Factory()
	s2.ID = "s2"

	conns := []node.Connection{{OutputNode: "s1", OutputSocket: "Exit", InputNode: "s2", InputSocket: "Enter", IsExecution: true}}

	gate := engine.NewPausedGate()
	opts := engine.DefaultOptions()
	opts.Gate = gate

	storage := runtime.NewStorage()
	done := make(chan error, 1)
	go func() {
		done <- engine.New(reg).Execute(context.Background(), []*node.Data{s1, s2}, conns, storage, opts)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, log)
	mu.Unlock()

	gate.StepOnce()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"s1"}, log)
	mu.Unlock()

	gate.Resume()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"s1", "s2"}, log)
}
