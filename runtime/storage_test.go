package runtime_test

import (
	"testing"

	"github.com/nodeflowgo/nodeflow/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootGetSetSocketValue(t *testing.T) {
	s := runtime.NewStorage()
	key := runtime.Key{NodeID: "add", Socket: "Result"}

	_, ok := s.GetSocketValue(key)
	assert.False(t, ok)

	s.SetSocketValue(key, 10)
	v, ok := s.GetSocketValue(key)
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestExecutedSetIsPerStorage(t *testing.T) {
	s := runtime.NewStorage()
	assert.False(t, s.IsNodeExecuted("const"))
	s.MarkNodeExecuted("const")
	assert.True(t, s.IsNodeExecuted("const"))
}

func TestLayeredWritesNeverMutateParent(t *testing.T) {
	parent := runtime.NewStorage()
	key := runtime.Key{NodeID: "n", Socket: "out"}
	parent.SetSocketValue(key, "parent-value")

	child := parent.CreateChild("iteration-0")
	child.SetSocketValue(key, "child-value")

	parentVal, _ := parent.GetSocketValue(key)
	assert.Equal(t, "parent-value", parentVal, "writes to a child must never mutate the parent")

	childVal, _ := child.GetSocketValue(key)
	assert.Equal(t, "child-value", childVal)
}

func TestLayeredReadThroughForUnsetKeys(t *testing.T) {
	parent := runtime.NewStorage()
	key := runtime.Key{NodeID: "n", Socket: "out"}
	parent.SetSocketValue(key, "from-parent")

	child := parent.CreateChild("nested")
	v, ok := child.GetSocketValue(key)
	require.True(t, ok)
	assert.Equal(t, "from-parent", v)
}

func TestLayeredExecutedSetIsStrictlyLocal(t *testing.T) {
	parent := runtime.NewStorage()
	parent.MarkNodeExecuted("marker")

	child := parent.CreateChild("iteration-1")
	assert.False(t, child.IsNodeExecuted("marker"), "a child scope must re-execute nodes the parent already ran")

	child.MarkNodeExecuted("marker")
	assert.True(t, child.IsNodeExecuted("marker"))
	assert.True(t, parent.IsNodeExecuted("marker"))
}

func TestLayeredVariablesReadThroughWriteLocal(t *testing.T) {
	parent := runtime.NewStorage()
	parent.SetVariable("counter", 0)

	child := parent.CreateChild("iteration-0")
	v, ok := child.GetVariable("counter")
	require.True(t, ok)
	assert.Equal(t, 0, v)

	child.SetVariable("counter", 1)
	childVal, _ := child.GetVariable("counter")
	assert.Equal(t, 1, childVal)

	parentVal, _ := parent.GetVariable("counter")
	assert.Equal(t, 0, parentVal, "a child's variable write must not leak to the parent")
}

func TestNestedChildrenChainReadThrough(t *testing.T) {
	root := runtime.NewStorage()
	key := runtime.Key{NodeID: "n", Socket: "out"}
	root.SetSocketValue(key, "root-value")

	l1 := root.CreateChild("l1")
	l2 := l1.CreateChild("l2")

	v, ok := l2.GetSocketValue(key)
	require.True(t, ok)
	assert.Equal(t, "root-value", v)
}

func TestEventBusSharedAcrossLayers(t *testing.T) {
	root := runtime.NewStorage()
	child := root.CreateChild("l1")
	assert.Same(t, root.EventBus(), child.EventBus())
}

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := runtime.NewEventBus()
	var received []runtime.Event
	sub := bus.Subscribe(func(ev runtime.Event) {
		received = append(received, ev)
	})
	defer sub.Unsubscribe()

	bus.Publish(runtime.Event{Kind: runtime.NodeStarted, NodeID: "a"})
	bus.Publish(runtime.Event{Kind: runtime.NodeCompleted, NodeID: "a"})

	require.Len(t, received, 2)
	assert.Equal(t, runtime.NodeStarted, received[0].Kind)
	assert.Equal(t, runtime.NodeCompleted, received[1].Kind)
}

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := runtime.NewEventBus()
	count := 0
	sub := bus.Subscribe(func(ev runtime.Event) { count++ })
	bus.Publish(runtime.Event{Kind: runtime.Feedback})
	sub.Unsubscribe()
	bus.Publish(runtime.Event{Kind: runtime.Feedback})
	assert.Equal(t, 1, count)
}

func TestEventBusHandlerPanicDoesNotAffectOthers(t *testing.T) {
	bus := runtime.NewEventBus()
	called := false
	bus.Subscribe(func(ev runtime.Event) { panic("boom") })
	bus.Subscribe(func(ev runtime.Event) { called = true })

	bus.Publish(runtime.Event{Kind: runtime.Feedback})
	assert.True(t, called)
}

func TestGenerationStack(t *testing.T) {
	s := runtime.NewStorage()
	assert.Equal(t, "", s.CurrentGeneration())
	s.PushGeneration("outer")
	s.PushGeneration("inner")
	assert.Equal(t, "inner", s.CurrentGeneration())
	s.PopGeneration()
	assert.Equal(t, "outer", s.CurrentGeneration())
}
