package persist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/persist"
	"github.com/nodeflowgo/nodeflow/registry"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register(registry.NewBuilder("Start", "control", "").
		ID("control.start").
		ExecutionInitiator().
		Executor(func(ctx node.ExecContext) error { ctx.Trigger("Exit"); return nil }).
		Build())
	reg.Register(registry.NewBuilder("Print", "debug", "").
		ID("debug.print").
		Callable().
		Input(node.DataSocket("Value", "string", true)).
		Executor(func(ctx node.ExecContext) error { ctx.Trigger("Exit"); return nil }).
		Build())
	return reg
}

func TestExportImportRoundTrips(t *testing.T) {
	reg := testRegistry()
	start := mustFactory(t, reg, "control.start", "start")
	print := mustFactory(t, reg, "debug.print", "print")

	conns := []node.Connection{
		{OutputNode: "start", OutputSocket: "Exit", InputNode: "print", InputSocket: "Enter", IsExecution: true},
	}
	vars := []persist.Variable{{Name: "count", Value: []byte(`5`)}}

	data, err := persist.Export([]*node.Data{start, print}, conns, map[string]any{"zoom": 1.0}, vars)
	require.NoError(t, err)

	imported, warnings, err := persist.Import(data, reg)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, imported.Nodes, 2)
	assert.Len(t, imported.Connections, 1)
	assert.Len(t, imported.Variables, 1)
	assert.Equal(t, "count", imported.Variables[0].Name)
}

func TestImportDropsConnectionWithUnknownNodeAndWarns(t *testing.T) {
	reg := testRegistry()
	data := []byte(`{
		"version": 1,
		"nodes": [{"id": "start", "definition_id": "control.start"}],
		"connections": [
			{"output_node": "start", "output_socket": "Exit", "input_node": "ghost", "input_socket": "Enter", "is_execution": true}
		]
	}`)

	imported, warnings, err := persist.Import(data, reg)
	require.NoError(t, err)
	assert.Len(t, imported.Nodes, 1)
	assert.Empty(t, imported.Connections)
	assert.Len(t, warnings, 1)
}

func TestImportDropsNodeWithUnknownDefinitionAndWarns(t *testing.T) {
	reg := testRegistry()
	data := []byte(`{
		"version": 1,
		"nodes": [{"id": "mystery", "definition_id": "plugin.removed"}]
	}`)

	imported, warnings, err := persist.Import(data, reg)
	require.NoError(t, err)
	assert.Empty(t, imported.Nodes)
	assert.Len(t, warnings, 1)
}

func TestImportRejectsFutureVersion(t *testing.T) {
	reg := testRegistry()
	data := []byte(`{"version": 99, "nodes": [], "connections": []}`)

	_, _, err := persist.Import(data, reg)
	require.Error(t, err)
	var unsupported *persist.Unsupported
	assert.ErrorAs(t, err, &unsupported)
}

func mustFactory(t *testing.T, reg *registry.Registry, defID, id string) *node.Data {
	t.Helper()
	def, ok := reg.Get(defID)
	require.True(t, ok)
	n := def.Factory()
	n.ID = id
	return n
}
