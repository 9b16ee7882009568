package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflowgo/nodeflow/builtin"
	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/persist"
	"github.com/nodeflowgo/nodeflow/registry"
)

func writeSampleGraph(t *testing.T) string {
	t.Helper()
	reg := registry.New()
	builtin.Register(reg)

	startDef, ok := reg.Get("control.start")
	require.True(t, ok)
	start := startDef.Factory()
	start.ID = "start"

	data, err := persist.Export(
		[]*node.Data{start},
		nil,
		map[string]any{},
		nil,
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunCmdExecutesPersistedGraph(t *testing.T) {
	path := writeSampleGraph(t)
	err := runCmd([]string{path})
	assert.NoError(t, err)
}

func TestRunCmdRejectsUnknownStreamMode(t *testing.T) {
	path := writeSampleGraph(t)
	err := runCmd([]string{"--stream-mode", "bogus", path})
	assert.Error(t, err)
}

func TestRunCmdMissingPathIsAnError(t *testing.T) {
	err := runCmd(nil)
	assert.Error(t, err)
}

func TestRunCmdBackgroundModeCompletesJob(t *testing.T) {
	path := writeSampleGraph(t)
	err := runCmd([]string{"--background", path})
	assert.NoError(t, err)
}

func TestCatalogCmdListsBuiltins(t *testing.T) {
	err := catalogCmd(nil)
	assert.NoError(t, err)
}

func TestVizCmdRendersMermaid(t *testing.T) {
	path := writeSampleGraph(t)
	err := vizCmd([]string{path})
	assert.NoError(t, err)
}

func TestVizCmdRejectsUnknownFormat(t *testing.T) {
	path := writeSampleGraph(t)
	err := vizCmd([]string{"--format", "bogus", path})
	assert.Error(t, err)
}
