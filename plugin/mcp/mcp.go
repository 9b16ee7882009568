// Package mcp is an example plugin-contributed node family: a single call
// against a Model Context Protocol server (list its tools, or invoke one),
// registered via registry.RegisterFromPlugin. It exists to demonstrate the
// shape of a plugin contribution, not as a maintained MCP integration
// surface.
package mcp

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/socket"
)

// Category is the registry category this plugin's definitions register
// under.
const Category = "plugin.mcp"

// Plugin names the client identity advertised to every server this plugin
// connects to.
type Plugin struct {
	ClientName    string
	ClientVersion string
}

// Definitions implements registry.Source.
func (p Plugin) Definitions() []*node.Definition {
	return []*node.Definition{callToolDef(p), listToolsDef(p)}
}

func (p Plugin) implementation() *mcp.Implementation {
	name := p.ClientName
	if name == "" {
		name = "nodeflow"
	}
	version := p.ClientVersion
	if version == "" {
		version = "0.1.0"
	}
	return &mcp.Implementation{Name: name, Version: version}
}

func (p Plugin) connect(ctx node.ExecContext, serverURL string) (*mcp.ClientSession, error) {
	client := mcp.NewClient(p.implementation(), nil)
	transport := &mcp.StreamableClientTransport{Endpoint: serverURL}
	session, err := client.Connect(ctx.Context(), transport, nil)
	if err != nil {
		return nil, fmt.Errorf("plugin/mcp: failed to connect to %s: %w", serverURL, err)
	}
	return session, nil
}

// callToolDef invokes a single named tool on a remote MCP server with a
// JSON-object argument payload, publishing its result content.
func callToolDef(p Plugin) *node.Definition {
	return registry.NewBuilder("MCP Call Tool", Category, "Calls a tool on a remote MCP server").
		ID("plugin.mcp.call_tool").
		Callable().
		Input(node.DataSocket("ServerURL", "string", true)).
		Input(node.DataSocket("ToolName", "string", true)).
		Input(node.DataSocketWithDefault("Arguments", "object", socket.MustFromValue(map[string]any{}))).
		Output(node.DataSocket("Result", "any", false)).
		Executor(func(ctx node.ExecContext) error {
			serverURL, err := inputString(ctx, "ServerURL")
			if err != nil {
				return err
			}
			toolName, err := inputString(ctx, "ToolName")
			if err != nil {
				return err
			}
			argsVal, err := ctx.GetInput("Arguments")
			if err != nil {
				return err
			}
			args, err := socket.To[map[string]any](argsVal)
			if err != nil {
				return err
			}

			session, err := p.connect(ctx, serverURL)
			if err != nil {
				return err
			}
			defer session.Close()

			res, err := session.CallTool(ctx.Context(), &mcp.CallToolParams{
				Name:      toolName,
				Arguments: args,
			})
			if err != nil {
				return fmt.Errorf("plugin/mcp: tool call %q failed: %w", toolName, err)
			}
			if res.IsError {
				return fmt.Errorf("plugin/mcp: tool %q reported an error result", toolName)
			}

			out, err := socket.FromValue(res.Content)
			if err != nil {
				return err
			}
			ctx.SetOutput("Result", out)
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// listToolsDef lists every tool a remote MCP server exposes, for catalog
// discovery ahead of a call_tool invocation.
func listToolsDef(p Plugin) *node.Definition {
	return registry.NewBuilder("MCP List Tools", Category, "Lists the tools a remote MCP server exposes").
		ID("plugin.mcp.list_tools").
		Callable().
		Input(node.DataSocket("ServerURL", "string", true)).
		Output(node.DataSocket("Tools", "array", false)).
		Executor(func(ctx node.ExecContext) error {
			serverURL, err := inputString(ctx, "ServerURL")
			if err != nil {
				return err
			}

			session, err := p.connect(ctx, serverURL)
			if err != nil {
				return err
			}
			defer session.Close()

			res, err := session.ListTools(ctx.Context(), &mcp.ListToolsParams{})
			if err != nil {
				return fmt.Errorf("plugin/mcp: failed to list tools from %s: %w", serverURL, err)
			}

			names := make([]string, 0, len(res.Tools))
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
			}

			out, err := socket.FromValue(names)
			if err != nil {
				return err
			}
			ctx.SetOutput("Tools", out)
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

func inputString(ctx node.ExecContext, name string) (string, error) {
	v, err := ctx.GetInput(name)
	if err != nil {
		return "", err
	}
	return socket.To[string](v)
}
