// Package nodeflow is a visual dataflow/control-flow node graph execution
// engine: a graph of nodes connected by execution (control-flow) edges and
// data edges, run with lazy data resolution, branching control flow, loop
// constructs, streaming outputs, nested scopes, parallelism, cancellation,
// and step-mode debugging.
//
// # Quick start
//
// Install the package:
//
//	go get github.com/nodeflowgo/nodeflow
//
// Build a registry, register the built-in control nodes, describe a graph
// and run it:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/nodeflowgo/nodeflow/builtin"
//		"github.com/nodeflowgo/nodeflow/engine"
//		"github.com/nodeflowgo/nodeflow/registry"
//		"github.com/nodeflowgo/nodeflow/runtime"
//	)
//
//	func main() {
//		reg := registry.New()
//		builtin.Register(reg)
//
//		nodes, connections := buildGraph(reg) // application-specific
//
//		store := runtime.NewStorage()
//		err := engine.New(reg).Execute(context.Background(), nodes, connections, store, engine.DefaultOptions())
//		if err != nil {
//			fmt.Println("run failed:", err)
//		}
//	}
//
// # Package layout
//
//   - socket    — typed boxed socket values (JSON wire format).
//   - node      — node/socket/connection/definition/group data model.
//   - registry  — definition registration, discovery, fluent builder.
//   - runtime   — layered runtime storage and the event bus.
//   - plan      — planner: indices, initiators, data-cycle detection.
//   - engine    — the execution engine (sequential, parallel, streaming,
//     cancellation, step-mode gate, group execution).
//   - builtin   — built-in control/loop/debug nodes.
//   - queue     — background job queue, worker, pluggable job stores.
//   - log       — leveled logging used throughout the engine.
//   - viz       — read-only graph export (Mermaid/DOT) for editors/CLIs.
//   - persist   — versioned graph persistence envelope (Import/Export).
//   - plugin/*  — example plugin-contributed nodes (LLM, MCP, web fetch).
//   - cmd/flowctl — a small CLI embedding surface.
//
// # Non-goals
//
// This module does not render a GUI, does not define a full persistence
// migration framework, and does not implement remote RPC. The UI/editor,
// graph persistence format, and plugin marketplace are external
// collaborators that consume this engine through narrow interfaces.
package nodeflow // import "github.com/nodeflowgo/nodeflow"
