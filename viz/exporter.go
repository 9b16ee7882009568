// Package viz renders a node graph as Mermaid, DOT, or plain-terminal
// output for debugging and documentation, adapted from the teacher's
// StateGraph Exporter to this package's node.Data/node.Connection model.
package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nodeflowgo/nodeflow/node"
)

// Exporter renders a fixed node/connection set in one of several textual
// formats. It never mutates or executes the graph.
type Exporter struct {
	nodes       map[string]*node.Data
	order       []string
	connections []node.Connection
}

// NewExporter builds an Exporter over nodes and their connections.
func NewExporter(nodes []*node.Data, connections []node.Connection) *Exporter {
	e := &Exporter{
		nodes:       make(map[string]*node.Data, len(nodes)),
		connections: connections,
	}
	for _, n := range nodes {
		e.nodes[n.ID] = n
		e.order = append(e.order, n.ID)
	}
	sort.Strings(e.order)
	return e
}

// MermaidOptions configures DrawMermaidWithOptions.
type MermaidOptions struct {
	// Direction of the flowchart, e.g. "TD" (top-down) or "LR" (left-right).
	Direction string
}

// DrawMermaid renders a top-down Mermaid flowchart.
func (e *Exporter) DrawMermaid() string {
	return e.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions renders a Mermaid flowchart, styling execution
// edges (solid arrows) distinctly from data edges (dashed arrows).
func (e *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	for _, id := range e.order {
		n := e.nodes[id]
		label := n.Name
		if label == "" {
			label = n.DefinitionID
		}
		if n.ExecutionInitiator {
			fmt.Fprintf(&sb, "    %s((%q))\n", id, label)
			fmt.Fprintf(&sb, "    style %s fill:#90EE90\n", id)
		} else {
			fmt.Fprintf(&sb, "    %s[%q]\n", id, label)
		}
	}

	for _, c := range e.connections {
		if c.IsExecution {
			fmt.Fprintf(&sb, "    %s -->|%s| %s\n", c.OutputNode, c.OutputSocket, c.InputNode)
		} else {
			fmt.Fprintf(&sb, "    %s -.->|%s| %s\n", c.OutputNode, c.OutputSocket, c.InputNode)
		}
	}

	return sb.String()
}

// DrawDOT renders a Graphviz DOT digraph.
func (e *Exporter) DrawDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	for _, id := range e.order {
		n := e.nodes[id]
		label := n.Name
		if label == "" {
			label = n.DefinitionID
		}
		if n.ExecutionInitiator {
			fmt.Fprintf(&sb, "    %s [label=%q, shape=ellipse, style=filled, fillcolor=lightgreen];\n", id, label)
		} else {
			fmt.Fprintf(&sb, "    %s [label=%q];\n", id, label)
		}
	}

	for _, c := range e.connections {
		if c.IsExecution {
			fmt.Fprintf(&sb, "    %s -> %s [label=%q];\n", c.OutputNode, c.InputNode, c.OutputSocket)
		} else {
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed, label=%q];\n", c.OutputNode, c.InputNode, c.OutputSocket)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// DrawASCII renders an indented tree following execution edges from every
// ExecutionInitiator node, matching cycles rather than recursing forever.
func (e *Exporter) DrawASCII() string {
	var roots []string
	for _, id := range e.order {
		if e.nodes[id].ExecutionInitiator {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		return "No execution initiator set\n"
	}

	outgoing := make(map[string][]string)
	for _, c := range e.connections {
		if c.IsExecution {
			outgoing[c.OutputNode] = append(outgoing[c.OutputNode], c.InputNode)
		}
	}
	for k := range outgoing {
		sort.Strings(outgoing[k])
	}

	var sb strings.Builder
	sb.WriteString("Graph Execution Flow:\n")
	visited := make(map[string]bool)
	for i, root := range roots {
		e.drawASCIINode(root, "", i == len(roots)-1, outgoing, visited, &sb)
	}
	return sb.String()
}

func (e *Exporter) drawASCIINode(id, prefix string, isLast bool, outgoing map[string][]string, visited map[string]bool, sb *strings.Builder) {
	connector := "├──"
	nextPrefix := prefix + "│   "
	if isLast {
		connector = "└──"
		nextPrefix = prefix + "    "
	}

	label := id
	if n, ok := e.nodes[id]; ok && n.Name != "" {
		label = n.Name
	}

	if visited[id] {
		fmt.Fprintf(sb, "%s%s %s (cycle)\n", prefix, connector, label)
		return
	}
	visited[id] = true
	fmt.Fprintf(sb, "%s%s %s\n", prefix, connector, label)

	children := outgoing[id]
	for i, child := range children {
		e.drawASCIINode(child, nextPrefix, i == len(children)-1, outgoing, visited, sb)
	}
}
