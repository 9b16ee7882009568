package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
)

var (
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	descStyle     = lipgloss.NewStyle().Faint(true)
	socketStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// RenderCatalog formats a registry's catalog, grouped by category, for
// terminal display: one styled section per category, one line per
// definition naming its id and data input/output socket counts.
func RenderCatalog(reg *registry.Registry, query string) string {
	grouped := reg.Catalog(query)

	categories := make([]string, 0, len(grouped))
	for cat := range grouped {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var sb strings.Builder
	for i, cat := range categories {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(categoryStyle.Render(cat) + "\n")

		defs := grouped[cat]
		sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
		for _, def := range defs {
			sb.WriteString(renderDefinitionLine(def) + "\n")
		}
	}
	return sb.String()
}

func renderDefinitionLine(def *node.Definition) string {
	inputs, outputs := 0, 0
	for _, s := range def.InputsTemplate {
		if !s.IsExecution {
			inputs++
		}
	}
	for _, s := range def.OutputsTemplate {
		if !s.IsExecution {
			outputs++
		}
	}

	line := fmt.Sprintf("  %s %s", idStyle.Render(def.ID), socketStyle.Render(fmt.Sprintf("(%d in / %d out)", inputs, outputs)))
	if def.Description != "" {
		line += " " + descStyle.Render("— "+def.Description)
	}
	return line
}
