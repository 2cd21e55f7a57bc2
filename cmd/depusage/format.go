package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"depusage/internal/graph"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatDOT   OutputFormat = "dot"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatDOT:
		g, ok := resp.(*GraphResponseCLI)
		if !ok {
			return "", fmt.Errorf("format %s is only supported by the graph command", format)
		}
		return formatGraphDOT(g), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data) + "\n", nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *AnalyzeResponseCLI:
		return formatAnalyzeHuman(v), nil
	case *GraphResponseCLI:
		return formatGraphHuman(v), nil
	case *ClassesResponseCLI:
		return formatClassesHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatAnalyzeHuman(resp *AnalyzeResponseCLI) string {
	var b strings.Builder

	for i, v := range resp.Variants {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("Variant %s (%dms)\n", v.Variant, v.DurationMs))
		b.WriteString(strings.Repeat("=", 60) + "\n")

		if len(v.Remove) == 0 && len(v.Add) == 0 && len(v.Misconfigured) == 0 {
			b.WriteString("✓ No dependency changes needed\n")
		}
		writeList(&b, "Unused direct dependencies (remove)", v.Remove)
		writeList(&b, "Used transitive dependencies (add)", v.Add)
		writeList(&b, "api dependencies only used internally (implementation)", v.Misconfigured)

		b.WriteString("Reports:\n")
		b.WriteString(fmt.Sprintf("  %s\n", v.UnusedFile))
		b.WriteString(fmt.Sprintf("  %s\n", v.MisconfiguredFile))
		if v.RunID != "" {
			b.WriteString(fmt.Sprintf("Recorded run %s\n", v.RunID))
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("%s:\n", title))
	for _, item := range items {
		b.WriteString(fmt.Sprintf("  - %s\n", item))
	}
}

func formatGraphHuman(resp *GraphResponseCLI) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Dependency Graph: %s\n", resp.Variant))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Nodes: %d, Edges: %d (%d direct, %d transitive)\n\n",
		resp.Stats.TotalNodes, resp.Stats.TotalEdges, resp.Stats.DirectEdges, resp.Stats.TransitiveEdges))

	// Group edges by source for readability.
	bySource := make(map[string][]string)
	var sources []string
	for _, e := range resp.Edges {
		if _, ok := bySource[e.From]; !ok {
			sources = append(sources, e.From)
		}
		bySource[e.From] = append(bySource[e.From], e.To)
	}
	sort.Strings(sources)
	for _, src := range sources {
		b.WriteString(fmt.Sprintf("%s\n", src))
		for _, dst := range bySource[src] {
			b.WriteString(fmt.Sprintf("  -> %s\n", dst))
		}
	}

	writeListNL(&b, "Required but unreachable from used direct dependencies", resp.Indirect)

	if resp.Why != nil {
		b.WriteString("\n")
		if len(resp.Why.Path) == 0 {
			b.WriteString(fmt.Sprintf("%s is not reachable from %s\n", resp.Why.Dependency, resp.Root))
		} else {
			b.WriteString(fmt.Sprintf("Why %s:\n  %s\n", resp.Why.Dependency, strings.Join(resp.Why.Path, " -> ")))
		}
		b.WriteString(fmt.Sprintf("  required: %s, declared: %s\n", yesNo(resp.Why.Required), yesNo(resp.Why.Declared)))
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func writeListNL(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	writeList(b, title, items)
}

// formatGraphDOT renders the graph for Graphviz. Transitive edges are dashed.
func formatGraphDOT(resp *GraphResponseCLI) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("digraph %q {\n", resp.Variant))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString(fmt.Sprintf("  %q [shape=box];\n", resp.Root))
	for _, e := range resp.Edges {
		style := ""
		if e.Kind == graph.KindTransitive {
			style = " [style=dashed]"
		}
		b.WriteString(fmt.Sprintf("  %q -> %q%s;\n", e.From, e.To, style))
	}
	for _, dep := range resp.Indirect {
		b.WriteString(fmt.Sprintf("  %q [color=red];\n", dep))
	}
	b.WriteString("}\n")
	return b.String()
}

func formatClassesHuman(resp *ClassesResponseCLI) string {
	var b strings.Builder
	for _, c := range resp.Classes {
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

func formatHistoryHuman(resp *HistoryResponseCLI) string {
	if len(resp.Runs) == 0 {
		return "No runs recorded.\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-36s  %-12s  %-20s  %6s  %4s  %6s\n", "RUN", "VARIANT", "CREATED", "REMOVE", "ADD", "API"))
	for _, r := range resp.Runs {
		marker := ""
		if r.Regression {
			marker = "  ! report changed on identical inputs"
		}
		b.WriteString(fmt.Sprintf("%-36s  %-12s  %-20s  %6d  %4d  %6d%s\n",
			r.ID, r.Variant, r.CreatedAt.Local().Format(time.DateTime), r.Remove, r.Add, r.Misconfigured, marker))
	}
	return b.String()
}
