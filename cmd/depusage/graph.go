package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"depusage/internal/graph"
)

var (
	graphVariant  string
	graphManifest string
	graphFormat   string
	graphWhy      string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the inferred dependency graph of a variant",
	Long: `Show the dependency graph inferred from class references, rooted at the
variant and seeded with its used direct dependencies.

Examples:
  depusage graph --variant debug
  depusage graph --variant debug --format dot | dot -Tsvg > graph.svg
  depusage graph --variant debug --why com.squareup.okio:okio:3.6.0`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphVariant, "variant", "", "Variant to inspect (required)")
	graphCmd.Flags().StringVar(&graphManifest, "manifest", "", "Manifest file (default: config manifest)")
	graphCmd.Flags().StringVar(&graphFormat, "format", "human", "Output format (human, json, dot)")
	graphCmd.Flags().StringVar(&graphWhy, "why", "", "Explain how a dependency is reached")
	rootCmd.AddCommand(graphCmd)
}

// GraphResponseCLI is the graph command output.
type GraphResponseCLI struct {
	Variant  string       `json:"variant"`
	Root     string       `json:"root"`
	Nodes    []string     `json:"nodes"`
	Edges    []graph.Edge `json:"edges"`
	Stats    graph.Stats  `json:"stats"`
	Indirect []string     `json:"indirect"`
	Why      *WhyCLI      `json:"why,omitempty"`
}

// WhyCLI explains how a dependency is reached from the root.
type WhyCLI struct {
	Dependency string   `json:"dependency"`
	Reachable  bool     `json:"reachable"`
	Required   bool     `json:"required"`
	Declared   bool     `json:"declared"`
	Path       []string `json:"path"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	res, err := analyzeVariant(cmd.Context(), graphManifest, graphVariant)
	if err != nil {
		return err
	}

	g := res.Graph
	resp := &GraphResponseCLI{
		Variant:  res.Variant,
		Root:     g.Root(),
		Nodes:    g.Nodes(),
		Edges:    g.Edges(),
		Stats:    g.Stats(),
		Indirect: g.FindIndirectRequiredDependencies(),
	}
	if graphWhy != "" {
		resp.Why = &WhyCLI{
			Dependency: graphWhy,
			Reachable:  g.IsReachable(graphWhy),
			Required:   res.Usage.IsRequired(graphWhy),
			Declared:   res.Dependencies.Declared(graphWhy),
			Path:       g.Explain(graphWhy),
		}
		if resp.Why.Path == nil {
			resp.Why.Path = []string{}
		}
	}

	out, err := FormatResponse(resp, OutputFormat(graphFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
