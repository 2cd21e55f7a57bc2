// Package depgraph infers a module-level dependency graph from class usage and
// finds dependencies that are required but only reachable transitively.
package depgraph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"depusage/internal/archive"
	"depusage/internal/classfile"
	"depusage/internal/classfinder"
	apperrors "depusage/internal/errors"
	"depusage/internal/graph"
	"depusage/internal/usage"
)

// Analyzer holds the inferred graph for one variant.
//
// The root node is the variant and its edges go only to the used direct
// dependencies. Reachability from the root therefore describes what stays
// visible once unused direct declarations are removed.
type Analyzer struct {
	root      string
	graph     *graph.Graph
	required  []string
	reachable map[string]struct{}
	indirect  []string
}

// New builds the graph. Every dependency owning at least one class becomes a
// node with edges to the dependencies its own classes reference.
func New(ctx context.Context, opener *archive.Opener, variantName string, finder *classfinder.ClassFinder, deps *usage.Finder, logger *slog.Logger) (*Analyzer, error) {
	g := graph.NewGraph()
	g.AddNode(variantName)
	for _, dep := range deps.UsedDirectDependencies() {
		g.AddEdge(variantName, dep, graph.KindDirect)
	}

	for _, dep := range finder.Dependencies() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !finder.Owns(dep) {
			continue
		}
		g.AddNode(dep)
		targets, err := dependencyEdges(opener, finder, dep)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			g.AddEdge(dep, target, graph.KindTransitive)
		}
	}

	reachable := make(map[string]struct{})
	for _, node := range g.Reachable(variantName) {
		if node != variantName {
			reachable[node] = struct{}{}
		}
	}

	required := deps.RequiredDependencies()
	indirect := make([]string, 0)
	for _, dep := range required {
		if _, ok := reachable[dep]; !ok {
			indirect = append(indirect, dep)
		}
	}

	stats := g.Stats()
	logger.Debug("Built dependency graph",
		"variant", variantName,
		"nodes", stats.TotalNodes,
		"edges", stats.TotalEdges,
		"reachable", len(reachable),
		"indirect", len(indirect),
	)

	return &Analyzer{
		root:      variantName,
		graph:     g,
		required:  required,
		reachable: reachable,
		indirect:  indirect,
	}, nil
}

// dependencyEdges returns the dependencies referenced by the classes dep owns.
// Classes shadowed by a later artifact are skipped.
func dependencyEdges(opener *archive.Opener, finder *classfinder.ClassFinder, dep string) ([]string, error) {
	targets := make(map[string]struct{})
	for _, file := range finder.ArtifactFiles(dep) {
		err := opener.Walk(file, func(e archive.ClassEntry) error {
			if owner, _ := finder.Find(e.Name); owner != dep {
				return nil
			}
			data, err := e.Read()
			if err != nil {
				return err
			}
			cf, err := classfile.Parse(data)
			if err != nil {
				return malformed(e, err)
			}
			refs, err := cf.AllReferences()
			if err != nil {
				return malformed(e, err)
			}
			for _, ref := range refs {
				if owner, ok := finder.Find(ref); ok && owner != dep {
					targets[owner] = struct{}{}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(targets))
	for t := range targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func malformed(e archive.ClassEntry, err error) error {
	return apperrors.New(apperrors.ClassMalformed,
		fmt.Sprintf("cannot scan dependency class %s in %s", e.Name, e.Source), err)
}

// FindIndirectRequiredDependencies returns the required dependencies that are
// not reachable from the variant through its used direct dependencies, sorted.
func (a *Analyzer) FindIndirectRequiredDependencies() []string {
	out := make([]string, len(a.indirect))
	copy(out, a.indirect)
	return out
}

// IsReachable reports whether dep is reachable from the variant.
func (a *Analyzer) IsReachable(dep string) bool {
	_, ok := a.reachable[dep]
	return ok
}

// Explain returns a shortest path from the variant to dep, or nil when dep is
// not reachable.
func (a *Analyzer) Explain(dep string) []string {
	return a.graph.ShortestPath(a.root, dep)
}

// Root returns the variant node name.
func (a *Analyzer) Root() string { return a.root }

// Nodes returns every node in insertion order, root first.
func (a *Analyzer) Nodes() []string { return a.graph.AllNodes() }

// Edges returns the inferred edges sorted by (from, to).
func (a *Analyzer) Edges() []graph.Edge { return a.graph.Edges() }

// Stats returns graph statistics.
func (a *Analyzer) Stats() graph.Stats { return a.graph.Stats() }
