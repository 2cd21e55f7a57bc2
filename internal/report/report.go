// Package report writes the dependency usage reports for one variant.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"depusage/internal/classfinder"
	"depusage/internal/depgraph"
	apperrors "depusage/internal/errors"
	"depusage/internal/usage"
	"depusage/internal/variant"
)

// Default report file names.
const (
	UnusedFileName        = "dependenciesReport.json"
	MisconfiguredFileName = "apiToImplementation.json"
)

// UnusedDependencies is the content of dependenciesReport.json.
type UnusedDependencies struct {
	Remove []string `json:"remove"`
	Add    []string `json:"add"`
}

// IsEmpty reports whether nothing needs to change.
func (u UnusedDependencies) IsEmpty() bool {
	return len(u.Remove) == 0 && len(u.Add) == 0
}

// Reporter derives and writes the reports from the analysis components.
type Reporter struct {
	classes *variant.Classes
	deps    *variant.Dependencies
	finder  *classfinder.ClassFinder
	usage   *usage.Finder
	graph   *depgraph.Analyzer
}

// NewReporter creates a Reporter.
func NewReporter(classes *variant.Classes, deps *variant.Dependencies, finder *classfinder.ClassFinder, usage *usage.Finder, graph *depgraph.Analyzer) *Reporter {
	return &Reporter{
		classes: classes,
		deps:    deps,
		finder:  finder,
		usage:   usage,
		graph:   graph,
	}
}

// UnusedDependencies returns the declared dependencies to remove and the
// transitively required ones to add.
func (r *Reporter) UnusedDependencies() UnusedDependencies {
	return UnusedDependencies{
		Remove: r.usage.UnusedDirectDependencies(),
		Add:    r.graph.FindIndirectRequiredDependencies(),
	}
}

// MisconfiguredDependencies returns api dependencies whose classes the
// variant only uses privately, sorted.
func (r *Reporter) MisconfiguredDependencies() []string {
	seen := make(map[string]struct{})
	for _, class := range r.classes.Private() {
		dep, ok := r.finder.Find(class)
		if !ok || !r.deps.IsAPI(dep) {
			continue
		}
		seen[dep] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for dep := range seen {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// WriteUnusedDependencies writes dependenciesReport.json to file, replacing
// any previous content.
func (r *Reporter) WriteUnusedDependencies(file string) error {
	return writeJSON(file, r.UnusedDependencies())
}

// WriteMisconfiguredDependencies writes apiToImplementation.json to file,
// replacing any previous content.
func (r *Reporter) WriteMisconfiguredDependencies(file string) error {
	return writeJSON(file, r.MisconfiguredDependencies())
}

func writeJSON(file string, v interface{}) error {
	data, err := Encode(v)
	if err != nil {
		return apperrors.New(apperrors.InternalError, fmt.Sprintf("cannot encode %s", file), err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return apperrors.New(apperrors.ReportWriteFailed, fmt.Sprintf("cannot create directory for %s", file), err)
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return apperrors.New(apperrors.ReportWriteFailed, fmt.Sprintf("cannot write %s", file), err)
	}
	return nil
}
