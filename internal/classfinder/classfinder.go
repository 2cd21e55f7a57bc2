// Package classfinder indexes dependency artifacts by the classes they contain.
package classfinder

import (
	"sort"

	"depusage/internal/archive"
)

// Artifact is a resolved dependency file and the identifier it resolves to.
// Several artifacts may share an identifier (for example a jar plus its
// generated R classes).
type Artifact struct {
	File string `json:"file" toml:"file" yaml:"file"`
	ID   string `json:"id" toml:"id" yaml:"id"`
}

// ClassFinder is an immutable class-name to dependency-id index.
type ClassFinder struct {
	owner     map[string]string
	byDep     map[string][]string
	artifacts map[string][]string
	deps      []string
}

// Build walks every artifact in order and records the classes it contains.
// When two artifacts define the same class the later one owns it.
// Unreadable or corrupt archives fail the build.
func Build(opener *archive.Opener, artifacts []Artifact) (*ClassFinder, error) {
	owner := make(map[string]string)
	artifactFiles := make(map[string][]string)

	for _, a := range artifacts {
		artifactFiles[a.ID] = append(artifactFiles[a.ID], a.File)
		err := opener.Walk(a.File, func(e archive.ClassEntry) error {
			owner[e.Name] = a.ID
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	byDep := make(map[string][]string)
	for class, dep := range owner {
		byDep[dep] = append(byDep[dep], class)
	}
	for _, classes := range byDep {
		sort.Strings(classes)
	}

	deps := make([]string, 0, len(artifactFiles))
	for id := range artifactFiles {
		deps = append(deps, id)
	}
	sort.Strings(deps)

	return &ClassFinder{
		owner:     owner,
		byDep:     byDep,
		artifacts: artifactFiles,
		deps:      deps,
	}, nil
}

// Find returns the dependency that owns className.
func (f *ClassFinder) Find(className string) (string, bool) {
	dep, ok := f.owner[className]
	return dep, ok
}

// FindClassesInDependency returns the sorted classes owned by dependencyID.
// A dependency with no classes yields an empty slice.
func (f *ClassFinder) FindClassesInDependency(dependencyID string) []string {
	classes := f.byDep[dependencyID]
	out := make([]string, len(classes))
	copy(out, classes)
	return out
}

// Owns reports whether dependencyID owns at least one class.
func (f *ClassFinder) Owns(dependencyID string) bool {
	return len(f.byDep[dependencyID]) > 0
}

// Dependencies returns every indexed dependency id, sorted, including those
// that contributed no classes.
func (f *ClassFinder) Dependencies() []string {
	out := make([]string, len(f.deps))
	copy(out, f.deps)
	return out
}

// ArtifactFiles returns the files indexed for dependencyID, in input order.
func (f *ClassFinder) ArtifactFiles(dependencyID string) []string {
	files := f.artifacts[dependencyID]
	out := make([]string, len(files))
	copy(out, files)
	return out
}

// NumClasses returns the number of indexed classes.
func (f *ClassFinder) NumClasses() int {
	return len(f.owner)
}
