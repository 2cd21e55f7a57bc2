// Package usage classifies a variant's declared dependencies as used or unused.
package usage

import (
	"sort"

	"depusage/internal/classfinder"
	"depusage/internal/variant"
)

// Finder is the result of joining the classes a variant uses against the
// dependencies that provide them. All sets are sorted and immutable.
type Finder struct {
	required     []string
	usedDirect   []string
	unusedDirect []string
	requiredSet  map[string]struct{}
}

// NewFinder computes the required, used-direct and unused-direct sets.
// Used classes with no owning dependency are platform or own classes and are
// ignored.
func NewFinder(finder *classfinder.ClassFinder, classes *variant.Classes, deps *variant.Dependencies) *Finder {
	required := make(map[string]struct{})
	for _, class := range classes.Used() {
		if dep, ok := finder.Find(class); ok {
			required[dep] = struct{}{}
		}
	}

	var used, unused []string
	for _, dep := range deps.All() {
		if _, ok := required[dep]; ok {
			used = append(used, dep)
		} else {
			unused = append(unused, dep)
		}
	}

	return &Finder{
		required:     sortedKeys(required),
		usedDirect:   nonNil(used),
		unusedDirect: nonNil(unused),
		requiredSet:  required,
	}
}

// RequiredDependencies returns every dependency owning a used class.
func (f *Finder) RequiredDependencies() []string { return clone(f.required) }

// UsedDirectDependencies returns declared dependencies that are required.
func (f *Finder) UsedDirectDependencies() []string { return clone(f.usedDirect) }

// UnusedDirectDependencies returns declared dependencies that are not required.
func (f *Finder) UnusedDirectDependencies() []string { return clone(f.unusedDirect) }

// IsRequired reports whether dep owns a class the variant uses.
func (f *Finder) IsRequired(dep string) bool {
	_, ok := f.requiredSet[dep]
	return ok
}

func sortedKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
