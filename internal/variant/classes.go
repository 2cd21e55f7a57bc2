// Package variant holds the per-variant inputs of a dependency analysis: the
// classes the variant's own code references and the dependencies it declares.
package variant

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"depusage/internal/archive"
	"depusage/internal/classfile"
	apperrors "depusage/internal/errors"
)

// Classes is the immutable result of scanning a variant's compiled output.
//
// Used holds every class referenced from the variant's code, Exposed the
// subset reachable through its public API surface, and Private is
// Used minus Exposed. Classes the variant defines itself are excluded from
// all three sets.
type Classes struct {
	defined []string
	used    []string
	exposed []string
	private []string
}

// BuildClasses scans every class under roots (class directories or jars).
// Roots that do not exist are skipped, as a variant without sources has no
// compiled output. Any class that fails to parse fails the whole scan.
func BuildClasses(opener *archive.Opener, roots []string) (*Classes, error) {
	defined := make(map[string]struct{})
	used := make(map[string]struct{})
	exposed := make(map[string]struct{})

	for _, root := range roots {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		err := opener.Walk(root, func(e archive.ClassEntry) error {
			data, err := e.Read()
			if err != nil {
				return err
			}
			cf, err := classfile.Parse(data)
			if err != nil {
				return malformed(e, err)
			}
			all, err := cf.AllReferences()
			if err != nil {
				return malformed(e, err)
			}
			public, err := cf.PublicReferences()
			if err != nil {
				return malformed(e, err)
			}

			defined[cf.Name()] = struct{}{}
			for _, name := range all {
				used[name] = struct{}{}
			}
			for _, name := range public {
				exposed[name] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	for name := range defined {
		delete(used, name)
		delete(exposed, name)
	}

	private := make(map[string]struct{})
	for name := range used {
		if _, ok := exposed[name]; !ok {
			private[name] = struct{}{}
		}
	}

	return &Classes{
		defined: sortedKeys(defined),
		used:    sortedKeys(used),
		exposed: sortedKeys(exposed),
		private: sortedKeys(private),
	}, nil
}

// NewClasses builds a Classes value from precomputed sets.
func NewClasses(used, exposed []string) *Classes {
	u := toSet(used)
	e := toSet(exposed)
	p := make(map[string]struct{})
	for name := range u {
		if _, ok := e[name]; !ok {
			p[name] = struct{}{}
		}
	}
	return &Classes{
		used:    sortedKeys(u),
		exposed: sortedKeys(e),
		private: sortedKeys(p),
	}
}

// Defined returns the classes compiled from the variant's own sources.
func (c *Classes) Defined() []string { return clone(c.defined) }

// Used returns every referenced class, sorted.
func (c *Classes) Used() []string { return clone(c.used) }

// Exposed returns the classes referenced through public API, sorted.
func (c *Classes) Exposed() []string { return clone(c.exposed) }

// Private returns the classes referenced only privately, sorted.
func (c *Classes) Private() []string { return clone(c.private) }

func malformed(e archive.ClassEntry, err error) error {
	return apperrors.New(apperrors.ClassMalformed,
		fmt.Sprintf("cannot scan class %s in %s", e.Name, e.Source), err)
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func sortedKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
