package variant

import "strings"

// Descriptor is a declared dependency coordinate.
type Descriptor struct {
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ID returns group:name[:version].
func (d Descriptor) ID() string {
	id := d.Group + ":" + d.Name
	if d.Version != "" {
		id += ":" + d.Version
	}
	return id
}

// Analyzable reports whether the descriptor can be joined against
// artifact-derived identifiers. Descriptors without a group cannot.
func (d Descriptor) Analyzable() bool {
	return d.Group != "" && d.Name != ""
}

// ParseDescriptor parses "group:name[:version]". A bare name is returned
// with an empty group. Strings with more than three parts are rejected.
func ParseDescriptor(s string) (Descriptor, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Descriptor{}, false
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		return Descriptor{Name: parts[0]}, true
	case 2:
		return Descriptor{Group: parts[0], Name: parts[1]}, parts[1] != ""
	case 3:
		return Descriptor{Group: parts[0], Name: parts[1], Version: parts[2]}, parts[1] != ""
	default:
		return Descriptor{}, false
	}
}

// Dependencies is the immutable set of a variant's declared direct
// dependencies, split into all declarations and the api subset.
type Dependencies struct {
	all []string
	api []string

	allSet map[string]struct{}
	apiSet map[string]struct{}
}

// NewDependencies maps descriptors to identifiers, dropping those that lack a
// group. Every api declaration is also a direct declaration.
func NewDependencies(all, api []Descriptor) *Dependencies {
	allSet := make(map[string]struct{})
	apiSet := make(map[string]struct{})
	for _, d := range all {
		if d.Analyzable() {
			allSet[d.ID()] = struct{}{}
		}
	}
	for _, d := range api {
		if d.Analyzable() {
			apiSet[d.ID()] = struct{}{}
			allSet[d.ID()] = struct{}{}
		}
	}
	return &Dependencies{
		all:    sortedKeys(allSet),
		api:    sortedKeys(apiSet),
		allSet: allSet,
		apiSet: apiSet,
	}
}

// All returns every analyzable direct dependency id, sorted.
func (d *Dependencies) All() []string { return clone(d.all) }

// API returns the api-declared dependency ids, sorted.
func (d *Dependencies) API() []string { return clone(d.api) }

// Declared reports whether id is a direct dependency.
func (d *Dependencies) Declared(id string) bool {
	_, ok := d.allSet[id]
	return ok
}

// IsAPI reports whether id is declared on the api configuration.
func (d *Dependencies) IsAPI(id string) bool {
	_, ok := d.apiSet[id]
	return ok
}
