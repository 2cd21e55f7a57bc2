// Package manifest loads the host-supplied description of the variants to
// analyze: their class roots, resolved artifacts and declared dependencies.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"depusage/internal/analysis"
	"depusage/internal/catalog"
	"depusage/internal/classfinder"
	apperrors "depusage/internal/errors"
	"depusage/internal/variant"
)

// DefaultFile is the manifest file name looked up when none is configured.
const DefaultFile = "depusage.toml"

// File is the root structure of a manifest.
type File struct {
	// Version is the schema version
	Version int `toml:"version" yaml:"version" json:"version"`

	// Catalog is an optional path to a Gradle version catalog
	Catalog string `toml:"catalog,omitempty" yaml:"catalog,omitempty" json:"catalog,omitempty"`

	// Variants is the list of variants to analyze
	Variants []Variant `toml:"variant" yaml:"variant" json:"variant"`
}

// Variant describes one variant's inputs.
type Variant struct {
	// Name is the variant name; it is also the report sub-directory
	Name string `toml:"name" yaml:"name" json:"name"`

	// Classes are the compiled class directories, jars or single class files
	// of the variant
	Classes []string `toml:"classes" yaml:"classes" json:"classes"`

	// Artifacts are the resolved dependency files with their identifiers
	Artifacts []classfinder.Artifact `toml:"artifact" yaml:"artifact" json:"artifact"`

	// Dependencies are every direct declaration: group:name[:version] or
	// libs.<alias>. A declaration only matches an artifact whose id is the
	// same string, version included.
	Dependencies []string `toml:"dependencies" yaml:"dependencies" json:"dependencies"`

	// API is the subset declared on the api configuration
	API []string `toml:"api" yaml:"api" json:"api"`
}

// Manifest is a parsed manifest with its location.
type Manifest struct {
	File
	Path string
	Dir  string
}

// Load reads and validates the manifest at path. The format follows the
// extension: .yaml/.yml, .json, anything else is TOML.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.New(apperrors.InputMissing, fmt.Sprintf("cannot read manifest %s", path), err)
	}

	var f File
	if err := decode(path, data, &f); err != nil {
		return nil, apperrors.New(apperrors.InputInvalid, fmt.Sprintf("cannot parse manifest %s", path), err)
	}
	if f.Version < 1 {
		f.Version = 1
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m := &Manifest{File: f, Path: abs, Dir: filepath.Dir(abs)}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func decode(path string, data []byte, f *File) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(f)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(f)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(f)
	}
}

func (m *Manifest) validate() error {
	if m.Version != 1 {
		return apperrors.Newf(apperrors.InputInvalid, "unsupported manifest version %d", m.Version)
	}
	seen := make(map[string]bool)
	for i, v := range m.Variants {
		if v.Name == "" {
			return apperrors.Newf(apperrors.InputInvalid, "variant %d has no name", i)
		}
		if v.Name == "." || v.Name == ".." || strings.ContainsAny(v.Name, `/\`) {
			return apperrors.Newf(apperrors.InputInvalid, "variant name %q is not a valid directory name", v.Name)
		}
		if seen[v.Name] {
			return apperrors.Newf(apperrors.InputInvalid, "duplicate variant %q", v.Name)
		}
		seen[v.Name] = true
		for j, a := range v.Artifacts {
			if a.File == "" || a.ID == "" {
				return apperrors.Newf(apperrors.InputInvalid, "variant %q artifact %d needs both file and id", v.Name, j)
			}
		}
	}
	return nil
}

// VariantNames returns the declared variant names in manifest order.
func (m *Manifest) VariantNames() []string {
	names := make([]string, len(m.Variants))
	for i, v := range m.Variants {
		names[i] = v.Name
	}
	return names
}

// Inputs resolves the selected variants (all when names is empty) into
// pipeline inputs: paths are made absolute against the manifest directory
// and catalog aliases are expanded.
func (m *Manifest) Inputs(names []string) ([]analysis.Inputs, error) {
	selected, err := m.selectVariants(names)
	if err != nil {
		return nil, err
	}

	var cat *catalog.Catalog
	if m.Catalog != "" {
		cat, err = catalog.Load(m.resolvePath(m.Catalog))
		if err != nil {
			return nil, err
		}
	}

	out := make([]analysis.Inputs, 0, len(selected))
	for _, v := range selected {
		in := analysis.Inputs{Variant: v.Name}
		for _, root := range v.Classes {
			in.ClassRoots = append(in.ClassRoots, m.resolvePath(root))
		}
		for _, a := range v.Artifacts {
			in.Artifacts = append(in.Artifacts, classfinder.Artifact{File: m.resolvePath(a.File), ID: a.ID})
		}
		if in.Dependencies, err = resolveDescriptors(v.Name, v.Dependencies, cat); err != nil {
			return nil, err
		}
		if in.API, err = resolveDescriptors(v.Name, v.API, cat); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func (m *Manifest) selectVariants(names []string) ([]Variant, error) {
	if len(names) == 0 {
		return m.Variants, nil
	}
	byName := make(map[string]Variant, len(m.Variants))
	for _, v := range m.Variants {
		byName[v.Name] = v
	}
	var out []Variant
	for _, name := range names {
		v, ok := byName[name]
		if !ok {
			known := m.VariantNames()
			sort.Strings(known)
			return nil, apperrors.Newf(apperrors.InputInvalid,
				"unknown variant %q (known: %s)", name, strings.Join(known, ", "))
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *Manifest) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Dir, filepath.FromSlash(p))
}

// resolveDescriptors turns declarations into descriptors. Catalog references
// must resolve; other strings must be group:name[:version] or a bare name
// (kept, and later ignored for lacking a group).
func resolveDescriptors(variantName string, decls []string, cat *catalog.Catalog) ([]variant.Descriptor, error) {
	out := make([]variant.Descriptor, 0, len(decls))
	for _, decl := range decls {
		if catalog.IsReference(decl) {
			if cat == nil {
				return nil, apperrors.Newf(apperrors.CatalogInvalid,
					"variant %q uses %s but the manifest has no catalog", variantName, decl)
			}
			d, ok := cat.Resolve(decl)
			if !ok {
				return nil, apperrors.Newf(apperrors.CatalogInvalid,
					"variant %q: unknown catalog alias %s", variantName, decl)
			}
			out = append(out, d)
			continue
		}
		d, ok := variant.ParseDescriptor(decl)
		if !ok {
			return nil, apperrors.Newf(apperrors.InputInvalid,
				"variant %q: malformed dependency %q", variantName, decl)
		}
		out = append(out, d)
	}
	return out, nil
}
