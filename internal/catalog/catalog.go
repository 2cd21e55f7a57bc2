// Package catalog resolves Gradle version catalog aliases (libs.versions.toml)
// to dependency coordinates.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	apperrors "depusage/internal/errors"
	"depusage/internal/variant"
)

// AliasPrefix is the accessor prefix for library aliases.
const AliasPrefix = "libs."

// Catalog maps normalized aliases to coordinates.
type Catalog struct {
	libraries map[string]variant.Descriptor
}

type rawCatalog struct {
	Versions  map[string]interface{} `toml:"versions"`
	Libraries map[string]interface{} `toml:"libraries"`
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.New(apperrors.InputMissing, fmt.Sprintf("cannot read version catalog %s", path), err)
	}
	return Parse(data)
}

// Parse decodes catalog TOML. Unknown version references and malformed
// coordinates are errors.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, apperrors.New(apperrors.CatalogInvalid, "cannot parse version catalog", err)
	}

	versions := make(map[string]string, len(raw.Versions))
	for key, v := range raw.Versions {
		version, err := versionValue(v)
		if err != nil {
			return nil, apperrors.New(apperrors.CatalogInvalid, fmt.Sprintf("version %q", key), err)
		}
		versions[key] = version
	}

	c := &Catalog{libraries: make(map[string]variant.Descriptor, len(raw.Libraries))}
	for alias, v := range raw.Libraries {
		d, err := library(v, versions)
		if err != nil {
			return nil, apperrors.New(apperrors.CatalogInvalid, fmt.Sprintf("library %q", alias), err)
		}
		c.libraries[NormalizeAlias(alias)] = d
	}
	return c, nil
}

// NormalizeAlias maps an alias to its accessor form: '-' and '_' become '.'.
func NormalizeAlias(alias string) string {
	return strings.NewReplacer("-", ".", "_", ".").Replace(alias)
}

// IsReference reports whether s is a catalog accessor such as libs.okhttp.
func IsReference(s string) bool {
	return strings.HasPrefix(s, AliasPrefix)
}

// Resolve looks up a libs.<alias> reference.
func (c *Catalog) Resolve(ref string) (variant.Descriptor, bool) {
	if c == nil || !IsReference(ref) {
		return variant.Descriptor{}, false
	}
	d, ok := c.libraries[NormalizeAlias(strings.TrimPrefix(ref, AliasPrefix))]
	return d, ok
}

// Aliases returns every accessor (libs.<alias>), sorted.
func (c *Catalog) Aliases() []string {
	out := make([]string, 0, len(c.libraries))
	for alias := range c.libraries {
		out = append(out, AliasPrefix+alias)
	}
	sort.Strings(out)
	return out
}

func library(v interface{}, versions map[string]string) (variant.Descriptor, error) {
	switch lib := v.(type) {
	case string:
		parts := strings.Split(lib, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return variant.Descriptor{}, fmt.Errorf("expected group:name:version, got %q", lib)
		}
		return variant.Descriptor{Group: parts[0], Name: parts[1], Version: parts[2]}, nil

	case map[string]interface{}:
		var d variant.Descriptor
		if module, ok := lib["module"].(string); ok {
			parts := strings.Split(module, ":")
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return d, fmt.Errorf("expected module group:name, got %q", module)
			}
			d.Group, d.Name = parts[0], parts[1]
		} else {
			d.Group, _ = lib["group"].(string)
			d.Name, _ = lib["name"].(string)
			if d.Group == "" || d.Name == "" {
				return d, fmt.Errorf("needs module or group and name")
			}
		}

		switch version := lib["version"].(type) {
		case nil:
		case string:
			d.Version = version
		case map[string]interface{}:
			if ref, ok := version["ref"].(string); ok {
				resolved, ok := versions[ref]
				if !ok {
					return d, fmt.Errorf("unknown version reference %q", ref)
				}
				d.Version = resolved
				break
			}
			rich, err := versionValue(version)
			if err != nil {
				return d, err
			}
			d.Version = rich
		default:
			return d, fmt.Errorf("unsupported version %v", version)
		}
		return d, nil

	default:
		return variant.Descriptor{}, fmt.Errorf("unsupported library declaration %v", v)
	}
}

// versionValue accepts a plain version or a rich version table.
func versionValue(v interface{}) (string, error) {
	switch version := v.(type) {
	case string:
		return version, nil
	case map[string]interface{}:
		for _, key := range []string{"strictly", "require", "prefer"} {
			if s, ok := version[key].(string); ok && s != "" {
				return s, nil
			}
		}
		return "", fmt.Errorf("rich version needs strictly, require or prefer")
	default:
		return "", fmt.Errorf("unsupported version %v", v)
	}
}
