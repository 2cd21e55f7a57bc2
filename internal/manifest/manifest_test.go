package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"depusage/internal/analysis"
	"depusage/internal/classfinder"
	apperrors "depusage/internal/errors"
	"depusage/internal/variant"
)

const tomlManifest = `
version = 1
catalog = "gradle/libs.versions.toml"

[[variant]]
name = "debug"
classes = ["build/classes/debug"]
dependencies = ["com.squareup.okio:okio:3.6.0", "libs.okhttp", "localProject"]
api = ["libs.guava"]

[[variant.artifact]]
file = "libs/okio.jar"
id = "com.squareup.okio:okio:3.6.0"

[[variant.artifact]]
file = "/abs/okhttp.jar"
id = "com.squareup.okhttp3:okhttp:4.12.0"

[[variant]]
name = "release"
classes = ["build/classes/release"]
`

const yamlManifest = `
version: 1
catalog: gradle/libs.versions.toml
variant:
  - name: debug
    classes: [build/classes/debug]
    dependencies: ["com.squareup.okio:okio:3.6.0", libs.okhttp, localProject]
    api: [libs.guava]
    artifact:
      - file: libs/okio.jar
        id: "com.squareup.okio:okio:3.6.0"
      - file: /abs/okhttp.jar
        id: "com.squareup.okhttp3:okhttp:4.12.0"
  - name: release
    classes: [build/classes/release]
`

const jsonManifest = `{
  "version": 1,
  "catalog": "gradle/libs.versions.toml",
  "variant": [
    {
      "name": "debug",
      "classes": ["build/classes/debug"],
      "dependencies": ["com.squareup.okio:okio:3.6.0", "libs.okhttp", "localProject"],
      "api": ["libs.guava"],
      "artifact": [
        {"file": "libs/okio.jar", "id": "com.squareup.okio:okio:3.6.0"},
        {"file": "/abs/okhttp.jar", "id": "com.squareup.okhttp3:okhttp:4.12.0"}
      ]
    },
    {"name": "release", "classes": ["build/classes/release"]}
  ]
}`

const libsCatalog = `
[versions]
okhttp = "4.12.0"

[libraries]
okhttp = { module = "com.squareup.okhttp3:okhttp", version.ref = "okhttp" }
guava = "com.google.guava:guava:33.0.0-android"
`

func writeProject(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "gradle"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gradle", "libs.versions.toml"), []byte(libsCatalog), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{"depusage.toml", tomlManifest},
		{"depusage.yaml", yamlManifest},
		{"depusage.json", jsonManifest},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := writeProject(t, tt.file, tt.content)
			dir := filepath.Dir(path)

			m, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := m.VariantNames(); !reflect.DeepEqual(got, []string{"debug", "release"}) {
				t.Errorf("VariantNames() = %v", got)
			}

			inputs, err := m.Inputs([]string{"debug"})
			if err != nil {
				t.Fatalf("Inputs() error = %v", err)
			}
			want := analysis.Inputs{
				Variant:    "debug",
				ClassRoots: []string{filepath.Join(dir, "build", "classes", "debug")},
				Artifacts: []classfinder.Artifact{
					{File: filepath.Join(dir, "libs", "okio.jar"), ID: "com.squareup.okio:okio:3.6.0"},
					{File: "/abs/okhttp.jar", ID: "com.squareup.okhttp3:okhttp:4.12.0"},
				},
				Dependencies: []variant.Descriptor{
					{Group: "com.squareup.okio", Name: "okio", Version: "3.6.0"},
					{Group: "com.squareup.okhttp3", Name: "okhttp", Version: "4.12.0"},
					{Name: "localProject"},
				},
				API: []variant.Descriptor{
					{Group: "com.google.guava", Name: "guava", Version: "33.0.0-android"},
				},
			}
			if len(inputs) != 1 || !reflect.DeepEqual(inputs[0], want) {
				t.Errorf("Inputs() =\n  %+v\nwant\n  %+v", inputs, want)
			}
		})
	}
}

func TestInputs_AllVariants(t *testing.T) {
	m, err := Load(writeProject(t, "depusage.toml", tomlManifest))
	if err != nil {
		t.Fatal(err)
	}
	inputs, err := m.Inputs(nil)
	if err != nil {
		t.Fatalf("Inputs() error = %v", err)
	}
	if len(inputs) != 2 || inputs[1].Variant != "release" {
		t.Fatalf("Inputs() = %+v", inputs)
	}
	if len(inputs[1].Dependencies) != 0 || len(inputs[1].Artifacts) != 0 {
		t.Errorf("release should have no dependencies, got %+v", inputs[1])
	}

	_, err = m.Inputs([]string{"staging"})
	if !apperrors.HasCode(err, apperrors.InputInvalid) {
		t.Errorf("unknown variant error = %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    apperrors.ErrorCode
	}{
		{"duplicate variant", "m.toml", "[[variant]]\nname = \"debug\"\n[[variant]]\nname = \"debug\"\n", apperrors.InputInvalid},
		{"missing name", "m.toml", "[[variant]]\nclasses = []\n", apperrors.InputInvalid},
		{"path name", "m.toml", "[[variant]]\nname = \"../debug\"\n", apperrors.InputInvalid},
		{"unknown field", "m.toml", "[[variant]]\nname = \"debug\"\nflavour = \"x\"\n", apperrors.InputInvalid},
		{"unknown yaml field", "m.yaml", "variant:\n  - name: debug\n    extra: 1\n", apperrors.InputInvalid},
		{"bad version", "m.json", `{"version": 7}`, apperrors.InputInvalid},
		{"artifact without id", "m.toml", "[[variant]]\nname = \"debug\"\n[[variant.artifact]]\nfile = \"a.jar\"\n", apperrors.InputInvalid},
		{"syntax", "m.toml", "[[variant]\n", apperrors.InputInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeProject(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if got := apperrors.CodeOf(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !apperrors.HasCode(err, apperrors.InputMissing) {
		t.Errorf("missing manifest error = %v", err)
	}
}

func TestInputs_BadDeclarations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    apperrors.ErrorCode
	}{
		{"unknown alias", "catalog = \"gradle/libs.versions.toml\"\n[[variant]]\nname = \"d\"\ndependencies = [\"libs.nope\"]\n", apperrors.CatalogInvalid},
		{"alias without catalog", "[[variant]]\nname = \"d\"\napi = [\"libs.okhttp\"]\n", apperrors.CatalogInvalid},
		{"malformed coordinate", "[[variant]]\nname = \"d\"\ndependencies = [\"a:b:c:d\"]\n", apperrors.InputInvalid},
		{"missing catalog file", "catalog = \"nope.toml\"\n[[variant]]\nname = \"d\"\n", apperrors.InputMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Load(writeProject(t, "depusage.toml", tt.content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			_, err = m.Inputs(nil)
			if got := apperrors.CodeOf(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}
