package variant

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"depusage/internal/archive"
	"depusage/internal/classfile"
	"depusage/internal/classfile/classfiletest"
	apperrors "depusage/internal/errors"
)

func newOpener(t *testing.T) *archive.Opener {
	t.Helper()
	o, err := archive.NewOpener(0)
	if err != nil {
		t.Fatalf("NewOpener() error = %v", err)
	}
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestBuildClasses(t *testing.T) {
	root := t.TempDir()

	api := classfiletest.NewClass("com/app/Api").
		Extends("com/lib/Base")
	api.Method(classfiletest.Public, "load", "()Lcom/app/Model;")
	api.Method(classfiletest.Private, "parse", "(Lcom/json/Parser;)V")

	model := classfiletest.NewClass("com/app/Model")
	model.Field(classfiletest.Public, "tags", "Ljava/util/List;")

	internal := classfiletest.NewClass("com/app/Internal").
		Access(0).
		Uses("com/log/Logger")

	classfiletest.WriteDir(t, root, api, model, internal)

	c, err := BuildClasses(newOpener(t), []string{root, filepath.Join(t.TempDir(), "missing")})
	if err != nil {
		t.Fatalf("BuildClasses() error = %v", err)
	}

	wantDefined := []string{"com.app.Api", "com.app.Internal", "com.app.Model"}
	wantUsed := []string{"com.json.Parser", "com.lib.Base", "com.log.Logger", "java.lang.Object", "java.util.List"}
	wantExposed := []string{"com.lib.Base", "java.lang.Object", "java.util.List"}
	wantPrivate := []string{"com.json.Parser", "com.log.Logger"}

	if got := c.Defined(); !reflect.DeepEqual(got, wantDefined) {
		t.Errorf("Defined() = %v, want %v", got, wantDefined)
	}
	if got := c.Used(); !reflect.DeepEqual(got, wantUsed) {
		t.Errorf("Used() = %v, want %v", got, wantUsed)
	}
	if got := c.Exposed(); !reflect.DeepEqual(got, wantExposed) {
		t.Errorf("Exposed() = %v, want %v", got, wantExposed)
	}
	if got := c.Private(); !reflect.DeepEqual(got, wantPrivate) {
		t.Errorf("Private() = %v, want %v", got, wantPrivate)
	}
}

func TestBuildClasses_Jar(t *testing.T) {
	jar := classfiletest.WriteJar(t, filepath.Join(t.TempDir(), "classes.jar"),
		classfiletest.NewClass("com/app/Main").Uses("com/dep/Thing"),
	)
	c, err := BuildClasses(newOpener(t), []string{jar})
	if err != nil {
		t.Fatalf("BuildClasses() error = %v", err)
	}
	if got := c.Private(); !reflect.DeepEqual(got, []string{"com.dep.Thing"}) {
		t.Errorf("Private() = %v", got)
	}
}

func TestBuildClasses_ClassFile(t *testing.T) {
	root := classfiletest.WriteDir(t, t.TempDir(),
		classfiletest.NewClass("com/app/Main").Uses("com/dep/Thing"),
	)
	c, err := BuildClasses(newOpener(t), []string{filepath.Join(root, "com", "app", "Main.class")})
	if err != nil {
		t.Fatalf("BuildClasses() error = %v", err)
	}
	if got := c.Defined(); !reflect.DeepEqual(got, []string{"com.app.Main"}) {
		t.Errorf("Defined() = %v", got)
	}
	if got := c.Private(); !reflect.DeepEqual(got, []string{"com.dep.Thing"}) {
		t.Errorf("Private() = %v", got)
	}
}

func TestBuildClasses_Empty(t *testing.T) {
	c, err := BuildClasses(newOpener(t), nil)
	if err != nil {
		t.Fatalf("BuildClasses() error = %v", err)
	}
	if len(c.Used()) != 0 || len(c.Exposed()) != 0 || len(c.Private()) != 0 {
		t.Errorf("expected empty sets, got used=%v exposed=%v private=%v", c.Used(), c.Exposed(), c.Private())
	}
}

func TestBuildClasses_Malformed(t *testing.T) {
	root := t.TempDir()
	classfiletest.WriteDir(t, root, classfiletest.NewClass("com/app/Good"))
	bad := filepath.Join(root, "com", "app", "Bad.class")
	if err := os.WriteFile(bad, []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := BuildClasses(newOpener(t), []string{root})
	if err == nil {
		t.Fatal("BuildClasses() should fail on a malformed class")
	}
	if !apperrors.HasCode(err, apperrors.ClassMalformed) {
		t.Errorf("error %v should carry %s", err, apperrors.ClassMalformed)
	}
	if !errors.Is(err, classfile.ErrMalformed) {
		t.Errorf("error %v should wrap classfile.ErrMalformed", err)
	}
}

func TestNewClasses(t *testing.T) {
	c := NewClasses([]string{"b", "a", "c"}, []string{"c"})
	if got := c.Private(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Private() = %v", got)
	}
}

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		in     string
		want   Descriptor
		wantOK bool
	}{
		{"com.squareup:okio:3.6.0", Descriptor{"com.squareup", "okio", "3.6.0"}, true},
		{"androidx.core:core", Descriptor{"androidx.core", "core", ""}, true},
		{"  g:n  ", Descriptor{"g", "n", ""}, true},
		{":lib", Descriptor{"", "lib", ""}, true},
		{"lib", Descriptor{Name: "lib"}, true},
		{"g:", Descriptor{Group: "g"}, false},
		{"a:b:c:d", Descriptor{}, false},
		{"", Descriptor{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDescriptor(tt.in)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("ParseDescriptor(%q) = (%+v, %v), want (%+v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNewDependencies(t *testing.T) {
	deps := NewDependencies(
		[]Descriptor{
			{Group: "com.squareup", Name: "okio", Version: "3.6.0"},
			{Name: "localProject"},
			{Group: "androidx.core", Name: "core"},
		},
		[]Descriptor{
			{Group: "com.google.guava", Name: "guava", Version: "33.0"},
			{Name: "noGroupApi"},
		},
	)

	wantAll := []string{"androidx.core:core", "com.google.guava:guava:33.0", "com.squareup:okio:3.6.0"}
	if got := deps.All(); !reflect.DeepEqual(got, wantAll) {
		t.Errorf("All() = %v, want %v", got, wantAll)
	}
	if got := deps.API(); !reflect.DeepEqual(got, []string{"com.google.guava:guava:33.0"}) {
		t.Errorf("API() = %v", got)
	}
	if !deps.Declared("androidx.core:core") || deps.Declared(":localProject") {
		t.Error("Declared() mismatch")
	}
	if !deps.IsAPI("com.google.guava:guava:33.0") || deps.IsAPI("com.squareup:okio:3.6.0") {
		t.Error("IsAPI() mismatch")
	}
}
