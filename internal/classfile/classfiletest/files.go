package classfiletest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// WriteJar writes the classes into a new jar at path.
func WriteJar(t testing.TB, path string, classes ...*Class) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create jar: %v", err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	manifest, err := zw.Create("META-INF/MANIFEST.MF")
	if err != nil {
		t.Fatalf("create manifest entry: %v", err)
	}
	if _, err := manifest.Write([]byte("Manifest-Version: 1.0\n")); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	for _, c := range classes {
		w, err := zw.Create(c.name + ".class")
		if err != nil {
			t.Fatalf("create entry %s: %v", c.name, err)
		}
		if _, err := w.Write(c.Bytes()); err != nil {
			t.Fatalf("write entry %s: %v", c.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
	return path
}

// WriteDir writes the classes as a compiled-classes directory tree under root.
func WriteDir(t testing.TB, root string, classes ...*Class) string {
	t.Helper()

	for _, c := range classes {
		path := filepath.Join(root, filepath.FromSlash(c.name)+".class")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, c.Bytes(), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}
