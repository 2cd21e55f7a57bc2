package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayout(t *testing.T) {
	root := filepath.Join("work", "app")

	if got, want := DataDir(root), filepath.Join(root, ".depusage"); got != want {
		t.Errorf("DataDir = %s, want %s", got, want)
	}
	if got, want := ConfigPath(root), filepath.Join(root, ".depusage", "config.json"); got != want {
		t.Errorf("ConfigPath = %s, want %s", got, want)
	}
	if got, want := HistoryPath(root), filepath.Join(root, ".depusage", "history.db"); got != want {
		t.Errorf("HistoryPath = %s, want %s", got, want)
	}
}

func TestEnsureDataDir(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureDataDir(root)
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}

	// Idempotent.
	if _, err := EnsureDataDir(root); err != nil {
		t.Errorf("second EnsureDataDir failed: %v", err)
	}
}

func TestResolve(t *testing.T) {
	root := filepath.FromSlash("/project")
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"build/reports", filepath.FromSlash("/project/build/reports")},
		{filepath.FromSlash("/tmp/../out"), filepath.FromSlash("/out")},
	}
	for _, tt := range tests {
		if got := Resolve(root, tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelativeAndDisplay(t *testing.T) {
	root := t.TempDir()
	report := filepath.Join(root, "build", "debug", "dependenciesReport.json")

	rel, err := Relative(report, root)
	if err != nil {
		t.Fatalf("Relative failed: %v", err)
	}
	if rel != "build/debug/dependenciesReport.json" {
		t.Errorf("Relative = %q", rel)
	}

	if got := Display(report, root); got != rel {
		t.Errorf("Display inside root = %q, want %q", got, rel)
	}

	outside := filepath.Join(filepath.Dir(root), "elsewhere.json")
	if got := Display(outside, root); got != outside {
		t.Errorf("Display outside root = %q, want %q", got, outside)
	}
}

func TestRelative_Symlink(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	file := filepath.Join(real, "a.json")
	if err := os.WriteFile(file, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	rel, err := Relative(filepath.Join(link, "a.json"), real)
	if err != nil {
		t.Fatal(err)
	}
	if rel != "a.json" {
		t.Errorf("Relative through symlink = %q, want a.json", rel)
	}
}
