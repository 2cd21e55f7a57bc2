package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiff(t *testing.T) {
	expected := "{\n  \"add\": [],\n  \"remove\": [\n    \"a\"\n  ]\n}\n"
	got := "{\n  \"add\": [],\n  \"remove\": [\n    \"b\"\n  ]\n}\n"

	want := "--- r.json (expected)\n+++ r.json (got)\n" +
		"   \"add\": [],\n" +
		"   \"remove\": [\n" +
		"-    \"a\"\n" +
		"+    \"b\"\n"
	if d := Diff(expected, got, "r.json"); d != want {
		t.Errorf("Diff() =\n%s\nwant\n%s", d, want)
	}
}

func TestDiff_ExtraLines(t *testing.T) {
	d := Diff("a\n", "a\nb\n", "f")
	want := "--- f (expected)\n+++ f (got)\n a\n-\n+b\n+\n"
	if d != want {
		t.Errorf("Diff() = %q, want %q", d, want)
	}
}

func TestCompareGolden_Match(t *testing.T) {
	dir := t.TempDir()
	golden := filepath.Join(dir, "report.golden")
	if err := os.WriteFile(golden, []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "report.json")
	if err := os.WriteFile(out, []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	CompareGoldenFile(t, golden, out)
}
