// Package testutil compares generated report files against checked-in
// golden copies.
package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Use: go test ./internal/analysis -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// CompareGoldenFile compares the file at gotPath with goldenPath byte for
// byte. With -update the golden file is rewritten instead.
func CompareGoldenFile(t testing.TB, goldenPath, gotPath string) {
	t.Helper()

	got, err := os.ReadFile(gotPath)
	if err != nil {
		t.Fatalf("Failed to read output %s: %v", gotPath, err)
	}
	CompareGolden(t, goldenPath, got)
}

// CompareGolden compares got with the golden file, failing with a diff on
// mismatch.
func CompareGolden(t testing.TB, goldenPath string, got []byte) {
	t.Helper()

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			t.Fatalf("Failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, got, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\nRun with -update to create it", goldenPath, got)
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(got, expected) {
		t.Fatalf("Golden mismatch:\n%s\nRun with -update to refresh", Diff(string(expected), string(got), goldenPath))
	}
}

// Diff renders a line diff of expected and got: differing lines are
// shown as -/+ pairs with up to two lines of context.
func Diff(expected, got, name string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s (expected)\n+++ %s (got)\n", name, name)

	exp := strings.Split(expected, "\n")
	act := strings.Split(got, "\n")
	n := len(exp)
	if len(act) > n {
		n = len(act)
	}
	line := func(lines []string, i int) (string, bool) {
		if i < len(lines) {
			return lines[i], true
		}
		return "", false
	}

	lastShown := -1
	for i := 0; i < n; i++ {
		e, eok := line(exp, i)
		a, aok := line(act, i)
		if eok && aok && e == a {
			continue
		}

		start := i - 2
		if start <= lastShown {
			start = lastShown + 1
		}
		if start < 0 {
			start = 0
		}
		if start > lastShown+1 && lastShown >= 0 {
			buf.WriteString("...\n")
		}
		for j := start; j < i; j++ {
			fmt.Fprintf(&buf, " %s\n", exp[j])
		}
		if eok {
			fmt.Fprintf(&buf, "-%s\n", e)
		}
		if aok {
			fmt.Fprintf(&buf, "+%s\n", a)
		}
		lastShown = i
	}
	return buf.String()
}
