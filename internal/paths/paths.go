// Package paths locates the files depusage keeps next to a project.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDirName is the per-project state directory.
	DataDirName = ".depusage"

	ConfigFileName  = "config.json"
	HistoryFileName = "history.db"
	LogFileName     = "depusage.log"
)

// DataDir returns <root>/.depusage.
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// ConfigPath returns the default config file location for root.
func ConfigPath(root string) string {
	return filepath.Join(DataDir(root), ConfigFileName)
}

// HistoryPath returns the default run history database for root.
func HistoryPath(root string) string {
	return filepath.Join(DataDir(root), HistoryFileName)
}

// EnsureDataDir creates the state directory if needed and returns it.
func EnsureDataDir(root string) (string, error) {
	dir := DataDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Resolve makes p absolute against root; absolute paths are only cleaned.
func Resolve(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

// Relative converts an absolute path to a root-relative, forward-slash path
// for display. Symlinks are resolved on both sides when they exist.
func Relative(absolutePath, root string) (string, error) {
	resolved, err := evalIfExists(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalIfExists(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Display returns the root-relative form of p when p lies under root and
// p unchanged otherwise.
func Display(p, root string) string {
	rel, err := Relative(p, root)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return p
	}
	return rel
}

func evalIfExists(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return "", err
	}
	return resolved, nil
}
