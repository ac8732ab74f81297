// Package discovery enumerates the project files in a directory: one
// primary manifest plus zero-or-more sibling overlays (spec.md §4.1).
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// MainFileName is the required primary manifest file name.
const MainFileName = "Pulumi.yaml"

// Result is the discovered project file set (spec.md §4.1, §6).
type Result struct {
	MainFile        string
	AdditionalFiles []string
	FileCount       int
}

// Discover enumerates the project files under dir. The primary manifest
// Pulumi.yaml is required; its absence is a fatal error (spec.md §7). Every
// other Pulumi.*.yaml sibling is treated as an overlay, sorted
// lexicographically by file name for determinism (spec.md §4.1, §9; Open
// Question 1 in spec.md §9 resolved this way since no stack selector is
// ever supplied to this core).
func Discover(dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read project directory %q: %w", dir, err)
	}

	mainPath := filepath.Join(dir, MainFileName)
	haveMain := false
	var overlays []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == MainFileName {
			haveMain = true
			continue
		}
		if isOverlayName(name) {
			overlays = append(overlays, name)
		}
	}

	if !haveMain {
		return Result{}, fmt.Errorf("missing primary manifest: %s not found in %q", MainFileName, dir)
	}

	sort.Strings(overlays)

	additional := make([]string, len(overlays))
	for i, name := range overlays {
		additional[i] = filepath.Join(dir, name)
	}

	return Result{
		MainFile:        mainPath,
		AdditionalFiles: additional,
		FileCount:       1 + len(additional),
	}, nil
}

// isOverlayName reports whether name matches Pulumi.<label>.yaml, excluding
// the primary manifest itself.
func isOverlayName(name string) bool {
	const prefix = "Pulumi."
	const suffix = ".yaml"
	if len(name) <= len(prefix)+len(suffix) {
		return false
	}
	if name[:len(prefix)] != prefix {
		return false
	}
	if name[len(name)-len(suffix):] != suffix {
		return false
	}
	label := name[len(prefix) : len(name)-len(suffix)]
	return label != ""
}
