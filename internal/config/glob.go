package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ExpandInputs expands export paths and glob patterns into a sorted list of
// unique regular files. A pattern that matches nothing is an error, and
// directories matched by a glob are skipped.
func ExpandInputs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no input files provided")
	}

	var files []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			if _, err := os.Stat(pattern); err != nil {
				return nil, err
			}
			files = append(files, pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				files = append(files, m)
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}
