package keyhist

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	DefaultInputDir     = "../build/"
	DefaultInputPattern = "*_keypoints.csv"
)

// Walks root recursively and returns the regular files whose base name
// matches pattern. filepath.WalkDir visits entries in lexical order, so the
// result is stable between runs on the same tree.
func FindInputFiles(root, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		matched, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return err
		}

		if matched {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", root, err)
	}

	return files, nil
}

// The detector label is the part of the file name before the first
// underscore: FAST_keypoints.csv -> FAST.
func DetectorLabel(path string) string {
	label, _, _ := strings.Cut(filepath.Base(path), "_")
	return label
}
