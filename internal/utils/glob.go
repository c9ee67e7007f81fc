package utils

import (
	"io/fs"
	"path/filepath"

	ds "github.com/bmatcuk/doublestar/v4"
)

// GlobRecursive walks base and matches files against a doublestar pattern
// (supports **). Paths are returned in walk order.
func GlobRecursive(base, pattern string) ([]string, error) {
	matches := []string{}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(base, path)
		ok, err := ds.PathMatch(pattern, rel)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	return matches, err
}
