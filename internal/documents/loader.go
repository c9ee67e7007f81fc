// Package documents loads policy JSON documents from the configuration
// directory and applies variable substitution before the compiler parses
// them.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/stackaccel/identity-compiler/internal/utils"
)

// FileLoader resolves document paths relative to the configuration
// directory and substitutes ${VAR} placeholders.
type FileLoader struct {
	BaseDir string
}

// Load reads the document at path and substitutes vars.
func (l FileLoader) Load(path string, vars map[string]string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.BaseDir, full)
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy document %s: %w", full, err)
	}
	return []byte(Substitute(string(raw), vars)), nil
}

// Substitute expands ${VAR} placeholders from vars. Unknown placeholders are
// left intact so a typo surfaces as a JSON parse error instead of vanishing.
func Substitute(s string, vars map[string]string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return "${" + key + "}"
	})
}

// Discover lists the policy JSON documents under base, sorted for
// deterministic processing.
func Discover(base string) ([]string, error) {
	files, err := utils.GlobRecursive(base, "**/*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate policy documents under %s: %w", base, err)
	}
	sort.Strings(files)
	return files, nil
}

// Unreferenced returns the documents under base that none of the referenced
// paths name. Relative references are interpreted against base, matching how
// FileLoader resolves them.
func Unreferenced(base string, referenced []string) ([]string, error) {
	found, err := Discover(base)
	if err != nil {
		return nil, err
	}
	used := map[string]bool{}
	for _, p := range referenced {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(base, full)
		}
		used[filepath.Clean(full)] = true
	}
	var out []string
	for _, f := range found {
		if !used[filepath.Clean(f)] {
			out = append(out, f)
		}
	}
	return out, nil
}
