// Package corpus turns glob patterns into the list of files to index.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Patterns splits comma-separated pattern arguments and drops empty ones
func Patterns(args []string) []string {
	var patterns []string
	for _, arg := range args {
		for _, p := range strings.Split(arg, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}

// Expand matches every pattern against the filesystem. "**" matches any
// number of directories. The result holds regular files only, as
// absolute, cleaned paths, without duplicates and sorted.
func Expand(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range Patterns(args) {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", pattern, err)
		}

		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", m, err)
			}
			if _, ok := seen[abs]; ok {
				continue
			}
			seen[abs] = struct{}{}
			files = append(files, abs)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Roots returns the directories that contain every possible match of the
// patterns, i.e. the literal leading part of each one. Used to decide
// what to watch.
func Roots(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var roots []string

	for _, pattern := range Patterns(args) {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		abs, err := filepath.Abs(filepath.FromSlash(base))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", base, err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		roots = append(roots, abs)
	}

	sort.Strings(roots)
	return roots, nil
}

// ReadPaths reads one path per line from r, as produced by find or ls.
// Surrounding whitespace and blank lines are dropped, and repeated paths
// are kept once, in first-seen order.
func ReadPaths(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		p := strings.TrimSpace(sc.Text())
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read path list: %w", err)
	}
	return paths, nil
}
