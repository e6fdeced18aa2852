// Package ignore decides which paths of a product tree are left out of a
// measurement, using .gitignore files and configured exclude globs.
package ignore

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// skippedDirs are never descended into while collecting .gitignore files.
var skippedDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true}

// Matcher holds exclude globs plus the rules of every .gitignore below its
// roots. Later rules win, so a negated rule can re-include a path.
type Matcher struct {
	roots    []string
	excludes []string
	rules    []rule
}

type rule struct {
	glob    string
	negate  bool
	dirOnly bool
	// base is the directory of the .gitignore; empty for exclude globs,
	// which apply everywhere.
	base string
}

// New returns a matcher for roots. Call Load before Match to pick up
// .gitignore files; excludes are active immediately.
func New(roots []string, excludes []string) *Matcher {
	m := &Matcher{roots: roots, excludes: excludes}
	m.reset()
	return m
}

func (m *Matcher) reset() {
	m.rules = m.rules[:0]
	for _, p := range m.excludes {
		m.rules = append(m.rules, parseRule(p, ""))
	}
}

// Load collects the .gitignore files below every root.
func (m *Matcher) Load() error {
	m.reset()
	for _, root := range m.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && skippedDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() != ".gitignore" {
				return nil
			}
			rules, err := readRules(path)
			if err != nil {
				return nil // unreadable .gitignore files are ignored
			}
			m.rules = append(m.rules, rules...)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether the file at path is excluded.
func (m *Matcher) Match(path string) bool { return m.match(path, false) }

// MatchDir reports whether the directory at path is excluded.
func (m *Matcher) MatchDir(path string) bool { return m.match(path, true) }

func (m *Matcher) match(path string, isDir bool) bool {
	excluded := false
	for _, r := range m.rules {
		if r.matches(path, isDir) {
			excluded = !r.negate
		}
	}
	return excluded
}

func readRules(path string) ([]rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	base := filepath.Dir(path)
	var rules []rule
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, parseRule(line, base))
	}
	return rules, sc.Err()
}

func parseRule(pattern, base string) rule {
	r := rule{base: base}
	if rest, ok := strings.CutPrefix(pattern, "!"); ok {
		r.negate = true
		pattern = rest
	}
	if rest, ok := strings.CutSuffix(pattern, "/"); ok {
		r.dirOnly = true
		pattern = rest
	}
	r.glob = pattern
	return r
}

// relative returns path relative to the rule's base, or false when path
// lies outside it.
func (r rule) relative(path string) (string, bool) {
	if r.base == "" {
		return path, true
	}
	rel, err := filepath.Rel(r.base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func (r rule) matches(path string, isDir bool) bool {
	rel, ok := r.relative(path)
	if !ok {
		return false
	}
	parts := components(rel)

	if strings.Contains(r.glob, "/") {
		globParts := components(r.glob)
		if strings.Contains(r.glob, "**") {
			return matchComponents(globParts, parts)
		}
		matched, _ := filepath.Match(filepath.FromSlash(r.glob), rel)
		return matched
	}

	// A bare name matches any component. A dir-only name cannot match the
	// last component of a file path.
	limit := len(parts)
	if r.dirOnly && !isDir && limit > 0 {
		limit--
	}
	for _, part := range parts[:limit] {
		if matched, _ := filepath.Match(r.glob, part); matched {
			return true
		}
	}
	return false
}

// matchComponents matches glob components against path components; "**"
// stands for zero or more components.
func matchComponents(glob, path []string) bool {
	if len(glob) == 0 {
		return len(path) == 0
	}
	if glob[0] == "**" {
		for i := 0; i <= len(path); i++ {
			if matchComponents(glob[1:], path[i:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if matched, _ := filepath.Match(glob[0], path[0]); !matched {
		return false
	}
	return matchComponents(glob[1:], path[1:])
}

func components(path string) []string {
	var out []string
	for _, p := range strings.Split(filepath.ToSlash(path), "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
