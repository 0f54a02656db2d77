// Package ignore matches paths against gitignore-style exclude patterns.
// The docs loader uses it for configured exclude globs and for .gitignore
// files found in the docs root.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Matcher holds compiled exclude patterns. Safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	regex    *regexp.Regexp
	negation bool // pattern starts with !
	dirOnly  bool // pattern ends with /
	anchored bool // pattern contains / (matches from the root)
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// NewWithPatterns creates a Matcher preloaded with the given patterns.
func NewWithPatterns(patterns []string) *Matcher {
	m := New()
	for _, p := range patterns {
		m.Add(p)
	}
	return m
}

// Add compiles and registers one pattern. Blank lines and comments are
// ignored so .gitignore content can be fed line by line.
func (m *Matcher) Add(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	var r rule

	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	pattern = strings.TrimPrefix(pattern, "/")

	// A slash anywhere in the pattern anchors it to the root; a bare name
	// like "drafts" matches at any depth.
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") {
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + globToRegex(pattern) + "$")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFile reads patterns from a gitignore-format file.
func (m *Matcher) AddFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.Add(scanner.Text())
	}
	return scanner.Err()
}

// Match reports whether the slash-separated relative path is excluded.
// Later negation patterns can re-include a previously excluded path.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	excluded := false
	for _, r := range m.rules {
		if matchRule(path, isDir, r) {
			excluded = !r.negation
		}
	}
	return excluded
}

func matchRule(path string, isDir bool, r rule) bool {
	parts := strings.Split(path, "/")

	if r.anchored {
		if r.regex.MatchString(path) {
			if r.dirOnly {
				return isDir
			}
			return true
		}
		if r.dirOnly {
			// A directory pattern also excludes everything inside it.
			for i := range parts[:len(parts)-1] {
				if r.regex.MatchString(strings.Join(parts[:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				return i < len(parts)-1 || isDir
			}
		}
		return false
	}

	// Unanchored name patterns match the basename, the full path (for **
	// patterns), or any single component.
	if r.regex.MatchString(parts[len(parts)-1]) || r.regex.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// globToRegex converts a gitignore-style glob to a regular expression.
// "**" crosses directory boundaries; "*" and "?" do not.
func globToRegex(pattern string) string {
	var out strings.Builder

	for i := 0; i < len(pattern); {
		switch c := pattern[i]; c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**/") {
				out.WriteString("(?:.*/)?")
				i += 3
			} else if strings.HasPrefix(pattern[i:], "**") {
				out.WriteString(".*")
				i += 2
			} else {
				out.WriteString("[^/]*")
				i++
			}
		case '?':
			out.WriteString("[^/]")
			i++
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end > 0 {
				out.WriteString(pattern[i : i+end+1])
				i += end + 1
			} else {
				out.WriteString(regexp.QuoteMeta("["))
				i++
			}
		default:
			out.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return out.String()
}
