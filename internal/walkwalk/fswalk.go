// Package walkwalk provides a deterministic filesystem walker that lists
// every file and directory of a repository tree for the contamination
// passes.
package walkwalk

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Entry is one walked path.
type Entry struct {
	RelPath string // root-relative path with forward slashes
	IsDir   bool
}

// Options control the walk.
type Options struct {
	// Exclude skips any file or directory whose base name starts with one
	// of these prefixes.
	Exclude []string
	// UseGitignore skips paths matched by the root .gitignore.
	UseGitignore bool
}

type walkState struct {
	opt      Options
	root     string
	patterns []gitPattern
	entries  []Entry
}

// Walk lists root recursively, sorted by RelPath. The root itself is not
// included. Symlinks are reported but never followed.
func Walk(root string, opt Options) ([]Entry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("walk %s: not a directory", root)
	}
	ws := &walkState{opt: opt, root: abs}
	if opt.UseGitignore {
		// an unreadable or absent .gitignore means nothing is ignored
		ws.patterns, _ = parseGitignore(filepath.Join(abs, ".gitignore"))
	}
	if err := filepath.WalkDir(abs, ws.visit); err != nil {
		return nil, err
	}
	sort.Slice(ws.entries, func(i, j int) bool { return ws.entries[i].RelPath < ws.entries[j].RelPath })
	return ws.entries, nil
}

func (ws *walkState) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		if path == ws.root {
			return err
		}
		// unreadable subtrees are skipped
		if d != nil && d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	if path == ws.root {
		return nil
	}
	rel, ok := ws.relative(path)
	if !ok {
		return nil
	}
	isDir := d.IsDir()
	if ws.shouldSkip(rel, isDir) {
		if isDir {
			return filepath.SkipDir
		}
		return nil
	}
	ws.entries = append(ws.entries, Entry{RelPath: rel, IsDir: isDir})
	return nil
}

func (ws *walkState) relative(path string) (string, bool) {
	rel, err := filepath.Rel(ws.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	return rel, true
}

func (ws *walkState) shouldSkip(rel string, isDir bool) bool {
	if hasExcludedPrefix(filepath.Base(rel), ws.opt.Exclude) {
		return true
	}
	return ws.opt.UseGitignore && matchGitignore(ws.patterns, rel, isDir)
}

// hasExcludedPrefix reports whether base begins with any exclude entry.
func hasExcludedPrefix(base string, exclude []string) bool {
	for _, k := range exclude {
		if k != "" && strings.HasPrefix(base, k) {
			return true
		}
	}
	return false
}

// ---------------- .gitignore support ----------------

type gitPattern struct {
	neg     bool           // pattern starts with '!'
	dirOnly bool           // pattern ends with '/'
	rx      *regexp.Regexp // compiled matcher
}

// parseGitignore reads a .gitignore file and compiles patterns. Minimal support:
//   - '#' comments, blank lines ignored
//   - '!' negation
//   - leading '/' or an inner '/' anchors to the repo root
//   - trailing '/' restricts to directories
//   - '**' matches across directories
//   - '*' and '?' behave like shell globs (not crossing '/')
func parseGitignore(path string) ([]gitPattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var res []gitPattern
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		neg := false
		if strings.HasPrefix(line, "!") {
			neg = true
			line = strings.TrimSpace(line[1:])
			if line == "" {
				continue
			}
		}
		dirOnly := strings.HasSuffix(line, "/")
		line = strings.TrimSuffix(line, "/")
		anchored := strings.HasPrefix(line, "/") || strings.Contains(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}
		res = append(res, gitPattern{neg: neg, dirOnly: dirOnly, rx: compileGitGlob(line, anchored)})
	}
	return res, s.Err()
}

func compileGitGlob(glob string, anchored bool) *regexp.Regexp {
	esc := regexp.QuoteMeta(glob)
	esc = strings.ReplaceAll(esc, `/\*\*/`, "(/|/.*/)")
	esc = strings.ReplaceAll(esc, `\*\*/`, "(.*/)?")
	esc = strings.ReplaceAll(esc, `/\*\*`, "/.*")
	esc = strings.ReplaceAll(esc, `\*`, "[^/]*")
	esc = strings.ReplaceAll(esc, `\?`, "[^/]")
	if anchored {
		return regexp.MustCompile("^" + esc + "$")
	}
	return regexp.MustCompile("(^|.*/)" + esc + "$")
}

// matchGitignore applies patterns in order; the last match wins.
func matchGitignore(pats []gitPattern, rel string, isDir bool) bool {
	if len(pats) == 0 {
		return false
	}
	ignored := false
	for _, p := range pats {
		if p.dirOnly && !isDir {
			continue
		}
		if p.rx.MatchString(rel) {
			ignored = !p.neg
		}
	}
	return ignored
}
