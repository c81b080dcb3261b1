// Package meta detects which foreign ecosystems a repository tree carries
// (a Python project, a Homebrew tap, a VSCode extension, a plain Node
// package) and explains why. The contamination passes use it to say what a
// stray file most likely belongs to.
//
// Detection is best-effort: unreadable or malformed files are skipped.
package meta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Ecosystem identifiers.
const (
	Python   = "python"
	Homebrew = "homebrew"
	VSCode   = "vscode"
	Node     = "node"
)

// Info describes one detected ecosystem.
type Info struct {
	Ecosystem string   // one of the identifiers above
	Name      string   // project/package name when it could be read
	Evidence  []string // root-relative files that triggered detection
}

// Summary renders the info as "python project \"name\" (pyproject.toml)".
func (i Info) Summary() string {
	var b strings.Builder
	b.WriteString(i.Ecosystem)
	switch i.Ecosystem {
	case Homebrew:
		b.WriteString(" formula")
	case VSCode:
		b.WriteString(" extension")
	case Node:
		b.WriteString(" package")
	default:
		b.WriteString(" project")
	}
	if i.Name != "" {
		b.WriteString(` "` + i.Name + `"`)
	}
	if len(i.Evidence) > 0 {
		b.WriteString(" (" + strings.Join(i.Evidence, ", ") + ")")
	}
	return b.String()
}

// Detect probes the given root-relative paths (as produced by a tree walk)
// and returns every ecosystem found, in a stable order:
// Python > Homebrew > VSCode > Node. A package.json that describes a VSCode
// extension is reported as VSCode only.
func Detect(root string, rels []string) []Info {
	absRoot, _ := filepath.Abs(root)
	var out []Info
	if inf, ok := detectPython(absRoot, rels); ok {
		out = append(out, inf)
	}
	if inf, ok := detectHomebrew(absRoot, rels); ok {
		out = append(out, inf)
	}
	if inf, ok := detectNode(absRoot, rels); ok {
		out = append(out, inf)
	}
	return out
}

// Find returns the info for ecosystem, if detected.
func Find(infos []Info, ecosystem string) (Info, bool) {
	for _, i := range infos {
		if i.Ecosystem == ecosystem {
			return i, true
		}
	}
	return Info{}, false
}

// ------------------------------ Python ---------------------------------------

var (
	rePyprojectName = regexp.MustCompile(`^\s*name\s*=\s*["']([^"']+)["']`)
	reTomlTable     = regexp.MustCompile(`^\s*\[+\s*([^\]]+?)\s*\]+\s*(#.*)?$`)
	reSetupPyName   = regexp.MustCompile(`name\s*=\s*["']([^"']+)["']`)
	reSetupCfgName  = regexp.MustCompile(`(?m)^\s*name\s*=\s*(\S+)`)
)

func detectPython(root string, rels []string) (Info, bool) {
	markers := []string{"pyproject.toml", "setup.py", "setup.cfg", "Pipfile", "poetry.lock"}
	var ev []string
	for _, m := range markers {
		if containsPath(rels, m) {
			ev = append(ev, m)
		}
	}
	for _, r := range rels {
		if base := filepath.Base(r); strings.HasPrefix(base, "requirements") && strings.HasSuffix(base, ".txt") && !strings.Contains(r, "/") {
			ev = append(ev, r)
		}
	}
	if len(ev) == 0 {
		return Info{}, false
	}
	name := pyprojectName(filepath.Join(root, "pyproject.toml"))
	if name == "" {
		name = scanFirst(filepath.Join(root, "setup.cfg"), reSetupCfgName)
	}
	if name == "" {
		name = scanFirst(filepath.Join(root, "setup.py"), reSetupPyName)
	}
	return Info{Ecosystem: Python, Name: name, Evidence: ev}, true
}

// pyprojectName returns the name declared in the [project] table, falling
// back to [tool.poetry]. Names in other tables (sources, scripts) are ignored.
func pyprojectName(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	table, poetry := "", ""
	for _, ln := range strings.Split(string(b), "\n") {
		if m := reTomlTable.FindStringSubmatch(ln); m != nil {
			table = m[1]
			if strings.HasPrefix(strings.TrimSpace(ln), "[[") {
				table = "[[" + table + "]]"
			}
			continue
		}
		m := rePyprojectName.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		switch table {
		case "project":
			return strings.TrimSpace(m[1])
		case "tool.poetry":
			if poetry == "" {
				poetry = strings.TrimSpace(m[1])
			}
		}
	}
	return poetry
}

// ------------------------------ Homebrew -------------------------------------

var reBrewClass = regexp.MustCompile(`(?m)^\s*class\s+([A-Z][A-Za-z0-9]*)\s*<\s*(Formula|Cask)\b`)
var reBrewCask = regexp.MustCompile(`(?m)^\s*cask\s+["']([^"']+)["']\s+do`)

func detectHomebrew(root string, rels []string) (Info, bool) {
	var ev []string
	name := ""
	for _, r := range rels {
		if r == "Brewfile" {
			ev = append(ev, r)
			continue
		}
		if !strings.HasSuffix(r, ".rb") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(r)))
		if err != nil {
			continue
		}
		if reBrewClass.Match(b) {
			ev = append(ev, r)
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(r), ".rb")
			}
		} else if m := reBrewCask.FindSubmatch(b); m != nil {
			ev = append(ev, r)
			if name == "" {
				name = string(m[1])
			}
		}
	}
	if len(ev) == 0 {
		return Info{}, false
	}
	return Info{Ecosystem: Homebrew, Name: name, Evidence: ev}, true
}

// ------------------------------ Node / VSCode --------------------------------

type packageJSON struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName"`
	Publisher   string            `json:"publisher"`
	Engines     map[string]string `json:"engines"`
	Contributes json.RawMessage   `json:"contributes"`
}

func detectNode(root string, rels []string) (Info, bool) {
	var ev []string
	vscode := false
	name := ""
	if containsPath(rels, "package.json") {
		ev = append(ev, "package.json")
		if b, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
			var p packageJSON
			if json.Unmarshal(b, &p) == nil {
				name = firstNonEmpty(p.Name, p.DisplayName)
				_, hasEngine := p.Engines["vscode"]
				vscode = hasEngine || len(p.Contributes) > 0
			}
		}
	}
	for _, m := range []string{".vscodeignore", "vsc-extension-quickstart.md"} {
		if containsPath(rels, m) {
			ev = append(ev, m)
			vscode = true
		}
	}
	for _, r := range rels {
		if strings.HasSuffix(r, ".vsix") {
			ev = append(ev, r)
			vscode = true
		}
	}
	if len(ev) == 0 {
		return Info{}, false
	}
	sort.Strings(ev)
	eco := Node
	if vscode {
		eco = VSCode
	}
	return Info{Ecosystem: eco, Name: name, Evidence: ev}, true
}

// ---------------------------- helpers ---------------------------------------

func containsPath(rels []string, p string) bool {
	for _, r := range rels {
		if r == p {
			return true
		}
	}
	return false
}

func scanFirst(path string, rx *regexp.Regexp) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if m := rx.FindSubmatch(b); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return ""
}
