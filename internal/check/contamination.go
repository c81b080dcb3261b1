package check

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bucket-check/internal/config"
	"bucket-check/internal/meta"
	"bucket-check/internal/walkwalk"
)

// hit is one forbidden path and the pattern that caught it.
type hit struct {
	path    string
	pattern string
	dir     bool
}

// childProbe is appended to a directory path to ask whether a pattern
// claims the directory's contents ("src/**", "tests/*").
const childProbe = "/\x00"

// matchForbidden returns the paths matching any pattern. A matched
// directory is reported once and its contents are not listed separately.
func matchForbidden(entries []walkwalk.Entry, patterns []string) []hit {
	var hits []hit
	covered := make(map[string]struct{})
	for _, e := range entries {
		if underCovered(e.RelPath, covered) {
			continue
		}
		for _, p := range patterns {
			ok, _ := doublestar.Match(p, e.RelPath)
			if !ok && e.IsDir {
				ok, _ = doublestar.Match(p, e.RelPath+childProbe)
			}
			if !ok {
				continue
			}
			hits = append(hits, hit{path: e.RelPath, pattern: p, dir: e.IsDir})
			if e.IsDir {
				covered[e.RelPath] = struct{}{}
			}
			break
		}
	}
	return hits
}

// underCovered reports whether any parent directory of rel is in covered.
func underCovered(rel string, covered map[string]struct{}) bool {
	for i := strings.LastIndexByte(rel, '/'); i > 0; i = strings.LastIndexByte(rel[:i], '/') {
		if _, ok := covered[rel[:i]]; ok {
			return true
		}
	}
	return false
}

func checkMainProject(_ context.Context, r *runner) error {
	const pass = config.PassMainProject
	entries, err := r.tree()
	if err != nil {
		return err
	}
	hits := matchForbidden(entries, r.cfg.Rules.MainProjectPaths)
	if len(hits) == 0 {
		r.pass(pass, "forbidden-path", "", "no main project files found")
		return nil
	}
	hint := ""
	if inf, ok := meta.Find(meta.Detect(r.root, relPaths(entries)), meta.Python); ok {
		hint = "; tree contains " + inf.Summary()
	}
	for _, h := range hits {
		r.fail(pass, "forbidden-path", h.path, "%s belongs to the main project (matches %s)%s", describe(h), h.pattern, hint)
	}
	return nil
}

func checkPackageManagers(_ context.Context, r *runner) error {
	const pass = config.PassPackageManagers
	entries, err := r.tree()
	if err != nil {
		return err
	}
	var detected []meta.Info
	detectedOnce := false
	for _, eco := range r.cfg.Ecosystems() {
		hits := matchForbidden(entries, r.cfg.Rules.PackageManagerPaths[eco])
		if len(hits) == 0 {
			r.pass(pass, eco, "", "no %s files found", eco)
			continue
		}
		if !detectedOnce {
			detected = meta.Detect(r.root, relPaths(entries))
			detectedOnce = true
		}
		hint := ""
		for _, want := range ecosystemAliases(eco) {
			if inf, ok := meta.Find(detected, want); ok {
				hint = "; tree contains " + inf.Summary()
				break
			}
		}
		for _, h := range hits {
			r.fail(pass, eco, h.path, "%s belongs to %s packaging (matches %s)%s", describe(h), eco, h.pattern, hint)
		}
	}
	return nil
}

// ecosystemAliases maps a configured ecosystem name to the detector
// identifiers that describe it.
func ecosystemAliases(eco string) []string {
	switch eco {
	case meta.VSCode:
		return []string{meta.VSCode, meta.Node}
	default:
		return []string{eco}
	}
}

func describe(h hit) string {
	if h.dir {
		return "directory " + h.path + "/"
	}
	return h.path
}

func relPaths(entries []walkwalk.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}
