package check

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bucket-check/internal/config"
	"bucket-check/internal/manifest"
)

// Scoop app names: lowercase, digits, dot, dash, underscore.
var reAppName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func checkStructure(_ context.Context, r *runner) error {
	const pass = config.PassStructure

	for _, p := range r.cfg.Rules.RequiredPaths {
		full := filepath.Join(r.root, filepath.FromSlash(p))
		if _, err := os.Stat(full); err != nil {
			r.fail(pass, "required-path", p, "required path %s is missing", p)
			continue
		}
		r.pass(pass, "required-path", p, "%s exists", p)
	}

	found, err := manifest.Discover(r.root, r.cfg.ManifestGlob)
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		r.fail(pass, "manifest-present", "", "no manifest matches %s", r.cfg.ManifestGlob)
	case err != nil:
		return err
	default:
		r.pass(pass, "manifest-present", "", "%d manifest(s) match %s", len(found), r.cfg.ManifestGlob)
	}
	for _, rel := range found {
		name := manifest.Name(rel)
		if !reAppName.MatchString(name) {
			r.fail(pass, "manifest-name", rel, "app name %q must be lowercase letters, digits, '.', '-' or '_'", name)
		}
	}

	return checkStrayManifests(r)
}

// checkStrayManifests warns about JSON files outside the manifest glob that
// look like Scoop manifests; Scoop would not see them.
func checkStrayManifests(r *runner) error {
	const pass = config.PassStructure
	entries, err := r.tree()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(strings.ToLower(e.RelPath), ".json") {
			continue
		}
		if ok, _ := doublestar.Match(r.cfg.ManifestGlob, e.RelPath); ok {
			continue
		}
		m, err := manifest.Load(filepath.Join(r.root, filepath.FromSlash(e.RelPath)))
		if err != nil {
			continue
		}
		if m.Has("version") && len(m.Downloads()) > 0 {
			r.warn(pass, "stray-manifest", e.RelPath, "%s looks like a manifest but is outside %s", e.RelPath, r.cfg.ManifestGlob)
		}
	}
	return nil
}
