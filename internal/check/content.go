package check

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"bucket-check/internal/config"
	"bucket-check/internal/diff"
	"bucket-check/internal/manifest"
	"bucket-check/internal/textutil"
	"bucket-check/internal/validate"
)

// maxDiffBytes bounds the size of format diffs carried in results.
const maxDiffBytes = 256 << 10

func checkManifests(ctx context.Context, r *runner) error {
	const pass = config.PassManifest

	found, err := manifest.Discover(r.root, r.cfg.ManifestGlob)
	if errors.Is(err, manifest.ErrNotFound) {
		if !r.cfg.PassEnabled(config.PassStructure) {
			r.fail(pass, "manifest-present", "", "no manifest matches %s", r.cfg.ManifestGlob)
		}
		// otherwise already reported by the structure pass
		return nil
	}
	if err != nil {
		return err
	}

	rules := validate.Rules{
		RequiredFields:    r.cfg.Rules.RequiredFields,
		RecommendedFields: r.cfg.Rules.RecommendedFields,
		RequiredDepends:   r.cfg.Rules.RequiredDepends,
	}
	for _, rel := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := manifest.Load(filepath.Join(r.root, filepath.FromSlash(rel)))
		if err != nil {
			r.fail(pass, "parse", rel, "%v", trimPathPrefix(err, r.root))
			continue
		}
		r.log.Debug("manifest loaded", zap.String("path", rel), zap.Strings("keys", m.Keys))

		issues := validate.Manifest(m, rules)
		for _, is := range issues {
			res := Result{Pass: pass, Name: is.Field, Path: rel, Message: is.String(), Status: StatusFail}
			if is.Severity == validate.Warning {
				res.Status = StatusWarn
			}
			r.add(res)
		}
		if countErrors(issues) == 0 {
			r.pass(pass, "content", rel, "%s %s is valid", m.Name(), m.Version)
		}

		if r.cfg.Rules.CheckFormat {
			checkFormat(r, rel, m.Raw)
		}
	}
	return nil
}

// checkFormat compares the file with its canonical indentation.
func checkFormat(r *runner, rel string, raw []byte) {
	const pass = config.PassManifest
	if textutil.HasBOM(raw) {
		r.warn(pass, "encoding", rel, "%s starts with a UTF-8 byte order mark", rel)
	}
	have := textutil.NormalizeUTF8LF(textutil.StripBOM(raw))
	want, err := Canonical(have, r.cfg.Rules.Indent)
	if err != nil {
		// a parse failure was already reported
		return
	}
	p := diff.Unified(rel, rel+" (formatted)", have, want, diff.Options{MaxBytes: maxDiffBytes})
	if p.Empty() {
		r.pass(pass, "format", rel, "%s is formatted", rel)
		return
	}
	r.add(Result{
		Pass:    pass,
		Name:    "format",
		Status:  StatusWarn,
		Path:    rel,
		Message: rel + " is not in canonical format (" + p.Stat() + ")",
		Detail:  p.Body,
	})
}

// Canonical re-indents a JSON document with indent, keeping key order, and
// ends it with a single newline.
func Canonical(b []byte, indent string) ([]byte, error) {
	if indent == "" {
		indent = "    "
	}
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(b), "", indent); err != nil {
		return nil, err
	}
	return textutil.EnsureTrailingLF(out.Bytes()), nil
}

func countErrors(issues []validate.Issue) int {
	n := 0
	for _, is := range issues {
		if is.Severity == validate.Error {
			n++
		}
	}
	return n
}

// trimPathPrefix shortens "<abs root>/bucket/x.json: ..." to
// "bucket/x.json: ...".
func trimPathPrefix(err error, root string) string {
	msg := err.Error()
	prefix := root + string(filepath.Separator)
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return filepath.ToSlash(msg[len(prefix):])
	}
	return msg
}
