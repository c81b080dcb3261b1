// Package validate checks a decoded Scoop manifest against the structural
// and semantic rules a bucket expects. It is not a full JSON-Schema
// validator; it checks the constraints that commonly catch bad manifests.
//
// Every issue is collected rather than stopping at the first, so a single
// run shows the whole picture.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"bucket-check/internal/manifest"
)

// Severity of an Issue.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Issue is one finding about a manifest field.
type Issue struct {
	Severity Severity
	Field    string
	Message  string
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// Rules parameterize Manifest.
type Rules struct {
	RequiredFields    []string
	RecommendedFields []string
	RequiredDepends   []string
}

// Manifest validates m and returns every issue found, errors first, each
// group in field order. A nil result means the manifest is clean.
//
//   - Required fields are present and non-empty.
//   - Version has no whitespace and no leading "v".
//   - Homepage and download URLs are absolute http(s) URLs; plain http
//     downloads are warned about.
//   - A download exists at the top level or in every architecture block,
//     and url/hash counts agree.
//   - Hashes are sha256 hex or algorithm-prefixed hex of the right length.
//   - License carries an identifier.
//   - Depends lists every required dependency.
//   - Hook fields are strings or lists of strings.
//   - Autoupdate URLs use the $version placeholder.
//   - Recommended fields and unknown keys are warned about.
func Manifest(m *manifest.Manifest, r Rules) []Issue {
	var errs errlist

	checkRequired(&errs, m, r.RequiredFields)
	checkVersion(&errs, m)
	checkHomepage(&errs, m)
	checkLicense(&errs, m)
	checkDownloads(&errs, m)
	checkDepends(&errs, m, r.RequiredDepends)
	checkHooks(&errs, m)
	checkAutoupdate(&errs, m)

	for _, f := range r.RecommendedFields {
		if !m.Has(f) {
			errs.warn(f, "recommended field is missing")
		}
	}
	for _, k := range m.Keys {
		if _, ok := manifest.KnownFields[k]; !ok {
			errs.warn(k, "unknown top-level field")
		}
	}

	return errs.sorted()
}

func checkRequired(errs *errlist, m *manifest.Manifest, fields []string) {
	for _, f := range fields {
		raw, ok := m.Field(f)
		if !ok || !m.Has(f) {
			errs.add(f, "required field is missing")
			continue
		}
		if isEmptyValue(raw) {
			errs.add(f, "required field is empty")
		}
	}
}

var reVersion = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.\-_+]*$`)

func checkVersion(errs *errlist, m *manifest.Manifest) {
	v := m.Version
	if v == "" {
		return // reported by checkRequired when version is required
	}
	if strings.HasPrefix(v, "v") || strings.HasPrefix(v, "V") {
		errs.add("version", "must not start with %q (got %q)", v[:1], v)
	}
	if strings.ContainsAny(v, " \t\r\n") {
		errs.add("version", "must not contain whitespace (got %q)", v)
	} else if !reVersion.MatchString(v) {
		errs.warn("version", "contains unusual characters (got %q)", v)
	}
}

func checkHomepage(errs *errlist, m *manifest.Manifest) {
	if m.Homepage == "" {
		return
	}
	if err := httpURL(m.Homepage); err != nil {
		errs.add("homepage", "%v", err)
	}
}

func checkLicense(errs *errlist, m *manifest.Manifest) {
	if !m.Has("license") {
		return
	}
	if strings.TrimSpace(m.License.Identifier) == "" {
		errs.add("license", "identifier must be non-empty")
	}
	if m.License.URL != "" {
		if err := httpURL(m.License.URL); err != nil {
			errs.add("license.url", "%v", err)
		}
	}
}

func checkDownloads(errs *errlist, m *manifest.Manifest) {
	dls := m.Downloads()
	if len(dls) == 0 {
		errs.add("url", "no download: set url/hash at the top level or per architecture")
		return
	}
	topLevel := len(m.URL) > 0
	for _, dl := range dls {
		field := dl.Field
		if dl.Field != "url" {
			field += ".url"
		}
		if len(dl.URL) == 0 && !topLevel {
			errs.add(field, "missing download url")
		}
		for i, u := range dl.URL {
			if err := httpURL(u); err != nil {
				errs.add(indexed(field, i, len(dl.URL)), "%v", err)
				continue
			}
			if strings.HasPrefix(strings.ToLower(u), "http://") {
				errs.warn(indexed(field, i, len(dl.URL)), "download over plain http")
			}
		}
		checkHashes(errs, dl, topLevel)
	}
	for _, dl := range dls {
		a := strings.TrimPrefix(dl.Field, "architecture.")
		if a != dl.Field && !isKnownArch(a) {
			errs.add(dl.Field, "unknown architecture (want one of %s)", strings.Join(manifest.Architectures, ", "))
		}
	}
}

func checkHashes(errs *errlist, dl manifest.Download, topLevel bool) {
	field := dl.Field
	if dl.Field != "url" {
		field += ".hash"
	} else {
		field = "hash"
	}
	if len(dl.URL) == 0 && topLevel && len(dl.Hash) == 0 {
		return
	}
	if len(dl.Hash) == 0 {
		errs.add(field, "missing hash")
		return
	}
	if len(dl.URL) > 0 && len(dl.Hash) != len(dl.URL) {
		errs.add(field, "has %d entries but url has %d", len(dl.Hash), len(dl.URL))
	}
	for i, h := range dl.Hash {
		if err := checkHash(h); err != nil {
			errs.add(indexed(field, i, len(dl.Hash)), "%v", err)
		}
	}
}

var hashLens = map[string]int{"md5": 32, "sha1": 40, "sha256": 64, "sha512": 128}

var reHex = regexp.MustCompile(`^[0-9a-f]+$`)

// checkHash accepts bare sha256 hex or "<algo>:<hex>".
func checkHash(h string) error {
	algo, hex := "sha256", h
	if i := strings.IndexByte(h, ':'); i >= 0 {
		algo, hex = strings.ToLower(h[:i]), h[i+1:]
	}
	want, ok := hashLens[algo]
	if !ok {
		return fmt.Errorf("unsupported hash algorithm %q", algo)
	}
	if !reHex.MatchString(hex) {
		return fmt.Errorf("hash must be lowercase hex, got %q", h)
	}
	if len(hex) != want {
		return fmt.Errorf("%s hash must be %d hex chars, got %d", algo, want, len(hex))
	}
	return nil
}

func checkDepends(errs *errlist, m *manifest.Manifest, required []string) {
	have := make(map[string]struct{}, len(m.Depends))
	for _, d := range m.Depends {
		have[strings.ToLower(depName(d))] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[strings.ToLower(r)]; !ok {
			errs.add("depends", "must include %q", r)
		}
	}
}

// depName strips a bucket qualifier: "main/python" -> "python".
func depName(d string) string {
	if i := strings.LastIndexByte(d, '/'); i >= 0 {
		return d[i+1:]
	}
	return d
}

func checkHooks(errs *errlist, m *manifest.Manifest) {
	for _, f := range manifest.HookFields {
		raw, ok := m.Field(f)
		if !ok || !m.Has(f) {
			continue
		}
		if !isStringOrStrings(raw) {
			errs.add(f, "must be a string or a list of strings")
		} else if isEmptyValue(raw) {
			errs.warn(f, "script is empty")
		}
	}
	// installer.file defaults to the last downloaded file
	if in := m.Installer; in != nil && in.File == "" && len(in.Script) == 0 && len(in.Args) == 0 {
		errs.warn("installer", "has no file, script or args")
	}
	if un := m.Uninstaller; un != nil && un.File == "" && len(un.Script) == 0 {
		errs.add("uninstaller", "needs a file or a script")
	}
}

func checkAutoupdate(errs *errlist, m *manifest.Manifest) {
	au := m.Autoupdate
	if au == nil {
		return
	}
	if len(au.URL) == 0 && len(au.Architecture) == 0 {
		errs.add("autoupdate", "needs a url at the top level or per architecture")
		return
	}
	for i, u := range au.URL {
		if !strings.Contains(u, "$version") {
			errs.warn(indexed("autoupdate.url", i, len(au.URL)), "does not use the $version placeholder")
		}
	}
	arches := make([]string, 0, len(au.Architecture))
	for a := range au.Architecture {
		arches = append(arches, a)
	}
	sort.Strings(arches)
	for _, a := range arches {
		us := au.Architecture[a].URL
		field := "autoupdate.architecture." + a + ".url"
		for i, u := range us {
			if !strings.Contains(u, "$version") {
				errs.warn(indexed(field, i, len(us)), "does not use the $version placeholder")
			}
		}
	}
}

// --- helpers -----------------------------------------------------------------

func httpURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url %q: %v", s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got %q", s)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host, got %q", s)
	}
	return nil
}

func isKnownArch(a string) bool {
	for _, k := range manifest.Architectures {
		if a == k {
			return true
		}
	}
	return false
}

func indexed(field string, i, n int) string {
	if n <= 1 {
		return field
	}
	return fmt.Sprintf("%s[%d]", field, i)
}

func isStringOrStrings(raw json.RawMessage) bool {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return true
	}
	var many []string
	return json.Unmarshal(raw, &many) == nil
}

// isEmptyValue reports "", [], {} and whitespace-only strings or lists of
// them.
func isEmptyValue(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		for _, e := range t {
			if s, ok := e.(string); !ok || strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// errlist aggregates issues.
type errlist struct {
	issues []Issue
}

func (e *errlist) add(field, format string, args ...any) {
	e.issues = append(e.issues, Issue{Severity: Error, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *errlist) warn(field, format string, args ...any) {
	e.issues = append(e.issues, Issue{Severity: Warning, Field: field, Message: fmt.Sprintf(format, args...)})
}

// sorted returns errors before warnings, keeping insertion order within each.
func (e *errlist) sorted() []Issue {
	if len(e.issues) == 0 {
		return nil
	}
	out := append([]Issue(nil), e.issues...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity < out[j].Severity })
	return out
}
