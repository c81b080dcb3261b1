// Package manifest decodes Scoop app manifests.
//
// Scoop accepts several shapes for the same field (a single string or a list
// of strings, a license string or a license object, bin entries with
// aliases). The types here normalize those shapes while remembering which
// top-level keys were actually present in the document.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"bucket-check/internal/textutil"
)

// ErrNotFound is returned by Discover when no manifest matches the glob.
var ErrNotFound = errors.New("no manifest found")

// Architectures recognised by Scoop.
var Architectures = []string{"64bit", "32bit", "arm64"}

// HookFields are the install/uninstall script fields. Each holds a string
// or a list of strings.
var HookFields = []string{"pre_install", "post_install", "pre_uninstall", "post_uninstall"}

// KnownFields are the top-level keys Scoop understands.
var KnownFields = map[string]struct{}{
	"##": {}, "$schema": {}, "architecture": {}, "autoupdate": {}, "bin": {},
	"checkver": {}, "cookie": {}, "depends": {}, "description": {},
	"env_add_path": {}, "env_set": {}, "extract_dir": {}, "extract_to": {},
	"hash": {}, "homepage": {}, "innosetup": {}, "installer": {}, "license": {},
	"notes": {}, "persist": {}, "post_install": {}, "post_uninstall": {},
	"pre_install": {}, "pre_uninstall": {}, "psmodule": {}, "shortcuts": {},
	"suggest": {}, "uninstaller": {}, "url": {}, "version": {},
}

// Manifest is a decoded Scoop manifest.
type Manifest struct {
	Version     string            `json:"version"`
	Description StringList        `json:"description"`
	Homepage    string            `json:"homepage"`
	License     License           `json:"license"`
	URL         StringList        `json:"url"`
	Hash        StringList        `json:"hash"`
	ExtractDir  StringList        `json:"extract_dir"`
	Bin         Bins              `json:"bin"`
	Depends     StringList        `json:"depends"`
	Suggest     json.RawMessage   `json:"suggest"`
	EnvAddPath  StringList        `json:"env_add_path"`
	EnvSet      map[string]string `json:"env_set"`
	Persist     json.RawMessage   `json:"persist"`
	Shortcuts   [][]string        `json:"shortcuts"`
	Notes       StringList        `json:"notes"`

	Architecture map[string]Arch `json:"architecture"`

	PreInstall    json.RawMessage `json:"pre_install"`
	PostInstall   json.RawMessage `json:"post_install"`
	PreUninstall  json.RawMessage `json:"pre_uninstall"`
	PostUninstall json.RawMessage `json:"post_uninstall"`
	Installer     *Installer      `json:"installer"`
	Uninstaller   *Installer      `json:"uninstaller"`

	Checkver   json.RawMessage `json:"checkver"`
	Autoupdate *Autoupdate     `json:"autoupdate"`

	// Path is the file the manifest was read from.
	Path string `json:"-"`
	// Keys are the top-level keys present in the document, sorted.
	Keys []string `json:"-"`
	// Raw is the file content as read.
	Raw []byte `json:"-"`
	// fields keeps the raw value of every top-level key.
	fields map[string]json.RawMessage
}

// Arch is an architecture-specific override block.
type Arch struct {
	URL        StringList `json:"url"`
	Hash       StringList `json:"hash"`
	Bin        Bins       `json:"bin"`
	ExtractDir StringList `json:"extract_dir"`
}

// Installer describes an installer or uninstaller block.
type Installer struct {
	File   string     `json:"file"`
	Args   StringList `json:"args"`
	Script StringList `json:"script"`
	Keep   bool       `json:"keep"`
}

// Autoupdate holds the URL templates used by Scoop's updater.
type Autoupdate struct {
	URL          StringList                `json:"url"`
	ExtractDir   StringList                `json:"extract_dir"`
	Architecture map[string]AutoupdateArch `json:"architecture"`
}

// AutoupdateArch holds per-architecture URL templates.
type AutoupdateArch struct {
	URL StringList `json:"url"`
}

// Download is one url/hash pairing, either top-level or from an
// architecture block.
type Download struct {
	Field string // "url" or "architecture.<arch>"
	URL   []string
	Hash  []string
}

// Load reads and decodes the manifest at p.
func Load(p string) (*Manifest, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	m.Path = p
	return m, nil
}

// Parse decodes a manifest from raw JSON. A leading UTF-8 byte order mark
// is skipped for decoding; Raw keeps the bytes as given.
func Parse(b []byte) (*Manifest, error) {
	body := textutil.StripBOM(b)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, locate(body, err)
	}
	if fields == nil {
		return nil, errors.New("manifest must be a JSON object")
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, locate(body, err)
	}
	m.fields = fields
	m.Raw = b
	m.Keys = make([]string, 0, len(fields))
	for k := range fields {
		m.Keys = append(m.Keys, k)
	}
	sort.Strings(m.Keys)
	return &m, nil
}

// Has reports whether key is present at the top level with a non-null value.
func (m *Manifest) Has(key string) bool {
	v, ok := m.fields[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// Field returns the raw value of a top-level key.
func (m *Manifest) Field(key string) (json.RawMessage, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// Name is the Scoop app name: the file base name without ".json".
func (m *Manifest) Name() string {
	return Name(m.Path)
}

// Downloads returns the top-level download and every architecture block,
// architectures in Scoop's canonical order.
func (m *Manifest) Downloads() []Download {
	var out []Download
	if len(m.URL) > 0 || len(m.Hash) > 0 {
		out = append(out, Download{Field: "url", URL: m.URL, Hash: m.Hash})
	}
	for _, a := range m.archNames() {
		blk := m.Architecture[a]
		out = append(out, Download{Field: "architecture." + a, URL: blk.URL, Hash: blk.Hash})
	}
	return out
}

// archNames lists present architecture keys: known ones first in canonical
// order, unknown ones after in sorted order.
func (m *Manifest) archNames() []string {
	var out []string
	seen := make(map[string]struct{}, len(m.Architecture))
	for _, a := range Architectures {
		if _, ok := m.Architecture[a]; ok {
			out = append(out, a)
			seen[a] = struct{}{}
		}
	}
	var rest []string
	for a := range m.Architecture {
		if _, ok := seen[a]; !ok {
			rest = append(rest, a)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Name derives the Scoop app name from a manifest path.
func Name(p string) string {
	return strings.TrimSuffix(path.Base(strings.ReplaceAll(p, `\`, "/")), ".json")
}

// Discover returns the slash-separated paths, relative to root, of every
// manifest matching glob, sorted.
func Discover(root, glob string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discover manifests %q: %w", glob, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNotFound, glob)
	}
	sort.Strings(matches)
	return matches, nil
}

// locate adds a line:column position to JSON decoding errors.
func locate(b []byte, err error) error {
	var offset int64 = -1
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	}
	if offset < 0 {
		return err
	}
	line, col := position(b, offset)
	return fmt.Errorf("line %d, column %d: %w", line, col, err)
}

// position converts a byte offset to a 1-based line and a 1-based column
// counted in runes.
func position(b []byte, offset int64) (line, col int) {
	if offset > int64(len(b)) {
		offset = int64(len(b))
	}
	head := b[:offset]
	line = 1 + bytes.Count(head, []byte("\n"))
	if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
		head = head[i+1:]
	}
	return line, 1 + utf8.RuneCount(head)
}
