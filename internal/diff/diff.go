// Package diff renders the unified patch between a manifest as written and
// its canonical form, using github.com/pmezard/go-difflib/difflib.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

const defaultContext = 3

// Options controls patch generation.
type Options struct {
	// MaxBytes caps len(a)+len(b); larger inputs get a placeholder patch.
	// 0 means no limit.
	MaxBytes int
	// Context lines around each hunk; 0 means 3.
	Context int
}

// Patch is a rendered unified diff with line counts.
type Patch struct {
	Body     string
	Added    int
	Removed  int
	Oversize bool
}

// Empty reports whether the inputs were identical.
func (p Patch) Empty() bool { return p.Body == "" }

// Stat summarizes the patch as "+N -M lines".
func (p Patch) Stat() string {
	if p.Oversize {
		return "too large to diff"
	}
	return fmt.Sprintf("+%d -%d lines", p.Added, p.Removed)
}

// Unified diffs a against b. Identical inputs give an empty Patch.
func Unified(from, to string, a, b []byte, opt Options) Patch {
	if string(a) == string(b) {
		return Patch{}
	}
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return Patch{
			Body:     fmt.Sprintf("--- %s\n+++ %s\n# diff omitted: %d bytes over the %d byte limit\n", from, to, len(a)+len(b)-opt.MaxBytes, opt.MaxBytes),
			Oversize: true,
		}
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = defaultContext
	}

	al, bl := lines(string(a)), lines(string(b))
	var p Patch
	for _, op := range difflib.NewMatcher(al, bl).GetOpCodes() {
		switch op.Tag {
		case 'r':
			p.Removed += op.I2 - op.I1
			p.Added += op.J2 - op.J1
		case 'd':
			p.Removed += op.I2 - op.I1
		case 'i':
			p.Added += op.J2 - op.J1
		}
	}

	var sb strings.Builder
	err := difflib.WriteUnifiedDiff(&sb, difflib.UnifiedDiff{
		A:        al,
		B:        bl,
		FromFile: from,
		ToFile:   to,
		Context:  ctx,
	})
	if err != nil {
		sb.Reset()
		fmt.Fprintf(&sb, "--- %s\n+++ %s\n# diff unavailable: %v\n", from, to, err)
	}
	p.Body = sb.String()
	return p
}

// lines splits s keeping each "\n". A last line without one is tagged like
// git does, so a missing final newline is visible in the patch.
func lines(s string) []string {
	if s == "" {
		return nil
	}
	out := strings.SplitAfter(s, "\n")
	n := len(out) - 1
	if out[n] == "" {
		return out[:n]
	}
	out[n] += "\n\\ No newline at end of file\n"
	return out
}
