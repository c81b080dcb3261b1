package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedEqual(t *testing.T) {
	p := Unified("a", "b", []byte("x\n"), []byte("x\n"), Options{})
	assert.True(t, p.Empty())
	assert.False(t, p.Oversize)
}

func TestUnifiedHunk(t *testing.T) {
	a := []byte("{\n  \"version\": \"1\"\n}\n")
	b := []byte("{\n    \"version\": \"1\"\n}\n")
	p := Unified("bucket/tool.json", "bucket/tool.json (formatted)", a, b, Options{})
	assert.False(t, p.Oversize)
	assert.True(t, strings.HasPrefix(p.Body, "--- bucket/tool.json\n+++ bucket/tool.json (formatted)\n"), p.Body)
	assert.Contains(t, p.Body, "\n-  \"version\": \"1\"\n")
	assert.Contains(t, p.Body, "\n+    \"version\": \"1\"\n")
	assert.Equal(t, 1, p.Added)
	assert.Equal(t, 1, p.Removed)
	assert.Equal(t, "+1 -1 lines", p.Stat())
}

func TestUnifiedInsertOnly(t *testing.T) {
	p := Unified("a", "b", []byte("1\n2\n"), []byte("1\n2\n3\n4\n"), Options{})
	assert.Equal(t, 2, p.Added)
	assert.Equal(t, 0, p.Removed)
}

func TestUnifiedMissingFinalNewline(t *testing.T) {
	p := Unified("a", "b", []byte("{}"), []byte("{}\n"), Options{})
	assert.Contains(t, p.Body, "\\ No newline at end of file")
}

func TestUnifiedOversize(t *testing.T) {
	p := Unified("a", "b", []byte("aaaa"), []byte("bbbb"), Options{MaxBytes: 4})
	assert.True(t, p.Oversize)
	assert.Contains(t, p.Body, "diff omitted: 4 bytes over the 4 byte limit")
	assert.Equal(t, "too large to diff", p.Stat())
}
