package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUTF8LF(t *testing.T) {
	assert.Equal(t, "a\nb\nc\n", string(NormalizeUTF8LF([]byte("a\r\nb\rc\n"))))
	assert.Equal(t, "x\uFFFDy", string(NormalizeUTF8LF([]byte("x\xffy"))))
}

func TestEnsureTrailingLF(t *testing.T) {
	assert.Equal(t, "a\n", string(EnsureTrailingLF([]byte("a"))))
	assert.Equal(t, "a\n", string(EnsureTrailingLF([]byte("a\n"))))
	assert.Empty(t, EnsureTrailingLF(nil))
}

func TestBOM(t *testing.T) {
	b := []byte("\xef\xbb\xbf{}")
	assert.True(t, HasBOM(b))
	assert.Equal(t, "{}", string(StripBOM(b)))
	assert.False(t, HasBOM([]byte("{}")))
}
