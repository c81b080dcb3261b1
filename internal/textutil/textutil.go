// Package textutil normalizes text before comparison.
package textutil

import "bytes"

// NormalizeUTF8LF converts CRLF to LF and ensures the output is valid UTF-8
// by replacing invalid byte sequences with the Unicode replacement character.
func NormalizeUTF8LF(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	return bytes.ToValidUTF8(b, []byte("\uFFFD"))
}

// EnsureTrailingLF appends a single \n if not already present.
func EnsureTrailingLF(b []byte) []byte {
	if len(b) == 0 || b[len(b)-1] == '\n' {
		return b
	}
	return append(b, '\n')
}

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
}

// HasBOM reports whether b starts with a UTF-8 byte order mark.
func HasBOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte("\xef\xbb\xbf"))
}
