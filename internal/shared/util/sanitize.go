package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxFileNameBytes caps stored file names; the extension is kept when trimming.
const MaxFileNameBytes = 120

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens an uploaded CV name into a single storage-safe
// segment. Traversal patterns are rejected outright.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "", errInvalidFileName
	}
	if len(s) > MaxFileNameBytes {
		ext := filepath.Ext(s)
		if len(ext) > 10 {
			ext = ""
		}
		s = strings.ToValidUTF8(s[:MaxFileNameBytes-len(ext)], "") + ext
	}
	return s, nil
}
