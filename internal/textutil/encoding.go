package textutil

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

const utf8BOM = "\ufeff"

// DecodeSubtitle returns data as UTF-8 text. Valid UTF-8 passes through;
// anything else is decoded with the named fallback charset (for example
// "windows-1250", which many Central European subtitle files use).
func DecodeSubtitle(data []byte, fallback string) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), utf8BOM), nil
	}
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		return "", fmt.Errorf("input is not valid UTF-8 and no fallback encoding is configured")
	}
	enc, err := htmlindex.Get(fallback)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", fallback, err)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", fallback, err)
	}
	return string(decoded), nil
}

// ValidEncoding reports whether name resolves to a known charset.
func ValidEncoding(name string) bool {
	_, err := htmlindex.Get(strings.TrimSpace(name))
	return err == nil
}
