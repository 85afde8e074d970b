// Package textutil provides text helpers for subtitle file handling: charset
// decoding of provider payloads and filename sanitization for release names.
package textutil
