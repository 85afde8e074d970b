// Package language normalizes the language codes used to pick and label
// subtitle tracks.
//
// Tags, ISO 639-1/639-2 codes and English language names all resolve to the
// ISO 639-1 code OpenSubtitles expects, backed by golang.org/x/text.
package language
