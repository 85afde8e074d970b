package watcher

import (
	"path/filepath"
	"regexp"
	"strings"

	"dualsubs/internal/language"
)

// mergedTagPattern matches the "<p>-<s>" tag of merged output files. Region
// subtags such as "pt-BR" are upper case and do not match.
var mergedTagPattern = regexp.MustCompile(`^[a-z]{2,3}-[a-z]{2,3}$`)

// Pair is a primary/secondary track pair found in the watched directory.
type Pair struct {
	Name      string
	Primary   string
	Secondary string
}

// Track is a parsed "<name>.<lang>.srt" file name.
type Track struct {
	Name     string
	Language string
}

// ParseTrackName splits a subtitle file name into its base name and ISO
// 639-1 language. ok is false for other files, including merged outputs such
// as "show.en-hu.srt".
func ParseTrackName(path string) (Track, bool) {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), ".srt") {
		return Track{}, false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dot := strings.LastIndexByte(stem, '.')
	if dot <= 0 || dot == len(stem)-1 {
		return Track{}, false
	}
	tag := stem[dot+1:]
	if mergedTagPattern.MatchString(tag) {
		return Track{}, false
	}
	lang := language.ToISO2(tag)
	if lang == "" {
		return Track{}, false
	}
	return Track{Name: stem[:dot], Language: lang}, true
}

// findPair returns the pair for name when both tracks exist in dir.
func findPair(dir, name, primaryLang, secondaryLang string) (Pair, bool) {
	entries, err := filepath.Glob(filepath.Join(dir, globEscape(name)+".*"))
	if err != nil {
		return Pair{}, false
	}
	pair := Pair{Name: name}
	for _, path := range entries {
		track, ok := ParseTrackName(path)
		if !ok || track.Name != name {
			continue
		}
		switch track.Language {
		case primaryLang:
			pair.Primary = path
		case secondaryLang:
			pair.Secondary = path
		}
	}
	return pair, pair.Primary != "" && pair.Secondary != ""
}

var globReplacer = strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)

func globEscape(value string) string {
	return globReplacer.Replace(value)
}
