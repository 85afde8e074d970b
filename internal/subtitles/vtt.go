package subtitles

import (
	"regexp"
	"strings"
)

const vttHeader = "WEBVTT\n\n"

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	commaTimestamp = regexp.MustCompile(`(\d{2,}:\d{2}:\d{2}),(\d{3})`)
)

// ToVTT converts SRT text into WebVTT. Only time-range lines have their
// millisecond delimiter rewritten; cue text passes through untouched.
func ToVTT(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if timingLinePattern.MatchString(line) {
			lines[i] = commaTimestamp.ReplaceAllString(line, "$1.$2")
		}
	}

	out := vttHeader + strings.Join(lines, "\n")
	return excessNewlines.ReplaceAllString(out, "\n\n")
}
