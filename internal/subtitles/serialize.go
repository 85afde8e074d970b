package subtitles

import (
	"strconv"
	"strings"
)

// RenderOptions tweaks how merged cue text is written.
type RenderOptions struct {
	// ZeroWidthPrefix prepends U+200B to the secondary block.
	ZeroWidthPrefix bool
}

// Serialize writes cues as SRT text. Indices are renumbered from 1 and every
// block, including the last, is followed by a blank line.
func Serialize(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		writeBlock(&b, i+1, cue.StartMs, cue.EndMs, cue.Text())
	}
	return b.String()
}

// SerializeMerged writes merged cues as SRT text.
func SerializeMerged(cues []MergedCue, opts RenderOptions) string {
	var b strings.Builder
	for i, cue := range cues {
		writeBlock(&b, i+1, cue.StartMs, cue.EndMs, cue.Text(opts.ZeroWidthPrefix))
	}
	return b.String()
}

func writeBlock(b *strings.Builder, index int, startMs, endMs int64, text string) {
	b.WriteString(strconv.Itoa(index))
	b.WriteByte('\n')
	b.WriteString(FormatTimestamp(startMs, DelimiterComma))
	b.WriteString(" --> ")
	b.WriteString(FormatTimestamp(endMs, DelimiterComma))
	b.WriteByte('\n')
	if text != "" {
		b.WriteString(text)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}
