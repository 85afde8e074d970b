package subtitles

import (
	"strings"
	"testing"
)

func TestParseBasicBlocks(t *testing.T) {
	content := `1
00:05:46,345 --> 00:05:48,514
TACTICAL.

2
00:06:06,282 --> 00:06:07,992
VISUAL.
Second line.

3
00:06:13,330 --> 00:06:15,833
TACTICAL, STAND BY ON TORPEDOES.
`
	result := Parse(content)
	if result.Skipped != 0 {
		t.Fatalf("expected no skipped blocks, got %d", result.Skipped)
	}
	if len(result.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(result.Cues))
	}

	first := result.Cues[0]
	if first.Index != 1 || first.StartMs != 346345 || first.EndMs != 348514 {
		t.Errorf("unexpected first cue: %+v", first)
	}
	if first.StartToken != "00:05:46,345" {
		t.Errorf("StartToken = %q", first.StartToken)
	}
	if got := result.Cues[1].Text(); got != "VISUAL.\nSecond line." {
		t.Errorf("cue 1 text = %q", got)
	}
}

func TestParseAcceptsCRLFAndBOM(t *testing.T) {
	content := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nHi\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nThere\r\n"
	result := Parse(content)
	if len(result.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d (skipped %d)", len(result.Cues), result.Skipped)
	}
	if result.Cues[0].Text() != "Hi" || result.Cues[1].Text() != "There" {
		t.Fatalf("unexpected text: %q / %q", result.Cues[0].Text(), result.Cues[1].Text())
	}
}

func TestParseOptionalIndexAndCueSettings(t *testing.T) {
	content := "00:00:01.000 --> 00:00:02.500 align:start position:10%\nNo index\n\n7\n00:00:05,000 --> 00:00:06,000\n"
	result := Parse(content)
	if len(result.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(result.Cues))
	}
	if result.Cues[0].Index != 0 || result.Cues[0].EndMs != 2500 {
		t.Errorf("unexpected first cue: %+v", result.Cues[0])
	}
	if result.Cues[0].StartToken != "00:00:01.000" {
		t.Errorf("StartToken = %q", result.Cues[0].StartToken)
	}
	second := result.Cues[1]
	if second.Index != 7 {
		t.Errorf("index = %d, want 7", second.Index)
	}
	if second.Lines == nil || len(second.Lines) != 0 {
		t.Errorf("expected empty non-nil lines, got %#v", second.Lines)
	}
}

func TestParseSkipsMalformedBlocks(t *testing.T) {
	content := strings.Join([]string{
		"1\n00:00:01,000 --> 00:00:02,000\nGood",
		"garbage line\nmore garbage",
		"3\n00:61:00,000 --> 00:62:00,000\nBad minutes",
		"4",
		"5\n00:00:05,000 --> 00:00:06,000\nAlso good",
	}, "\n\n")

	result := Parse(content)
	if len(result.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(result.Cues))
	}
	if result.Skipped != 3 {
		t.Fatalf("expected 3 skipped blocks, got %d", result.Skipped)
	}
	wantNumbers := []int{2, 3, 4}
	for i, block := range result.SkippedBlocks {
		if block.Number != wantNumbers[i] {
			t.Errorf("skipped block %d number = %d, want %d", i, block.Number, wantNumbers[i])
		}
		if block.Reason == "" {
			t.Errorf("skipped block %d missing reason", i)
		}
	}
}

func TestParseWhitespaceOnlyLinesSeparateBlocks(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\nA\n   \n\t\n2\n00:00:03,000 --> 00:00:04,000\nB\n"
	result := Parse(content)
	if len(result.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(result.Cues))
	}
}

func TestParseEmptyInput(t *testing.T) {
	result := Parse("")
	if result.Cues == nil || len(result.Cues) != 0 || result.Skipped != 0 {
		t.Fatalf("unexpected result for empty input: %+v", result)
	}
}
