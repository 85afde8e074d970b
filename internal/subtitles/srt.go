package subtitles

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Cue is a single timed caption unit parsed from a cue block.
type Cue struct {
	// Index is the index line as written in the source (0 when absent). It is
	// cosmetic and recomputed on serialization.
	Index   int
	StartMs int64
	EndMs   int64
	// StartToken is the start timestamp exactly as it appeared in the source.
	StartToken string
	Lines      []string
}

// Text joins the cue lines with line breaks.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// SkippedBlock records a block the parser could not recognize.
type SkippedBlock struct {
	// Number is the 1-based position of the block in the input.
	Number int
	Reason string
}

// ParseResult holds every recognized cue in parse order plus the blocks that
// were skipped.
type ParseResult struct {
	Cues          []Cue
	Skipped       int
	SkippedBlocks []SkippedBlock
}

var (
	timingLinePattern = regexp.MustCompile(`^\s*(\d{2,}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2,}:\d{2}:\d{2}[,.]\d{3})(?:\s.*)?$`)
	indexLinePattern  = regexp.MustCompile(`^\s*\d+\s*$`)
)

var errMissingTiming = errors.New("missing time range line")

// Parse splits text into blank-line separated cue blocks and returns the cues
// it recognizes. Malformed blocks are skipped and counted, never fatal.
func Parse(text string) ParseResult {
	text = strings.TrimPrefix(text, "\ufeff")
	result := ParseResult{Cues: make([]Cue, 0)}

	var block []string
	blockNumber := 0
	flush := func() {
		if len(block) == 0 {
			return
		}
		blockNumber++
		cue, err := parseBlock(block)
		if err != nil {
			result.Skipped++
			result.SkippedBlocks = append(result.SkippedBlocks, SkippedBlock{Number: blockNumber, Reason: err.Error()})
		} else {
			result.Cues = append(result.Cues, cue)
		}
		block = nil
	}

	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()

	return result
}

func parseBlock(lines []string) (Cue, error) {
	pos := 0
	index := 0
	if !timingLinePattern.MatchString(lines[0]) {
		if !indexLinePattern.MatchString(lines[0]) {
			return Cue{}, errMissingTiming
		}
		n, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return Cue{}, fmt.Errorf("index line %q: %w", lines[0], err)
		}
		index = n
		pos = 1
	}
	if pos >= len(lines) {
		return Cue{}, errMissingTiming
	}
	match := timingLinePattern.FindStringSubmatch(lines[pos])
	if match == nil {
		return Cue{}, errMissingTiming
	}
	start, err := ParseTimestamp(match[1])
	if err != nil {
		return Cue{}, fmt.Errorf("start time: %w", err)
	}
	end, err := ParseTimestamp(match[2])
	if err != nil {
		return Cue{}, fmt.Errorf("end time: %w", err)
	}

	return Cue{
		Index:      index,
		StartMs:    start,
		EndMs:      end,
		StartToken: match[1],
		Lines:      append([]string{}, lines[pos+1:]...),
	}, nil
}

// splitLines accepts \r\n, \n and lone \r line endings.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
