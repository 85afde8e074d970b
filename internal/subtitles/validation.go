package subtitles

import "fmt"

// TrackStats summarizes a parsed track for inspection.
type TrackStats struct {
	Cues       int
	Skipped    int
	FirstMs    int64
	LastMs     int64
	OutOfOrder int
	Inverted   int
}

// Stats computes summary figures for a parse result. LastMs is the largest
// end time seen, not the end time of the last cue.
func Stats(result ParseResult) TrackStats {
	stats := TrackStats{Cues: len(result.Cues), Skipped: result.Skipped}
	for i, cue := range result.Cues {
		if i == 0 || cue.StartMs < stats.FirstMs {
			stats.FirstMs = cue.StartMs
		}
		if cue.EndMs > stats.LastMs {
			stats.LastMs = cue.EndMs
		}
		if cue.EndMs < cue.StartMs {
			stats.Inverted++
		}
		if i > 0 && cue.StartMs < result.Cues[i-1].StartMs {
			stats.OutOfOrder++
		}
	}
	return stats
}

// Issues lists problems worth surfacing before a merge. An empty slice means
// the track looks usable.
func Issues(result ParseResult) []string {
	var issues []string
	if len(result.Cues) == 0 {
		issues = append(issues, "empty_subtitle_file")
		return issues
	}
	stats := Stats(result)
	if stats.FirstMs == 0 && stats.LastMs == 0 {
		issues = append(issues, "no_valid_timestamps")
	}
	if stats.Skipped > 0 {
		issues = append(issues, fmt.Sprintf("skipped_blocks: %d", stats.Skipped))
	}
	if stats.OutOfOrder > 0 {
		issues = append(issues, fmt.Sprintf("out_of_order_cues: %d", stats.OutOfOrder))
	}
	if stats.Inverted > 0 {
		issues = append(issues, fmt.Sprintf("inverted_cues: %d", stats.Inverted))
	}
	return issues
}
