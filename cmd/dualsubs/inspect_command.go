package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dualsubs/internal/subtitles"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var showCues bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize a subtitle file before merging it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, text, err := ctx.readSubtitle(args[0])
			if err != nil {
				return err
			}
			result := subtitles.Parse(text)
			stats := subtitles.Stats(result)
			issues := subtitles.Issues(result)

			if jsonOutput {
				return writeJSON(cmd, newInspectJSON(path, result, stats, issues, showCues))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader(path, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprint(out, renderKeyValues(buildStatsRows(stats)))
			if len(issues) == 0 {
				fmt.Fprintln(out, renderStatusLine("Issues", statusOK, "none", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Issues", statusWarn, strings.Join(issues, ", "), colorize))
			}
			for _, block := range result.SkippedBlocks {
				fmt.Fprintln(out, renderStatusLine("Block "+strconv.Itoa(block.Number), statusWarn, block.Reason, colorize))
			}
			if showCues && len(result.Cues) > 0 {
				fmt.Fprint(out, renderTable(
					[]string{"#", "Start", "End", "Text"},
					buildCueRows(result.Cues, terminalWidth(out)),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCues, "cues", false, "List every cue")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	return cmd
}

func buildStatsRows(stats subtitles.TrackStats) [][]string {
	return [][]string{
		{"Cues", strconv.Itoa(stats.Cues)},
		{"Skipped blocks", strconv.Itoa(stats.Skipped)},
		{"First cue", subtitles.FormatTimestamp(stats.FirstMs, subtitles.DelimiterComma)},
		{"Last end", subtitles.FormatTimestamp(stats.LastMs, subtitles.DelimiterComma)},
		{"Out of order", strconv.Itoa(stats.OutOfOrder)},
		{"Inverted", strconv.Itoa(stats.Inverted)},
	}
}

// cueTableOverhead is the width taken by the borders and the first three
// columns of the cue table.
const cueTableOverhead = 50

func buildCueRows(cues []subtitles.Cue, width int) [][]string {
	textWidth := max(width-cueTableOverhead, 20)
	rows := make([][]string, 0, len(cues))
	for i, cue := range cues {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			subtitles.FormatTimestamp(cue.StartMs, subtitles.DelimiterComma),
			subtitles.FormatTimestamp(cue.EndMs, subtitles.DelimiterComma),
			truncate(strings.Join(cue.Lines, " / "), textWidth),
		})
	}
	return rows
}

type cueJSON struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Lines []string `json:"lines"`
}

type inspectJSON struct {
	Path       string             `json:"path"`
	Cues       int                `json:"cues"`
	Skipped    int                `json:"skipped"`
	FirstMs    int64              `json:"first_ms"`
	LastMs     int64              `json:"last_ms"`
	OutOfOrder int                `json:"out_of_order"`
	Inverted   int                `json:"inverted"`
	Issues     []string           `json:"issues"`
	Blocks     []skippedBlockJSON `json:"skipped_blocks"`
	CueList    []cueJSON          `json:"cue_list,omitempty"`
}

func newInspectJSON(path string, result subtitles.ParseResult, stats subtitles.TrackStats, issues []string, withCues bool) inspectJSON {
	if issues == nil {
		issues = []string{}
	}
	view := inspectJSON{
		Path:       path,
		Cues:       stats.Cues,
		Skipped:    stats.Skipped,
		FirstMs:    stats.FirstMs,
		LastMs:     stats.LastMs,
		OutOfOrder: stats.OutOfOrder,
		Inverted:   stats.Inverted,
		Issues:     issues,
		Blocks:     skippedJSON(result.SkippedBlocks),
	}
	if withCues {
		view.CueList = make([]cueJSON, 0, len(result.Cues))
		for _, cue := range result.Cues {
			view.CueList = append(view.CueList, cueJSON{
				Start: subtitles.FormatTimestamp(cue.StartMs, subtitles.DelimiterComma),
				End:   subtitles.FormatTimestamp(cue.EndMs, subtitles.DelimiterComma),
				Lines: cue.Lines,
			})
		}
	}
	return view
}
