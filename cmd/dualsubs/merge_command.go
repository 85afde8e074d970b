package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dualsubs/internal/dualsub"
	"dualsubs/internal/history"
	"dualsubs/internal/subtitles"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var flags mergeFlags
	var outputPath string
	var primaryLang string
	var secondaryLang string
	var jsonOutput bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "merge <primary> <secondary>",
		Short: "Merge two subtitle files into one bilingual track",
		Long: "Merge pairs every cue of the primary track with the closest secondary cue and\n" +
			"writes the bilingual result. Use -o - to print the merged track to stdout.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}
			primary, err := inputPath(args[0])
			if err != nil {
				return err
			}
			secondary, err := inputPath(args[1])
			if err != nil {
				return err
			}

			svc, cleanup, err := ctx.newService(noHistory)
			if err != nil {
				return err
			}
			defer cleanup()

			toStdout := strings.TrimSpace(outputPath) == "-"
			req := dualsub.MergeRequest{
				PrimaryPath:       primary,
				SecondaryPath:     secondary,
				PrimaryLanguage:   primaryLang,
				SecondaryLanguage: secondaryLang,
				SkipWrite:         toStdout,
				SkipHistory:       noHistory,
				Options:           opts,
				Source:            history.SourceManual,
			}
			if !toStdout {
				req.OutputPath = strings.TrimSpace(outputPath)
			}

			outcome, err := svc.MergeFiles(cmd.Context(), req)
			if err != nil {
				return err
			}
			if toStdout {
				_, err := io.WriteString(cmd.OutOrStdout(), outcome.Result.Text)
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, newMergeReportJSON(outcome))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMergeSummary(outcome, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: <primary>.<p>-<s>.<ext>; - for stdout)")
	cmd.Flags().StringVar(&primaryLang, "primary-lang", "", "Primary track language (default: languages.primary)")
	cmd.Flags().StringVar(&secondaryLang, "secondary-lang", "", "Secondary track language (default: languages.secondary)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the merge report as JSON")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this merge in history")
	return cmd
}

type skippedBlockJSON struct {
	Block  int    `json:"block"`
	Reason string `json:"reason"`
}

type mergeReportJSON struct {
	ID               string             `json:"id"`
	Output           string             `json:"output,omitempty"`
	OutputBytes      int                `json:"output_bytes"`
	Strategy         string             `json:"strategy"`
	ToleranceMs      int64              `json:"tolerance_ms"`
	PrimaryCues      int                `json:"primary_cues"`
	SecondaryCues    int                `json:"secondary_cues"`
	MergedCues       int                `json:"merged_cues"`
	Matched          int                `json:"matched"`
	Unmatched        []int              `json:"unmatched"`
	Leftovers        int                `json:"leftovers"`
	Dropped          int                `json:"dropped"`
	PrimarySkipped   []skippedBlockJSON `json:"primary_skipped"`
	SecondarySkipped []skippedBlockJSON `json:"secondary_skipped"`
	DurationMs       int64              `json:"duration_ms"`
}

func newMergeReportJSON(outcome *dualsub.MergeOutcome) mergeReportJSON {
	report := outcome.Result.Report
	unmatched := report.Unmatched
	if unmatched == nil {
		unmatched = []int{}
	}
	return mergeReportJSON{
		ID:               outcome.ID,
		Output:           outcome.OutputPath,
		OutputBytes:      outcome.OutputBytes,
		Strategy:         report.Strategy.String(),
		ToleranceMs:      report.ToleranceMs,
		PrimaryCues:      report.PrimaryCues,
		SecondaryCues:    report.SecondaryCues,
		MergedCues:       len(outcome.Result.Cues),
		Matched:          report.Matched,
		Unmatched:        unmatched,
		Leftovers:        report.Leftovers,
		Dropped:          report.Dropped,
		PrimarySkipped:   skippedJSON(outcome.Result.PrimarySkipped),
		SecondarySkipped: skippedJSON(outcome.Result.SecondarySkipped),
		DurationMs:       outcome.Duration.Milliseconds(),
	}
}

func skippedJSON(blocks []subtitles.SkippedBlock) []skippedBlockJSON {
	out := make([]skippedBlockJSON, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, skippedBlockJSON{Block: block.Number, Reason: block.Reason})
	}
	return out
}

func renderMergeSummary(outcome *dualsub.MergeOutcome, colorize bool) string {
	report := outcome.Result.Report
	var b strings.Builder

	fmt.Fprintf(&b, "Merged %d cues -> %s (%s)\n",
		len(outcome.Result.Cues), outcome.OutputPath, humanize.IBytes(uint64(max(outcome.OutputBytes, 0))))

	matchKind := statusOK
	if report.PrimaryCues > 0 && report.Matched < report.PrimaryCues {
		matchKind = statusWarn
	}
	b.WriteString(renderStatusLine("Matched", matchKind,
		fmt.Sprintf("%d of %d primary cues (%s, %d ms)", report.Matched, report.PrimaryCues, report.Strategy, report.ToleranceMs), colorize))
	b.WriteByte('\n')

	if len(report.Unmatched) > 0 {
		b.WriteString(renderStatusLine("Unmatched", statusWarn, describePositions(report.Unmatched, 8), colorize))
		b.WriteByte('\n')
	}

	switch {
	case report.Leftovers > 0:
		b.WriteString(renderStatusLine("Leftovers", statusInfo, fmt.Sprintf("%d secondary cues appended", report.Leftovers), colorize))
		b.WriteByte('\n')
	case report.Dropped > 0:
		b.WriteString(renderStatusLine("Leftovers", statusWarn, fmt.Sprintf("%d secondary cues dropped", report.Dropped), colorize))
		b.WriteByte('\n')
	}

	if skipped := len(outcome.Result.PrimarySkipped) + len(outcome.Result.SecondarySkipped); skipped > 0 {
		b.WriteString(renderStatusLine("Skipped blocks", statusWarn,
			fmt.Sprintf("primary %d, secondary %d", len(outcome.Result.PrimarySkipped), len(outcome.Result.SecondarySkipped)), colorize))
		b.WriteByte('\n')
	}

	if outcome.ID != "" {
		b.WriteString(renderStatusLine("History", statusInfo, outcome.ID, colorize))
		b.WriteByte('\n')
	}
	return b.String()
}

// describePositions lists zero-based cue positions as one-based cue numbers.
func describePositions(positions []int, limit int) string {
	parts := make([]string, 0, min(len(positions), limit))
	for i, pos := range positions {
		if i == limit {
			break
		}
		parts = append(parts, "#"+strconv.Itoa(pos+1))
	}
	text := fmt.Sprintf("%d primary cues without a partner: %s", len(positions), strings.Join(parts, ", "))
	if len(positions) > limit {
		text += fmt.Sprintf(" and %d more", len(positions)-limit)
	}
	return text
}
