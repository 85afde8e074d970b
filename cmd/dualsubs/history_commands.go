package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dualsubs/internal/history"
	"dualsubs/internal/language"
	"dualsubs/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune recorded merges",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded merges, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := history.ListFilter{Limit: limit}
			if value := strings.ToLower(strings.TrimSpace(statusFlag)); value != "" {
				status, ok := history.ParseStatus(value)
				if !ok {
					return services.Wrap(services.ErrValidation, "cli", "parse flags",
						fmt.Sprintf("Unknown status %q (want succeeded, rejected or failed)", statusFlag), nil)
				}
				filter.Status = status
			}
			return ctx.withStore(func(store *history.Store) error {
				records, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					views := make([]historyRecordJSON, 0, len(records))
					for _, rec := range records {
						views = append(views, newHistoryRecordJSON(rec))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No merges recorded")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Created", "Source", "Status", "Pair", "Matched", "Output"},
					buildHistoryRows(records, time.Now()),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				summary, err := store.Summary(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d merges recorded: %d succeeded, %d rejected, %d failed\n",
					summary.Total, summary.Succeeded, summary.Rejected, summary.Failed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show records with this status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded merge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *history.Store) error {
				rec, err := store.Get(cmd.Context(), id)
				if err != nil {
					if errors.Is(err, history.ErrNotFound) {
						return services.Wrap(services.ErrNotFound, "history", "show", fmt.Sprintf("No merge recorded with id %s", id), nil)
					}
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, newHistoryRecordJSON(*rec))
				}
				fmt.Fprint(cmd.OutOrStdout(), renderKeyValues(buildHistoryDetailRows(*rec)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the record as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded merges older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := parseAge(olderThan)
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "parse flags", "Invalid --older-than", err)
			}
			cutoff := time.Now().Add(-age)
			return ctx.withStore(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d merges recorded before %s\n", removed, cutoff.Format(time.DateTime))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "Age such as 30d, 12h or 90m")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}

// parseAge accepts Go durations plus a day suffix ("30d").
func parseAge(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("age is empty")
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	age, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if age < 0 {
		return 0, fmt.Errorf("negative age %q", value)
	}
	return age, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func buildHistoryRows(records []history.Record, now time.Time) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		output := "-"
		if rec.OutputPath != "" {
			output = filepath.Base(rec.OutputPath)
		}
		matched := "-"
		if rec.Status == history.StatusSucceeded {
			matched = fmt.Sprintf("%d/%d", rec.Matched, rec.PrimaryCues)
		}
		rows = append(rows, []string{
			shortID(rec.ID),
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			string(rec.Source),
			string(rec.Status),
			language.PairLabel(rec.PrimaryLanguage, rec.SecondaryLanguage),
			matched,
			output,
		})
	}
	return rows
}

func buildHistoryDetailRows(rec history.Record) [][]string {
	rows := [][]string{
		{"ID", rec.ID},
		{"Created", rec.CreatedAt.Local().Format(time.DateTime)},
		{"Source", string(rec.Source)},
		{"Status", string(rec.Status)},
		{"Pair", language.PairLabel(rec.PrimaryLanguage, rec.SecondaryLanguage)},
		{"Primary", rec.PrimaryPath},
		{"Secondary", rec.SecondaryPath},
	}
	if rec.ReleaseLabel != "" {
		rows = append(rows, []string{"Release", rec.ReleaseLabel})
	}
	rows = append(rows,
		[]string{"Strategy", fmt.Sprintf("%s (%d ms)", rec.Strategy, rec.ToleranceMs)},
		[]string{"Leftovers", rec.Leftovers},
		[]string{"Format", rec.Format},
		[]string{"Cues", fmt.Sprintf("%d primary, %d secondary", rec.PrimaryCues, rec.SecondaryCues)},
		[]string{"Matched", strconv.Itoa(rec.Matched)},
		[]string{"Appended", strconv.Itoa(rec.LeftoverCues)},
		[]string{"Dropped", strconv.Itoa(rec.DroppedCues)},
		[]string{"Skipped Blocks", strconv.Itoa(rec.SkippedBlocks)},
	)
	if rec.OutputPath != "" {
		rows = append(rows, []string{"Output", fmt.Sprintf("%s (%s)", rec.OutputPath, humanize.IBytes(uint64(max(rec.OutputBytes, 0))))})
	}
	rows = append(rows, []string{"Duration", rec.Duration.Round(time.Millisecond).String()})
	if rec.Error != "" {
		rows = append(rows, []string{"Error", rec.Error})
	}
	return rows
}

type historyRecordJSON struct {
	ID                string `json:"id"`
	CreatedAt         string `json:"created_at"`
	Source            string `json:"source"`
	Status            string `json:"status"`
	PrimaryPath       string `json:"primary_path"`
	SecondaryPath     string `json:"secondary_path"`
	PrimaryLanguage   string `json:"primary_language"`
	SecondaryLanguage string `json:"secondary_language"`
	ReleaseLabel      string `json:"release_label,omitempty"`
	Strategy          string `json:"strategy"`
	ToleranceMs       int64  `json:"tolerance_ms"`
	Leftovers         string `json:"leftovers"`
	Format            string `json:"format"`
	PrimaryCues       int    `json:"primary_cues"`
	SecondaryCues     int    `json:"secondary_cues"`
	Matched           int    `json:"matched"`
	LeftoverCues      int    `json:"leftover_cues"`
	DroppedCues       int    `json:"dropped_cues"`
	SkippedBlocks     int    `json:"skipped_blocks"`
	OutputPath        string `json:"output_path,omitempty"`
	OutputBytes       int64  `json:"output_bytes"`
	DurationMs        int64  `json:"duration_ms"`
	Error             string `json:"error,omitempty"`
}

func newHistoryRecordJSON(rec history.Record) historyRecordJSON {
	return historyRecordJSON{
		ID:                rec.ID,
		CreatedAt:         rec.CreatedAt.UTC().Format(time.RFC3339),
		Source:            string(rec.Source),
		Status:            string(rec.Status),
		PrimaryPath:       rec.PrimaryPath,
		SecondaryPath:     rec.SecondaryPath,
		PrimaryLanguage:   rec.PrimaryLanguage,
		SecondaryLanguage: rec.SecondaryLanguage,
		ReleaseLabel:      rec.ReleaseLabel,
		Strategy:          rec.Strategy,
		ToleranceMs:       rec.ToleranceMs,
		Leftovers:         rec.Leftovers,
		Format:            rec.Format,
		PrimaryCues:       rec.PrimaryCues,
		SecondaryCues:     rec.SecondaryCues,
		Matched:           rec.Matched,
		LeftoverCues:      rec.LeftoverCues,
		DroppedCues:       rec.DroppedCues,
		SkippedBlocks:     rec.SkippedBlocks,
		OutputPath:        rec.OutputPath,
		OutputBytes:       rec.OutputBytes,
		DurationMs:        rec.Duration.Milliseconds(),
		Error:             rec.Error,
	}
}
