package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dualsubs/internal/dualsub"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags mergeFlags
	var concurrency int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Run every merge job listed in a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			base, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}
			path, err := inputPath(args[0])
			if err != nil {
				return err
			}
			manifest, err := dualsub.LoadManifest(path)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Watch.MaxConcurrent
			}

			svc, cleanup, err := ctx.newService(false)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Batch(cmd.Context(), manifest, base, concurrency)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, newBatchJSON(result)); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Job", "Status", "Matched", "Output"},
					buildBatchRows(result),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintf(cmd.OutOrStdout(), "%d succeeded, %d failed\n", result.Succeeded, result.Failed)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", result.Failed, len(result.Jobs))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Merges to run in parallel (default: watch.max_concurrent)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func buildBatchRows(result *dualsub.BatchResult) [][]string {
	rows := make([][]string, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		if job.Err != nil {
			rows = append(rows, []string{job.Job.Name, "failed", "-", failureSummary(job.Err)})
			continue
		}
		report := job.Outcome.Result.Report
		rows = append(rows, []string{
			job.Job.Name,
			"ok",
			strconv.Itoa(report.Matched) + "/" + strconv.Itoa(report.PrimaryCues),
			job.Outcome.OutputPath,
		})
	}
	return rows
}

type batchJobJSON struct {
	Name    string `json:"name"`
	ID      string `json:"id,omitempty"`
	Output  string `json:"output,omitempty"`
	Matched int    `json:"matched"`
	Error   string `json:"error,omitempty"`
}

type batchJSON struct {
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Jobs      []batchJobJSON `json:"jobs"`
}

func newBatchJSON(result *dualsub.BatchResult) batchJSON {
	view := batchJSON{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Jobs:      make([]batchJobJSON, 0, len(result.Jobs)),
	}
	for _, job := range result.Jobs {
		entry := batchJobJSON{Name: job.Job.Name}
		if job.Err != nil {
			entry.Error = job.Err.Error()
		} else if job.Outcome != nil {
			entry.ID = job.Outcome.ID
			entry.Output = job.Outcome.OutputPath
			entry.Matched = job.Outcome.Result.Report.Matched
		}
		view.Jobs = append(view.Jobs, entry)
	}
	return view
}
