package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dualsubs/internal/config"
	"dualsubs/internal/dualsub"
	"dualsubs/internal/opensubtitles"
	"dualsubs/internal/services"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var flags mergeFlags
	var season int
	var episode int
	var primaryLang string
	var secondaryLang string
	var maxPairs int
	var outputDir string
	var dataURI bool
	var jsonOutput bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "fetch <imdb-id[:season:episode]>",
		Short: "Download both languages from OpenSubtitles and merge them",
		Long: "Fetch searches OpenSubtitles for the primary and secondary language, pairs the\n" +
			"top results of each language in provider order and merges every pair whose two\n" +
			"downloads succeed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			media, err := opensubtitles.ParseMediaID(args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "parse media id", "Expected tt1234567 or tt1234567:season:episode", err)
			}
			if cmd.Flags().Changed("season") || cmd.Flags().Changed("episode") {
				if season <= 0 || episode <= 0 {
					return services.Wrap(services.ErrValidation, "cli", "parse flags", "--season and --episode must both be positive", nil)
				}
				media.Season, media.Episode = season, episode
			}
			opts, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(outputDir)
			if dir != "" {
				if dir, err = config.ExpandPath(dir); err != nil {
					return err
				}
			}

			svc, cleanup, err := ctx.newService(noHistory)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.FetchAndMerge(cmd.Context(), dualsub.FetchRequest{
				Media:             media,
				PrimaryLanguage:   primaryLang,
				SecondaryLanguage: secondaryLang,
				MaxPairs:          maxPairs,
				Options:           opts,
				OutputDir:         dir,
				DataURI:           dataURI,
				SkipHistory:       noHistory,
			})
			if err != nil && (result == nil || len(result.Tracks) == 0) {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, newFetchJSON(result))
			}
			out := cmd.OutOrStdout()
			if dataURI {
				for _, track := range result.Tracks {
					fmt.Fprintln(out, track.Label)
					fmt.Fprintln(out, track.DataURI)
				}
			} else {
				fmt.Fprint(out, renderTable(
					[]string{"Pair", "Release", "Matched", "Output"},
					buildFetchRows(result.Tracks),
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
			}
			colorize := shouldColorize(out)
			for _, failed := range result.Failed {
				fmt.Fprintln(out, renderStatusLine("Skipped pair", statusWarn,
					fmt.Sprintf("%s: %s", failed.Pair.Release, failureSummary(failed.Err)), colorize))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&season, "season", 0, "Season number (episodes only)")
	cmd.Flags().IntVar(&episode, "episode", 0, "Episode number (episodes only)")
	cmd.Flags().StringVar(&primaryLang, "primary", "", "Primary language (default: languages.primary)")
	cmd.Flags().StringVar(&secondaryLang, "secondary", "", "Secondary language (default: languages.secondary)")
	cmd.Flags().IntVar(&maxPairs, "pairs", 0, "Results per language to pair (default: opensubtitles.max_pairs)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for merged files (default: paths.output_dir)")
	cmd.Flags().BoolVar(&dataURI, "data-uri", false, "Print WebVTT data URIs instead of writing files")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record merges in history")
	return cmd
}

func buildFetchRows(tracks []dualsub.FetchedTrack) [][]string {
	rows := make([][]string, 0, len(tracks))
	for _, track := range tracks {
		report := track.Result.Report
		rows = append(rows, []string{
			strconv.Itoa(track.Pair.Index),
			track.Pair.Release,
			fmt.Sprintf("%d/%d", report.Matched, report.PrimaryCues),
			track.OutputPath,
		})
	}
	return rows
}

// failureSummary keeps the innermost message so the line stays readable.
func failureSummary(err error) string {
	for err != nil {
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			errs := e.Unwrap()
			if len(errs) == 0 {
				return err.Error()
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := e.Unwrap()
			if next == nil {
				return err.Error()
			}
			err = next
		default:
			return err.Error()
		}
	}
	return ""
}

type fetchTrackJSON struct {
	ID              string `json:"id"`
	Pair            string `json:"pair"`
	Label           string `json:"label"`
	Release         string `json:"release"`
	PrimaryFileID   int64  `json:"primary_file_id"`
	SecondaryFileID int64  `json:"secondary_file_id"`
	Matched         int    `json:"matched"`
	PrimaryCues     int    `json:"primary_cues"`
	Output          string `json:"output,omitempty"`
	DataURI         string `json:"data_uri,omitempty"`
}

type fetchFailureJSON struct {
	Pair    string `json:"pair"`
	Release string `json:"release"`
	Error   string `json:"error"`
}

type fetchJSON struct {
	Tracks []fetchTrackJSON   `json:"tracks"`
	Failed []fetchFailureJSON `json:"failed"`
}

func newFetchJSON(result *dualsub.FetchResult) fetchJSON {
	view := fetchJSON{
		Tracks: make([]fetchTrackJSON, 0, len(result.Tracks)),
		Failed: make([]fetchFailureJSON, 0, len(result.Failed)),
	}
	for _, track := range result.Tracks {
		view.Tracks = append(view.Tracks, fetchTrackJSON{
			ID:              track.ID,
			Pair:            track.Pair.ID(),
			Label:           track.Label,
			Release:         track.Pair.Release,
			PrimaryFileID:   track.Pair.Primary.FileID,
			SecondaryFileID: track.Pair.Secondary.FileID,
			Matched:         track.Result.Report.Matched,
			PrimaryCues:     track.Result.Report.PrimaryCues,
			Output:          track.OutputPath,
			DataURI:         track.DataURI,
		})
	}
	for _, failed := range result.Failed {
		view.Failed = append(view.Failed, fetchFailureJSON{
			Pair:    failed.Pair.ID(),
			Release: failed.Pair.Release,
			Error:   failed.Err.Error(),
		})
	}
	return view
}
