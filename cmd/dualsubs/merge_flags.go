package main

import (
	"github.com/spf13/cobra"

	"dualsubs/internal/config"
	"dualsubs/internal/services"
	"dualsubs/internal/subtitles"
)

// mergeFlags are the alignment overrides shared by merge, fetch and batch.
// Unset flags fall back to the [merge] section of the config.
type mergeFlags struct {
	tolerance int64
	strategy  string
	leftovers string
	format    string
	zeroWidth bool
}

func (f *mergeFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int64Var(&f.tolerance, "tolerance", 0, "Maximum start time difference in milliseconds for nearest matching")
	flags.StringVar(&f.strategy, "strategy", "", "Alignment strategy: nearest or exact")
	flags.StringVar(&f.leftovers, "leftovers", "", "Unmatched secondary cues: append or drop")
	flags.StringVar(&f.format, "format", "", "Output format: srt or vtt")
	flags.BoolVar(&f.zeroWidth, "zero-width", false, "Prefix the secondary block with a zero width space")
}

func (f *mergeFlags) options(cmd *cobra.Command, cfg *config.Config) (subtitles.Options, error) {
	opts, err := cfg.MergeOptions()
	if err != nil {
		return subtitles.Options{}, services.Wrap(services.ErrConfiguration, "cli", "merge options", "Invalid [merge] settings", err)
	}
	flags := cmd.Flags()
	if flags.Changed("tolerance") {
		opts.ToleranceMs = f.tolerance
	}
	if flags.Changed("strategy") {
		strategy, err := subtitles.ParseStrategy(f.strategy)
		if err != nil {
			return subtitles.Options{}, services.Wrap(services.ErrConfiguration, "cli", "parse flags", "Invalid --strategy", err)
		}
		opts.Strategy = strategy
	}
	if flags.Changed("leftovers") {
		mode, err := subtitles.ParseLeftoverMode(f.leftovers)
		if err != nil {
			return subtitles.Options{}, services.Wrap(services.ErrConfiguration, "cli", "parse flags", "Invalid --leftovers", err)
		}
		opts.Leftovers = mode
	}
	if flags.Changed("format") {
		format, err := subtitles.ParseFormat(f.format)
		if err != nil {
			return subtitles.Options{}, services.Wrap(services.ErrConfiguration, "cli", "parse flags", "Invalid --format", err)
		}
		opts.Format = format
	}
	if flags.Changed("zero-width") {
		opts.ZeroWidthPrefix = f.zeroWidth
	}
	return opts, nil
}
