package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dualsubs/internal/config"
	"dualsubs/internal/dualsub"
	"dualsubs/internal/history"
	"dualsubs/internal/services"
	"dualsubs/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags mergeFlags
	var primaryLang string
	var secondaryLang string
	var concurrency int
	var scanExisting bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Merge <name>.<lang>.srt pairs as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "validate options", "Invalid merge options", err)
			}
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if primaryLang == "" {
				primaryLang = cfg.Languages.Primary
			}
			if secondaryLang == "" {
				secondaryLang = cfg.Languages.Secondary
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Watch.MaxConcurrent
			}

			svc, cleanup, err := ctx.newService(false)
			if err != nil {
				return err
			}
			defer cleanup()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			handler := func(runCtx context.Context, pair watcher.Pair) error {
				_, err := svc.MergeFiles(runCtx, dualsub.MergeRequest{
					PrimaryPath:       pair.Primary,
					SecondaryPath:     pair.Secondary,
					PrimaryLanguage:   primaryLang,
					SecondaryLanguage: secondaryLang,
					Options:           opts,
					Source:            history.SourceWatch,
					Job:               pair.Name,
				})
				return err
			}
			w, err := watcher.New(watcher.Options{
				Dir:               dir,
				PrimaryLanguage:   primaryLang,
				SecondaryLanguage: secondaryLang,
				MaxConcurrent:     concurrency,
				Settle:            cfg.WatchSettle(),
				ScanExisting:      scanExisting,
			}, handler, logger)
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "watch", "Cannot watch directory", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for %s/%s pairs (Ctrl+C to stop)\n", dir, primaryLang, secondaryLang)
			if err := w.Run(cmd.Context()); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&primaryLang, "primary", "", "Primary language suffix (default: languages.primary)")
	cmd.Flags().StringVar(&secondaryLang, "secondary", "", "Secondary language suffix (default: languages.secondary)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Merges to run in parallel (default: watch.max_concurrent)")
	cmd.Flags().BoolVar(&scanExisting, "existing", true, "Merge pairs already present when the watcher starts")
	return cmd
}
