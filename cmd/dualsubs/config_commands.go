package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"dualsubs/internal/config"
	"dualsubs/internal/language"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set opensubtitles.api_key (or export OPENSUBTITLES_API_KEY) before using fetch.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if _, statErr := os.Stat(ctx.configPath); statErr != nil {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}

			opts, err := cfg.MergeOptions()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderStatusLine("Merge", statusOK,
				fmt.Sprintf("%s, %d ms, leftovers %s, %s", opts.Strategy, opts.ToleranceMs, opts.Leftovers, opts.Format), colorize))
			fmt.Fprintln(out, renderStatusLine("Languages", statusOK,
				fmt.Sprintf("%s + %s", language.DisplayName(cfg.Languages.Primary), language.DisplayName(cfg.Languages.Secondary)), colorize))
			if err := cfg.RequireOpenSubtitles(); err != nil {
				fmt.Fprintln(out, renderStatusLine("OpenSubtitles", statusWarn, err.Error(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("OpenSubtitles", statusOK, "api key present, user token "+yesNo(cfg.OpenSubtitles.UserToken != ""), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("History", statusInfo, cfg.Paths.HistoryDB, colorize))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
