package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dualsubs/internal/config"
	"dualsubs/internal/fileutil"
	"dualsubs/internal/subtitles"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var normalize bool

	cmd := &cobra.Command{
		Use:   "convert <file.srt>",
		Short: "Convert an SRT file to WebVTT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, text, err := ctx.readSubtitle(args[0])
			if err != nil {
				return err
			}
			if normalize {
				text = subtitles.Serialize(subtitles.Parse(text).Cues)
			}
			converted := subtitles.ToVTT(text)

			target := strings.TrimSpace(outputPath)
			if target == "" || target == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), converted)
				return err
			}
			target, err = config.ExpandPath(target)
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(target, []byte(converted), 0o644); err != nil {
				return fmt.Errorf("write %q: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", target, humanize.IBytes(uint64(len(converted))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Drop malformed blocks and renumber cues before converting")
	return cmd
}
