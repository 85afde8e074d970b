package subtitles

import (
	"fmt"
	"strings"
)

// Format is the output container of a merge.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	if f == FormatVTT {
		return ".vtt"
	}
	return ".srt"
}

// MIMEType returns the media type used for data URIs.
func (f Format) MIMEType() string {
	if f == FormatVTT {
		return "text/vtt"
	}
	return "application/x-subrip"
}

// Options configures Merge.
type Options struct {
	ToleranceMs     int64
	Strategy        Strategy
	Leftovers       LeftoverMode
	ZeroWidthPrefix bool
	Format          Format
}

func (o Options) alignOptions() AlignOptions {
	return AlignOptions{ToleranceMs: o.ToleranceMs, Strategy: o.Strategy, Leftovers: o.Leftovers}
}

// Validate checks the options without touching any input.
func (o Options) Validate() error {
	if err := o.alignOptions().Validate(); err != nil {
		return err
	}
	switch o.Format {
	case "", FormatSRT, FormatVTT:
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, string(o.Format))
	}
}

// Result is the output of a merge.
type Result struct {
	Cues             []MergedCue
	Text             string
	Report           Report
	PrimarySkipped   []SkippedBlock
	SecondarySkipped []SkippedBlock
}

// Merge parses both tracks, aligns them and renders the bilingual track.
// Configuration errors are returned before either text is parsed.
func Merge(primaryText, secondaryText string, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	primary := Parse(primaryText)
	secondary := Parse(secondaryText)

	alignment, err := Align(primary.Cues, secondary.Cues, opts.alignOptions())
	if err != nil {
		return Result{}, err
	}

	text := SerializeMerged(alignment.Cues, RenderOptions{ZeroWidthPrefix: opts.ZeroWidthPrefix})
	if opts.Format == FormatVTT {
		text = ToVTT(text)
	}

	return Result{
		Cues:             alignment.Cues,
		Text:             text,
		Report:           alignment.Report,
		PrimarySkipped:   primary.SkippedBlocks,
		SecondarySkipped: secondary.SkippedBlocks,
	}, nil
}

// ParseStrategy maps a config or flag value onto a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "nearest", "nearest_time", "nearest-time":
		return StrategyNearestTime, nil
	case "exact", "exact_time_key", "exact-time-key":
		return StrategyExactTimeKey, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownStrategy, value)
	}
}

// ParseLeftoverMode maps a config or flag value onto a LeftoverMode.
func ParseLeftoverMode(value string) (LeftoverMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "append":
		return LeftoversAppend, nil
	case "drop":
		return LeftoversDrop, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownLeftoverMode, value)
	}
}

// ParseFormat maps a config or flag value onto a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(value, "."))) {
	case "", "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, value)
	}
}
