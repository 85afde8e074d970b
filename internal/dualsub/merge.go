package dualsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dualsubs/internal/fileutil"
	"dualsubs/internal/history"
	"dualsubs/internal/language"
	"dualsubs/internal/logging"
	"dualsubs/internal/services"
	"dualsubs/internal/subtitles"
	"dualsubs/internal/textutil"
)

// MergeRequest describes a merge of two local subtitle files.
type MergeRequest struct {
	PrimaryPath       string
	SecondaryPath     string
	PrimaryLanguage   string
	SecondaryLanguage string
	// OutputPath is where the merged track is written. Empty derives a name
	// next to the primary file (or in paths.output_dir).
	OutputPath string
	// SkipWrite leaves writing to the caller, e.g. to print to stdout.
	SkipWrite   bool
	SkipHistory bool
	Options     subtitles.Options
	Source      history.Source
	Job         string
}

// MergeOutcome reports a finished merge.
type MergeOutcome struct {
	ID          string
	Result      subtitles.Result
	OutputPath  string
	OutputBytes int
	Duration    time.Duration
}

// MergeFiles reads, decodes and merges two subtitle files.
func (s *Service) MergeFiles(ctx context.Context, req MergeRequest) (*MergeOutcome, error) {
	started := s.now()
	id := uuid.NewString()
	ctx = services.WithRequestID(ctx, id)
	if req.Job != "" {
		ctx = services.WithJob(ctx, req.Job)
	}
	primaryLang, secondaryLang := s.pairLanguages(req.PrimaryLanguage, req.SecondaryLanguage)
	ctx = services.WithPair(ctx, language.PairLabel(primaryLang, secondaryLang))
	logger := logging.WithContext(ctx, s.logger)

	rec := history.Record{
		ID:                id,
		Source:            req.Source,
		PrimaryPath:       req.PrimaryPath,
		SecondaryPath:     req.SecondaryPath,
		PrimaryLanguage:   primaryLang,
		SecondaryLanguage: secondaryLang,
	}
	applyOptions(&rec, req.Options)

	outcome, err := s.mergeFiles(ctx, req, &rec, primaryLang, secondaryLang)
	rec.Duration = s.now().Sub(started)
	if err != nil {
		rec.Status = services.FailureStatus(err)
		rec.Error = err.Error()
		s.record(ctx, req.SkipHistory, rec)
		logging.ErrorWithContext(logger, "merge failed", "merge_failed",
			logging.String("primary_file", req.PrimaryPath),
			logging.String("secondary_file", req.SecondaryPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
		return nil, err
	}

	outcome.ID = id
	outcome.Duration = rec.Duration
	rec.Status = history.StatusSucceeded
	s.record(ctx, req.SkipHistory, rec)
	s.logMerged(logger, req.PrimaryPath, req.SecondaryPath, outcome)
	return outcome, nil
}

func (s *Service) mergeFiles(ctx context.Context, req MergeRequest, rec *history.Record, primaryLang, secondaryLang string) (*MergeOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Options.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "merge", "validate options", "Invalid merge options", err)
	}
	primaryText, primaryFP, err := s.readTrack(req.PrimaryPath)
	if err != nil {
		return nil, err
	}
	secondaryText, secondaryFP, err := s.readTrack(req.SecondaryPath)
	if err != nil {
		return nil, err
	}
	rec.PrimaryFingerprint = primaryFP
	rec.SecondaryFingerprint = secondaryFP

	result, err := mergeText(primaryText, secondaryText, req.Options)
	if err != nil {
		return nil, err
	}
	applyReport(rec, result)

	outcome := &MergeOutcome{Result: result, OutputBytes: len(result.Text)}
	if !req.SkipWrite {
		outputPath := req.OutputPath
		if outputPath == "" {
			outputPath = DefaultOutputPath(req.PrimaryPath, s.outputDir(), primaryLang, secondaryLang, req.Options.Format)
		}
		if err := writeOutput(outputPath, result.Text); err != nil {
			return nil, err
		}
		outcome.OutputPath = outputPath
		rec.OutputPath = outputPath
	}
	rec.OutputBytes = int64(outcome.OutputBytes)
	return outcome, nil
}

func (s *Service) readTrack(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", services.Wrap(services.ErrNotFound, "merge", "read input", fmt.Sprintf("Subtitle file %q does not exist", path), err)
		}
		return "", "", services.Wrap(services.ErrValidation, "merge", "read input", fmt.Sprintf("Cannot read %q", path), err)
	}
	text, err := textutil.DecodeSubtitle(data, s.fallbackEncoding())
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "merge", "decode input", fmt.Sprintf("Cannot decode %q", path), err)
	}
	return text, fileutil.Fingerprint(data), nil
}

// mergeText runs the engine and classifies its errors.
func mergeText(primaryText, secondaryText string, opts subtitles.Options) (subtitles.Result, error) {
	result, err := subtitles.Merge(primaryText, secondaryText, opts)
	if err != nil {
		if errors.Is(err, subtitles.ErrInvalidOptions) {
			return subtitles.Result{}, services.Wrap(services.ErrConfiguration, "merge", "align", "Invalid merge options", err)
		}
		return subtitles.Result{}, services.Wrap(services.ErrValidation, "merge", "align", "Merge failed", err)
	}
	return result, nil
}

func writeOutput(path, text string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrValidation, "merge", "write output", fmt.Sprintf("Cannot write %q", path), err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, skip bool, rec history.Record) {
	if skip || s.history == nil {
		return
	}
	if _, err := s.history.Insert(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db permissions or delete the database"),
			logging.String(logging.FieldImpact, "merge is missing from history"),
		)
	}
}

func (s *Service) logMerged(logger *slog.Logger, primaryPath, secondaryPath string, outcome *MergeOutcome) {
	report := outcome.Result.Report
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "merge_completed"),
		logging.String("primary_file", primaryPath),
		logging.String("secondary_file", secondaryPath),
		logging.String("strategy", report.Strategy.String()),
		logging.Int("matched", report.Matched),
		logging.Int("unmatched", len(report.Unmatched)),
		logging.Int("leftovers", report.Leftovers),
		logging.Int("dropped", report.Dropped),
		logging.Int("skipped_blocks", len(outcome.Result.PrimarySkipped)+len(outcome.Result.SecondarySkipped)),
		logging.Int64("output_bytes", int64(outcome.OutputBytes)),
		logging.Duration("duration", outcome.Duration),
	}
	if outcome.OutputPath != "" {
		attrs = append(attrs, logging.String("output_file", outcome.OutputPath))
	}
	logger.Info("merge completed", logging.Args(attrs...)...)
}

func (s *Service) pairLanguages(primary, secondary string) (string, string) {
	if s.config != nil {
		if primary == "" {
			primary = s.config.Languages.Primary
		}
		if secondary == "" {
			secondary = s.config.Languages.Secondary
		}
	}
	return language.ToISO2(primary), language.ToISO2(secondary)
}

func (s *Service) fallbackEncoding() string {
	if s.config == nil {
		return ""
	}
	return s.config.Merge.FallbackEncoding
}

func (s *Service) outputDir() string {
	if s.config == nil {
		return ""
	}
	return s.config.Paths.OutputDir
}

func applyOptions(rec *history.Record, opts subtitles.Options) {
	format := opts.Format
	if format == "" {
		format = subtitles.FormatSRT
	}
	rec.Strategy = opts.Strategy.String()
	rec.ToleranceMs = opts.ToleranceMs
	rec.Leftovers = opts.Leftovers.String()
	rec.Format = string(format)
}

func applyReport(rec *history.Record, result subtitles.Result) {
	rec.PrimaryCues = result.Report.PrimaryCues
	rec.SecondaryCues = result.Report.SecondaryCues
	rec.Matched = result.Report.Matched
	rec.LeftoverCues = result.Report.Leftovers
	rec.DroppedCues = result.Report.Dropped
	rec.SkippedBlocks = len(result.PrimarySkipped) + len(result.SecondarySkipped)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "check the input paths"
	case errors.Is(err, services.ErrConfiguration):
		return "check [merge] settings or command flags"
	case errors.Is(err, services.ErrUpstream), errors.Is(err, services.ErrTransient):
		return "check network access and OpenSubtitles credentials"
	default:
		return "check the input files are SRT text"
	}
}

// DefaultOutputPath derives "<name>.<p>-<s><ext>" from the primary file. A
// trailing language tag on the primary name ("show.en.srt") is replaced.
func DefaultOutputPath(primaryPath, outputDir, primaryLang, secondaryLang string, format subtitles.Format) string {
	base := filepath.Base(primaryPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if primaryLang != "" {
		name = strings.TrimSuffix(name, "."+primaryLang)
	}
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(primaryPath)
	}
	return filepath.Join(dir, OutputFileName(name, primaryLang, secondaryLang, format))
}

// OutputFileName builds "<name>.<p>-<s><ext>" with name sanitized for the
// filesystem.
func OutputFileName(name, primaryLang, secondaryLang string, format subtitles.Format) string {
	name = textutil.SanitizeFileName(name)
	if name == "" {
		name = "merged"
	}
	tag := primaryLang + "-" + secondaryLang
	if primaryLang == "" || secondaryLang == "" {
		tag = "dual"
	}
	return name + "." + tag + format.Extension()
}
