package dualsub

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"dualsubs/internal/fileutil"
	"dualsubs/internal/history"
	"dualsubs/internal/language"
	"dualsubs/internal/logging"
	"dualsubs/internal/opensubtitles"
	"dualsubs/internal/services"
	"dualsubs/internal/subtitles"
	"dualsubs/internal/textutil"
)

// FetchRequest describes a search-and-merge run against OpenSubtitles.
type FetchRequest struct {
	Media             opensubtitles.MediaID
	PrimaryLanguage   string
	SecondaryLanguage string
	MaxPairs          int
	Options           subtitles.Options
	// OutputDir receives one file per merged pair. Empty uses paths.output_dir.
	OutputDir string
	// DataURI skips writing files and renders each track as a base64 data URI.
	DataURI     bool
	SkipHistory bool
}

// FetchedTrack is one merged pair.
type FetchedTrack struct {
	ID         string
	Pair       opensubtitles.Pair
	Label      string
	Result     subtitles.Result
	OutputPath string
	DataURI    string
}

// FetchResult reports all merged pairs in provider order. Pairs whose
// download or merge failed are listed in Failed and left out of Tracks.
type FetchResult struct {
	Tracks []FetchedTrack
	Failed []FailedPair
}

// FailedPair records why a pair was skipped.
type FailedPair struct {
	Pair opensubtitles.Pair
	Err  error
}

// FetchAndMerge searches for both languages, pairs the top results and
// merges every pair whose two downloads succeed.
func (s *Service) FetchAndMerge(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	if err := s.ensureOpenSubtitlesReady(); err != nil {
		return nil, err
	}
	if req.Media.IMDBID == "" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "parse media id", "An imdb id is required", nil)
	}
	if req.DataURI {
		req.Options.Format = subtitles.FormatVTT
	}
	if err := req.Options.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "validate options", "Invalid merge options", err)
	}
	primaryLang, secondaryLang := s.pairLanguages(req.PrimaryLanguage, req.SecondaryLanguage)
	if primaryLang == "" || secondaryLang == "" || primaryLang == secondaryLang {
		return nil, services.Wrap(services.ErrValidation, "fetch", "languages",
			fmt.Sprintf("Need two distinct languages, got %q and %q", req.PrimaryLanguage, req.SecondaryLanguage), nil)
	}
	maxPairs := req.MaxPairs
	if maxPairs <= 0 && s.config != nil {
		maxPairs = s.config.OpenSubtitles.MaxPairs
	}
	pairLabel := language.PairLabel(primaryLang, secondaryLang)
	logger := logging.WithContext(services.WithPair(ctx, pairLabel), s.logger)

	if err := s.waitForOpenSubtitlesWindow(ctx); err != nil {
		return nil, err
	}
	search, err := s.openSubs.Search(ctx, opensubtitles.SearchRequest{
		IMDBID:    req.Media.IMDBID,
		Languages: []string{primaryLang, secondaryLang},
		Season:    req.Media.Season,
		Episode:   req.Media.Episode,
	})
	if err != nil {
		return nil, classifyUpstream("search", err)
	}

	pairs := opensubtitles.PairResults(search.Subtitles, primaryLang, secondaryLang, maxPairs)
	logger.Info("opensubtitles search complete",
		logging.String(logging.FieldEventType, "opensubtitles_search"),
		logging.String("imdb_id", req.Media.IMDBID),
		logging.Int("results", len(search.Subtitles)),
		logging.Int("pairs", len(pairs)),
	)
	if len(pairs) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "fetch", "pair results",
			fmt.Sprintf("No %s results for both languages", pairLabel), nil)
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.outputDir()
	}

	names := outputBaseNames(pairs)
	tracks := make([]*FetchedTrack, len(pairs))
	failures := make([]error, len(pairs))
	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair opensubtitles.Pair) {
			defer wg.Done()
			tracks[i], failures[i] = s.mergePair(ctx, req, pair, names[i], primaryLang, secondaryLang, outputDir)
		}(i, pair)
	}
	wg.Wait()

	result := &FetchResult{}
	for i, pair := range pairs {
		if failures[i] != nil {
			logging.WarnWithContext(logger, "pair skipped", "pair_skipped",
				logging.String("release", pair.Release),
				logging.Int64("primary_file_id", pair.Primary.FileID),
				logging.Int64("secondary_file_id", pair.Secondary.FileID),
				logging.Error(failures[i]),
				logging.String(logging.FieldImpact, "this release is not offered"),
			)
			result.Failed = append(result.Failed, FailedPair{Pair: pair, Err: failures[i]})
			continue
		}
		result.Tracks = append(result.Tracks, *tracks[i])
	}
	if len(result.Tracks) == 0 {
		return result, services.Wrap(services.ErrUpstream, "fetch", "merge pairs", "Every pair failed to download or merge", errors.Join(failures...))
	}
	logger.Info("fetch complete",
		logging.String(logging.FieldEventType, "fetch_completed"),
		logging.Int("merged", len(result.Tracks)),
		logging.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *Service) mergePair(ctx context.Context, req FetchRequest, pair opensubtitles.Pair, baseName, primaryLang, secondaryLang, outputDir string) (*FetchedTrack, error) {
	started := s.now()
	label := TrackLabel(primaryLang, secondaryLang, pair.Release)
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithJob(ctx, pair.Release)

	var (
		wg                    sync.WaitGroup
		primary, secondary    opensubtitles.DownloadResult
		primaryErr, secondErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		primary, primaryErr = s.download(ctx, pair.Primary.FileID)
	}()
	go func() {
		defer wg.Done()
		secondary, secondErr = s.download(ctx, pair.Secondary.FileID)
	}()
	wg.Wait()
	if err := errors.Join(primaryErr, secondErr); err != nil {
		return nil, err
	}

	rec := history.Record{
		ID:                   requestID,
		Source:               history.SourceFetch,
		PrimaryPath:          fmt.Sprintf("opensubtitles:%d", pair.Primary.FileID),
		SecondaryPath:        fmt.Sprintf("opensubtitles:%d", pair.Secondary.FileID),
		PrimaryFingerprint:   fileutil.Fingerprint(primary.Data),
		SecondaryFingerprint: fileutil.Fingerprint(secondary.Data),
		PrimaryLanguage:      primaryLang,
		SecondaryLanguage:    secondaryLang,
		ReleaseLabel:         pair.Release,
	}
	applyOptions(&rec, req.Options)

	track, err := s.renderPair(req, pair, baseName, label, primary.Data, secondary.Data, primaryLang, secondaryLang, outputDir)
	rec.Duration = s.now().Sub(started)
	if err != nil {
		rec.Status = services.FailureStatus(err)
		rec.Error = err.Error()
		s.record(ctx, req.SkipHistory, rec)
		return nil, err
	}
	applyReport(&rec, track.Result)
	rec.OutputPath = track.OutputPath
	rec.OutputBytes = int64(len(track.Result.Text))
	rec.Status = history.StatusSucceeded
	s.record(ctx, req.SkipHistory, rec)
	return track, nil
}

func (s *Service) renderPair(req FetchRequest, pair opensubtitles.Pair, baseName, label string, primaryData, secondaryData []byte, primaryLang, secondaryLang, outputDir string) (*FetchedTrack, error) {
	primaryText, err := textutil.DecodeSubtitle(primaryData, s.fallbackEncoding())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "decode", "Cannot decode primary track", err)
	}
	secondaryText, err := textutil.DecodeSubtitle(secondaryData, s.fallbackEncoding())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "decode", "Cannot decode secondary track", err)
	}
	result, err := mergeText(primaryText, secondaryText, req.Options)
	if err != nil {
		return nil, err
	}

	track := &FetchedTrack{ID: pair.ID(), Pair: pair, Label: label, Result: result}
	if req.DataURI {
		track.DataURI = DataURI(req.Options.Format, result.Text)
		return track, nil
	}
	track.OutputPath = filepath.Join(outputDir, OutputFileName(baseName, primaryLang, secondaryLang, req.Options.Format))
	if err := writeOutput(track.OutputPath, result.Text); err != nil {
		return nil, err
	}
	return track, nil
}

// outputBaseNames names each pair's output after its release. Releases that
// repeat within one search, or that sanitize to the same file name, get the
// pair index appended so concurrent merges never share an output path.
func outputBaseNames(pairs []opensubtitles.Pair) []string {
	baseOf := func(pair opensubtitles.Pair) string {
		if pair.Release == "" {
			return pair.ID()
		}
		return pair.Release
	}
	counts := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		counts[textutil.SanitizeFileName(baseOf(pair))]++
	}

	names := make([]string, len(pairs))
	taken := make(map[string]bool, len(pairs))
	for i, pair := range pairs {
		name := baseOf(pair)
		if counts[textutil.SanitizeFileName(name)] > 1 {
			name = fmt.Sprintf("%s.%d", name, pair.Index)
		}
		if taken[textutil.SanitizeFileName(name)] {
			name = baseOf(pair) + "." + pair.ID()
		}
		taken[textutil.SanitizeFileName(name)] = true
		names[i] = name
	}
	return names
}

// download serves a file from the cache or fetches and caches it.
func (s *Service) download(ctx context.Context, fileID int64) (opensubtitles.DownloadResult, error) {
	if s.openSubsCache != nil {
		cached, ok, err := s.openSubsCache.Load(fileID)
		if err != nil {
			s.logger.Debug("opensubtitles cache read failed", logging.Int64("file_id", fileID), logging.Error(err))
		} else if ok {
			return cached, nil
		}
	}
	if err := s.waitForOpenSubtitlesWindow(ctx); err != nil {
		return opensubtitles.DownloadResult{}, err
	}
	payload, err := s.openSubs.Download(ctx, fileID)
	if err != nil {
		return opensubtitles.DownloadResult{}, classifyUpstream(fmt.Sprintf("download %d", fileID), err)
	}
	if s.openSubsCache != nil {
		if _, err := s.openSubsCache.Store(fileID, payload); err != nil {
			s.logger.Debug("opensubtitles cache write failed", logging.Int64("file_id", fileID), logging.Error(err))
		}
	}
	return payload, nil
}

func classifyUpstream(operation string, err error) error {
	marker := services.ErrUpstream
	if opensubtitles.IsRetriable(err) {
		marker = services.ErrTransient
	}
	return services.Wrap(marker, "opensubtitles", operation, "OpenSubtitles request failed", err)
}

// TrackLabel is the display label offered for a merged pair, e.g.
// "dual (EN+HU) - Show.S01E02.WEB".
func TrackLabel(primaryLang, secondaryLang, release string) string {
	return fmt.Sprintf("dual (%s) - %s", language.PairLabel(primaryLang, secondaryLang), release)
}

// DataURI renders text as a base64 data URI of the format's media type.
func DataURI(format subtitles.Format, text string) string {
	return "data:" + format.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString([]byte(text))
}
