package dualsub

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dualsubs/internal/config"
	"dualsubs/internal/history"
	"dualsubs/internal/logging"
	"dualsubs/internal/opensubtitles"
	"dualsubs/internal/services"
	"dualsubs/internal/subtitles"
	"dualsubs/internal/testsupport"
)

var (
	primarySRT = testsupport.SRT(
		testsupport.Cue{Start: "00:00:01,000", End: "00:00:02,000", Text: "Hello"},
		testsupport.Cue{Start: "00:00:05,000", End: "00:00:06,000", Text: "Bye"},
	)
	secondarySRT = testsupport.SRT(
		testsupport.Cue{Start: "00:00:01,200", End: "00:00:02,100", Text: "Szia"},
		testsupport.Cue{Start: "00:00:09,000", End: "00:00:10,000", Text: "Extra"},
	)
)

func newTestService(t *testing.T, cfg *config.Config, opts ...Option) (*Service, *history.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	opts = append([]Option{WithHistory(store), WithRequestInterval(0)}, opts...)
	return New(cfg, logging.NewNop(), opts...), store
}

func mergeOptions(t *testing.T, cfg *config.Config) subtitles.Options {
	t.Helper()
	opts, err := cfg.MergeOptions()
	if err != nil {
		t.Fatalf("MergeOptions: %v", err)
	}
	return opts
}

func TestMergeFilesWritesOutputAndRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store := newTestService(t, cfg)
	base := testsupport.BaseDir(cfg)
	primary := testsupport.WriteFile(t, filepath.Join(base, "in", "show.en.srt"), primarySRT)
	secondary := testsupport.WriteFile(t, filepath.Join(base, "in", "show.hu.srt"), secondarySRT)

	outcome, err := svc.MergeFiles(context.Background(), MergeRequest{
		PrimaryPath:   primary,
		SecondaryPath: secondary,
		Options:       mergeOptions(t, cfg),
	})
	if err != nil {
		t.Fatalf("MergeFiles failed: %v", err)
	}

	wantPath := filepath.Join(cfg.Paths.OutputDir, "show.en-hu.srt")
	if outcome.OutputPath != wantPath {
		t.Fatalf("OutputPath = %q, want %q", outcome.OutputPath, wantPath)
	}
	content := testsupport.ReadFile(t, wantPath)
	for _, want := range []string{
		"1\n00:00:01,000 --> 00:00:02,000\nHello\nSzia\n\n",
		"3\n00:00:09,000 --> 00:00:10,000\nExtra\n\n",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in output:\n%s", want, content)
		}
	}
	if outcome.Result.Report.Matched != 1 || outcome.Result.Report.Leftovers != 1 {
		t.Fatalf("unexpected report: %#v", outcome.Result.Report)
	}

	rec, err := store.Get(context.Background(), outcome.ID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if rec.Status != history.StatusSucceeded || rec.Source != history.SourceManual {
		t.Fatalf("unexpected record status/source: %#v", rec)
	}
	if rec.Matched != 1 || rec.LeftoverCues != 1 || rec.OutputPath != wantPath {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.PrimaryFingerprint == "" || rec.PrimaryFingerprint == rec.SecondaryFingerprint {
		t.Fatalf("expected distinct fingerprints, got %#v", rec)
	}
	if rec.PrimaryLanguage != "en" || rec.SecondaryLanguage != "hu" || rec.Strategy != "nearest" {
		t.Fatalf("unexpected record settings: %#v", rec)
	}
}

func TestMergeFilesSkipWriteAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store := newTestService(t, cfg)
	base := testsupport.BaseDir(cfg)
	primary := testsupport.WriteFile(t, filepath.Join(base, "a.srt"), primarySRT)
	secondary := testsupport.WriteFile(t, filepath.Join(base, "b.srt"), secondarySRT)

	opts := mergeOptions(t, cfg)
	opts.Format = subtitles.FormatVTT
	outcome, err := svc.MergeFiles(context.Background(), MergeRequest{
		PrimaryPath:   primary,
		SecondaryPath: secondary,
		Options:       opts,
		SkipWrite:     true,
		SkipHistory:   true,
	})
	if err != nil {
		t.Fatalf("MergeFiles failed: %v", err)
	}
	if outcome.OutputPath != "" {
		t.Fatalf("expected no output path, got %q", outcome.OutputPath)
	}
	if !strings.HasPrefix(outcome.Result.Text, "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\n") {
		t.Fatalf("unexpected vtt text %q", outcome.Result.Text)
	}
	if _, err := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir untouched, err=%v", err)
	}
	records, err := store.List(context.Background(), history.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no history, got %d records", len(records))
	}
}

func TestMergeFilesMissingInputIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store := newTestService(t, cfg)
	secondary := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "b.srt"), secondarySRT)

	_, err := svc.MergeFiles(context.Background(), MergeRequest{
		PrimaryPath:   filepath.Join(testsupport.BaseDir(cfg), "missing.srt"),
		SecondaryPath: secondary,
		Options:       mergeOptions(t, cfg),
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	records, err := store.List(context.Background(), history.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Status != history.StatusRejected || records[0].Error == "" {
		t.Fatalf("expected one rejected record, got %#v", records)
	}
}

func TestMergeFilesInvalidOptionsIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _ := newTestService(t, cfg)
	base := testsupport.BaseDir(cfg)
	primary := testsupport.WriteFile(t, filepath.Join(base, "a.srt"), primarySRT)
	secondary := testsupport.WriteFile(t, filepath.Join(base, "b.srt"), secondarySRT)

	opts := mergeOptions(t, cfg)
	opts.ToleranceMs = -1
	_, err := svc.MergeFiles(context.Background(), MergeRequest{
		PrimaryPath:   primary,
		SecondaryPath: secondary,
		Options:       opts,
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !errors.Is(err, subtitles.ErrInvalidOptions) {
		t.Fatalf("expected engine error to be wrapped, got %v", err)
	}
	if services.ExitCode(err) != 2 {
		t.Fatalf("ExitCode = %d, want 2", services.ExitCode(err))
	}
}

func TestMergeFilesDecodesLegacyEncoding(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Merge.FallbackEncoding = "windows-1250"
	svc, _ := newTestService(t, cfg)
	base := testsupport.BaseDir(cfg)
	primary := testsupport.WriteFile(t, filepath.Join(base, "a.srt"), primarySRT)
	// "Szőlő" in windows-1250: ő is 0xF5.
	legacy := "1\n00:00:01,000 --> 00:00:02,000\nSz\xf5l\xf5\n\n"
	secondary := testsupport.WriteFile(t, filepath.Join(base, "b.srt"), legacy)

	outcome, err := svc.MergeFiles(context.Background(), MergeRequest{
		PrimaryPath:   primary,
		SecondaryPath: secondary,
		Options:       mergeOptions(t, cfg),
		SkipWrite:     true,
	})
	if err != nil {
		t.Fatalf("MergeFiles failed: %v", err)
	}
	if !strings.Contains(outcome.Result.Text, "Hello\nSzőlő\n") {
		t.Fatalf("expected decoded secondary text, got %q", outcome.Result.Text)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	cases := []struct {
		name      string
		primary   string
		outputDir string
		format    subtitles.Format
		want      string
	}{
		{"language suffix replaced", "/media/show.en.srt", "", subtitles.FormatSRT, "/media/show.en-hu.srt"},
		{"no suffix", "/media/movie.srt", "", subtitles.FormatSRT, "/media/movie.en-hu.srt"},
		{"output dir and vtt", "/media/movie.srt", "/out", subtitles.FormatVTT, "/out/movie.en-hu.vtt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DefaultOutputPath(tc.primary, tc.outputDir, "en", "hu", tc.format)
			if got != tc.want {
				t.Fatalf("DefaultOutputPath = %q, want %q", got, tc.want)
			}
		})
	}
}

type fakeOpenSubtitles struct {
	mu        sync.Mutex
	results   []opensubtitles.Subtitle
	payloads  map[int64]string
	failures  map[int64]error
	searches  []opensubtitles.SearchRequest
	downloads map[int64]int
}

func (f *fakeOpenSubtitles) Search(_ context.Context, req opensubtitles.SearchRequest) (opensubtitles.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, req)
	return opensubtitles.SearchResponse{Subtitles: f.results, Total: len(f.results)}, nil
}

func (f *fakeOpenSubtitles) Download(_ context.Context, fileID int64) (opensubtitles.DownloadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloads == nil {
		f.downloads = map[int64]int{}
	}
	f.downloads[fileID]++
	if err := f.failures[fileID]; err != nil {
		return opensubtitles.DownloadResult{}, err
	}
	payload, ok := f.payloads[fileID]
	if !ok {
		return opensubtitles.DownloadResult{}, fmt.Errorf("no payload for %d", fileID)
	}
	return opensubtitles.DownloadResult{Data: []byte(payload), Language: "xx"}, nil
}

func (f *fakeOpenSubtitles) downloadCount(fileID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads[fileID]
}

func newFakeOpenSubtitles() *fakeOpenSubtitles {
	return &fakeOpenSubtitles{
		results: []opensubtitles.Subtitle{
			{FileID: 1, Language: "en", Release: "Show.S01E02.WEB"},
			{FileID: 2, Language: "hu"},
			{FileID: 3, Language: "en"},
			{FileID: 4, Language: "hu"},
		},
		payloads: map[int64]string{
			1: primarySRT,
			2: secondarySRT,
			3: primarySRT,
		},
		failures: map[int64]error{
			4: errors.New("quota exceeded"),
		},
	}
}

func TestFetchAndMergeBuildsDataURIsAndSkipsFailedPairs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newFakeOpenSubtitles()
	svc, store := newTestService(t, cfg, WithOpenSubtitlesClient(client))

	result, err := svc.FetchAndMerge(context.Background(), FetchRequest{
		Media:   opensubtitles.MediaID{IMDBID: "0944947", Season: 1, Episode: 2},
		Options: mergeOptions(t, cfg),
		DataURI: true,
	})
	if err != nil {
		t.Fatalf("FetchAndMerge failed: %v", err)
	}

	if len(client.searches) != 1 {
		t.Fatalf("expected one search, got %d", len(client.searches))
	}
	search := client.searches[0]
	if strings.Join(search.Languages, ",") != "en,hu" || search.Season != 1 || search.Episode != 2 {
		t.Fatalf("unexpected search request: %#v", search)
	}

	if len(result.Tracks) != 1 || len(result.Failed) != 1 {
		t.Fatalf("expected 1 track and 1 failure, got %d/%d", len(result.Tracks), len(result.Failed))
	}
	track := result.Tracks[0]
	if track.Label != "dual (EN+HU) - Show.S01E02.WEB" {
		t.Fatalf("Label = %q", track.Label)
	}
	if track.ID != "merged-1-2" {
		t.Fatalf("ID = %q", track.ID)
	}
	const prefix = "data:text/vtt;base64,"
	if !strings.HasPrefix(track.DataURI, prefix) {
		t.Fatalf("unexpected data uri %q", track.DataURI)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(track.DataURI, prefix))
	if err != nil {
		t.Fatalf("decode data uri: %v", err)
	}
	if !strings.HasPrefix(string(decoded), "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\nHello\nSzia\n") {
		t.Fatalf("unexpected vtt payload %q", decoded)
	}
	if result.Failed[0].Pair.Release != "Release #2" {
		t.Fatalf("unexpected failed pair: %#v", result.Failed[0].Pair)
	}

	records, err := store.List(context.Background(), history.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Source != history.SourceFetch || records[0].ReleaseLabel != "Show.S01E02.WEB" {
		t.Fatalf("unexpected history: %#v", records)
	}
}

func TestFetchAndMergeWritesFilesAndUsesCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newFakeOpenSubtitles()
	client.results = client.results[:2]
	svc, _ := newTestService(t, cfg, WithOpenSubtitlesClient(client))

	req := FetchRequest{
		Media:   opensubtitles.MediaID{IMDBID: "1375666"},
		Options: mergeOptions(t, cfg),
	}
	result, err := svc.FetchAndMerge(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchAndMerge failed: %v", err)
	}
	wantPath := filepath.Join(cfg.Paths.OutputDir, "Show.S01E02.WEB.en-hu.srt")
	if len(result.Tracks) != 1 || result.Tracks[0].OutputPath != wantPath {
		t.Fatalf("unexpected tracks: %#v", result.Tracks)
	}
	if content := testsupport.ReadFile(t, wantPath); !strings.Contains(content, "Hello\nSzia") {
		t.Fatalf("unexpected output %q", content)
	}

	if _, err := svc.FetchAndMerge(context.Background(), req); err != nil {
		t.Fatalf("second FetchAndMerge failed: %v", err)
	}
	if client.downloadCount(1) != 1 || client.downloadCount(2) != 1 {
		t.Fatalf("expected cached payloads on second run, downloads=%v", client.downloads)
	}
}

func TestFetchAndMergeRepeatedReleaseGetsDistinctFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newFakeOpenSubtitles()
	client.results = []opensubtitles.Subtitle{
		{FileID: 1, Language: "en", Release: "Show.WEB"},
		{FileID: 2, Language: "hu"},
		{FileID: 3, Language: "en", Release: "Show.WEB"},
		{FileID: 4, Language: "hu"},
	}
	client.payloads[4] = testsupport.SRT(testsupport.Cue{Start: "00:00:01,000", End: "00:00:02,000", Text: "Helló"})
	delete(client.failures, 4)
	svc, store := newTestService(t, cfg, WithOpenSubtitlesClient(client))

	result, err := svc.FetchAndMerge(context.Background(), FetchRequest{
		Media:   opensubtitles.MediaID{IMDBID: "1375666"},
		Options: mergeOptions(t, cfg),
	})
	if err != nil {
		t.Fatalf("FetchAndMerge failed: %v", err)
	}
	if len(result.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(result.Tracks))
	}
	want := []string{
		filepath.Join(cfg.Paths.OutputDir, "Show.WEB.1.en-hu.srt"),
		filepath.Join(cfg.Paths.OutputDir, "Show.WEB.2.en-hu.srt"),
	}
	for i, track := range result.Tracks {
		if track.OutputPath != want[i] {
			t.Fatalf("track %d path = %q, want %q", i, track.OutputPath, want[i])
		}
	}
	if content := testsupport.ReadFile(t, want[0]); !strings.Contains(content, "Hello\nSzia") {
		t.Fatalf("first pair output = %q", content)
	}
	if content := testsupport.ReadFile(t, want[1]); !strings.Contains(content, "Hello\nHelló") {
		t.Fatalf("second pair output = %q", content)
	}

	records, err := store.List(context.Background(), history.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	paths := map[string]bool{}
	for _, rec := range records {
		paths[rec.OutputPath] = true
	}
	if len(records) != 2 || len(paths) != 2 {
		t.Fatalf("expected two records with distinct outputs, got %#v", records)
	}
}

func TestOutputBaseNames(t *testing.T) {
	pairs := []opensubtitles.Pair{
		{Index: 1, Release: "Show.WEB", Primary: opensubtitles.Subtitle{FileID: 1}, Secondary: opensubtitles.Subtitle{FileID: 2}},
		{Index: 2, Release: "Show.BluRay", Primary: opensubtitles.Subtitle{FileID: 3}, Secondary: opensubtitles.Subtitle{FileID: 4}},
		{Index: 3, Release: "Show.WEB", Primary: opensubtitles.Subtitle{FileID: 5}, Secondary: opensubtitles.Subtitle{FileID: 6}},
		{Index: 4, Release: "Show.WEB.1", Primary: opensubtitles.Subtitle{FileID: 7}, Secondary: opensubtitles.Subtitle{FileID: 8}},
	}
	got := outputBaseNames(pairs)
	want := []string{"Show.WEB.1", "Show.BluRay", "Show.WEB.3", "Show.WEB.1.merged-7-8"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("name %d = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestFetchAndMergeNoPairsIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newFakeOpenSubtitles()
	client.results = client.results[:1]
	svc, _ := newTestService(t, cfg, WithOpenSubtitlesClient(client))

	_, err := svc.FetchAndMerge(context.Background(), FetchRequest{
		Media:   opensubtitles.MediaID{IMDBID: "1375666"},
		Options: mergeOptions(t, cfg),
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchAndMergeAllPairsFailedIsUpstream(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newFakeOpenSubtitles()
	client.failures[2] = errors.New("gone")
	client.results = client.results[:2]
	svc, _ := newTestService(t, cfg, WithOpenSubtitlesClient(client))

	result, err := svc.FetchAndMerge(context.Background(), FetchRequest{
		Media:   opensubtitles.MediaID{IMDBID: "1375666"},
		Options: mergeOptions(t, cfg),
	})
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if result == nil || len(result.Failed) != 1 {
		t.Fatalf("expected failed pair in result, got %#v", result)
	}
}

func TestFetchAndMergeRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.OpenSubtitles.APIKey = ""
	svc, _ := newTestService(t, cfg)

	_, err := svc.FetchAndMerge(context.Background(), FetchRequest{
		Media:   opensubtitles.MediaID{IMDBID: "1375666"},
		Options: mergeOptions(t, cfg),
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTrackLabelAndDataURI(t *testing.T) {
	if got := TrackLabel("en", "hu", "Release #1"); got != "dual (EN+HU) - Release #1" {
		t.Fatalf("TrackLabel = %q", got)
	}
	if got := DataURI(subtitles.FormatVTT, "WEBVTT\n\n"); got != "data:text/vtt;base64,V0VCVlRUCgo=" {
		t.Fatalf("DataURI = %q", got)
	}
}
