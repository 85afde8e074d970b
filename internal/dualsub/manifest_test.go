package dualsub

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"dualsubs/internal/history"
	"dualsubs/internal/services"
	"dualsubs/internal/subtitles"
	"dualsubs/internal/testsupport"
)

func TestParseManifestAppliesDefaultsThenJobOverrides(t *testing.T) {
	manifest, err := ParseManifest([]byte(`
defaults:
  strategy: exact
  tolerance_ms: 250
jobs:
  - primary: ep1.en.srt
    secondary: ep1.hu.srt
  - name: second
    primary: ep2.en.srt
    secondary: ep2.hu.srt
    strategy: nearest
    leftovers: drop
    format: vtt
`))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	if manifest.Jobs[0].Name != "ep1.en" {
		t.Fatalf("derived name = %q", manifest.Jobs[0].Name)
	}

	base := subtitles.Options{ToleranceMs: 500, Leftovers: subtitles.LeftoversAppend}
	first, err := manifest.JobOptions(base, manifest.Jobs[0])
	if err != nil {
		t.Fatalf("JobOptions: %v", err)
	}
	if first.Strategy != subtitles.StrategyExactTimeKey || first.ToleranceMs != 250 || first.Leftovers != subtitles.LeftoversAppend {
		t.Fatalf("unexpected first options: %#v", first)
	}

	second, err := manifest.JobOptions(base, manifest.Jobs[1])
	if err != nil {
		t.Fatalf("JobOptions: %v", err)
	}
	if second.Strategy != subtitles.StrategyNearestTime || second.Leftovers != subtitles.LeftoversDrop || second.Format != subtitles.FormatVTT {
		t.Fatalf("unexpected second options: %#v", second)
	}
	if second.ToleranceMs != 250 {
		t.Fatalf("expected default tolerance to carry over, got %d", second.ToleranceMs)
	}
}

func TestParseManifestRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"no jobs":       "output_dir: out\n",
		"unknown field": "jobs:\n  - primary: a.srt\n    secondary: b.srt\n    colour: red\n",
		"missing track": "jobs:\n  - primary: a.srt\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestJobOptionsRejectsUnknownStrategy(t *testing.T) {
	manifest, err := ParseManifest([]byte("jobs:\n  - primary: a.srt\n    secondary: b.srt\n    strategy: fuzzy\n"))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	_, err = manifest.JobOptions(subtitles.Options{ToleranceMs: 500}, manifest.Jobs[0])
	if !errors.Is(err, subtitles.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestBatchRunsJobsAndReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store := newTestService(t, cfg)
	dir := filepath.Join(testsupport.BaseDir(cfg), "batch")
	testsupport.WriteFile(t, filepath.Join(dir, "ep1.en.srt"), primarySRT)
	testsupport.WriteFile(t, filepath.Join(dir, "ep1.hu.srt"), secondarySRT)
	manifestPath := testsupport.WriteFile(t, filepath.Join(dir, "jobs.yaml"), strings.Join([]string{
		"output_dir: merged",
		"jobs:",
		"  - primary: ep1.en.srt",
		"    secondary: ep1.hu.srt",
		"  - name: broken",
		"    primary: ep2.en.srt",
		"    secondary: ep2.hu.srt",
		"  - name: bad-options",
		"    primary: ep1.en.srt",
		"    secondary: ep1.hu.srt",
		"    leftovers: keep",
		"",
	}, "\n"))

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	result, err := svc.Batch(context.Background(), manifest, mergeOptions(t, cfg), 2)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 2 {
		t.Fatalf("succeeded/failed = %d/%d", result.Succeeded, result.Failed)
	}

	first := result.Jobs[0]
	wantPath := filepath.Join(dir, "merged", "ep1.en-hu.srt")
	if first.Err != nil || first.Outcome.OutputPath != wantPath {
		t.Fatalf("unexpected first job: %#v", first)
	}
	if !strings.Contains(testsupport.ReadFile(t, wantPath), "Hello\nSzia") {
		t.Fatal("expected merged output on disk")
	}
	if !errors.Is(result.Jobs[1].Err, services.ErrNotFound) {
		t.Fatalf("expected missing input error, got %v", result.Jobs[1].Err)
	}
	if !errors.Is(result.Jobs[2].Err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", result.Jobs[2].Err)
	}

	summary, err := store.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Succeeded != 1 || summary.Rejected != 1 {
		t.Fatalf("unexpected history summary: %#v", summary)
	}
	records, err := store.List(context.Background(), history.ListFilter{Status: history.StatusSucceeded})
	if err != nil || len(records) != 1 || records[0].Source != history.SourceBatch {
		t.Fatalf("unexpected batch history: %#v err=%v", records, err)
	}
}

func TestBatchRejectsEmptyManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _ := newTestService(t, cfg)
	if _, err := svc.Batch(context.Background(), &Manifest{}, subtitles.Options{}, 1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
