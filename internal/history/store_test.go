package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dualsubs/internal/history"
	"dualsubs/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if store.Path() != cfg.Paths.HistoryDB {
		t.Fatalf("Path = %q, want %q", store.Path(), cfg.Paths.HistoryDB)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	if _, err := reopened.List(context.Background(), history.ListFilter{}); err != nil {
		t.Fatalf("List after reopen failed: %v", err)
	}
}

func TestInsertAssignsIDAndRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stored := testsupport.InsertRecord(t, store, history.Record{
		Status:             history.StatusSucceeded,
		PrimaryPath:        "/tmp/show.en.srt",
		SecondaryPath:      "/tmp/show.hu.srt",
		PrimaryFingerprint: "abc",
		PrimaryLanguage:    "en",
		SecondaryLanguage:  "hu",
		Strategy:           "nearest",
		ToleranceMs:        500,
		Leftovers:          "append",
		Format:             "srt",
		PrimaryCues:        10,
		SecondaryCues:      12,
		Matched:            9,
		LeftoverCues:       3,
		OutputPath:         "/tmp/show.en-hu.srt",
		OutputBytes:        2048,
		Duration:           1500 * time.Millisecond,
	})
	if stored.ID == "" {
		t.Fatal("expected generated id")
	}
	if stored.Source != history.SourceManual {
		t.Fatalf("Source = %q, want manual default", stored.Source)
	}

	fetched, err := store.Get(ctx, stored.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Matched != 9 || fetched.LeftoverCues != 3 || fetched.ToleranceMs != 500 {
		t.Fatalf("unexpected counts: %#v", fetched)
	}
	if fetched.Duration != 1500*time.Millisecond {
		t.Fatalf("Duration = %v", fetched.Duration)
	}
	if !fetched.CreatedAt.Equal(stored.CreatedAt) {
		t.Fatalf("CreatedAt = %v, want %v", fetched.CreatedAt, stored.CreatedAt)
	}
}

func TestInsertRejectsUnknownStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := store.Insert(context.Background(), history.Record{Status: "bogus"}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersNewestFirstAndFilters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	statuses := []history.Status{history.StatusSucceeded, history.StatusFailed, history.StatusSucceeded}
	for i, status := range statuses {
		testsupport.InsertRecord(t, store, history.Record{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    status,
		})
	}

	all, err := store.List(ctx, history.ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %#v", all)
	}

	limited, err := store.List(ctx, history.ListFilter{Limit: 1})
	if err != nil {
		t.Fatalf("List with limit failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Fatalf("unexpected limited result: %#v", limited)
	}

	failed, err := store.List(ctx, history.ListFilter{Status: history.StatusFailed})
	if err != nil {
		t.Fatalf("List with status failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "b" {
		t.Fatalf("unexpected filtered result: %#v", failed)
	}
}

func TestPruneAndSummary(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Now().UTC()

	testsupport.InsertRecord(t, store, history.Record{CreatedAt: now.AddDate(0, 0, -40), Status: history.StatusFailed})
	testsupport.InsertRecord(t, store, history.Record{CreatedAt: now.AddDate(0, 0, -1), Status: history.StatusSucceeded})
	testsupport.InsertRecord(t, store, history.Record{CreatedAt: now, Status: history.StatusRejected})

	removed, err := store.Prune(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	want := history.Summary{Total: 2, Succeeded: 1, Rejected: 1}
	if summary != want {
		t.Fatalf("Summary = %#v, want %#v", summary, want)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := history.ParseStatus("failed"); !ok || status != history.StatusFailed {
		t.Fatalf("ParseStatus(failed) = %q, %v", status, ok)
	}
	if _, ok := history.ParseStatus("pending"); ok {
		t.Fatal("expected pending to be rejected")
	}
}
