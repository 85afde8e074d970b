package testsupport

import (
	"context"
	"testing"

	"dualsubs/internal/config"
	"dualsubs/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// InsertRecord stores rec for tests using the provided store.
func InsertRecord(t testing.TB, store *history.Store, rec history.Record) *history.Record {
	t.Helper()

	stored, err := store.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return stored
}
