package opensubtitles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheStoreAndLoad(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache"), nil)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	if _, ok, err := cache.Load(42); err != nil || ok {
		t.Fatalf("expected miss before store, ok=%v err=%v", ok, err)
	}

	payload := DownloadResult{Data: []byte("1\n00:00:01,000 --> 00:00:02,000\nHi\n\n"), FileName: "a.srt", Language: "en"}
	path, err := cache.Store(42, payload)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if filepath.Dir(path) != cache.Dir() {
		t.Fatalf("unexpected data path %q", path)
	}

	loaded, ok, err := cache.Load(42)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if !loaded.Cached || string(loaded.Data) != string(payload.Data) || loaded.Language != "en" {
		t.Fatalf("unexpected cached result: %#v", loaded)
	}
}

func TestCacheTreatsTamperedPayloadAsMiss(t *testing.T) {
	cache, err := NewCache(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	path, err := cache.Store(7, DownloadResult{Data: []byte("original")})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := cache.Load(7); err != nil || ok {
		t.Fatalf("expected miss for tampered payload, ok=%v err=%v", ok, err)
	}
}

func TestCacheMissingMetadataIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, nil)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	dataPath := filepath.Join(dir, "9.srt")
	if err := os.WriteFile(dataPath, []byte("orphan"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := cache.Load(9); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(dataPath); !os.IsNotExist(err) {
		t.Fatalf("expected orphan payload removed, err=%v", err)
	}
}

func TestNewCacheRequiresDir(t *testing.T) {
	if _, err := NewCache("  ", nil); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
