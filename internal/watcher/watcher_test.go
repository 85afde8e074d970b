package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"dualsubs/internal/logging"
)

func TestParseTrackName(t *testing.T) {
	cases := []struct {
		path   string
		want   Track
		wantOK bool
	}{
		{"/in/show.en.srt", Track{Name: "show", Language: "en"}, true},
		{"Show.S01E02.hun.SRT", Track{Name: "Show.S01E02", Language: "hu"}, true},
		{"movie.pt-BR.srt", Track{Name: "movie", Language: "pt"}, true},
		{"show.en-hu.srt", Track{}, false},
		{"show.srt", Track{}, false},
		{"show.S01E02.srt", Track{}, false},
		{"show.en.vtt", Track{}, false},
		{".en.srt", Track{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseTrackName(tc.path)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("ParseTrackName(%q) = %#v, %v; want %#v, %v", tc.path, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestNewValidatesOptions(t *testing.T) {
	dir := t.TempDir()
	handler := func(context.Context, Pair) error { return nil }
	if _, err := New(Options{Dir: dir, PrimaryLanguage: "en", SecondaryLanguage: "en"}, handler, nil); err == nil {
		t.Fatal("expected error for identical languages")
	}
	if _, err := New(Options{Dir: filepath.Join(dir, "missing"), PrimaryLanguage: "en", SecondaryLanguage: "hu"}, handler, nil); err == nil {
		t.Fatal("expected error for missing dir")
	}
	if _, err := New(Options{Dir: dir, PrimaryLanguage: "en", SecondaryLanguage: "hu"}, nil, nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func startWatcher(t *testing.T, opts Options, handler Handler) (*Watcher, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(opts, handler, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return w, cancel, errCh
}

func waitForLock(t *testing.T, dir string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(dir, LockFileName)); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher did not start")
}

func TestWatcherMergesNewPair(t *testing.T) {
	dir := t.TempDir()
	pairs := make(chan Pair, 4)
	startWatcher(t, Options{Dir: dir, PrimaryLanguage: "en", SecondaryLanguage: "hu", Settle: 20 * time.Millisecond},
		func(_ context.Context, pair Pair) error {
			pairs <- pair
			return nil
		})
	waitForLock(t, dir)
	// The lock is taken just before the fsnotify watch is added.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "show.en.srt"), []byte("1\n00:00:01,000 --> 00:00:02,000\nHi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "show.hu.srt"), []byte("1\n00:00:01,000 --> 00:00:02,000\nSzia\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case pair := <-pairs:
		if pair.Name != "show" || filepath.Base(pair.Primary) != "show.en.srt" || filepath.Base(pair.Secondary) != "show.hu.srt" {
			t.Fatalf("unexpected pair: %#v", pair)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pair")
	}

	select {
	case pair := <-pairs:
		t.Fatalf("unexpected duplicate merge: %#v", pair)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherScansExistingPairs(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{"a.en.srt": "x", "a.hu.srt": "y", "b.en.srt": "z"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var calls atomic.Int32
	done := make(chan Pair, 2)
	startWatcher(t, Options{Dir: dir, PrimaryLanguage: "en", SecondaryLanguage: "hu", ScanExisting: true},
		func(_ context.Context, pair Pair) error {
			calls.Add(1)
			done <- pair
			return nil
		})

	select {
	case pair := <-done:
		if pair.Name != "a" {
			t.Fatalf("unexpected pair %#v", pair)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for existing pair")
	}
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("handler calls = %d, want 1", calls.Load())
	}
}

func TestWatcherRejectsSecondInstance(t *testing.T) {
	dir := t.TempDir()
	handler := func(context.Context, Pair) error { return nil }
	startWatcher(t, Options{Dir: dir, PrimaryLanguage: "en", SecondaryLanguage: "hu"}, handler)
	waitForLock(t, dir)

	second, err := New(Options{Dir: dir, PrimaryLanguage: "en", SecondaryLanguage: "hu"}, handler, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	// The first watcher may still be between creating the lock file and
	// locking it; retry briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		err = second.Run(ctx)
		cancel()
		if errors.Is(err, ErrLocked) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}
		second, _ = New(Options{Dir: dir, PrimaryLanguage: "en", SecondaryLanguage: "hu"}, handler, nil)
	}
}
