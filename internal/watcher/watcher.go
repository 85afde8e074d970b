package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"dualsubs/internal/fileutil"
	"dualsubs/internal/language"
	"dualsubs/internal/logging"
)

// LockFileName is created inside the watched directory.
const LockFileName = ".dualsubs.lock"

// ErrLocked is returned when another watcher holds the directory lock.
var ErrLocked = errors.New("directory is already watched by another dualsubs process")

// Handler merges one pair. Errors are logged; the watcher keeps running.
type Handler func(ctx context.Context, pair Pair) error

// Options configures a Watcher.
type Options struct {
	Dir               string
	PrimaryLanguage   string
	SecondaryLanguage string
	MaxConcurrent     int
	Settle            time.Duration
	// ScanExisting merges pairs already present when Run starts.
	ScanExisting bool
}

// Watcher monitors a directory for subtitle pairs.
type Watcher struct {
	opts    Options
	handler Handler
	logger  *slog.Logger
	lock    *flock.Flock

	primary   string
	secondary string

	mu        sync.Mutex
	timers    map[string]*time.Timer
	processed map[string]string
	ready     chan string
	done      chan struct{}
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// New validates opts and prepares a Watcher. Nothing is locked or watched
// until Run.
func New(opts Options, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: handler is required")
	}
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watcher: %s is not a directory", opts.Dir)
	}
	primary := language.ToISO2(opts.PrimaryLanguage)
	secondary := language.ToISO2(opts.SecondaryLanguage)
	if primary == "" || secondary == "" || primary == secondary {
		return nil, fmt.Errorf("watcher: need two distinct languages, got %q and %q", opts.PrimaryLanguage, opts.SecondaryLanguage)
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	return &Watcher{
		opts:      opts,
		handler:   handler,
		logger:    logging.NewComponentLogger(logger, "watch"),
		lock:      flock.New(filepath.Join(opts.Dir, LockFileName)),
		primary:   primary,
		secondary: secondary,
		timers:    make(map[string]*time.Timer),
		processed: make(map[string]string),
		ready:     make(chan string, 64),
		done:      make(chan struct{}),
		semaphore: make(chan struct{}, opts.MaxConcurrent),
	}, nil
}

// Run watches until ctx is cancelled, then waits for in-flight merges. A
// Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() { _ = w.lock.Unlock() }()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("add watch path: %w", err)
	}

	w.logger.Info("watching for subtitle pairs",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String("dir", w.opts.Dir),
		logging.String("pair", language.PairLabel(w.primary, w.secondary)),
		logging.Int("max_concurrent", w.opts.MaxConcurrent),
	)
	if w.opts.ScanExisting {
		w.scanExisting()
	}

	defer w.stopTimers()
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watch_stopped"))
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			track, ok := ParseTrackName(event.Name)
			if !ok || (track.Language != w.primary && track.Language != w.secondary) {
				continue
			}
			w.schedule(track.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file events may be missed"),
			)

		case name := <-w.ready:
			w.dispatch(ctx, name)
		}
	}
}

func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		w.logger.Warn("initial scan failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if track, ok := ParseTrackName(entry.Name()); ok && track.Language == w.primary {
			w.schedule(track.Name)
		}
	}
}

// schedule (re)starts the settle timer for name.
func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[name]; ok {
		timer.Reset(w.opts.Settle)
		return
	}
	w.timers[name] = time.AfterFunc(w.opts.Settle, func() {
		w.mu.Lock()
		delete(w.timers, name)
		w.mu.Unlock()
		select {
		case w.ready <- name:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, timer := range w.timers {
		timer.Stop()
		delete(w.timers, name)
	}
}

func (w *Watcher) dispatch(ctx context.Context, name string) {
	pair, ok := findPair(w.opts.Dir, name, w.primary, w.secondary)
	if !ok {
		return
	}
	key, err := pairKey(pair)
	if err != nil {
		w.logger.Debug("pair not readable yet", logging.String("name", name), logging.Error(err))
		return
	}
	w.mu.Lock()
	if w.processed[name] == key {
		w.mu.Unlock()
		return
	}
	w.processed[name] = key
	w.mu.Unlock()

	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()
		w.logger.Info("subtitle pair detected",
			logging.String(logging.FieldEventType, "pair_detected"),
			logging.String("primary_file", pair.Primary),
			logging.String("secondary_file", pair.Secondary),
		)
		if err := w.handler(ctx, pair); err != nil {
			w.logger.Error("pair merge failed",
				logging.String("name", pair.Name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "pair_failed"),
			)
			w.mu.Lock()
			delete(w.processed, name)
			w.mu.Unlock()
		}
	}()
}

// pairKey changes whenever either track's content changes.
func pairKey(pair Pair) (string, error) {
	primary, err := fileutil.FingerprintFile(pair.Primary)
	if err != nil {
		return "", err
	}
	secondary, err := fileutil.FingerprintFile(pair.Secondary)
	if err != nil {
		return "", err
	}
	return primary + ":" + secondary, nil
}
