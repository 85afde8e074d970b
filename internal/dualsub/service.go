package dualsub

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"dualsubs/internal/config"
	"dualsubs/internal/history"
	"dualsubs/internal/logging"
	"dualsubs/internal/opensubtitles"
	"dualsubs/internal/services"
)

const defaultRequestInterval = 200 * time.Millisecond

type openSubtitlesClient interface {
	Search(ctx context.Context, req opensubtitles.SearchRequest) (opensubtitles.SearchResponse, error)
	Download(ctx context.Context, fileID int64) (opensubtitles.DownloadResult, error)
}

// Service runs merges and fetches on behalf of the CLI.
type Service struct {
	config  *config.Config
	logger  *slog.Logger
	history *history.Store
	now     func() time.Time

	openSubsOnce     sync.Once
	openSubsErr      error
	openSubs         openSubtitlesClient
	openSubsCache    *opensubtitles.Cache
	openSubsMu       sync.Mutex
	openSubsLastCall time.Time
	requestInterval  time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithHistory records every merge in store. A nil store disables recording.
func WithHistory(store *history.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithOpenSubtitlesClient injects a search/download client (primarily for tests).
func WithOpenSubtitlesClient(client openSubtitlesClient) Option {
	return func(s *Service) {
		if client != nil {
			s.openSubs = client
		}
	}
}

// WithRequestInterval overrides the minimum spacing between OpenSubtitles calls.
func WithRequestInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.requestInterval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		config:          cfg,
		logger:          logging.NewComponentLogger(logger, "dualsub"),
		now:             time.Now,
		requestInterval: defaultRequestInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ensureOpenSubtitlesReady() error {
	if s == nil {
		return services.Wrap(services.ErrConfiguration, "fetch", "opensubtitles init", "Service unavailable", nil)
	}
	s.openSubsOnce.Do(func() {
		if s.config == nil {
			s.openSubsErr = services.Wrap(services.ErrConfiguration, "fetch", "opensubtitles init", "Configuration unavailable", nil)
			return
		}
		if s.openSubs == nil {
			if err := s.config.RequireOpenSubtitles(); err != nil {
				s.openSubsErr = services.Wrap(services.ErrConfiguration, "fetch", "opensubtitles init", "OpenSubtitles is not configured", err)
				return
			}
			client, err := opensubtitles.New(opensubtitles.Config{
				APIKey:     s.config.OpenSubtitles.APIKey,
				UserAgent:  s.config.OpenSubtitles.UserAgent,
				UserToken:  s.config.OpenSubtitles.UserToken,
				BaseURL:    s.config.OpenSubtitles.BaseURL,
				HTTPClient: &http.Client{Timeout: s.config.OpenSubtitlesTimeout()},
			})
			if err != nil {
				s.openSubsErr = services.Wrap(services.ErrConfiguration, "fetch", "opensubtitles init", "Invalid OpenSubtitles settings", err)
				return
			}
			s.openSubs = client
		}
		if dir := strings.TrimSpace(s.config.Paths.CacheDir); dir != "" {
			cache, err := opensubtitles.NewCache(dir, s.logger)
			if err != nil {
				logging.WarnWithContext(s.logger, "opensubtitles cache unavailable; caching disabled", "opensubtitles_cache_unavailable",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check paths.cache_dir permissions"),
					logging.String(logging.FieldImpact, "every fetch downloads again and counts against the quota"),
				)
			} else {
				s.openSubsCache = cache
			}
		}
		s.logger.Debug("opensubtitles ready",
			logging.String("user_agent", s.config.OpenSubtitles.UserAgent),
			logging.Bool("user_token_present", s.config.OpenSubtitles.UserToken != ""),
		)
	})
	return s.openSubsErr
}

// waitForOpenSubtitlesWindow spaces API calls at least requestInterval apart.
func (s *Service) waitForOpenSubtitlesWindow(ctx context.Context) error {
	s.openSubsMu.Lock()
	defer s.openSubsMu.Unlock()
	if wait := s.requestInterval - time.Since(s.openSubsLastCall); wait > 0 {
		if err := opensubtitles.SleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
	s.openSubsLastCall = time.Now()
	return nil
}
