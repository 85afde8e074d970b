package config

import (
	"fmt"
	"os"
	"strings"

	"dualsubs/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMerge()
	if err := c.normalizeLanguages(); err != nil {
		return err
	}
	c.normalizeOpenSubtitles()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMerge() {
	c.Merge.Strategy = strings.ToLower(strings.TrimSpace(c.Merge.Strategy))
	if c.Merge.Strategy == "" {
		c.Merge.Strategy = defaultStrategy
	}
	c.Merge.Leftovers = strings.ToLower(strings.TrimSpace(c.Merge.Leftovers))
	if c.Merge.Leftovers == "" {
		c.Merge.Leftovers = defaultLeftovers
	}
	c.Merge.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Merge.Format), "."))
	if c.Merge.Format == "" {
		c.Merge.Format = defaultFormat
	}
	c.Merge.FallbackEncoding = strings.ToLower(strings.TrimSpace(c.Merge.FallbackEncoding))
}

func (c *Config) normalizeLanguages() error {
	if strings.TrimSpace(c.Languages.Primary) == "" {
		c.Languages.Primary = defaultPrimaryLanguage
	}
	if strings.TrimSpace(c.Languages.Secondary) == "" {
		c.Languages.Secondary = defaultSecondaryLanguage
	}
	primary, err := language.Normalize(c.Languages.Primary)
	if err != nil {
		return fmt.Errorf("languages.primary: %w", err)
	}
	secondary, err := language.Normalize(c.Languages.Secondary)
	if err != nil {
		return fmt.Errorf("languages.secondary: %w", err)
	}
	c.Languages.Primary = primary
	c.Languages.Secondary = secondary
	return nil
}

func (c *Config) normalizeOpenSubtitles() {
	c.OpenSubtitles.APIKey = strings.TrimSpace(c.OpenSubtitles.APIKey)
	if c.OpenSubtitles.APIKey == "" {
		if value, ok := os.LookupEnv("OPENSUBTITLES_API_KEY"); ok {
			c.OpenSubtitles.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenSubtitles.UserToken = strings.TrimSpace(c.OpenSubtitles.UserToken)
	if c.OpenSubtitles.UserToken == "" {
		if value, ok := os.LookupEnv("OPENSUBTITLES_USER_TOKEN"); ok {
			c.OpenSubtitles.UserToken = strings.TrimSpace(value)
		}
	}
	c.OpenSubtitles.UserAgent = strings.TrimSpace(c.OpenSubtitles.UserAgent)
	if c.OpenSubtitles.UserAgent == "" {
		c.OpenSubtitles.UserAgent = defaultOpenSubtitlesUserAgent
	}
	c.OpenSubtitles.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenSubtitles.BaseURL), "/")
	if c.OpenSubtitles.BaseURL == "" {
		c.OpenSubtitles.BaseURL = defaultOpenSubtitlesBaseURL
	}
	if c.OpenSubtitles.MaxPairs == 0 {
		c.OpenSubtitles.MaxPairs = defaultOpenSubtitlesMaxPairs
	}
	if c.OpenSubtitles.TimeoutSeconds == 0 {
		c.OpenSubtitles.TimeoutSeconds = defaultOpenSubtitlesTimeout
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.MaxConcurrent == 0 {
		c.Watch.MaxConcurrent = defaultWatchMaxConcurrent
	}
	if c.Watch.SettleMillis == 0 {
		c.Watch.SettleMillis = defaultWatchSettleMillis
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
